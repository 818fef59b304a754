// 文件: pkg/ingest/html.go
// HTML 表格片段 -> 单元格文本
//
// 单元格文本按浏览器 innerText 的方式拼接: 块级元素之间插入换行,
// 否则 "<div>BTC</div><div>10.50x</div>" 会被拼成 "BTC10.50x"。
// 文本节点原样保留, 与 JSON 单元格一样不做裁剪。

package ingest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// blockTags innerText 中前后换行的元素
var blockTags = map[string]bool{
	"div": true, "p": true, "br": true, "li": true, "ul": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "section": true,
}

// RowsFromHTML 解析 <tbody>/<tr> 片段, 每个 tr 的 td 文本为一行
//
// 没有 td 的行 (表头) 不输出。
func RowsFromHTML(fragment string) ([][]string, error) {
	// tr 脱离 table 时会被 HTML 解析器丢弃
	if !strings.Contains(strings.ToLower(fragment), "<table") {
		fragment = "<table>" + fragment + "</table>"
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, errors.Wrap(err, "parse html rows")
	}

	var rows [][]string
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() == 0 {
			return
		}
		cells := make([]string, 0, tds.Length())
		tds.Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, innerText(td))
		})
		rows = append(rows, cells)
	})
	return rows, nil
}

// innerText 单元格文本, 原文不做裁剪
//
// 块级元素只在两段内容之间产生一个换行, 不会在开头或结尾补换行。
func innerText(sel *goquery.Selection) string {
	w := &textWriter{}
	w.walk(sel)
	return w.sb.String()
}

type textWriter struct {
	sb  strings.Builder
	brk bool // 下一段文本前需要换行
}

func (w *textWriter) walk(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		if name == "#text" {
			text := node.Text()
			if text == "" {
				return
			}
			if w.brk && w.sb.Len() > 0 {
				w.sb.WriteByte('\n')
			}
			w.brk = false
			w.sb.WriteString(text)
			return
		}
		if blockTags[name] {
			w.brk = true
		}
		w.walk(node)
		if blockTags[name] {
			w.brk = true
		}
	})
}
