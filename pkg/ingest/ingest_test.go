package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens.com/pkg/kafka"
	bus "lens.com/pkg/nats"
)

var positionCells = []string{
	"BTC 10.50x Short",
	"$640,000.00",
	"-$120.50 -$80.25 (-3.40%)",
	"$2,350.00",
	"$61,250.10",
	"$60,000.00",
	"$66,800.00",
}

var orderCells = []string{"ShortETH/USD", "Limit", "-$1,500.00", "> $3,450.00"}

const positionsHTML = `<tbody>
<tr><th>Position</th><th>Size</th></tr>
<tr>
  <td><div>BTC</div><div>10.50x Short</div></td>
  <td>$640,000.00</td>
  <td><span>-$120.50</span> <span>-$80.25 (-3.40%)</span></td>
  <td>$2,350.00</td>
  <td>$61,250.10</td>
  <td>$60,000.00</td>
  <td>$66,800.00</td>
</tr>
</tbody>`

// =============================================================================
// 解码测试
// =============================================================================

func TestDecodeSnapshots(t *testing.T) {
	tests := []struct {
		name string
		data string
		urls []string
	}{
		{"array", `[{"url":"a"},{"url":"b"}]`, []string{"a", "b"}},
		{"single object", `{"url":"a"}`, []string{"a"}},
		{"truncated", `[{"url":"a","orders":[["LongBTC/USD","Limit"`, []string{"a"}},
		{"trailing comma", `{"url":"a",}`, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := DecodeSnapshots([]byte(tt.data))
			require.NoError(t, err)

			urls := make([]string, 0, len(list))
			for _, s := range list {
				urls = append(urls, s.URL)
			}
			assert.Equal(t, tt.urls, urls)
		})
	}
}

func TestDecodeSnapshots_Empty(t *testing.T) {
	_, err := DecodeSnapshots([]byte("  \n"))
	require.ErrorIs(t, err, ErrNoSnapshots)
}

func TestDecodeSnapshot_Cells(t *testing.T) {
	s, err := DecodeSnapshot([]byte(`{"url":"u","positions":[["a","b"]],"orders":[["c"]]}`))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, s.Positions)
	assert.Equal(t, [][]string{{"c"}}, s.Orders)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"url":"a"}]`), 0o644))

	list, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

// =============================================================================
// HTML 测试
// =============================================================================

func TestRowsFromHTML(t *testing.T) {
	rows, err := RowsFromHTML(positionsHTML)
	require.NoError(t, err)
	require.Len(t, rows, 1) // 表头行没有 td

	row := rows[0]
	require.Len(t, row, 7)
	assert.Contains(t, row[0], "BTC")
	assert.Contains(t, row[0], "\n")
	assert.Equal(t, "$66,800.00", row[6])
}

func TestRowsFromHTML_FullTable(t *testing.T) {
	rows, err := RowsFromHTML(`<table><tr><td>ShortETH/USD</td><td>Limit</td><td>-$1.00</td><td>&gt; $2.00</td></tr></table>`)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ShortETH/USD", "Limit", "-$1.00", "> $2.00"}}, rows)
}

func TestRowsFromHTML_NoTrimming(t *testing.T) {
	rows, err := RowsFromHTML(`<tr><td> -$5.00</td><td><div>Limit</div></td><td><p>a</p><p>b</p></td></tr>`)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{" -$5.00", "Limit", "a\nb"}}, rows)
}

// 挂单数量的前缀符号规则在两种输入下一致
func TestBuild_HTMLOrderSignMatchesCells(t *testing.T) {
	cells := []string{"ShortETH/USD", "Limit", " -$5.00", "> $3,450.00"}
	html := `<tr><td>ShortETH/USD</td><td>Limit</td><td> -$5.00</td><td>&gt; $3,450.00</td></tr>`

	b := NewBuilder(nil)
	fromCells, _, err := b.Build([]Snapshot{{URL: "a", Orders: [][]string{cells}}})
	require.NoError(t, err)
	fromHTML, _, err := b.Build([]Snapshot{{URL: "a", OrdersHTML: html}})
	require.NoError(t, err)

	require.Len(t, fromHTML[0].Orders, 1)
	assert.Equal(t, fromCells[0].Orders, fromHTML[0].Orders)
	assert.Equal(t, 5.0, fromHTML[0].Orders[0].Size)
}

// HTML 行与单元格数组产生相同的记录
func TestBuild_HTMLMatchesCells(t *testing.T) {
	b := NewBuilder(nil)

	fromCells, _, err := b.Build([]Snapshot{{URL: "a", Positions: [][]string{positionCells}}})
	require.NoError(t, err)
	fromHTML, _, err := b.Build([]Snapshot{{URL: "a", PositionsHTML: positionsHTML}})
	require.NoError(t, err)

	require.Len(t, fromHTML[0].Positions, 1)
	assert.Equal(t, fromCells[0].Positions, fromHTML[0].Positions)
}

// =============================================================================
// Builder 测试
// =============================================================================

func TestBuild(t *testing.T) {
	snapshots := []Snapshot{
		{URL: "a", Positions: [][]string{positionCells, {"too", "short"}}},
		{URL: "b", Orders: [][]string{orderCells}},
		{URL: "a", Positions: [][]string{positionCells}}, // 重复账户
		{URL: "c", Positions: [][]string{{"garbage", "", "", "", "", "", ""}}},
	}

	pop, stats, err := NewBuilder(nil).Build(snapshots)
	require.NoError(t, err)
	require.Len(t, pop, 3)

	for i, tr := range pop {
		assert.Equal(t, i, tr.ID)
	}
	assert.Equal(t, "a", pop[0].URL)
	assert.Equal(t, "b", pop[1].URL)
	assert.Equal(t, "c", pop[2].URL)

	assert.Len(t, pop[0].Positions, 1)
	assert.Equal(t, -80.25, pop[0].Positions[0].PnL)
	require.Len(t, pop[1].Orders, 1)
	assert.Equal(t, 3450.0, pop[1].Orders[0].Trigger)

	assert.Equal(t, Stats{
		Accounts:        3,
		Positions:       2,
		Orders:          1,
		MalformedRows:   1,
		DefaultedFields: 4,
		DuplicateURLs:   1,
	}, stats)
}

// 挂单行缺列时按默认值保留, 不算作格式错误
func TestBuild_ShortOrderRowKept(t *testing.T) {
	pop, stats, err := NewBuilder(nil).Build([]Snapshot{{URL: "a", Orders: [][]string{{"LongBTC/USD"}}}})
	require.NoError(t, err)

	require.Len(t, pop[0].Orders, 1)
	assert.Equal(t, "BTC", pop[0].Orders[0].Asset)
	assert.Zero(t, pop[0].Orders[0].Trigger)
	assert.Equal(t, 1, stats.Orders)
	assert.Zero(t, stats.MalformedRows)
	assert.Positive(t, stats.DefaultedFields)
}

func TestBuild_NoSnapshots(t *testing.T) {
	_, _, err := NewBuilder(nil).Build(nil)
	require.ErrorIs(t, err, ErrNoSnapshots)
}

// =============================================================================
// 来源测试
// =============================================================================

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "1.json")
	p2 := filepath.Join(dir, "2.json")
	require.NoError(t, os.WriteFile(p1, []byte(`[{"url":"a"}]`), 0o644))
	require.NoError(t, os.WriteFile(p2, []byte(`{"url":"b"}`), 0o644))

	list, err := FileSource{Paths: []string{p1, p2}}.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[1].URL)

	_, err = FileSource{}.Collect(context.Background())
	require.ErrorIs(t, err, ErrNoSnapshots)
}

func TestCollector(t *testing.T) {
	col := NewCollector(nil)
	ctx := context.Background()

	require.NoError(t, col.Handle(ctx, kafka.Record{Key: []byte("https://venue/a"), Value: []byte(`{"orders":[]}`)}))
	require.NoError(t, col.Handle(ctx, kafka.Record{Key: []byte("k"), Value: []byte(`{"url":"b"}`)}))
	require.Error(t, col.Handle(ctx, kafka.Record{Key: []byte("k"), Value: []byte(`[1,2`)}))

	select {
	case <-col.Done():
		t.Fatal("done before run end")
	default:
	}

	require.NoError(t, col.Handle(ctx, kafka.Record{Key: []byte(RunEndKey)}))
	require.NoError(t, col.Handle(ctx, kafka.Record{Key: []byte("late"), Value: []byte(`{"url":"late"}`)}))

	<-col.Done()
	list := col.Snapshots()
	require.Len(t, list, 2)
	assert.Equal(t, "https://venue/a", list[0].URL) // URL 缺省时取 key
	assert.Equal(t, "b", list[1].URL)
	assert.Equal(t, 1, col.Rejected())
}

func TestCollector_HandleMessage(t *testing.T) {
	col := NewCollector(nil)

	require.NoError(t, col.HandleMessage(bus.Message{Subject: "s", Key: "https://venue/a", Data: []byte(`{}`)}))
	require.Error(t, col.HandleMessage(bus.Message{Subject: "s", Data: []byte(`[1,2`)}))
	require.NoError(t, col.HandleMessage(bus.Message{Subject: "s", Key: RunEndKey}))

	<-col.Done()
	list := col.Snapshots()
	require.Len(t, list, 1)
	assert.Equal(t, "https://venue/a", list[0].URL)
	assert.Equal(t, 1, col.Rejected())
}

// setupNATS 连接本地 NATS, 不可用时跳过
func setupNATS(t *testing.T) *nats.Conn {
	conn, err := bus.Connect(nats.DefaultURL, "lens-ingest-test", nil)
	if err != nil {
		t.Skipf("skipping test; nats not available: %v", err)
	}
	t.Cleanup(conn.Close)
	return conn
}

func TestNATSSource(t *testing.T) {
	conn := setupNATS(t)
	subject := "lens.test.snapshots"
	src := NewNATSSource(conn, subject, nil)

	type result struct {
		list []Snapshot
		err  error
	}
	done := make(chan result, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() {
		list, err := src.Collect(ctx)
		done <- result{list, err}
	}()

	// 同一连接上 SUB 先于 PUB 到达服务端
	require.Eventually(t, func() bool { return conn.NumSubscriptions() > 0 }, 2*time.Second, 10*time.Millisecond)

	pub := bus.NewPublisher(conn, nil)
	require.NoError(t, pub.Publish(subject, "https://venue/a", Snapshot{Orders: [][]string{orderCells}}))
	require.NoError(t, pub.Publish(subject, RunEndKey, struct{}{}))
	require.NoError(t, pub.Flush(time.Second))

	r := <-done
	require.NoError(t, r.err)
	require.NotEmpty(t, r.list)
	assert.Equal(t, "https://venue/a", r.list[0].URL)
	assert.Equal(t, [][]string{orderCells}, r.list[0].Orders)
}

func TestNewNATSSource_DefaultSubject(t *testing.T) {
	assert.Equal(t, DefaultSnapshotSubject, NewNATSSource(nil, "", nil).subject)
}

func TestAwait(t *testing.T) {
	col := NewCollector(nil)
	go func() {
		_ = col.Handle(context.Background(), kafka.Record{Key: []byte("a"), Value: []byte(`{"url":"a"}`)})
		_ = col.Handle(context.Background(), kafka.Record{Key: []byte(RunEndKey)})
	}()

	list, err := await(context.Background(), col)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAwait_ContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := await(ctx, NewCollector(nil))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAwait_EmptyRun(t *testing.T) {
	col := NewCollector(nil)
	require.NoError(t, col.Handle(context.Background(), kafka.Record{Key: []byte(RunEndKey)}))

	_, err := await(context.Background(), col)
	require.ErrorIs(t, err, ErrNoSnapshots)
}
