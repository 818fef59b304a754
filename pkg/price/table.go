// 文件: pkg/price/table.go
// 交易所 ticker -> 行情源 ID 的固定映射

package price

import "strings"

// feedSymbols 已知 ticker 的 CoinGecko ID
var feedSymbols = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"LINK":  "chainlink",
	"DOGE":  "dogecoin",
	"ARB":   "arbitrum",
	"GMX":   "gmx",
	"WIF":   "wrapped-fantom",
	"AAVE":  "aave",
	"PEPE":  "pepe",
	"UNI":   "uniswap",
	"XRP":   "ripple",
	"NEAR":  "near",
	"AVAX":  "avalanche-2",
	"LTC":   "litecoin",
	"BNB":   "binancecoin",
	"OP":    "optimism",
	"ATOM":  "cosmos",
	"EIGEN": "eigen",
	"SHIB":  "shiba-inu",
	"SUI":   "sui",
	"SEI":   "sei",
	"POL":   "polymath",
	"ORDI":  "ordi",
	"SATS":  "sats",
	"STX":   "stacks",
	"APE":   "apecoin",
}

// FeedSymbol 把 ticker 转成行情源 ID
//
// "BTC/USD" 先取 "/" 前半段; 不在表里的 ticker 直接转小写。
func FeedSymbol(ticker string) string {
	base, _, _ := strings.Cut(ticker, "/")
	if sym, ok := feedSymbols[base]; ok {
		return sym
	}
	return strings.ToLower(base)
}

// KnownTickers 映射表中的 ticker 数量
func KnownTickers() int {
	return len(feedSymbols)
}
