package model

import "strings"

// Sector is a tracked ticker. Identity is Ticker.
type Sector struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Custom bool   `json:"custom,omitempty"`
}

// Catalog lists the built-in sector ETFs.
var Catalog = []Sector{
	{Ticker: "XLB", Name: "Materials", Color: "#f97316"},
	{Ticker: "XLE", Name: "Energy", Color: "#3b82f6"},
	{Ticker: "XLF", Name: "Financials", Color: "#a855f7"},
	{Ticker: "XLI", Name: "Industrials", Color: "#06b6d4"},
	{Ticker: "XLK", Name: "Technology", Color: "#10b981"},
	{Ticker: "XLP", Name: "Consumer Staples", Color: "#f59e0b"},
	{Ticker: "XLU", Name: "Utilities", Color: "#6366f1"},
	{Ticker: "XLV", Name: "Healthcare", Color: "#ec4899"},
	{Ticker: "XLY", Name: "Consumer Disc", Color: "#14b8a6"},
	{Ticker: "XLRE", Name: "Real Estate", Color: "#8b5cf6"},
	{Ticker: "XLC", Name: "Communication", Color: "#f43f5e"},
	{Ticker: "SMH", Name: "Semiconductors", Color: "#22d3ee"},
	{Ticker: "XHB", Name: "Homebuilders", Color: "#a3e635"},
	{Ticker: "XOP", Name: "Oil & Gas E&P", Color: "#fbbf24"},
	{Ticker: "XME", Name: "Metals & Mining", Color: "#fb923c"},
	{Ticker: "KRE", Name: "Regional Banks", Color: "#c084fc"},
	{Ticker: "XBI", Name: "Biotech", Color: "#f472b6"},
	{Ticker: "ITB", Name: "Home Construction", Color: "#4ade80"},
	{Ticker: "IYT", Name: "Transportation", Color: "#38bdf8"},
}

// Lookup finds a catalog sector by ticker, case-insensitively.
func Lookup(ticker string) (Sector, bool) {
	t := NormalizeTicker(ticker)
	for _, s := range Catalog {
		if s.Ticker == t {
			return s, true
		}
	}
	return Sector{}, false
}

// NormalizeTicker trims and uppercases a user-supplied ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
