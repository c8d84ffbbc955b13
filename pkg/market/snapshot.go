package market

import "github.com/shopspring/decimal"

func stat(symbol, price, change, pct, volume string, trend Trend) Stat {
	return Stat{
		Symbol:    symbol,
		Price:     decimal.RequireFromString(price),
		Change:    decimal.RequireFromString(change),
		ChangePct: decimal.RequireFromString(pct),
		Volume:    volume,
		Trend:     trend,
	}
}

// DeskSnapshot returns the overview shown on the trading screen.
func DeskSnapshot() *Registry {
	r := NewRegistry()
	for _, st := range []Stat{
		stat("BTC/USD", "42141.38", "2.45", "5.8", "2.4B", Up),
		stat("ETH/USD", "2487.92", "-18.33", "-0.7", "1.8B", Down),
		stat("SOL/USD", "98.45", "4.21", "4.5", "589M", Up),
		stat("AVAX/USD", "34.67", "-1.23", "-3.4", "234M", Down),
	} {
		// symbols are distinct
		_ = r.Register(st)
	}

	_ = r.SetBook(Book{
		Symbol: "BTC/USD",
		Asks: []Level{
			NewLevel("42150.25", "2.5"),
			NewLevel("42148.75", "1.8"),
			NewLevel("42147.50", "3.2"),
			NewLevel("42145.00", "5.1"),
			NewLevel("42142.75", "2.9"),
		},
		Bids: []Level{
			NewLevel("42140.50", "4.7"),
			NewLevel("42138.25", "3.1"),
			NewLevel("42136.00", "6.2"),
			NewLevel("42134.75", "2.3"),
			NewLevel("42132.50", "4.8"),
		},
	})
	return r
}
