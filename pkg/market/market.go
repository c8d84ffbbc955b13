// Package market serves the desk's market overview: stat tiles per pair
// and the order book ladder. The data is a fixed snapshot.
package market

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("market not found")

type Trend string

const (
	Up   Trend = "up"
	Down Trend = "down"
)

type Stat struct {
	Symbol    string          `json:"symbol"` // e.g. "BTC/USD"
	Price     decimal.Decimal `json:"price"`
	Change    decimal.Decimal `json:"change"`
	ChangePct decimal.Decimal `json:"changePct"`
	Volume    string          `json:"volume"` // display string, e.g. "2.4B"
	Trend     Trend           `json:"trend"`
}

type Level struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
	Total decimal.Decimal `json:"total"` // price * size, cents
}

func NewLevel(price, size string) Level {
	p := decimal.RequireFromString(price)
	s := decimal.RequireFromString(size)
	return Level{Price: p, Size: s, Total: p.Mul(s).Round(2)}
}

// Book is a ladder snapshot. Both sides are ordered high to low, so the
// best ask is the last ask and the best bid the first bid.
type Book struct {
	Symbol string  `json:"symbol"`
	Asks   []Level `json:"asks"`
	Bids   []Level `json:"bids"`
}

func (b Book) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[len(b.Asks)-1], true
}

func (b Book) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// Spread is best ask minus best bid, zero when a side is empty.
func (b Book) Spread() decimal.Decimal {
	ask, ok1 := b.BestAsk()
	bid, ok2 := b.BestBid()
	if !ok1 || !ok2 {
		return decimal.Zero
	}
	return ask.Price.Sub(bid.Price)
}

func sortDesc(levels []Level) {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Price.GreaterThan(levels[j].Price)
	})
}

// Registry holds the stats and books by symbol.
type Registry struct {
	mu    sync.RWMutex
	order []string
	stats map[string]Stat
	books map[string]Book
}

func NewRegistry() *Registry {
	return &Registry{
		stats: make(map[string]Stat),
		books: make(map[string]Book),
	}
}

// NormalizeSymbol accepts "BTC", "btc-usd" or "BTC/USD" and returns "BTC/USD".
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "/")
	if s != "" && !strings.Contains(s, "/") {
		s += "/USD"
	}
	return s
}

func (r *Registry) Register(st Stat) error {
	st.Symbol = NormalizeSymbol(st.Symbol)
	if st.Symbol == "" {
		return fmt.Errorf("cannot register market without symbol")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stats[st.Symbol]; exists {
		return fmt.Errorf("market %s already registered", st.Symbol)
	}
	r.stats[st.Symbol] = st
	r.order = append(r.order, st.Symbol)
	return nil
}

// SetBook replaces the ladder for a registered symbol.
func (r *Registry) SetBook(b Book) error {
	b.Symbol = NormalizeSymbol(b.Symbol)
	b.Asks = append([]Level(nil), b.Asks...)
	b.Bids = append([]Level(nil), b.Bids...)
	sortDesc(b.Asks)
	sortDesc(b.Bids)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stats[b.Symbol]; !ok {
		return fmt.Errorf("%s: %w", b.Symbol, ErrNotFound)
	}
	r.books[b.Symbol] = b
	return nil
}

// Stats lists markets in registration order.
func (r *Registry) Stats() []Stat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Stat, 0, len(r.order))
	for _, sym := range r.order {
		out = append(out, r.stats[sym])
	}
	return out
}

func (r *Registry) Stat(symbol string) (Stat, error) {
	sym := NormalizeSymbol(symbol)
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.stats[sym]
	if !ok {
		return Stat{}, fmt.Errorf("%s: %w", sym, ErrNotFound)
	}
	return st, nil
}

// Book returns the ladder for symbol; a registered market without a
// ladder yields an empty book.
func (r *Registry) Book(symbol string) (Book, error) {
	sym := NormalizeSymbol(symbol)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.stats[sym]; !ok {
		return Book{}, fmt.Errorf("%s: %w", sym, ErrNotFound)
	}
	b, ok := r.books[sym]
	if !ok {
		return Book{Symbol: sym, Asks: []Level{}, Bids: []Level{}}, nil
	}
	return b, nil
}
