package order

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Side is the trade direction. The numeric values are the createOrder
// orderType argument and must not be reordered.
type Side uint8

const (
	Buy  Side = 0
	Sell Side = 1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// Code returns the on-chain encoding (Buy=0, Sell=1).
func (s Side) Code() uint8 { return uint8(s) }

func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return Buy, fmt.Errorf("unknown side %q", v)
	}
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DraftValues is a point-in-time copy of a Draft.
type DraftValues struct {
	Side   Side   `json:"side"`
	Amount string `json:"amount"`
	Price  string `json:"price"`
}

// Draft holds the unvalidated form fields of one trade panel.
// Setters may be called from HTTP handlers while a submission is in flight.
type Draft struct {
	mu     sync.RWMutex
	side   Side
	amount string
	price  string
}

func NewDraft() *Draft {
	return &Draft{side: Buy}
}

func (d *Draft) SetSide(s Side) {
	d.mu.Lock()
	d.side = s
	d.mu.Unlock()
}

func (d *Draft) SetAmount(v string) {
	d.mu.Lock()
	d.amount = v
	d.mu.Unlock()
}

func (d *Draft) SetPrice(v string) {
	d.mu.Lock()
	d.price = v
	d.mu.Unlock()
}

func (d *Draft) Snapshot() DraftValues {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return DraftValues{Side: d.side, Amount: d.amount, Price: d.price}
}

// Reset clears amount and price. The selected side is kept, like the panel tab.
func (d *Draft) Reset() {
	d.mu.Lock()
	d.amount = ""
	d.price = ""
	d.mu.Unlock()
}

// Quote is the live summary block for these form values.
func (v DraftValues) Quote(feeBps int64) Quote {
	return NewQuote(v.Amount, v.Price, feeBps)
}

// Request is a validated order, ready for the gateway.
type Request struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
	Side   Side            `json:"side"`
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s %s@%s", r.Side, r.Symbol, r.Amount, r.Price)
}
