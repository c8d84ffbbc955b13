package order

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrBlankInput  = errors.New("amount and price are required")
	ErrNotNumeric  = errors.New("not a decimal number")
	ErrNonPositive = errors.New("must be greater than zero")
	ErrTooPrecise  = errors.New("more decimal places than the wire format allows")
	ErrOutOfRange  = errors.New("exceeds uint32 wire range")
)

var maxWire = decimal.NewFromInt(math.MaxUint32)

// Plain decimal text, as a number input produces it. No sign, no exponent.
var decimalText = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

const maxInputLen = 32

// WireFormat is the fixed-point scaling used to fit decimal input into the
// contract's uint32 amount and price arguments.
type WireFormat struct {
	AmountDecimals int32
	PriceDecimals  int32
}

// WireOrder is the createOrder argument tuple.
type WireOrder struct {
	Symbol string
	Amount uint32
	Price  uint32
	Side   uint8
}

func (f WireFormat) Encode(r Request) (WireOrder, error) {
	amount, err := scale(r.Amount, f.AmountDecimals)
	if err != nil {
		return WireOrder{}, fmt.Errorf("amount %s: %w", r.Amount, err)
	}
	price, err := scale(r.Price, f.PriceDecimals)
	if err != nil {
		return WireOrder{}, fmt.Errorf("price %s: %w", r.Price, err)
	}
	return WireOrder{
		Symbol: r.Symbol,
		Amount: amount,
		Price:  price,
		Side:   r.Side.Code(),
	}, nil
}

// Decode maps wire units back to decimals.
func (f WireFormat) Decode(w WireOrder) Request {
	return Request{
		Symbol: w.Symbol,
		Amount: decimal.New(int64(w.Amount), -f.AmountDecimals),
		Price:  decimal.New(int64(w.Price), -f.PriceDecimals),
		Side:   Side(w.Side),
	}
}

// scale never truncates: input finer than the scale is an error.
func scale(v decimal.Decimal, decimals int32) (uint32, error) {
	shifted := v.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrTooPrecise
	}
	if shifted.Sign() <= 0 {
		return 0, ErrNonPositive
	}
	if shifted.GreaterThan(maxWire) {
		return 0, ErrOutOfRange
	}
	return uint32(shifted.IntPart()), nil
}

func parsePositive(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, ErrBlankInput
	}
	if len(text) > maxInputLen || !decimalText.MatchString(text) {
		return decimal.Zero, ErrNotNumeric
	}
	v, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, ErrNotNumeric
	}
	if v.Sign() <= 0 {
		return decimal.Zero, ErrNonPositive
	}
	return v, nil
}

// BuildRequest validates draft values and projects them into a Request.
// The wire format is checked here so that unrepresentable input is a
// validation failure rather than a gateway failure.
func BuildRequest(symbol string, v DraftValues, wire WireFormat) (Request, error) {
	if strings.TrimSpace(v.Amount) == "" || strings.TrimSpace(v.Price) == "" {
		return Request{}, ErrBlankInput
	}
	if v.Side != Buy && v.Side != Sell {
		return Request{}, fmt.Errorf("invalid side %d", v.Side)
	}
	amount, err := parsePositive(v.Amount)
	if err != nil {
		return Request{}, fmt.Errorf("amount %q: %w", v.Amount, err)
	}
	price, err := parsePositive(v.Price)
	if err != nil {
		return Request{}, fmt.Errorf("price %q: %w", v.Price, err)
	}

	req := Request{Symbol: symbol, Amount: amount, Price: price, Side: v.Side}
	if _, err := wire.Encode(req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Total returns amount*price, or zero when either side is blank,
// unparseable or not positive.
func Total(amountText, priceText string) decimal.Decimal {
	amount, err := parsePositive(amountText)
	if err != nil {
		return decimal.Zero
	}
	price, err := parsePositive(priceText)
	if err != nil {
		return decimal.Zero
	}
	return amount.Mul(price)
}

// Quote is the summary block under the trade form.
type Quote struct {
	Total  decimal.Decimal `json:"total"`
	FeeBps int64           `json:"feeBps"`
	Fee    decimal.Decimal `json:"fee"`
}

func NewQuote(amountText, priceText string, feeBps int64) Quote {
	total := Total(amountText, priceText)
	return Quote{
		Total:  total,
		FeeBps: feeBps,
		Fee:    total.Mul(decimal.New(feeBps, -4)),
	}
}
