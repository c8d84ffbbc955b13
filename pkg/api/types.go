package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/otcdesk/pkg/order"
)

// ==============================
// REST Types
// ==============================

// DraftView is the trade form as the panel renders it.
type DraftView struct {
	order.DraftValues
	Symbol string      `json:"symbol"`
	Quote  order.Quote `json:"quote"`
}

// DraftPatch edits the trade form. Absent fields are left alone.
type DraftPatch struct {
	Side   *order.Side `json:"side,omitempty"`
	Amount *string     `json:"amount,omitempty"`
	Price  *string     `json:"price,omitempty"`
}

func (p DraftPatch) apply(d *order.Draft) {
	if p.Side != nil {
		d.SetSide(*p.Side)
	}
	if p.Amount != nil {
		d.SetAmount(*p.Amount)
	}
	if p.Price != nil {
		d.SetPrice(*p.Price)
	}
}

func (p DraftPatch) empty() bool {
	return p.Side == nil && p.Amount == nil && p.Price == nil
}

// StateView is the current submission plus the submit button flags.
type StateView struct {
	order.Submission
	CanSubmit bool `json:"canSubmit"`
	Busy      bool `json:"busy"`
}

func newStateView(sub order.Submission) StateView {
	return StateView{
		Submission: sub,
		CanSubmit:  sub.State.CanSubmit(),
		Busy:       sub.State.Busy(),
	}
}

// TxResponse is returned when a transaction was broadcast.
type TxResponse struct {
	Status string      `json:"status"` // "broadcast"
	TxHash common.Hash `json:"txHash"`
}

type QuoteResponse struct {
	Amount string `json:"amount"`
	Price  string `json:"price"`
	order.Quote
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSMessage is the envelope of every pushed message.
type WSMessage struct {
	Type string `json:"type"` // "state", "notification", "chat", "subscribed", "unsubscribed"
	Data any    `json:"data"`
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // "state", "notifications", "chat"
}

type Notification struct {
	Level     string `json:"level"` // "success" or "error"
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}
