package order

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Phase is a step in the submission lifecycle.
type Phase int

const (
	Idle Phase = iota
	Validating
	AwaitingSignature
	Confirming
	Confirmed
	Failed
	Rejected
)

var phaseNames = map[Phase]string{
	Idle:              "idle",
	Validating:        "validating",
	AwaitingSignature: "awaiting_signature",
	Confirming:        "confirming",
	Confirmed:         "confirmed",
	Failed:            "failed",
	Rejected:          "rejected",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for k, n := range phaseNames {
		if n == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Reason qualifies Failed and Rejected.
type Reason int

const (
	NoReason Reason = iota
	NotConnected
	InvalidInput
	SignatureDeclined
	GatewayError
	ChainError
)

var reasonNames = map[Reason]string{
	NoReason:          "",
	NotConnected:      "not_connected",
	InvalidInput:      "invalid_input",
	SignatureDeclined: "signature_declined",
	GatewayError:      "gateway_error",
	ChainError:        "chain_error",
}

func (r Reason) String() string {
	if n, ok := reasonNames[r]; ok {
		return n
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Reason) UnmarshalText(b []byte) error {
	for k, n := range reasonNames {
		if n == string(b) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown reason %q", b)
}

type State struct {
	Phase  Phase  `json:"phase"`
	Reason Reason `json:"reason,omitempty"`
}

func (s State) String() string {
	if s.Reason == NoReason {
		return s.Phase.String()
	}
	return fmt.Sprintf("%s(%s)", s.Phase, s.Reason)
}

// Terminal reports whether the submission has settled.
func (s State) Terminal() bool {
	switch s.Phase {
	case Confirmed, Failed, Rejected:
		return true
	}
	return false
}

// CanSubmit is false while validating, signing or confirming.
func (s State) CanSubmit() bool {
	return s.Phase == Idle || s.Terminal()
}

// Busy is the in-progress indicator of the submit button.
func (s State) Busy() bool {
	return s.Phase == AwaitingSignature || s.Phase == Confirming
}

// Submission is the snapshot handed to observers on every transition.
type Submission struct {
	ID        string       `json:"id,omitempty"`
	State     State        `json:"state"`
	Request   *Request     `json:"request,omitempty"`
	TxHash    *common.Hash `json:"txHash,omitempty"`
	StartedAt time.Time    `json:"startedAt,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt,omitempty"`
}
