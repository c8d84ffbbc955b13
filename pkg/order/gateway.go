package order

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrSignatureDeclined is wrapped by gateways when the wallet refuses to sign.
	ErrSignatureDeclined = errors.New("signature declined")
	// ErrSubmissionInFlight is returned by Submit while a submission is being signed or confirmed.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

// Stage is a milestone reported by a Handle after the gateway accepted an order.
type Stage int

const (
	StageConfirming Stage = iota + 1 // broadcast, waiting for inclusion
	StageConfirmed
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageConfirming:
		return "confirming"
	case StageConfirmed:
		return "confirmed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Event struct {
	Stage Stage
	Err   error // set for StageFailed
}

// Handle reports the lifecycle of one accepted order. Events ends with
// exactly one StageConfirmed or StageFailed and is then closed.
type Handle interface {
	TxHash() common.Hash
	Events() <-chan Event
}

// Gateway signs and broadcasts orders. An error return means nothing was
// broadcast; wrap ErrSignatureDeclined when the wallet refused.
type Gateway interface {
	SubmitOrder(ctx context.Context, req Request) (Handle, error)
}

// Session is the wallet connection as seen by the trade panel.
type Session struct {
	Address   *common.Address `json:"address"`
	Connected bool            `json:"connected"`
}

type Wallet interface {
	Session() Session
}

// Notifier shows user-facing messages. Implementations must not block for long or panic.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}
