package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/uhyunpark/otcdesk/pkg/order"
)

type handle struct {
	hash   common.Hash
	events chan order.Event
}

func newHandle(hash common.Hash) *handle {
	// Confirming plus one terminal event; poll never blocks on a slow reader.
	return &handle{hash: hash, events: make(chan order.Event, 2)}
}

func (h *handle) TxHash() common.Hash        { return h.hash }
func (h *handle) Events() <-chan order.Event { return h.events }

// poll waits for the receipt of h's transaction. It has no deadline of its
// own; ctx is the only way to stop it early.
func (g *Gateway) poll(ctx context.Context, h *handle) {
	defer close(h.events)
	h.events <- order.Event{Stage: order.StageConfirming}

	for {
		receipt, err := g.backend.TransactionReceipt(ctx, h.hash)
		switch {
		case err == nil:
			h.events <- receiptEvent(receipt)
			g.log.Infow("tx_mined",
				"tx", h.hash.Hex(),
				"status", receipt.Status,
				"block", receipt.BlockNumber)
			return
		case errors.Is(err, ethereum.NotFound):
		case ctx.Err() != nil:
		default:
			g.log.Warnw("receipt_poll_failed", "tx", h.hash.Hex(), "err", err)
		}

		select {
		case <-ctx.Done():
			h.events <- order.Event{Stage: order.StageFailed, Err: ctx.Err()}
			return
		case <-g.cfg.Clock.After(g.cfg.PollInterval):
		}
	}
}

func receiptEvent(r *types.Receipt) order.Event {
	if r.Status == types.ReceiptStatusSuccessful {
		return order.Event{Stage: order.StageConfirmed}
	}
	return order.Event{
		Stage: order.StageFailed,
		Err:   fmt.Errorf("%w in block %v", ErrReverted, r.BlockNumber),
	}
}
