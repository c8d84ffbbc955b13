package order

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uhyunpark/otcdesk/pkg/util"
)

// User-facing notification texts.
const (
	MsgConnectWallet = "Please connect your wallet first"
	MsgFillAllFields = "Please fill in all fields"
	MsgInvalidInput  = "Invalid amount or price"
	MsgSubmitted     = "Order submitted successfully!"
	MsgFailed        = "Failed to submit order"
)

var errHandleClosed = errors.New("handle closed without a final event")

type Config struct {
	Symbol string
	Wire   WireFormat
	Clock  util.Clock // nil = wall clock
}

// Workflow drives one trade panel's submissions through the lifecycle
// Idle -> Validating -> AwaitingSignature -> Confirming -> Confirmed|Failed,
// or Validating -> Rejected. Only one submission is active at a time.
type Workflow struct {
	cfg      Config
	wallet   Wallet
	gateway  Gateway
	notifier Notifier
	log      *zap.SugaredLogger

	// pubMu serialises transitions with their publication so observers
	// see every submission's states in order.
	pubMu     sync.Mutex
	mu        sync.Mutex
	current   Submission
	done      chan struct{} // closed when current reaches a terminal state
	observers []func(Submission)
}

func NewWorkflow(cfg Config, wallet Wallet, gateway Gateway, notifier Notifier, logger *zap.SugaredLogger) *Workflow {
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Workflow{
		cfg:      cfg,
		wallet:   wallet,
		gateway:  gateway,
		notifier: notifier,
		log:      logger,
		current:  Submission{State: State{Phase: Idle}},
	}
}

// Observe registers fn for every state transition. Observers run on the
// goroutine driving the submission and must not call Submit.
func (w *Workflow) Observe(fn func(Submission)) {
	w.mu.Lock()
	w.observers = append(w.observers, fn)
	w.mu.Unlock()
}

func (w *Workflow) Current() Submission {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Workflow) State() State { return w.Current().State }

func (w *Workflow) CanSubmit() bool { return w.State().CanSubmit() }

// Submit validates the draft against the wallet session and, if valid,
// hands the order to the gateway. It returns once the first stage has
// settled: rejected, failed to sign/broadcast, or accepted. Confirmation
// is then tracked in the background until a terminal state; ctx bounds
// that tracking. All failures are reported through the returned
// Submission's state; the only error is ErrSubmissionInFlight.
func (w *Workflow) Submit(ctx context.Context, draft *Draft) (Submission, error) {
	return w.SubmitEdited(ctx, draft, nil)
}

// SubmitEdited is Submit with a last edit of the draft. edit runs only
// once the submission has started, so a refused submit leaves the draft
// untouched.
func (w *Workflow) SubmitEdited(ctx context.Context, draft *Draft, edit func(*Draft)) (Submission, error) {
	snap, err := w.apply(func(s *Submission) error {
		if !s.State.CanSubmit() {
			return ErrSubmissionInFlight
		}
		if edit != nil {
			edit(draft)
		}
		*s = Submission{
			ID:        uuid.NewString(),
			State:     State{Phase: Validating},
			StartedAt: w.cfg.Clock.Now(),
		}
		w.done = make(chan struct{})
		return nil
	})
	if err != nil {
		return snap, err
	}

	session := w.wallet.Session()
	if !session.Connected {
		w.log.Infow("order_rejected", "id", snap.ID, "reason", NotConnected)
		return w.finish(State{Phase: Rejected, Reason: NotConnected}, func() {
			w.notifier.Error(MsgConnectWallet)
		}), nil
	}

	values := draft.Snapshot()
	req, err := BuildRequest(w.cfg.Symbol, values, w.cfg.Wire)
	if err != nil {
		w.log.Infow("order_rejected", "id", snap.ID, "reason", InvalidInput, "err", err)
		msg := MsgInvalidInput
		if errors.Is(err, ErrBlankInput) {
			msg = MsgFillAllFields
		}
		return w.finish(State{Phase: Rejected, Reason: InvalidInput}, func() {
			w.notifier.Error(msg)
		}), nil
	}

	w.update(func(s *Submission) {
		s.Request = &req
		s.State = State{Phase: AwaitingSignature}
	})
	w.log.Infow("order_submitting",
		"id", snap.ID,
		"symbol", req.Symbol,
		"side", req.Side,
		"amount", req.Amount.String(),
		"price", req.Price.String())

	handle, err := w.gateway.SubmitOrder(ctx, req)
	if err != nil {
		reason := GatewayError
		if errors.Is(err, ErrSignatureDeclined) {
			reason = SignatureDeclined
		}
		w.log.Errorw("order_submit_failed", "id", snap.ID, "reason", reason, "err", err)
		return w.finish(State{Phase: Failed, Reason: reason}, func() {
			w.notifier.Error(MsgFailed)
		}), nil
	}

	hash := handle.TxHash()
	accepted := w.update(func(s *Submission) { s.TxHash = &hash })
	w.log.Infow("order_broadcast", "id", snap.ID, "tx", hash.Hex())

	go w.track(ctx, handle, draft)
	return accepted, nil
}

// Wait blocks until the current submission is terminal or ctx is done.
func (w *Workflow) Wait(ctx context.Context) (Submission, error) {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return w.Current(), nil
	}
	select {
	case <-done:
		return w.Current(), nil
	case <-ctx.Done():
		return w.Current(), ctx.Err()
	}
}

func (w *Workflow) track(ctx context.Context, handle Handle, draft *Draft) {
	events := handle.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				w.chainFailed(errHandleClosed)
				return
			}
			switch ev.Stage {
			case StageConfirming:
				if w.State().Phase == AwaitingSignature {
					w.update(func(s *Submission) { s.State = State{Phase: Confirming} })
				}
			case StageConfirmed:
				sub := w.finish(State{Phase: Confirmed}, func() {
					draft.Reset()
					w.notifier.Success(MsgSubmitted)
				})
				w.log.Infow("order_confirmed", "id", sub.ID, "tx", handle.TxHash().Hex())
				return
			case StageFailed:
				err := ev.Err
				if err == nil {
					err = errors.New("unspecified chain failure")
				}
				w.chainFailed(err)
				return
			default:
				w.log.Warnw("order_unknown_event", "stage", ev.Stage)
			}
		case <-ctx.Done():
			w.chainFailed(ctx.Err())
			return
		}
	}
}

func (w *Workflow) chainFailed(err error) {
	sub := w.finish(State{Phase: Failed, Reason: ChainError}, func() {
		w.notifier.Error(MsgFailed)
	})
	w.log.Errorw("order_chain_failed", "id", sub.ID, "err", err)
}

// update applies a non-terminal change and publishes it.
func (w *Workflow) update(fn func(*Submission)) Submission {
	snap, _ := w.apply(func(s *Submission) error {
		fn(s)
		return nil
	})
	return snap
}

// finish runs the side effects (draft reset, notification) while the
// submission still blocks re-entry, then moves to the terminal state and
// releases Wait.
func (w *Workflow) finish(st State, effects func()) Submission {
	effects()

	var done chan struct{}
	snap, _ := w.apply(func(s *Submission) error {
		s.State = st
		done = w.done
		return nil
	})
	if done != nil {
		close(done)
	}
	return snap
}

// apply mutates the current submission and publishes the result. A
// non-nil error from fn leaves the submission untouched and unpublished.
func (w *Workflow) apply(fn func(*Submission) error) (Submission, error) {
	w.pubMu.Lock()
	defer w.pubMu.Unlock()

	w.mu.Lock()
	if err := fn(&w.current); err != nil {
		cur := w.current
		w.mu.Unlock()
		return cur, err
	}
	w.current.UpdatedAt = w.cfg.Clock.Now()
	snap := w.current
	obs := make([]func(Submission), len(w.observers))
	copy(obs, w.observers)
	w.mu.Unlock()

	for _, o := range obs {
		o(snap)
	}
	return snap, nil
}
