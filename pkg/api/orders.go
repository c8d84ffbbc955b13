package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/uhyunpark/otcdesk/pkg/order"
	"github.com/uhyunpark/otcdesk/pkg/storage"
)

func (s *Server) draftView() DraftView {
	v := s.deps.Draft.Snapshot()
	return DraftView{
		DraftValues: v,
		Symbol:      s.deps.Symbol,
		Quote:       v.Quote(s.deps.FeeBps),
	}
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, price := q.Get("amount"), q.Get("price")
	respondJSON(w, http.StatusOK, QuoteResponse{
		Amount: amount,
		Price:  price,
		Quote:  order.NewQuote(amount, price, s.deps.FeeBps),
	})
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.draftView())
}

func (s *Server) handlePutDraft(w http.ResponseWriter, r *http.Request) {
	var patch DraftPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	patch.apply(s.deps.Draft)
	respondJSON(w, http.StatusOK, s.draftView())
}

// handleSubmitOrder submits the current draft. A body, if present, is a
// DraftPatch applied first; a 409 leaves the draft as it was. The response carries the submission as it
// stands after signing; confirmation follows on the state channel.
func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var patch DraftPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	var edit func(*order.Draft)
	if !patch.empty() {
		edit = patch.apply
	}

	sub, err := s.deps.Workflow.SubmitEdited(s.ctx, s.deps.Draft, edit)
	if errors.Is(err, order.ErrSubmissionInFlight) {
		respondError(w, http.StatusConflict, "submission in flight", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "submit failed", err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, newStateView(sub))
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newStateView(s.deps.Workflow.Current()))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		respondJSON(w, http.StatusOK, []order.Submission{})
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid limit", err.Error())
		return
	}
	subs, err := s.deps.History.Recent(limit)
	if err != nil {
		s.log.Errorw("history_read_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "history unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, subs)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		respondError(w, http.StatusNotFound, "submission not found", "")
		return
	}
	sub, err := s.deps.History.Get(mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "submission not found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chain == nil {
		respondError(w, http.StatusServiceUnavailable, "chain unavailable", "")
		return
	}
	id, ok := parseOrderID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order id", "expected a decimal on-chain order id")
		return
	}
	if !s.deps.Wallet.Session().Connected {
		respondError(w, http.StatusConflict, "wallet not connected", order.MsgConnectWallet)
		return
	}

	h, err := s.deps.Chain.CancelOrder(s.ctx, id)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, order.ErrSignatureDeclined) {
			status = http.StatusConflict
		}
		s.log.Errorw("cancel_failed", "order_id", id.String(), "err", err)
		respondError(w, status, "cancel failed", err.Error())
		return
	}
	s.log.Infow("cancel_broadcast", "order_id", id.String(), "tx", h.TxHash().Hex())
	go s.watchCancel(id.String(), h)
	respondJSON(w, http.StatusAccepted, TxResponse{Status: "broadcast", TxHash: h.TxHash()})
}

// watchCancel reports the outcome of a cancel transaction on the notifications channel.
func (s *Server) watchCancel(id string, h order.Handle) {
	for ev := range h.Events() {
		switch ev.Stage {
		case order.StageConfirmed:
			s.log.Infow("cancel_confirmed", "order_id", id, "tx", h.TxHash().Hex())
			s.hub.Success("Order " + id + " cancelled")
		case order.StageFailed:
			s.log.Errorw("cancel_chain_failed", "order_id", id, "tx", h.TxHash().Hex(), "err", ev.Err)
			s.hub.Error("Failed to cancel order " + id)
		}
	}
}

func (s *Server) handleGetOnchainOrder(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chain == nil {
		respondError(w, http.StatusServiceUnavailable, "chain unavailable", "")
		return
	}
	id, ok := parseOrderID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order id", "expected a decimal on-chain order id")
		return
	}
	o, err := s.deps.Chain.GetOrder(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusBadGateway, "order lookup failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, o)
}
