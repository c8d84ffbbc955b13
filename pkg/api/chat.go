package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/uhyunpark/otcdesk/pkg/chat"
)

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		respondJSON(w, http.StatusOK, []chat.Message{})
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Chat.Messages())
}

func (s *Server) handlePostChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		respondError(w, http.StatusServiceUnavailable, "chat unavailable", "")
		return
	}
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	msg, err := s.deps.Chat.Send(req.Message)
	if errors.Is(err, chat.ErrEmptyMessage) {
		respondError(w, http.StatusBadRequest, "empty message", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "send failed", err.Error())
		return
	}
	s.hub.PublishChat(msg)
	respondJSON(w, http.StatusCreated, msg)
}
