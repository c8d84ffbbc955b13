// Package chat holds the desk's private chat history.
package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uhyunpark/otcdesk/pkg/util"
)

// OwnDesk is the sender name of messages typed at this desk.
const OwnDesk = "Your_Desk"

var ErrEmptyMessage = errors.New("message is empty")

type Message struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Encrypted bool      `json:"encrypted"`
}

// Room is an in-memory, append-only conversation.
type Room struct {
	mu       sync.RWMutex
	messages []Message
	clock    util.Clock
	log      *zap.SugaredLogger
}

func NewRoom(clock util.Clock, logger *zap.SugaredLogger) *Room {
	if clock == nil {
		clock = util.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Room{clock: clock, log: logger}
}

// DeskRoom returns a room seeded with the counterpart desks' opening messages.
func DeskRoom(clock util.Clock, logger *zap.SugaredLogger) *Room {
	r := NewRoom(clock, logger)
	now := r.clock.Now()
	seed := []struct {
		user, text string
		ago        time.Duration
	}{
		{"JPMorgan_Desk", "Looking for 50 BTC block, can you facilitate?", 5 * time.Minute},
		{"Goldman_OTC", "Have 25 BTC available at market +0.15%", 4 * time.Minute},
		{"Citadel_Block", "Interested in ETH blocks today?", 3 * time.Minute},
		{"Morgan_Stanley", "Settlement ready for yesterday's 100 BTC block", 2 * time.Minute},
	}
	for _, m := range seed {
		r.messages = append(r.messages, Message{
			ID:        uuid.NewString(),
			User:      m.user,
			Message:   m.text,
			Timestamp: now.Add(-m.ago),
			Encrypted: true,
		})
	}
	return r
}

// Send appends text as a message from this desk. Text is stored as typed.
func (r *Room) Send(text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyMessage
	}
	msg := Message{
		ID:        uuid.NewString(),
		User:      OwnDesk,
		Message:   text,
		Timestamp: r.clock.Now(),
		Encrypted: true,
	}
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	total := len(r.messages)
	r.mu.Unlock()

	r.log.Infow("chat_message_sent", "id", msg.ID, "total", total)
	return msg, nil
}

// Messages returns the history, oldest first.
func (r *Room) Messages() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Message(nil), r.messages...)
}
