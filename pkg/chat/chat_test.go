package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/uhyunpark/otcdesk/pkg/util"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDeskRoomSeed(t *testing.T) {
	r := DeskRoom(util.NewManualClock(start), nil)
	msgs := r.Messages()
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
	wantUsers := []string{"JPMorgan_Desk", "Goldman_OTC", "Citadel_Block", "Morgan_Stanley"}
	for i, m := range msgs {
		if m.User != wantUsers[i] {
			t.Errorf("message %d user = %s, want %s", i, m.User, wantUsers[i])
		}
		if !m.Encrypted {
			t.Errorf("message %d not encrypted", i)
		}
		if want := start.Add(-time.Duration(5-i) * time.Minute); !m.Timestamp.Equal(want) {
			t.Errorf("message %d timestamp = %v, want %v", i, m.Timestamp, want)
		}
	}
}

func TestSend(t *testing.T) {
	clock := util.NewManualClock(start)
	r := DeskRoom(clock, nil)
	clock.Advance(time.Minute)

	msg, err := r.Send("  Can do 50 BTC at +0.10%  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.User != OwnDesk || msg.Message != "  Can do 50 BTC at +0.10%  " || !msg.Encrypted || msg.ID == "" {
		t.Errorf("message = %+v", msg)
	}
	if !msg.Timestamp.Equal(start.Add(time.Minute)) {
		t.Errorf("timestamp = %v, want %v", msg.Timestamp, start.Add(time.Minute))
	}

	msgs := r.Messages()
	if len(msgs) != 5 || msgs[4].ID != msg.ID {
		t.Errorf("messages = %+v, want 5 ending in %s", msgs, msg.ID)
	}
}

func TestSend_Blank(t *testing.T) {
	r := NewRoom(nil, nil)
	for _, text := range []string{"", "   ", "\t\n"} {
		if _, err := r.Send(text); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Send(%q) err = %v, want ErrEmptyMessage", text, err)
		}
	}
	if n := len(r.Messages()); n != 0 {
		t.Errorf("messages = %d, want 0", n)
	}
}

func TestMessagesIsCopy(t *testing.T) {
	r := DeskRoom(nil, nil)
	msgs := r.Messages()
	msgs[0].Message = "changed"
	if r.Messages()[0].Message == "changed" {
		t.Error("Messages must return a copy")
	}
}
