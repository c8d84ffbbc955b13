package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/otcdesk/pkg/order"
)

type memAudit struct{ lines []string }

func (m *memAudit) Append(line string) { m.lines = append(m.lines, line) }

func openTestJournal(t *testing.T, audit Appender) *Journal {
	t.Helper()
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal"), audit, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func submission(id string, started time.Time, phase order.Phase) order.Submission {
	return order.Submission{
		ID:        id,
		State:     order.State{Phase: phase},
		StartedAt: started,
		UpdatedAt: started,
	}
}

func TestJournal_SaveGet(t *testing.T) {
	j := openTestJournal(t, nil)
	hash := common.HexToHash("0xbeef")
	sub := submission("a", time.Unix(100, 0), order.Confirmed)
	sub.TxHash = &hash
	sub.Request = &order.Request{
		Symbol: "BTC",
		Amount: decimal.RequireFromString("0.5"),
		Price:  decimal.RequireFromString("42000"),
		Side:   order.Sell,
	}
	if err := j.Save(sub); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := j.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State.Phase != order.Confirmed || *got.TxHash != hash {
		t.Errorf("got = %+v", got)
	}
	if got.Request == nil || !got.Request.Amount.Equal(sub.Request.Amount) || got.Request.Side != order.Sell {
		t.Errorf("request = %+v", got.Request)
	}

	if _, err := j.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := j.Save(order.Submission{}); err == nil {
		t.Error("saving without id should fail")
	}
}

func TestJournal_RecentNewestFirst(t *testing.T) {
	j := openTestJournal(t, nil)
	base := time.Unix(1_700_000_000, 0)
	for i, id := range []string{"first", "second", "third"} {
		if err := j.Save(submission(id, base.Add(time.Duration(i)*time.Second), order.Confirmed)); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	// a later update of the same submission must not duplicate it
	if err := j.Save(submission("first", base, order.Failed)); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := j.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	if strings.Join(ids, ",") != "third,second,first" {
		t.Errorf("ids = %v, want [third second first]", ids)
	}
	if got[2].State.Phase != order.Failed {
		t.Errorf("first state = %s, want latest snapshot", got[2].State)
	}

	two, _ := j.Recent(2)
	if len(two) != 2 || two[0].ID != "third" {
		t.Errorf("recent(2) = %v", two)
	}
}

func TestJournal_ReopenKeepsHistory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	j, err := OpenJournal(dir, nil, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := j.Save(submission("a", time.Unix(1, 0), order.Rejected)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j, err = OpenJournal(dir, nil, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	if _, err := j.Get("a"); err != nil {
		t.Errorf("get after reopen: %v", err)
	}
}

func TestJournal_RecordAuditsTerminalStates(t *testing.T) {
	audit := &memAudit{}
	j := openTestJournal(t, audit)

	j.Record(order.Submission{}) // idle snapshot, ignored
	j.Record(submission("a", time.Unix(5, 0), order.Validating))
	j.Record(submission("a", time.Unix(5, 0), order.AwaitingSignature))
	st := submission("a", time.Unix(5, 0), order.Failed)
	st.State.Reason = order.SignatureDeclined
	j.Record(st)

	if len(audit.lines) != 1 {
		t.Fatalf("audit lines = %v, want 1", audit.lines)
	}
	if !strings.Contains(audit.lines[0], "state=failed(signature_declined)") {
		t.Errorf("audit line = %q", audit.lines[0])
	}
	got, err := j.Get("a")
	if err != nil || got.State.Reason != order.SignatureDeclined {
		t.Errorf("journal state = %+v, %v", got.State, err)
	}
}

func TestFileAudit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	a, err := NewFileAudit(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a.Append("one")
	a.Append("two")
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "one\ntwo\n" {
		t.Errorf("file = %q", data)
	}
}
