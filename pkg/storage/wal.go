package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/uhyunpark/otcdesk/pkg/order"
)

// Appender receives one line per settled submission.
type Appender interface {
	Append(line string)
}

type NopAppender struct{}

func (NopAppender) Append(string) {}

// FileAudit appends settled submissions to a plain text file.
type FileAudit struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileAudit(path string) (*FileAudit, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileAudit{f: f}, nil
}

func (a *FileAudit) Append(line string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintln(a.f, line)
}

func (a *FileAudit) Close() error { return a.f.Close() }

func auditLine(sub order.Submission) string {
	req, tx := "-", "-"
	if sub.Request != nil {
		req = sub.Request.String()
	}
	if sub.TxHash != nil {
		tx = sub.TxHash.Hex()
	}
	return fmt.Sprintf("%s id=%s state=%s order=%q tx=%s",
		sub.UpdatedAt.UTC().Format(time.RFC3339), sub.ID, sub.State, req, tx)
}

var (
	_ Appender = NopAppender{}
	_ Appender = (*FileAudit)(nil)
)
