// Package storage keeps the desk's submission history in Pebble.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/uhyunpark/otcdesk/pkg/order"
)

var ErrNotFound = errors.New("submission not found")

// Journal stores every published Submission snapshot keyed by ID, so the
// latest state of each submission survives restarts.
type Journal struct {
	db    *pebble.DB
	audit Appender
	log   *zap.SugaredLogger
}

func OpenJournal(path string, audit Appender, logger *zap.SugaredLogger) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	if audit == nil {
		audit = NopAppender{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Journal{db: db, audit: audit, log: logger}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Save writes the submission and its time index in one batch.
func (j *Journal) Save(sub order.Submission) error {
	if sub.ID == "" {
		return fmt.Errorf("cannot save submission without id")
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	b := j.db.NewBatch()
	defer b.Close()
	if err := b.Set(submissionKey(sub.ID), data, nil); err != nil {
		return fmt.Errorf("failed to stage submission: %w", err)
	}
	if err := b.Set(timeIndexKey(sub.StartedAt.UnixNano(), sub.ID), []byte(sub.ID), nil); err != nil {
		return fmt.Errorf("failed to stage index: %w", err)
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

func (j *Journal) Get(id string) (order.Submission, error) {
	data, closer, err := j.db.Get(submissionKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return order.Submission{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return order.Submission{}, fmt.Errorf("failed to get submission: %w", err)
	}
	defer closer.Close()

	var sub order.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return order.Submission{}, fmt.Errorf("failed to unmarshal submission: %w", err)
	}
	return sub, nil
}

// Recent returns up to limit submissions, newest first.
func (j *Journal) Recent(limit int) ([]order.Submission, error) {
	prefix := []byte(prefixTimeIndex)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	subs := make([]order.Submission, 0)
	for iter.Last(); iter.Valid() && len(subs) < limit; iter.Prev() {
		sub, err := j.Get(string(iter.Value()))
		if err != nil {
			j.log.Warnw("journal_index_dangling", "key", string(iter.Key()), "err", err)
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Record is a workflow observer. Failures are logged, never returned, so
// a broken journal cannot stall order submission.
func (j *Journal) Record(sub order.Submission) {
	if sub.ID == "" {
		return
	}
	if err := j.Save(sub); err != nil {
		j.log.Errorw("journal_save_failed", "id", sub.ID, "state", sub.State.String(), "err", err)
	}
	if sub.State.Terminal() {
		j.audit.Append(auditLine(sub))
	}
}
