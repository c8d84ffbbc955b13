// Package notify provides order.Notifier sinks.
package notify

import (
	"go.uber.org/zap"

	"github.com/uhyunpark/otcdesk/pkg/order"
)

// Log writes notifications to the structured log.
type Log struct {
	log *zap.SugaredLogger
}

func NewLog(logger *zap.SugaredLogger) *Log {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Log{log: logger}
}

func (l *Log) Success(msg string) { l.log.Infow("notify_success", "msg", msg) }
func (l *Log) Error(msg string)   { l.log.Warnw("notify_error", "msg", msg) }

// Multi fans every notification out to all sinks in order.
type Multi []order.Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

// AlertSwitch reports whether trade alerts are enabled.
type AlertSwitch interface {
	TradeAlerts() bool
}

// Gated drops success notifications while trade alerts are off.
// Errors always go through. Desks wrap only the push sink with it.
type Gated struct {
	Next   order.Notifier
	Alerts AlertSwitch
}

func (g Gated) Success(msg string) {
	if g.Alerts != nil && !g.Alerts.TradeAlerts() {
		return
	}
	g.Next.Success(msg)
}

func (g Gated) Error(msg string) { g.Next.Error(msg) }

// Level distinguishes the two notification kinds for Func.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Func adapts a plain function to order.Notifier.
type Func func(level Level, msg string)

func (f Func) Success(msg string) { f(LevelSuccess, msg) }
func (f Func) Error(msg string)   { f(LevelError, msg) }

var (
	_ order.Notifier = (*Log)(nil)
	_ order.Notifier = Multi(nil)
	_ order.Notifier = Gated{}
	_ order.Notifier = Func(nil)
)
