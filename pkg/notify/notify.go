// Package notify surfaces update counts and errors to the user.
package notify

import (
	"github.com/abc0922001/apkupdater/pkg/logging"
	"github.com/abc0922001/apkupdater/pkg/platform"
)

// Log writes counts and errors to the log.
type Log struct {
	log logging.SubLogger
}

func NewLog(log logging.SubLogger) *Log {
	return &Log{log: log}
}

func (l *Log) Report(count int) {
	l.log.WithField("count", count).Info("updates available")
}

func (l *Log) ReportError(message string) {
	l.log.WithField("message", message).Error("update failed")
}

// Multi reports to each notifier in order.
type Multi []platform.Notifier

func (m Multi) Report(count int) {
	for _, n := range m {
		n.Report(count)
	}
}

func (m Multi) ReportError(message string) {
	for _, n := range m {
		n.ReportError(message)
	}
}
