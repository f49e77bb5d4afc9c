package notify

import (
	"fmt"

	"github.com/abc0922001/apkupdater/pkg/logging"
	"github.com/coreos/go-systemd/v22/daemon"
)

// Systemd publishes the latest count or error as the service's status line.
type Systemd struct {
	log    logging.SubLogger
	notify func(state string) (bool, error)
}

func NewSystemd(log logging.SubLogger) *Systemd {
	return &Systemd{
		log: log,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
	}
}

func (s *Systemd) Report(count int) {
	s.status(fmt.Sprintf("%d updates available", count))
}

func (s *Systemd) ReportError(message string) {
	s.status("last error: " + message)
}

// Ready tells systemd the service has started.
func (s *Systemd) Ready() {
	s.send(daemon.SdNotifyReady)
}

// Stopping tells systemd the service is shutting down.
func (s *Systemd) Stopping() {
	s.send(daemon.SdNotifyStopping)
}

func (s *Systemd) status(line string) {
	s.send("STATUS=" + line)
}

func (s *Systemd) send(state string) {
	sent, err := s.notify(state)
	if err != nil {
		s.log.WithError(err).Warn("unable to notify systemd")
		return
	}
	if !sent {
		s.log.WithField("state", state).Debug("not running under systemd")
	}
}
