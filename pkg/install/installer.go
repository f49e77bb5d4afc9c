// Package install hands downloaded packages to the host's installer commands.
package install

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"sync"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/abc0922001/apkupdater/pkg/internal/logfields"
	"github.com/abc0922001/apkupdater/pkg/logging"
	"github.com/abc0922001/apkupdater/pkg/platform"
	"github.com/pkg/errors"
)

const outcomeBacklog = 16

var errSessionHeld = errors.New("installation session already in progress")

// Config names the commands packages are installed with. The package's path
// is appended as the last argument.
type Config struct {
	Dir               string
	Command           []string
	PrivilegedCommand []string
}

// SessionInstaller installs each package from its own spooled session file.
// Session results are sent on the channel returned by Outcomes.
type SessionInstaller struct {
	log logging.Logger
	cfg Config
	bin runner

	lookPath func(string) (string, error)
	outcomes chan platform.Outcome

	mu       sync.Mutex
	sessions map[int]string
	running  sync.WaitGroup
}

func NewSessionInstaller(log logging.Logger, cfg Config) *SessionInstaller {
	return &SessionInstaller{
		log:      log,
		cfg:      cfg,
		bin:      &executable{},
		lookPath: exec.LookPath,
		outcomes: make(chan platform.Outcome, outcomeBacklog),
		sessions: map[int]string{},
	}
}

// Outcomes returns the channel session results are delivered on.
func (s *SessionInstaller) Outcomes() <-chan platform.Outcome {
	return s.outcomes
}

// CheckPermission reports whether the install command can be run and
// sessions can be spooled.
func (s *SessionInstaller) CheckPermission() bool {
	if len(s.cfg.Command) == 0 {
		return false
	}
	if _, err := s.lookPath(s.cfg.Command[0]); err != nil {
		s.log.WithError(err).Debug("install command unavailable")
		return false
	}
	if err := os.MkdirAll(s.cfg.Dir, 0700); err != nil {
		s.log.WithError(err).Debug("session dir unavailable")
		return false
	}
	probe, err := ioutil.TempFile(s.cfg.Dir, ".probe-*")
	if err != nil {
		s.log.WithError(err).Debug("session dir not writable")
		return false
	}
	probe.Close()
	os.Remove(probe.Name())
	return true
}

// Install spools stream into a session file and runs the install command on
// it in the background. Finish releases the session. Only one session may be
// held per update; a second is refused until the first is finished.
func (s *SessionInstaller) Install(ctx context.Context, update catalog.Update, stream io.ReadCloser) error {
	defer stream.Close()

	s.mu.Lock()
	if _, ok := s.sessions[update.ID]; ok {
		s.mu.Unlock()
		return errors.Wrapf(errSessionHeld, "update %d", update.ID)
	}
	// Reserved until the session file exists.
	s.sessions[update.ID] = ""
	s.mu.Unlock()

	path, err := s.spool(fmt.Sprintf("session-%d-*.apk", update.ID), stream)
	s.mu.Lock()
	reserved, ok := s.sessions[update.ID]
	switch {
	case err != nil:
		if ok && reserved == "" {
			delete(s.sessions, update.ID)
		}
	case !ok || reserved != "":
		// Finished before the session started.
		os.Remove(path)
		err = errors.Errorf("session for update %d finished while starting", update.ID)
	default:
		s.sessions[update.ID] = path
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	log := s.log.WithFields(logfields.Update(update))
	log.WithField("session", path).Debug("session started")

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		err := s.bin.run(ctx, append(append([]string(nil), s.cfg.Command...), path))
		if err != nil {
			log.WithError(err).Warn("install session failed")
		}
		select {
		case s.outcomes <- platform.Outcome{ID: update.ID, Success: err == nil}:
		case <-ctx.Done():
			log.Debug("session abandoned")
			s.Finish(update.ID)
		}
	}()
	return nil
}

// RootInstall installs payload with the privileged command and waits for it.
func (s *SessionInstaller) RootInstall(ctx context.Context, payload []byte) bool {
	if len(s.cfg.PrivilegedCommand) == 0 {
		s.log.Error("no privileged install command configured")
		return false
	}
	path, err := s.spool("root-*.apk", bytes.NewReader(payload))
	if err != nil {
		s.log.WithError(err).Error("could not write package")
		return false
	}
	defer os.Remove(path)

	if err := s.bin.run(ctx, append(append([]string(nil), s.cfg.PrivilegedCommand...), path)); err != nil {
		s.log.WithError(err).Error("privileged install failed")
		return false
	}
	return true
}

// Finish removes the update's session file. Unknown ids are ignored.
func (s *SessionInstaller) Finish(id int) {
	s.mu.Lock()
	path, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok || path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.WithError(err).WithField("session", path).Warn("could not remove session")
	}
}

// Close waits for running sessions and closes the outcome channel. Install
// must not be called afterwards.
func (s *SessionInstaller) Close() {
	s.running.Wait()
	close(s.outcomes)
}

func (s *SessionInstaller) spool(pattern string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0700); err != nil {
		return "", errors.Wrap(err, "create session dir")
	}
	f, err := ioutil.TempFile(s.cfg.Dir, pattern)
	if err != nil {
		return "", errors.Wrap(err, "create session")
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "write session")
	}
	return f.Name(), nil
}
