package agent

import (
	"context"
	"fmt"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/abc0922001/apkupdater/pkg/internal/logfields"
	"github.com/pkg/errors"
)

var (
	errDownloadUnavailable = errors.New("download unavailable")
	errPrivilegedInstall   = errors.New("privileged install failed")
)

// Install starts an installation attempt for update. Marketplace updates are
// opened through their link; others are downloaded and handed to the
// installer, privileged when the preference is set.
func (a *Agent) Install(ctx context.Context, update catalog.Update) {
	log := a.log.WithFields(logfields.Update(update))

	switch {
	case update.Source.Redirects():
		log.Debug("opening marketplace link")
		if err := a.Opener.Open(update.Link); err != nil {
			log.WithError(err).Error("could not open link")
			a.Notifier.ReportError(fmt.Sprintf("%s: %v", update.Name, err))
		}

	case a.Prefs.RootInstall():
		a.launch(func() {
			a.downloadAndPrivilegedInstall(ctx, update)
		})

	default:
		a.launch(func() {
			a.downloadAndInstall(ctx, update)
		})
	}
}

func (a *Agent) downloadAndPrivilegedInstall(ctx context.Context, update catalog.Update) {
	a.attempt(ctx, update, func(ctx context.Context) error {
		payload, err := a.Downloader.Download(ctx, update.Link)
		if err != nil {
			return errors.WithMessage(err, "download failed")
		}
		if !a.Installer.RootInstall(ctx, payload) {
			return errPrivilegedInstall
		}
		a.finalize(update.ID)
		return nil
	})
}

func (a *Agent) downloadAndInstall(ctx context.Context, update catalog.Update) {
	// TODO: surface missing install permission once there is a way to request
	// it; until then the attempt is dropped without touching state.
	if !a.Installer.CheckPermission() {
		a.log.WithFields(logfields.Update(update)).Debug("install permission not granted")
		return
	}
	a.attempt(ctx, update, func(ctx context.Context) error {
		stream, err := a.Downloader.DownloadStream(ctx, update.Link)
		if err != nil {
			return errors.WithMessage(err, "download failed")
		}
		if stream == nil {
			return errDownloadUnavailable
		}
		// The session's result arrives later as an Outcome.
		if err := a.Installer.Install(ctx, update, stream); err != nil {
			return errors.WithMessage(err, "could not start install session")
		}
		return nil
	})
}

// attempt marks update as installing and runs step. When step fails, or
// panics, the update is reverted and the failure reported.
func (a *Agent) attempt(ctx context.Context, update catalog.Update, step func(context.Context) error) {
	log := a.log.WithFields(logfields.Update(update))
	if !a.markInstalling(update.ID) {
		log.Debug("install already in progress")
		return
	}
	log.Debug("installing")

	err := a.runStep(ctx, step)
	if err != nil {
		log.WithError(err).Error("install attempt failed")
		a.revert(update.ID)
		a.Notifier.ReportError(fmt.Sprintf("%s: %v", update.Name, err))
	}
}

func (a *Agent) runStep(ctx context.Context, step func(context.Context) error) (err error) {
	if err := a.slots.Acquire(ctx, 1); err != nil {
		return errors.WithMessage(err, "waiting for download slot")
	}
	defer a.slots.Release(1)
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("install panicked: %v", r)
		}
	}()
	return step(ctx)
}

// markInstalling claims the attempt for id and sets the update's flag. It
// reports false if an attempt for id is already underway, either one this
// Agent started or one the catalog shows.
func (a *Agent) markInstalling(id int) bool {
	if !a.claim(id) {
		return false
	}
	busy := false
	a.store.Mutate(func(s catalog.State) catalog.State {
		if u, ok := catalog.Find(s, id); ok && u.Installing {
			busy = true
			return s
		}
		return catalog.SetInstalling(id, true)(s)
	})
	if busy {
		a.release(id)
	}
	return !busy
}

func (a *Agent) claim(id int) bool {
	a.attemptsMu.Lock()
	defer a.attemptsMu.Unlock()
	if _, ok := a.attempts[id]; ok {
		return false
	}
	a.attempts[id] = struct{}{}
	return true
}

func (a *Agent) release(id int) {
	a.attemptsMu.Lock()
	delete(a.attempts, id)
	a.attemptsMu.Unlock()
}
