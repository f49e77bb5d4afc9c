package agent

import (
	"context"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/abc0922001/apkupdater/pkg/logging"
)

// Subscribe applies installation outcomes in arrival order until the outcome
// channel is closed or ctx is done.
func (a *Agent) Subscribe(ctx context.Context) error {
	log := a.log.WithField(logging.SubComponentField, "outcomes")
	log.Debug("starting")
	defer log.Debug("finished")

	for {
		select {
		case <-ctx.Done():
			return nil
		case o, ok := <-a.outcomes:
			if !ok {
				log.Debug("outcome channel closed")
				return nil
			}
			log.WithField("id", o.ID).WithField("success", o.Success).Debug("installation outcome")
			dispatch(a.handler, o)
		}
	}
}

// finalize removes a successfully installed update and releases its attempt.
func (a *Agent) finalize(id int) {
	state := a.store.Mutate(catalog.Remove(id))
	a.Installer.Finish(id)
	a.release(id)
	catalog.Match(state, func() {}, func(r catalog.Ready) {
		a.Notifier.Report(len(r.Updates))
	})
}

// revert clears the installing flag of a failed attempt and releases it. The
// id may be attempted again afterwards.
func (a *Agent) revert(id int) {
	a.store.Mutate(catalog.SetInstalling(id, false))
	a.Installer.Finish(id)
	a.release(id)
}
