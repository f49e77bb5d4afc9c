package agent

import (
	"context"

	"github.com/abc0922001/apkupdater/pkg/catalog"
)

// Refresh replaces the catalog with each snapshot the source produces, in
// order, and reports the resulting count. With showLoading the catalog is
// reset to Loading first. A later Refresh supersedes this one: its remaining
// snapshots are discarded.
func (a *Agent) Refresh(ctx context.Context, showLoading bool) {
	ctx, gen := a.supersede(ctx)
	a.launch(func() {
		a.refresh(ctx, gen, showLoading)
	})
}

// supersede cancels the running refresh and starts a new generation.
func (a *Agent) supersede(ctx context.Context) (context.Context, uint64) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	if a.cancelRefresh != nil {
		a.cancelRefresh()
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancelRefresh = cancel
	return ctx, a.generation.Add(1)
}

func (a *Agent) refresh(ctx context.Context, gen uint64, showLoading bool) {
	log := a.log.WithField("generation", gen)
	log.Debug("refreshing")
	defer log.Debug("refreshed")

	if showLoading {
		if _, ok := a.publish(gen, catalog.Clear); ok {
			a.Notifier.Report(0)
		}
	}

	snapshots := a.Source.Updates(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			state, ok := a.publish(gen, catalog.Replace(snapshot))
			if !ok {
				log.Debug("dropping snapshot of superseded refresh")
				return
			}
			count := catalog.Count(state)
			log.WithField("count", count).Debug("published snapshot")
			a.Notifier.Report(count)
		}
	}
}

// publish applies fn unless gen has been superseded and returns the resulting
// State. The generation is checked under the store's lock so a stale refresh
// can never overwrite a newer one.
func (a *Agent) publish(gen uint64, fn catalog.Transform) (catalog.State, bool) {
	current := true
	state := a.store.Mutate(func(prev catalog.State) catalog.State {
		if a.generation.Load() != gen {
			current = false
			return prev
		}
		return fn(prev)
	})
	return state, current
}
