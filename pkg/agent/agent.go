package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/abc0922001/apkupdater/pkg/logging"
	"github.com/abc0922001/apkupdater/pkg/platform"
	"github.com/abc0922001/apkupdater/pkg/workgroup"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

const (
	initialRefreshDelay   = time.Second * 5
	refreshInterval       = time.Hour * 6
	defaultInstallWorkers = 2
)

// store is the only access the Agent has to the shared catalog state.
type store interface {
	Get() catalog.State
	Set(catalog.State)
	Mutate(catalog.Transform) catalog.State
}

// Providers are the collaborators the Agent drives.
type Providers struct {
	Source     platform.CatalogSource
	Downloader platform.Downloader
	Installer  platform.Installer
	Notifier   platform.Notifier
	Opener     platform.URIOpener
	Prefs      platform.Prefs
}

type Agent struct {
	log   logging.Logger
	store store
	Providers

	outcomes <-chan platform.Outcome
	handler  outcomeHandler

	initialDelay time.Duration
	interval     time.Duration
	slots        *semaphore.Weighted

	refreshMu     sync.Mutex
	cancelRefresh context.CancelFunc
	generation    atomic.Uint64

	flows sync.WaitGroup

	// attempts holds the ids with an install attempt underway. A refresh may
	// clear an update's flag while its session runs; this keeps a second
	// attempt from sharing the id's installer resources.
	attemptsMu sync.Mutex
	attempts   map[int]struct{}
}

type Option func(*Agent)

// WithSchedule sets the delay before the first background refresh and the
// interval between later ones.
func WithSchedule(initialDelay, interval time.Duration) Option {
	return func(a *Agent) {
		a.initialDelay = initialDelay
		a.interval = interval
	}
}

// WithConcurrency bounds the number of downloads running at once.
func WithConcurrency(n int) Option {
	return func(a *Agent) {
		if n < 1 {
			n = 1
		}
		a.slots = semaphore.NewWeighted(int64(n))
	}
}

// New creates an Agent publishing into st. Installation outcomes are read
// from outcomes, which the installer sends on and nothing else consumes.
func New(log logging.Logger, st store, providers Providers, outcomes <-chan platform.Outcome, opts ...Option) (*Agent, error) {
	if st == nil {
		return nil, errors.New("catalog store must be provided")
	}
	a := &Agent{
		log:          log,
		store:        st,
		Providers:    providers,
		outcomes:     outcomes,
		initialDelay: initialRefreshDelay,
		interval:     refreshInterval,
		slots:        semaphore.NewWeighted(defaultInstallWorkers),
		attempts:     map[int]struct{}{},
	}
	a.handler = a.defaultHandler()
	for _, opt := range opts {
		opt(a)
	}
	if err := a.checkProviders(); err != nil {
		return nil, errors.WithMessage(err, "misconfigured")
	}
	return a, nil
}

func (a *Agent) checkProviders() error {
	switch {
	case a.Source == nil:
		return errors.New("catalog source is nil")
	case a.Downloader == nil:
		return errors.New("downloader is nil")
	case a.Installer == nil:
		return errors.New("installer is nil")
	case a.Notifier == nil:
		return errors.New("notifier is nil")
	case a.Opener == nil:
		return errors.New("uri opener is nil")
	case a.Prefs == nil:
		return errors.New("preferences are nil")
	case a.outcomes == nil:
		return errors.New("outcome channel is nil")
	}
	return nil
}

// State returns the current catalog state.
func (a *Agent) State() catalog.State {
	return a.store.Get()
}

// Run refreshes the catalog periodically and reconciles installation outcomes
// until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Debug("starting")
	defer a.log.Debug("finished")

	group := workgroup.WithContext(ctx)
	group.Work(a.Subscribe)
	group.Work(a.periodicRefresher)

	<-group.Context().Done()
	a.log.Info("waiting on workers to finish")
	err := group.Wait()
	a.Close()
	a.Wait()
	return err
}

func (a *Agent) periodicRefresher(ctx context.Context) error {
	timer := time.NewTimer(a.initialDelay)
	defer timer.Stop()

	showLoading := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			a.log.Debug("periodic refresh")
			a.Refresh(ctx, showLoading)
			showLoading = false
		}
		timer.Reset(a.interval)
	}
}

// Wait blocks until all refresh and install flows started so far have ended.
// Installation sessions handed off to the installer are not waited on.
func (a *Agent) Wait() {
	a.flows.Wait()
}

// Close cancels the refresh in progress, if any.
func (a *Agent) Close() {
	a.refreshMu.Lock()
	if a.cancelRefresh != nil {
		a.cancelRefresh()
		a.cancelRefresh = nil
	}
	a.refreshMu.Unlock()
}

func (a *Agent) launch(fn func()) {
	a.flows.Add(1)
	go func() {
		defer a.flows.Done()
		fn()
	}()
}
