package source

import (
	"context"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/abc0922001/apkupdater/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// ErrorReporter receives messages for catalogs that could not be read.
type ErrorReporter interface {
	ReportError(message string)
}

// Combined looks up updates from several providers at once. Each time a
// provider finishes, it emits the updates found so far, ordered by provider.
type Combined struct {
	log       logging.Logger
	providers []Provider
	ignored   func(pkg string) bool
	reporter  ErrorReporter
}

type Option func(*Combined)

// WithIgnored hides updates for packages the predicate matches.
func WithIgnored(ignored func(pkg string) bool) Option {
	return func(c *Combined) { c.ignored = ignored }
}

// WithErrorReporter surfaces provider failures besides logging them.
func WithErrorReporter(r ErrorReporter) Option {
	return func(c *Combined) { c.reporter = r }
}

func NewCombined(log logging.Logger, providers []Provider, opts ...Option) *Combined {
	c := &Combined{
		log:       log,
		providers: providers,
		ignored:   func(string) bool { return false },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Updates starts a lookup across all providers. The returned channel is
// closed when every provider has finished or ctx is done.
func (c *Combined) Updates(ctx context.Context) <-chan []catalog.Update {
	out := make(chan []catalog.Update)
	go c.run(ctx, out)
	return out
}

type result struct {
	index   int
	updates []catalog.Update
}

func (c *Combined) run(ctx context.Context, out chan<- []catalog.Update) {
	defer close(out)

	if len(c.providers) == 0 {
		send(ctx, out, []catalog.Update{})
		return
	}

	results := make(chan result)
	group, gctx := errgroup.WithContext(ctx)
	for i, p := range c.providers {
		i, p := i, p
		group.Go(func() error {
			updates, err := p.Fetch(gctx)
			if err != nil {
				c.failed(gctx, p, err)
				updates = nil
			}
			select {
			case results <- result{index: i, updates: c.prepare(updates)}:
			case <-gctx.Done():
			}
			return nil
		})
	}
	go func() {
		group.Wait()
		close(results)
	}()

	found := make([][]catalog.Update, len(c.providers))
	for r := range results {
		found[r.index] = r.updates
		if !send(ctx, out, flatten(found)) {
			return
		}
	}
}

func (c *Combined) failed(ctx context.Context, p Provider, err error) {
	if ctx.Err() != nil {
		c.log.WithField("provider", p.Name()).Debug("lookup cancelled")
		return
	}
	c.log.WithError(err).WithField("provider", p.Name()).Error("catalog lookup failed")
	if c.reporter != nil {
		c.reporter.ReportError(p.Name() + ": " + err.Error())
	}
}

// prepare drops ignored packages and assigns stable ids.
func (c *Combined) prepare(updates []catalog.Update) []catalog.Update {
	kept := updates[:0:0]
	for _, u := range updates {
		if c.ignored(u.PackageName) {
			continue
		}
		u.ID = catalog.StableID(u.Source, u.PackageName)
		u.Installing = false
		kept = append(kept, u)
	}
	return kept
}

func flatten(found [][]catalog.Update) []catalog.Update {
	all := []catalog.Update{}
	for _, updates := range found {
		all = append(all, updates...)
	}
	return all
}

func send(ctx context.Context, out chan<- []catalog.Update, snapshot []catalog.Update) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- snapshot:
		return true
	case <-ctx.Done():
		return false
	}
}
