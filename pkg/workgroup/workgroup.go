package workgroup

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Group runs long-lived workers sharing a context. The first worker to return
// an error cancels the context for the others.
type Group struct {
	ctx   context.Context
	group *errgroup.Group
}

func WithContext(ctx context.Context) *Group {
	group, gctx := errgroup.WithContext(ctx)
	return &Group{
		ctx:   gctx,
		group: group,
	}
}

// Work starts fn on its own goroutine with the group's context.
func (g *Group) Work(fn func(context.Context) error) {
	g.group.Go(func() error {
		return fn(g.ctx)
	})
}

// Context returns the group's context, done once the parent is done or a
// worker fails.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Wait blocks until all workers return and reports the first error.
func (g *Group) Wait() error {
	return g.group.Wait()
}
