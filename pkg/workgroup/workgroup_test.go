package workgroup

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/assert"
)

func TestWorkerErrorCancelsGroup(t *testing.T) {
	g := WithContext(context.Background())
	boom := errors.New("boom")

	g.Work(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	g.Work(func(context.Context) error {
		return boom
	})

	assert.Equal(t, g.Wait(), boom)
	assert.Assert(t, g.Context().Err() != nil)
}

func TestParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := WithContext(ctx)
	g.Work(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	cancel()
	assert.NilError(t, g.Wait())
}
