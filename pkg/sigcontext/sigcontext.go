package sigcontext

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/abc0922001/apkupdater/pkg/logging"
)

// WithSignalCancel returns a context that is cancelled when one of sigs is
// delivered to the process. After the first signal the handlers are reset, so
// a second signal terminates the process with the runtime's default behavior.
// The returned cancel func releases the signal handlers and must be called.
func WithSignalCancel(ctx context.Context, log logging.Logger, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	sigctx, ctxcancel := context.WithCancel(ctx)

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, sigs...)

	var once sync.Once
	release := func() {
		once.Do(func() {
			signal.Stop(sigchan)
		})
	}

	go func() {
		select {
		case <-sigctx.Done():
		case sig := <-sigchan:
			log.WithField("signal", sig.String()).Info("received signal, shutting down")
			ctxcancel()
		}
		release()
		signal.Reset(sigs...)
	}()

	return sigctx, func() {
		ctxcancel()
		release()
	}
}
