package agent

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/abc0922001/apkupdater/pkg/internal/updates"
	"github.com/abc0922001/apkupdater/pkg/platform"
	"github.com/pkg/errors"
	"gotest.tools/assert"
)

func TestInstallSessionSuccess(t *testing.T) {
	ctx := context.Background()
	a, hooks := testAgent(t)
	hooks.Store.Set(updates.Ready(updates.Foo()))

	a.Install(ctx, updates.Foo())
	a.Wait()

	assert.DeepEqual(t, hooks.Store.Get(), updates.Ready(updates.Foo(updates.Installing())))
	assert.DeepEqual(t, hooks.Installer.Installed(), []int{1})
	assert.DeepEqual(t, hooks.Downloader.Calls(), []string{updates.Foo().Link})
	assert.Equal(t, len(hooks.Installer.Finished()), 0)

	hooks.Outcomes <- platform.Outcome{ID: 1, Success: true}
	close(hooks.Outcomes)
	assert.NilError(t, a.Subscribe(ctx))

	assert.DeepEqual(t, hooks.Store.Get(), updates.Ready())
	assert.DeepEqual(t, hooks.Installer.Finished(), []int{1})
	assert.DeepEqual(t, hooks.Notifier.Counts(), []int{0})
}

func TestInstallSessionFailure(t *testing.T) {
	ctx := context.Background()
	a, hooks := testAgent(t)
	hooks.Store.Set(updates.Ready(updates.Foo()))

	a.Install(ctx, updates.Foo())
	a.Wait()

	hooks.Outcomes <- platform.Outcome{ID: 1, Success: false}
	close(hooks.Outcomes)
	assert.NilError(t, a.Subscribe(ctx))

	assert.DeepEqual(t, hooks.Store.Get(), updates.Ready(updates.Foo()))
	assert.DeepEqual(t, hooks.Installer.Finished(), []int{1})
}

func TestInstallPermissionDenied(t *testing.T) {
	a, hooks := testAgent(t)
	hooks.Installer.Denied = true
	initial := updates.Ready(updates.Foo())
	hooks.Store.Set(initial)

	a.Install(context.Background(), updates.Foo())
	a.Wait()

	assert.DeepEqual(t, hooks.Store.Get(), initial)
	assert.Equal(t, len(hooks.Downloader.Calls()), 0)
	assert.Equal(t, len(hooks.Installer.Installed()), 0)
	assert.Equal(t, len(hooks.Notifier.Errors()), 0)
}

func TestInstallPrivileged(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		a, hooks := testAgent(t)
		hooks.Prefs.root = true
		hooks.Store.Set(updates.Ready(updates.Foo(), updates.Bar()))

		var payload []byte
		hooks.Installer.RootInstallFn = func(_ context.Context, p []byte) bool {
			payload = p
			return true
		}
		a.Install(context.Background(), updates.Foo())
		a.Wait()

		assert.DeepEqual(t, hooks.Store.Get(), updates.Ready(updates.Bar()))
		assert.Equal(t, string(payload), "package")
		assert.DeepEqual(t, hooks.Installer.Finished(), []int{1})
		assert.Equal(t, len(hooks.Installer.Installed()), 0)
		assert.DeepEqual(t, hooks.Notifier.Counts(), []int{1})
	})

	t.Run("failure", func(t *testing.T) {
		a, hooks := testAgent(t)
		hooks.Prefs.root = true
		hooks.Store.Set(updates.Ready(updates.Foo()))
		hooks.Installer.RootInstallFn = func(context.Context, []byte) bool { return false }

		a.Install(context.Background(), updates.Foo())
		a.Wait()

		assert.DeepEqual(t, hooks.Store.Get(), updates.Ready(updates.Foo()))
		assert.DeepEqual(t, hooks.Installer.Finished(), []int{1})
		assert.Equal(t, len(hooks.Notifier.Errors()), 1)
	})

	t.Run("download-error", func(t *testing.T) {
		a, hooks := testAgent(t)
		hooks.Prefs.root = true
		hooks.Store.Set(updates.Ready(updates.Foo()))
		hooks.Downloader.DownloadFn = func(context.Context, string) ([]byte, error) {
			return nil, errors.New("connection reset")
		}

		a.Install(context.Background(), updates.Foo())
		a.Wait()

		assert.DeepEqual(t, hooks.Store.Get(), updates.Ready(updates.Foo()))
		assert.Equal(t, hooks.Installer.rootInstalls, 0)
		errs := hooks.Notifier.Errors()
		assert.Equal(t, len(errs), 1)
		assert.Assert(t, strings.Contains(errs[0], "connection reset"), errs[0])
	})
}

func TestInstallRedirectNeverDownloads(t *testing.T) {
	for _, root := range []bool{false, true} {
		a, hooks := testAgent(t)
		hooks.Prefs.root = root
		initial := updates.Ready(updates.Redirected())
		hooks.Store.Set(initial)

		a.Install(context.Background(), updates.Redirected())
		a.Wait()

		assert.DeepEqual(t, hooks.Opener.opened, []string{updates.Redirected().Link})
		assert.Equal(t, len(hooks.Downloader.Calls()), 0)
		assert.DeepEqual(t, hooks.Store.Get(), initial)
	}
}

func TestInstallRedirectOpenError(t *testing.T) {
	a, hooks := testAgent(t)
	hooks.Opener.err = errors.New("no browser")

	a.Install(context.Background(), updates.Redirected())

	assert.Equal(t, len(hooks.Notifier.Errors()), 1)
}

func TestInstallFlagSetBeforeDownload(t *testing.T) {
	a, hooks := testAgent(t)
	hooks.Store.Set(updates.Ready(updates.Foo()))

	var installingAtDownload bool
	hooks.Downloader.DownloadStreamFn = func(context.Context, string) (io.ReadCloser, error) {
		u, _ := catalog.Find(hooks.Store.Get(), 1)
		installingAtDownload = u.Installing
		return nil, errors.New("offline")
	}

	a.Install(context.Background(), updates.Foo())
	a.Wait()

	assert.Check(t, installingAtDownload)
	u, ok := catalog.Find(hooks.Store.Get(), 1)
	assert.Assert(t, ok)
	assert.Check(t, !u.Installing)
}

func TestInstallFailuresRevert(t *testing.T) {
	cases := []struct {
		name    string
		stream  func(context.Context, string) (io.ReadCloser, error)
		install func(context.Context, catalog.Update, io.ReadCloser) error
		message string
	}{
		{
			name: "download-error",
			stream: func(context.Context, string) (io.ReadCloser, error) {
				return nil, errors.New("timeout")
			},
			message: "download failed: timeout",
		},
		{
			name: "stream-unavailable",
			stream: func(context.Context, string) (io.ReadCloser, error) {
				return nil, nil
			},
			message: "download unavailable",
		},
		{
			name: "session-error",
			install: func(context.Context, catalog.Update, io.ReadCloser) error {
				return errors.New("disk full")
			},
			message: "could not start install session: disk full",
		},
		{
			name: "panic",
			stream: func(context.Context, string) (io.ReadCloser, error) {
				panic("unexpected")
			},
			message: "install panicked: unexpected",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, hooks := testAgent(t)
			hooks.Store.Set(updates.Ready(updates.Foo(), updates.Bar()))
			hooks.Downloader.DownloadStreamFn = tc.stream
			hooks.Installer.InstallFn = tc.install

			a.Install(context.Background(), updates.Foo())
			a.Wait()

			assert.DeepEqual(t, hooks.Store.Get(), updates.Ready(updates.Foo(), updates.Bar()))
			assert.DeepEqual(t, hooks.Installer.Finished(), []int{1})
			errs := hooks.Notifier.Errors()
			assert.Equal(t, len(errs), 1)
			assert.Assert(t, strings.HasSuffix(errs[0], tc.message), errs[0])
		})
	}
}

func TestInstallAlreadyInProgress(t *testing.T) {
	a, hooks := testAgent(t)
	hooks.Store.Set(updates.Ready(updates.Foo(updates.Installing())))

	a.Install(context.Background(), updates.Foo())
	a.Wait()

	assert.Equal(t, len(hooks.Downloader.Calls()), 0)
	assert.DeepEqual(t, hooks.Store.Get(), updates.Ready(updates.Foo(updates.Installing())))
}

func TestInstallConcurrentIndependent(t *testing.T) {
	ctx := context.Background()
	a, hooks := testAgent(t, WithConcurrency(2))
	baz := updates.Bar(updates.WithID(7), updates.WithPackage("org.example.baz"))
	hooks.Store.Set(updates.Ready(updates.Foo(), updates.Bar(), baz))

	// Both downloads must be in flight together before either proceeds.
	var started sync.WaitGroup
	started.Add(2)
	hooks.Downloader.DownloadStreamFn = func(context.Context, string) (io.ReadCloser, error) {
		started.Done()
		started.Wait()
		return io.NopCloser(strings.NewReader("package")), nil
	}
	hooks.Installer.InstallFn = func(_ context.Context, u catalog.Update, _ io.ReadCloser) error {
		if u.ID == updates.Bar().ID {
			return errors.New("rejected")
		}
		return nil
	}

	a.Install(ctx, updates.Foo())
	a.Install(ctx, updates.Bar())
	a.Wait()

	assert.DeepEqual(t, hooks.Store.Get(), updates.Ready(updates.Foo(updates.Installing()), updates.Bar(), baz))

	hooks.Outcomes <- platform.Outcome{ID: 1, Success: true}
	close(hooks.Outcomes)
	assert.NilError(t, a.Subscribe(ctx))

	assert.DeepEqual(t, hooks.Store.Get(), updates.Ready(updates.Bar(), baz))
}

func TestInstallAbsentUpdateStillAttempts(t *testing.T) {
	a, hooks := testAgent(t)
	hooks.Store.Set(updates.Ready(updates.Bar()))

	a.Install(context.Background(), updates.Foo())
	a.Wait()

	assert.DeepEqual(t, hooks.Installer.Installed(), []int{1})
	assert.DeepEqual(t, hooks.Store.Get(), updates.Ready(updates.Bar()))
}
