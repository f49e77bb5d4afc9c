package agent

import (
	"context"
	"io"
	"io/ioutil"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/abc0922001/apkupdater/pkg/internal/testoutput"
	"github.com/abc0922001/apkupdater/pkg/platform"
)

type testHooks struct {
	Store      *catalog.Store
	Outcomes   chan platform.Outcome
	Source     *testSource
	Downloader *testDownloader
	Installer  *testInstaller
	Notifier   *testNotifier
	Opener     *testOpener
	Prefs      *testPrefs
}

func testAgent(t *testing.T, opts ...Option) (*Agent, *testHooks) {
	hooks := &testHooks{
		Store:      catalog.NewStore(),
		Outcomes:   make(chan platform.Outcome, 8),
		Source:     &testSource{called: make(chan int, 8)},
		Downloader: &testDownloader{},
		Installer:  &testInstaller{},
		Notifier:   &testNotifier{},
		Opener:     &testOpener{},
		Prefs:      &testPrefs{},
	}
	a, err := New(testoutput.Logger(t, "agent"), hooks.Store, Providers{
		Source:     hooks.Source,
		Downloader: hooks.Downloader,
		Installer:  hooks.Installer,
		Notifier:   hooks.Notifier,
		Opener:     hooks.Opener,
		Prefs:      hooks.Prefs,
	}, hooks.Outcomes, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return a, hooks
}

// snapshots returns a closed channel preloaded with ss.
func snapshots(ss ...[]catalog.Update) <-chan []catalog.Update {
	ch := make(chan []catalog.Update, len(ss))
	for _, s := range ss {
		ch <- s
	}
	close(ch)
	return ch
}

type testSource struct {
	mu        sync.Mutex
	calls     int
	called    chan int
	UpdatesFn func(ctx context.Context, call int) <-chan []catalog.Update
}

func (s *testSource) Updates(ctx context.Context) <-chan []catalog.Update {
	s.mu.Lock()
	s.calls++
	call := s.calls
	fn := s.UpdatesFn
	s.mu.Unlock()

	var ch <-chan []catalog.Update
	if fn != nil {
		ch = fn(ctx, call)
	} else {
		ch = snapshots()
	}
	s.called <- call
	return ch
}

type testDownloader struct {
	mu               sync.Mutex
	calls            []string
	DownloadFn       func(ctx context.Context, uri string) ([]byte, error)
	DownloadStreamFn func(ctx context.Context, uri string) (io.ReadCloser, error)
}

func (d *testDownloader) record(uri string) {
	d.mu.Lock()
	d.calls = append(d.calls, uri)
	d.mu.Unlock()
}

func (d *testDownloader) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *testDownloader) Download(ctx context.Context, uri string) ([]byte, error) {
	d.record(uri)
	if d.DownloadFn != nil {
		return d.DownloadFn(ctx, uri)
	}
	return []byte("package"), nil
}

func (d *testDownloader) DownloadStream(ctx context.Context, uri string) (io.ReadCloser, error) {
	d.record(uri)
	if d.DownloadStreamFn != nil {
		return d.DownloadStreamFn(ctx, uri)
	}
	return ioutil.NopCloser(strings.NewReader("package")), nil
}

type testInstaller struct {
	mu            sync.Mutex
	installed     []int
	rootInstalls  int
	finished      []int
	Denied        bool
	InstallFn     func(ctx context.Context, u catalog.Update, stream io.ReadCloser) error
	RootInstallFn func(ctx context.Context, payload []byte) bool
}

func (i *testInstaller) CheckPermission() bool {
	return !i.Denied
}

func (i *testInstaller) Install(ctx context.Context, u catalog.Update, stream io.ReadCloser) error {
	defer stream.Close()
	i.mu.Lock()
	i.installed = append(i.installed, u.ID)
	i.mu.Unlock()
	if i.InstallFn != nil {
		return i.InstallFn(ctx, u, stream)
	}
	return nil
}

func (i *testInstaller) RootInstall(ctx context.Context, payload []byte) bool {
	i.mu.Lock()
	i.rootInstalls++
	i.mu.Unlock()
	if i.RootInstallFn != nil {
		return i.RootInstallFn(ctx, payload)
	}
	return true
}

func (i *testInstaller) Finish(id int) {
	i.mu.Lock()
	i.finished = append(i.finished, id)
	i.mu.Unlock()
}

func (i *testInstaller) Installed() []int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]int(nil), i.installed...)
}

func (i *testInstaller) Finished() []int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]int(nil), i.finished...)
}

type testNotifier struct {
	mu     sync.Mutex
	counts []int
	errors []string
}

func (n *testNotifier) Report(count int) {
	n.mu.Lock()
	n.counts = append(n.counts, count)
	n.mu.Unlock()
}

func (n *testNotifier) ReportError(message string) {
	n.mu.Lock()
	n.errors = append(n.errors, message)
	n.mu.Unlock()
}

func (n *testNotifier) Counts() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.counts...)
}

func (n *testNotifier) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errors...)
}

type testOpener struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (o *testOpener) Open(uri string) error {
	o.mu.Lock()
	o.opened = append(o.opened, uri)
	o.mu.Unlock()
	return o.err
}

type testPrefs struct {
	root bool
}

func (p *testPrefs) RootInstall() bool {
	return p.root
}

// waitState blocks until pred holds for the store's state or fails the test.
func waitState(t *testing.T, s *catalog.Store, pred func(catalog.State) bool) catalog.State {
	t.Helper()
	ch, stop := s.Watch()
	defer stop()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case st := <-ch:
			if pred(st) {
				return st
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state, last: %#v", s.Get())
			return nil
		}
	}
}

func waitCalled(t *testing.T, s *testSource) int {
	t.Helper()
	select {
	case n := <-s.called:
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("catalog source was not called")
		return 0
	}
}
