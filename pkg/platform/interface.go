package platform

import (
	"context"
	"io"

	"github.com/abc0922001/apkupdater/pkg/catalog"
)

// CatalogSource supplies snapshots of the available updates.
type CatalogSource interface {
	// Updates starts a lookup and returns a channel of complete snapshots in
	// the order they become available. The channel is closed once the lookup
	// finishes; nothing is sent after ctx is done.
	Updates(ctx context.Context) <-chan []catalog.Update
}

// Downloader fetches update packages.
type Downloader interface {
	// Download returns the complete package found at uri.
	Download(ctx context.Context, uri string) ([]byte, error)
	// DownloadStream opens the package found at uri for reading. A nil stream
	// with a nil error means the package is not available.
	DownloadStream(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Installer hands packages to the host's package installation.
type Installer interface {
	// CheckPermission reports whether the installer is currently allowed to
	// install packages.
	CheckPermission() bool
	// Install begins an installation session for the update, taking ownership
	// of stream. The session's result is delivered later as an Outcome; an
	// error means no session was started.
	Install(ctx context.Context, update catalog.Update, stream io.ReadCloser) error
	// RootInstall installs payload with elevated privileges and reports the
	// result synchronously.
	RootInstall(ctx context.Context, payload []byte) bool
	// Finish releases the resources held for the update's installation
	// attempt. Finishing an attempt that holds nothing is a no-op.
	Finish(id int)
}

// Outcome reports the result of an installation session started by
// Installer.Install.
type Outcome struct {
	ID      int
	Success bool
}

// Notifier surfaces update counts and errors to the user.
type Notifier interface {
	Report(count int)
	ReportError(message string)
}

// URIOpener opens links, such as marketplace pages, for the user.
type URIOpener interface {
	Open(uri string) error
}

// Prefs exposes the user preferences consulted while installing.
type Prefs interface {
	RootInstall() bool
}
