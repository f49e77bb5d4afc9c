// Package desktop opens links in the user's desktop session.
package desktop

import (
	"context"
	"net/url"
	"os/exec"
	"time"

	"github.com/abc0922001/apkupdater/pkg/logging"
	dbus "github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	portalDest    = "org.freedesktop.portal.Desktop"
	portalPath    = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	portalOpenURI = "org.freedesktop.portal.OpenURI.OpenURI"

	fallbackCommand = "xdg-open"
	openTimeout     = 10 * time.Second
)

type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Opener opens links through the desktop portal, falling back to xdg-open
// when no portal is reachable.
type Opener struct {
	log    logging.SubLogger
	portal caller
	start  func(name string, args ...string) error
}

// NewOpener prepares an Opener. A missing session bus only disables the
// portal.
func NewOpener(log logging.SubLogger) *Opener {
	o := &Opener{log: log, start: startDetached}
	conn, err := dbus.SessionBus()
	if err != nil {
		log.WithError(err).Debug("no session bus, using " + fallbackCommand)
		return o
	}
	o.portal = conn.Object(portalDest, portalPath)
	return o
}

func (o *Opener) Open(uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return errors.Wrap(err, "invalid link")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.Errorf("refusing to open %q link", parsed.Scheme)
	}

	if o.portal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
		defer cancel()
		var handle dbus.ObjectPath
		err := o.portal.CallWithContext(ctx, portalOpenURI, 0, "", uri, map[string]dbus.Variant{}).Store(&handle)
		if err == nil {
			o.log.WithField("request", handle).Debug("opened through portal")
			return nil
		}
		o.log.WithError(err).Debug("portal unavailable, using " + fallbackCommand)
	}

	if err := o.start(fallbackCommand, uri); err != nil {
		return errors.Wrap(err, "unable to open link")
	}
	return nil
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
