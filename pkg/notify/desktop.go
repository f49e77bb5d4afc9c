package notify

import (
	"fmt"
	"sync"

	"github.com/abc0922001/apkupdater/pkg/logging"
	dbus "github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	notificationsDest   = "org.freedesktop.Notifications"
	notificationsPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsNotify = notificationsDest + ".Notify"

	appName       = "apkupdater"
	appIcon       = "system-software-update"
	expireDefault = int32(-1)
)

// caller is the part of a D-Bus object the Desktop notifier uses.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Desktop posts freedesktop notifications. The update count replaces its
// previous notification; errors are posted individually.
type Desktop struct {
	log logging.SubLogger
	obj caller

	mu      sync.Mutex
	countID uint32
	last    int
}

// NewDesktop connects to the session bus.
func NewDesktop(log logging.SubLogger) (*Desktop, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to session bus")
	}
	return &Desktop{
		log:  log,
		obj:  conn.Object(notificationsDest, notificationsPath),
		last: -1,
	}, nil
}

func (d *Desktop) Report(count int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if count == d.last {
		return
	}
	d.last = count
	if count == 0 && d.countID == 0 {
		return
	}

	summary := fmt.Sprintf("%d updates available", count)
	if count == 1 {
		summary = "1 update available"
	}
	id, err := d.notify(d.countID, summary, "")
	if err != nil {
		d.log.WithError(err).Warn("unable to post notification")
		return
	}
	d.countID = id
}

func (d *Desktop) ReportError(message string) {
	if _, err := d.notify(0, "Update failed", message); err != nil {
		d.log.WithError(err).Warn("unable to post notification")
	}
}

func (d *Desktop) notify(replaces uint32, summary, body string) (uint32, error) {
	call := d.obj.Call(notificationsNotify, 0,
		appName, replaces, appIcon, summary, body,
		[]string{}, map[string]dbus.Variant{}, expireDefault)
	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, errors.Wrap(err, "notify")
	}
	return id, nil
}
