// Package service installs apkupdater as a systemd user service.
package service

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/abc0922001/apkupdater/pkg/logging"
	systemd "github.com/coreos/go-systemd/v22/dbus"
	"github.com/coreos/go-systemd/v22/unit"
	"github.com/pkg/errors"
)

const UnitName = "apkupdater.service"

// Options returns the unit for running exe with the configuration at config.
func Options(exe, config string) []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Application update checker"),
		unit.NewUnitOption("Unit", "After", "network-online.target"),
		unit.NewUnitOption("Service", "Type", "notify"),
		unit.NewUnitOption("Service", "ExecStart", exe+" --config "+config+" run"),
		unit.NewUnitOption("Service", "Restart", "on-failure"),
		unit.NewUnitOption("Install", "WantedBy", "default.target"),
	}
}

// WriteUnit writes the unit into dir, replacing any previous one.
func WriteUnit(dir string, options []*unit.UnitOption) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", errors.Wrap(err, "unable to create unit dir")
	}
	path := filepath.Join(dir, UnitName)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "unable to create unit")
	}
	if _, err := io.Copy(f, unit.Serialize(options)); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Wrap(err, "unable to write unit")
	}
	return path, errors.Wrap(f.Close(), "unable to write unit")
}

// UserUnitDir is where systemd looks for the user's own units.
func UserUnitDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "unable to find user config dir")
	}
	return filepath.Join(dir, "systemd", "user"), nil
}

// Enable reloads the user's systemd manager and enables and starts the unit.
func Enable(ctx context.Context, log logging.SubLogger, path string) error {
	sd, err := systemd.NewUserConnectionContext(ctx)
	if err != nil {
		return errors.Wrap(err, "unable to connect to user systemd")
	}
	defer sd.Close()

	if err := sd.ReloadContext(ctx); err != nil {
		return errors.Wrap(err, "unable to execute daemon-reload")
	}
	if _, _, err := sd.EnableUnitFilesContext(ctx, []string{path}, false, true); err != nil {
		return errors.Wrap(err, "unable to enable unit")
	}
	done := make(chan string, 1)
	if _, err := sd.RestartUnitContext(ctx, UnitName, "replace", done); err != nil {
		return errors.Wrap(err, "unable to start unit")
	}
	select {
	case result := <-done:
		log.WithField("result", result).Debug("unit started")
		if result != "done" {
			return errors.Errorf("starting %s: %s", UnitName, result)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
