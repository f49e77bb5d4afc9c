package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/abc0922001/apkupdater/pkg/logging"
	"github.com/abc0922001/apkupdater/pkg/service"
	"github.com/abc0922001/apkupdater/pkg/sigcontext"
	"github.com/abc0922001/apkupdater/pkg/workgroup"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return sigcontext.WithSignalCancel(c.Context, logging.New("main"), syscall.SIGINT, syscall.SIGTERM)
}

func runAction(c *cli.Context) error {
	s, err := newStack(c)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c)
	defer cancel()

	log := logging.New("main")
	group := workgroup.WithContext(ctx)
	group.Work(s.agent.Run)
	group.Work(func(ctx context.Context) error {
		return watchCatalog(ctx, s.store)
	})
	if s.systemd != nil {
		s.systemd.Ready()
	}
	log.Info("running")

	err = group.Wait()
	if s.systemd != nil {
		s.systemd.Stopping()
	}
	s.installer.Close()
	return errors.WithMessage(err, "run error")
}

// watchCatalog logs each change to the number of available updates.
func watchCatalog(ctx context.Context, store *catalog.Store) error {
	log := logging.New("main").WithField(logging.SubComponentField, "catalog")
	states, stop := store.Watch()
	defer stop()

	last := -1
	for {
		select {
		case <-ctx.Done():
			return nil
		case state := <-states:
			catalog.Match(state, func() {
				log.Debug("loading")
			}, func(r catalog.Ready) {
				if len(r.Updates) != last {
					last = len(r.Updates)
					log.WithField("count", last).Info("catalog changed")
				}
			})
		}
	}
}

// lookup refreshes the catalog once and returns what was found.
func lookup(ctx context.Context, s *stack) (catalog.Ready, error) {
	s.agent.Refresh(ctx, true)
	s.agent.Wait()
	if err := ctx.Err(); err != nil {
		return catalog.Ready{}, err
	}
	ready, ok := s.store.Get().(catalog.Ready)
	if !ok {
		return catalog.Ready{}, errors.New("catalog lookup did not complete")
	}
	return ready, nil
}

func listAction(c *cli.Context) error {
	s, err := newStack(c)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c)
	defer cancel()

	ready, err := lookup(ctx, s)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tNAME\tINSTALLED\tAVAILABLE\tSOURCE")
	for _, u := range ready.Updates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.PackageName, u.Name, u.OldVersion, u.NewVersion, u.Source)
	}
	return w.Flush()
}

func installAction(c *cli.Context) error {
	pkg := c.Args().First()
	if pkg == "" {
		return cli.Exit("a package name is required", 2)
	}
	s, err := newStack(c)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c)
	defer cancel()

	ready, err := lookup(ctx, s)
	if err != nil {
		return err
	}
	var update *catalog.Update
	for i := range ready.Updates {
		if ready.Updates[i].PackageName == pkg {
			update = &ready.Updates[i]
			break
		}
	}
	if update == nil {
		return errors.Errorf("no update available for %s", pkg)
	}

	group := workgroup.WithContext(ctx)
	group.Work(s.agent.Subscribe)
	group.Work(func(ctx context.Context) error {
		defer cancel()
		s.agent.Install(ctx, *update)
		s.agent.Wait()
		if update.Source.Redirects() {
			return nil
		}
		return awaitInstalled(ctx, s.store, update.ID)
	})
	err = group.Wait()
	s.installer.Close()
	return err
}

// awaitInstalled waits until the update leaves the catalog, or fails once it
// is no longer being installed.
func awaitInstalled(ctx context.Context, store *catalog.Store, id int) error {
	states, stop := store.Watch()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state := <-states:
			u, ok := catalog.Find(state, id)
			switch {
			case !ok:
				logging.New("main").WithField("id", id).Info("installed")
				return nil
			case !u.Installing:
				return errors.Errorf("%s was not installed", u.PackageName)
			}
		}
	}
}

func ignoreAction(c *cli.Context) error {
	pkg := c.Args().First()
	if pkg == "" {
		return cli.Exit("a package name is required", 2)
	}
	_, p, err := loadSettings(c)
	if err != nil {
		return err
	}
	p.Ignore(pkg, !c.Bool("undo"))
	return p.Save()
}

func rootInstallAction(c *cli.Context) error {
	var on bool
	switch strings.ToLower(c.Args().First()) {
	case "on", "true", "yes":
		on = true
	case "off", "false", "no":
	default:
		return cli.Exit("expected on or off", 2)
	}
	_, p, err := loadSettings(c)
	if err != nil {
		return err
	}
	p.SetRootInstall(on)
	return p.Save()
}

func serviceAction(c *cli.Context) error {
	log := logging.New("service")
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "unable to locate executable")
	}
	dir, err := service.UserUnitDir()
	if err != nil {
		return err
	}
	path, err := service.WriteUnit(dir, service.Options(exe, c.String("config")))
	if err != nil {
		return err
	}
	log.WithField("unit", path).Info("wrote unit")
	if c.Bool("no-enable") {
		return nil
	}
	return service.Enable(c.Context, log, path)
}
