package main

import (
	"net/http"

	"github.com/abc0922001/apkupdater/pkg/agent"
	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/abc0922001/apkupdater/pkg/config"
	"github.com/abc0922001/apkupdater/pkg/desktop"
	"github.com/abc0922001/apkupdater/pkg/download"
	"github.com/abc0922001/apkupdater/pkg/install"
	"github.com/abc0922001/apkupdater/pkg/logging"
	"github.com/abc0922001/apkupdater/pkg/notify"
	"github.com/abc0922001/apkupdater/pkg/prefs"
	"github.com/abc0922001/apkupdater/pkg/source"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// stack holds the configured components behind an Agent.
type stack struct {
	cfg       *config.Config
	prefs     *prefs.Prefs
	store     *catalog.Store
	installer *install.SessionInstaller
	systemd   *notify.Systemd
	agent     *agent.Agent
}

func loadSettings(c *cli.Context) (*config.Config, *prefs.Prefs, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, errors.WithMessage(err, "configuration")
	}
	if !c.Bool("debug") {
		logging.Set(logging.Level(cfg.LogLevel))
	}
	p, err := prefs.Load(cfg.PrefsFile)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "preferences")
	}
	return cfg, p, nil
}

func newStack(c *cli.Context) (*stack, error) {
	cfg, p, err := loadSettings(c)
	if err != nil {
		return nil, err
	}
	s := &stack{cfg: cfg, prefs: p, store: catalog.NewStore()}

	notifiers := notify.Multi{notify.NewLog(logging.New("notify"))}
	if cfg.Notify.Desktop {
		d, err := notify.NewDesktop(logging.New("notify"))
		if err != nil {
			logging.New("main").WithError(err).Warn("desktop notifications disabled")
		} else {
			notifiers = append(notifiers, d)
		}
	}
	if cfg.Notify.Systemd {
		s.systemd = notify.NewSystemd(logging.New("notify"))
		notifiers = append(notifiers, s.systemd)
	}

	s.installer = install.NewSessionInstaller(logging.New("install"), install.Config{
		Dir:               cfg.Download.Dir,
		Command:           cfg.Install.Command,
		PrivilegedCommand: cfg.Install.PrivilegedCommand,
	})

	retry := download.DefaultRetry()
	retry.Attempts = cfg.Download.Retries
	client := &http.Client{Timeout: cfg.Download.TimeoutDuration()}

	s.agent, err = agent.New(logging.New("agent"), s.store, agent.Providers{
		Source: source.NewCombined(logging.New("source"), providers(cfg, client),
			source.WithIgnored(p.Ignored),
			source.WithErrorReporter(notifiers)),
		Downloader: download.New(logging.New("download"), client, retry),
		Installer:  s.installer,
		Notifier:   notifiers,
		Opener:     desktop.NewOpener(logging.New("desktop")),
		Prefs:      p,
	}, s.installer.Outcomes(),
		agent.WithSchedule(cfg.Catalog.Delay(), cfg.Catalog.Interval()),
		agent.WithConcurrency(cfg.Install.Concurrency))
	if err != nil {
		return nil, errors.WithMessage(err, "could not setup agent")
	}
	return s, nil
}

func providers(cfg *config.Config, client *http.Client) []source.Provider {
	var ps []source.Provider
	for _, path := range cfg.Catalog.Files {
		ps = append(ps, &source.File{Path: path})
	}
	cache := source.NewCache()
	for _, url := range cfg.Catalog.URLs {
		ps = append(ps, source.NewRemote(url, cfg.Catalog.TTL(), client, cache))
	}
	return ps
}
