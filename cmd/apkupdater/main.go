package main

import (
	"os"
	"time"

	"github.com/abc0922001/apkupdater/pkg/config"
	"github.com/abc0922001/apkupdater/pkg/logging"
	"github.com/urfave/cli/v2"
)

func main() {
	logging.Set(logging.SplitOutput())
	if err := app().Run(os.Args); err != nil {
		logging.New("main").WithError(err).Error("exiting")
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:  "apkupdater",
		Usage: "find and install application updates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath(),
				Usage:   "load configuration from `FILE`",
				EnvVars: []string{"APKUPDATER_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log at debug level",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logging.Set(logging.Level("debug"))
			}
			// "debuggable" builds log every command they run; keep that
			// obvious before anything else is printed.
			if logging.Debuggable {
				log := logging.New("main")
				log.Warn("logging.Debuggable produces large volumes of logs")
				delay := time.Second
				log.WithField("delay", delay).Warn("delaying start due to logging.Debuggable build")
				time.Sleep(delay)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "check for updates periodically until stopped",
				Action: runAction,
			},
			{
				Name:   "list",
				Usage:  "look up and print available updates",
				Action: listAction,
			},
			{
				Name:      "install",
				Usage:     "install the available update for a package",
				ArgsUsage: "<package>",
				Action:    installAction,
			},
			{
				Name:      "ignore",
				Usage:     "hide updates for a package",
				ArgsUsage: "<package>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "undo", Usage: "show updates for the package again"},
				},
				Action: ignoreAction,
			},
			{
				Name:      "root-install",
				Usage:     "install with the privileged command",
				ArgsUsage: "on|off",
				Action:    rootInstallAction,
			},
			{
				Name:  "service",
				Usage: "install a systemd user service running apkupdater",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-enable", Usage: "only write the unit file"},
				},
				Action: serviceAction,
			},
		},
	}
}
