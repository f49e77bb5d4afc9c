package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const (
	defaultRefreshInterval = "6h"
	defaultInitialDelay    = "5s"
	defaultCacheTTL        = "10m"
	defaultDownloadTimeout = "5m"
	defaultRetries         = 3
	defaultConcurrency     = 2
)

// Config is the service configuration, read from a TOML file.
type Config struct {
	LogLevel  string   `toml:"log_level"`
	PrefsFile string   `toml:"prefs_file"`
	Catalog   Catalog  `toml:"catalog"`
	Download  Download `toml:"download"`
	Install   Install  `toml:"install"`
	Notify    Notify   `toml:"notify"`
}

// Catalog configures where updates are looked up and how often.
type Catalog struct {
	Files           []string `toml:"files"`
	URLs            []string `toml:"urls"`
	RefreshInterval string   `toml:"refresh_interval"`
	InitialDelay    string   `toml:"initial_delay"`
	CacheTTL        string   `toml:"cache_ttl"`
}

// Download configures package downloads.
type Download struct {
	Dir     string `toml:"dir"`
	Timeout string `toml:"timeout"`
	Retries int    `toml:"retries"`
}

// Install configures the commands packages are installed with. The package
// path is appended to each command.
type Install struct {
	Command           []string `toml:"command"`
	PrivilegedCommand []string `toml:"privileged_command"`
	Concurrency       int      `toml:"concurrency"`
}

// Notify configures where counts and errors are surfaced besides the log.
type Notify struct {
	Desktop bool `toml:"desktop"`
	Systemd bool `toml:"systemd"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		PrefsFile: filepath.Join(configDir(), "prefs.toml"),
		Catalog: Catalog{
			RefreshInterval: defaultRefreshInterval,
			InitialDelay:    defaultInitialDelay,
			CacheTTL:        defaultCacheTTL,
		},
		Download: Download{
			Dir:     filepath.Join(os.TempDir(), "apkupdater"),
			Timeout: defaultDownloadTimeout,
			Retries: defaultRetries,
		},
		Install: Install{
			Command:           []string{"adb", "install", "-r"},
			PrivilegedCommand: []string{"sudo", "-n", "adb", "install", "-r"},
			Concurrency:       defaultConcurrency,
		},
	}
}

// Load reads the configuration at path over the defaults. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return nil, errors.Wrap(err, "read config")
	}
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %q", path)
	}
	return cfg, cfg.Validate()
}

// DefaultPath is where the configuration is looked up when no path is given.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.toml")
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "apkupdater")
	}
	return "/etc/apkupdater"
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"catalog.refresh_interval": c.Catalog.RefreshInterval,
		"catalog.initial_delay":    c.Catalog.InitialDelay,
		"catalog.cache_ttl":        c.Catalog.CacheTTL,
		"download.timeout":         c.Download.Timeout,
	} {
		if _, err := parseDuration(value); err != nil {
			return errors.WithMessagef(err, "invalid %s", name)
		}
	}
	switch {
	case len(c.Install.Command) == 0 || strings.TrimSpace(c.Install.Command[0]) == "":
		return errors.New("install.command must name an executable")
	case c.Install.Concurrency < 1:
		return errors.Errorf("install.concurrency must be positive, got %d", c.Install.Concurrency)
	case c.Download.Retries < 0:
		return errors.Errorf("download.retries must not be negative, got %d", c.Download.Retries)
	case c.Download.Dir == "":
		return errors.New("download.dir must be set")
	}
	for _, u := range c.Catalog.URLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return errors.Errorf("catalog url %q must be http or https", u)
		}
	}
	return nil
}

func (c Catalog) Interval() time.Duration {
	return mustDuration(c.RefreshInterval)
}

func (c Catalog) Delay() time.Duration {
	return mustDuration(c.InitialDelay)
}

func (c Catalog) TTL() time.Duration {
	return mustDuration(c.CacheTTL)
}

func (d Download) TimeoutDuration() time.Duration {
	return mustDuration(d.Timeout)
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.Errorf("negative duration %q", s)
	}
	return d, nil
}

// mustDuration is only used on validated configurations.
func mustDuration(s string) time.Duration {
	d, _ := parseDuration(s)
	return d
}
