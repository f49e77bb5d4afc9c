// Package prefs persists the user's update preferences.
package prefs

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

type document struct {
	RootInstall bool     `toml:"root_install"`
	Ignored     []string `toml:"ignored"`
}

// Prefs holds the preferences stored at a path. It is safe for concurrent
// use.
type Prefs struct {
	path string

	mu      sync.RWMutex
	root    bool
	ignored map[string]struct{}
}

// Load reads the preferences at path. A missing file yields the defaults.
func Load(path string) (*Prefs, error) {
	p := &Prefs{path: path, ignored: map[string]struct{}{}}
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, errors.Wrap(err, "read prefs")
	}
	var doc document
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse prefs %q", path)
	}
	p.root = doc.RootInstall
	for _, pkg := range doc.Ignored {
		p.ignored[pkg] = struct{}{}
	}
	return p, nil
}

// RootInstall reports whether updates are installed with elevated privileges.
func (p *Prefs) RootInstall() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root
}

func (p *Prefs) SetRootInstall(on bool) {
	p.mu.Lock()
	p.root = on
	p.mu.Unlock()
}

// Ignored reports whether updates for the package are hidden.
func (p *Prefs) Ignored(pkg string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.ignored[pkg]
	return ok
}

// Ignore hides updates for the package, or shows them again when ignore is
// false.
func (p *Prefs) Ignore(pkg string, ignore bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ignore {
		p.ignored[pkg] = struct{}{}
	} else {
		delete(p.ignored, pkg)
	}
}

// Save writes the preferences back to their path, replacing the file
// atomically.
func (p *Prefs) Save() error {
	p.mu.RLock()
	doc := document{RootInstall: p.root, Ignored: make([]string, 0, len(p.ignored))}
	for pkg := range p.ignored {
		doc.Ignored = append(doc.Ignored, pkg)
	}
	p.mu.RUnlock()
	sort.Strings(doc.Ignored)

	raw, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode prefs")
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return errors.Wrap(err, "create prefs dir")
	}
	tmp, err := ioutil.TempFile(filepath.Dir(p.path), ".prefs-*")
	if err != nil {
		return errors.Wrap(err, "create prefs")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write prefs")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "write prefs")
	}
	return errors.Wrap(os.Rename(tmp.Name(), p.path), "replace prefs")
}
