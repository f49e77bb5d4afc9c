// Package source looks up pending updates from configured catalogs.
package source

import (
	"context"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/pkg/errors"
)

// Provider is one catalog of updates.
type Provider interface {
	Name() string
	// Fetch returns the updates the catalog currently lists. IDs need not be
	// set.
	Fetch(ctx context.Context) ([]catalog.Update, error)
}

// entry is the serialized form of an update in both the file and the remote
// catalogs.
type entry struct {
	Package    string `toml:"package" json:"package"`
	Name       string `toml:"name" json:"name"`
	OldVersion string `toml:"old_version" json:"old_version"`
	NewVersion string `toml:"new_version" json:"new_version"`
	OldCode    int64  `toml:"old_code" json:"old_code"`
	NewCode    int64  `toml:"new_code" json:"new_code"`
	Source     string `toml:"source" json:"source"`
	Link       string `toml:"link" json:"link"`
}

func (e entry) update() (catalog.Update, error) {
	src, err := catalog.ParseSource(e.Source)
	if err != nil {
		return catalog.Update{}, err
	}
	name := e.Name
	if name == "" {
		name = e.Package
	}
	return catalog.Update{
		PackageName: e.Package,
		Name:        name,
		OldVersion:  e.OldVersion,
		NewVersion:  e.NewVersion,
		OldCode:     e.OldCode,
		NewCode:     e.NewCode,
		Source:      src,
		Link:        e.Link,
	}, nil
}

func convert(entries []entry) ([]catalog.Update, error) {
	updates := make([]catalog.Update, 0, len(entries))
	for i, e := range entries {
		if e.Package == "" {
			return nil, errors.Errorf("entry %d has no package", i)
		}
		u, err := e.update()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d (%s)", i, e.Package)
		}
		updates = append(updates, u)
	}
	return updates, nil
}
