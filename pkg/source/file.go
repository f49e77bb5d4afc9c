package source

import (
	"context"
	"io/ioutil"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// File is a catalog kept in a local TOML file of [[update]] tables.
type File struct {
	Path string
}

func (f *File) Name() string {
	return "file:" + f.Path
}

func (f *File) Fetch(ctx context.Context) ([]catalog.Update, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := ioutil.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	var doc struct {
		Updates []entry `toml:"update"`
	}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse catalog %q", f.Path)
	}
	return convert(doc.Updates)
}
