// Package updates provides Update fixtures for tests.
package updates

import (
	"github.com/abc0922001/apkupdater/pkg/catalog"
)

type Option func(u *catalog.Update)

func ret(u catalog.Update, initOpts ...Option) func(opts ...Option) catalog.Update {
	for _, opt := range initOpts {
		opt(&u)
	}
	return func(opts ...Option) catalog.Update {
		c := u
		for _, opt := range opts {
			opt(&c)
		}
		return c
	}
}

func WithID(id int) Option {
	return func(u *catalog.Update) {
		u.ID = id
	}
}

func WithSource(s catalog.Source) Option {
	return func(u *catalog.Update) {
		u.Source = s
	}
}

func WithLink(link string) Option {
	return func(u *catalog.Update) {
		u.Link = link
	}
}

func WithPackage(name string) Option {
	return func(u *catalog.Update) {
		u.PackageName = name
	}
}

func Installing() Option {
	return func(u *catalog.Update) {
		u.Installing = true
	}
}

// Foo is a direct package update with id 1.
var Foo = ret(catalog.Update{
	ID:          1,
	PackageName: "org.example.foo",
	Name:        "Foo",
	OldVersion:  "1.0.0",
	NewVersion:  "1.1.0",
	OldCode:     100,
	NewCode:     110,
	Source:      catalog.SourceGitHub,
	Link:        "https://example.org/foo-1.1.0.apk",
})

// Bar is a direct package update with id 2.
var Bar = ret(catalog.Update{
	ID:          2,
	PackageName: "org.example.bar",
	Name:        "Bar",
	OldVersion:  "2.3",
	NewVersion:  "2.4",
	OldCode:     23,
	NewCode:     24,
	Source:      catalog.SourceFDroid,
	Link:        "https://example.org/bar-2.4.apk",
})

// Redirected is an update that is installed through its marketplace page.
var Redirected = ret(catalog.Update{
	ID:          3,
	PackageName: "org.example.mirror",
	Name:        "Mirror",
	OldVersion:  "5",
	NewVersion:  "6",
	OldCode:     5,
	NewCode:     6,
	Source:      catalog.SourceApkMirror,
	Link:        "https://www.apkmirror.com/apk/example/mirror/",
})

// Ready wraps the updates as a Ready catalog state.
func Ready(us ...catalog.Update) catalog.State {
	return catalog.NewReady(us)
}
