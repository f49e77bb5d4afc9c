package catalog

import (
	"hash/fnv"
	"strings"

	"github.com/pkg/errors"
)

// Source identifies where an Update was found and, with it, how the update is
// installed.
type Source string

const (
	SourceApkMirror Source = "apkmirror"
	SourceGitHub    Source = "github"
	SourceFDroid    Source = "fdroid"
	SourceAptoide   Source = "aptoide"
	SourceDirect    Source = "direct"
)

// Redirects reports whether updates from the source are handed off to the
// marketplace through their link rather than downloaded and installed.
func (s Source) Redirects() bool {
	return s == SourceApkMirror
}

// ParseSource resolves a configured source name.
func ParseSource(name string) (Source, error) {
	switch s := Source(strings.ToLower(strings.TrimSpace(name))); s {
	case SourceApkMirror, SourceGitHub, SourceFDroid, SourceAptoide, SourceDirect:
		return s, nil
	case "":
		return SourceDirect, nil
	default:
		return "", errors.Errorf("unknown update source %q", name)
	}
}

// Update is one pending application update. Only Installing changes during the
// Update's lifetime; everything else is fixed by the snapshot it arrived in.
type Update struct {
	// ID identifies the update across refreshes.
	ID          int
	PackageName string
	Name        string
	OldVersion  string
	NewVersion  string
	OldCode     int64
	NewCode     int64
	Source      Source
	// Link is the package download location, or the marketplace page for
	// sources that redirect.
	Link       string
	Installing bool
}

// StableID derives an Update ID from its source and package name so the same
// update keeps its identity across refreshes.
func StableID(source Source, packageName string) int {
	h := fnv.New32a()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(packageName))
	return int(h.Sum32() & 0x7fffffff)
}

// IndexOf returns the position of the Update with the given id, or -1.
func IndexOf(updates []Update, id int) int {
	for i := range updates {
		if updates[i].ID == id {
			return i
		}
	}
	return -1
}
