// Package catalog holds the shared view of pending application updates.
//
// The catalog is either Loading or Ready with an ordered list of Updates. All
// changes go through a Store, which serializes read-modify-write Transforms so
// that a refresh replacing the whole list and an install toggling a single
// update's flag cannot interleave. State values are never modified in place:
// each Transform produces a new value, so a State obtained from Store.Get stays
// valid for as long as the reader holds it.
package catalog
