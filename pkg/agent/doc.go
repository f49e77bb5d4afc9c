// Agent orchestrates pending application updates: it republishes catalog
// snapshots into the shared catalog.Store, drives per-update download and
// install attempts, and reconciles installation outcomes that the installer
// reports later on its own schedule.
//
// Every flow touches state only through the Store. Refreshes replace the whole
// list, install attempts toggle a single update's Installing flag, and
// outcomes either remove the update or clear its flag. An outcome or install
// step for an update that a refresh has since dropped is a no-op.
package agent
