// Package events publishes committed ledger entries to downstream
// consumers. Publishing is best-effort and strictly after commit: the
// ledger is the system of record, and a dropped event never affects the
// committed state.
package events
