// Package ledger defines the durable store for accounts and their
// append-only event history, and the error taxonomy shared by the
// trading core.
//
// The store exposes one atomic primitive, AppendAndAdjustBalance, that
// every balance-mutating operation reduces to: one ledger entry appended
// and one cash update applied together or not at all. Conflicting
// operations on the same account are serialized inside the store (a row
// lock in postgres, a per-account mutex in memory); operations on
// different accounts never block each other.
package ledger
