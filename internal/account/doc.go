// Package account implements the transactional state machine over an
// account's cash balance and positions. Each operation validates its
// input, resolves a market price when one is needed, and reduces to a
// single atomic ledger commit.
package account
