// Package portfolio derives read models from the ledger: current
// holdings marked to market, full transaction history, and an account
// summary. Nothing here is persisted; every read recomputes from the
// ledger so derived values can never drift from the source of truth.
package portfolio
