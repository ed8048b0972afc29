// Package model defines shared data types used across the Webquity ledger service.
//
// Conventions:
//   - Money (cash, unit prices, totals): decimal.Decimal in the accounting currency
//   - Share counts: int64 whole shares, signed in ledger entries
//   - IDs: uuid.UUID for accounts and ledger entries
package model
