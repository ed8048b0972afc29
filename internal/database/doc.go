// Package database provides the postgres connection pool for the ledger.
// Numeric columns scan directly into decimal.Decimal via the shopspring
// codec registered on every connection.
package database
