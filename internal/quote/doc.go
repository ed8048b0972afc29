// Package quote resolves current unit prices for ticker symbols.
//
// The Provider contract is the only thing the trading core depends on.
// Implementations in this package:
//   - Client: historical-download HTTP endpoint (CSV), last adjusted close
//   - Converting: decorator that re-denominates prices via an FX rate source
//   - Cache: decorator that serves recent prices from redis
//   - Stream: websocket price feed kept in an in-memory latest-quote table
package quote
