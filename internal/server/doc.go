// Package server is the HTTP JSON API over the trading core. It owns
// input sanitation (symbol casing, integer parsing, sign checks on raw
// text) and the mapping from the core's error taxonomy to status codes.
// Range and sign invariants are re-checked in the core itself.
package server
