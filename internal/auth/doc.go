// Package auth is the credential store: registration, login, password
// changes and session tokens. Passwords are stored as bcrypt hashes;
// sessions are stateless HS256 JWTs carrying the account id.
//
// The trading core never sees credentials. It consumes only the account
// id this package resolves from a verified token.
package auth
