// Package auth provides account and credential primitives: Argon2id
// password hashing, JWT issuing and validation, and the SQLite user
// repository.
//
// Two token roles exist. User tokens authenticate humans on the REST
// API and are short-lived with a refresh flow. Device tokens
// authenticate feeder hardware on the channel endpoints and are
// long-lived, since a feeder has no interactive way to re-authenticate.
package auth
