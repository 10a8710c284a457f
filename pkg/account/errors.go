package account

import "errors"

// ErrInvalidUsername is returned when a username fails the lowercase
// alphanumeric check (§3.1).
var ErrInvalidUsername = errors.New("username must be lowercase alphanumeric")

// ErrInvalidAPIURL is returned when an account's api_url cannot be parsed.
var ErrInvalidAPIURL = errors.New("invalid api_url")

// ErrMalformedKey is returned when an exported key string cannot be decoded.
var ErrMalformedKey = errors.New("malformed account key")

// ErrMalformedPhrase is returned when a 24-word phrase does not decode to a
// valid private key.
var ErrMalformedPhrase = errors.New("malformed account phrase")
