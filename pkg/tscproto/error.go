package tscproto

import "errors"

// ErrMalformedSnapshot marks a match_state payload that violates the
// server contract.
var ErrMalformedSnapshot = errors.New("malformed match snapshot")
