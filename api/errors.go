package api

import "errors"

var (
	// ErrNilEngine indicates the router was built without an engine.
	ErrNilEngine = errors.New("api: engine is nil")

	// ErrNilVerifier indicates the router was built without a token verifier.
	ErrNilVerifier = errors.New("api: verifier is nil")

	// ErrBadRequest indicates a request body could not be decoded.
	ErrBadRequest = errors.New("api: bad request")
)
