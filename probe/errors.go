package probe

import "errors"

var (
	// ErrEmptyName indicates a probe was created without a component name.
	ErrEmptyName = errors.New("probe: empty component name")

	// ErrInvalidURL indicates the endpoint URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("probe: invalid endpoint url")

	// ErrNilClient indicates no HTTP client was supplied.
	ErrNilClient = errors.New("probe: nil http client")

	// ErrUnexpectedStatus indicates the endpoint answered with a non-2xx code.
	ErrUnexpectedStatus = errors.New("probe: unexpected status")

	// ErrMalformedPayload indicates the body could not be decoded.
	ErrMalformedPayload = errors.New("probe: malformed payload")

	// ErrMissingField indicates a required payload field was absent.
	ErrMissingField = errors.New("probe: missing field")
)
