package health

import (
	"fmt"
	"strings"
)

// Status represents the health status of a component or of the whole system.
// Values are ordered by severity: StatusHealthy < StatusWarning < StatusCritical.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusWarning indicates the component is functioning but degraded.
	StatusWarning
	// StatusCritical indicates the component is failing or unreachable.
	StatusCritical
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s >= StatusHealthy && s <= StatusCritical
}

// ParseStatus parses the lower-case name of a status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "healthy":
		return StatusHealthy, nil
	case "warning":
		return StatusWarning, nil
	case "critical":
		return StatusCritical, nil
	default:
		return StatusHealthy, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Worse returns the more severe of a and b.
func Worse(a, b Status) Status {
	if b > a {
		return b
	}
	return a
}
