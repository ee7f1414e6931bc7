package utils

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current UTC time for audit fields. Injected so
// services are testable against a fixed time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// IDGen produces opaque document identifiers.
type IDGen interface {
	NewID() string
}

// UUIDGen generates UUIDv4 identifiers.
type UUIDGen struct{}

// NewID returns a new random UUID string.
func (UUIDGen) NewID() string {
	return uuid.NewString()
}
