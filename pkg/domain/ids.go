package domain

import (
	"strings"

	"github.com/google/uuid"
)

// token returns a 12-char opaque token with the given prefix, e.g. "req_3f9a...".
func token(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// NewRequestID generates the opaque id attached to each decision run.
func NewRequestID() string { return token("req_") }

// NewEventID generates the id for an emitted decision event.
func NewEventID() string { return token("evt_") }

// NewCaseID generates the id for a review case.
func NewCaseID() string { return token("case_") }
