package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a ticket number or analysis id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAnalysisNotConfigured means no analysis provider credentials were supplied.
	ErrAnalysisNotConfigured = errors.New("analysis provider not configured")
	// ErrMalformedTicketNumber flags a stored ticket number that is not TKT-<digits>.
	ErrMalformedTicketNumber = errors.New("malformed ticket number")
	// ErrEmptyBody rejects ticket creation for an email without body text.
	ErrEmptyBody = errors.New("email body is required")
)

// InvalidStatusError rejects a status outside {open, in-progress, closed}.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	valid := make([]string, len(TicketStatuses))
	for i, s := range TicketStatuses {
		valid[i] = string(s)
	}
	return fmt.Sprintf("invalid status %q: must be one of %s", e.Value, strings.Join(valid, ", "))
}

// MalformedAnalysisError is returned when provider output cannot be parsed as structured data.
type MalformedAnalysisError struct {
	Raw string
	Err error
}

func (e *MalformedAnalysisError) Error() string {
	return fmt.Sprintf("malformed analysis payload: %v", e.Err)
}

func (e *MalformedAnalysisError) Unwrap() error {
	return e.Err
}

// AnalysisUnavailableError means the provider could not produce a usable analysis.
type AnalysisUnavailableError struct {
	Err error
}

func (e *AnalysisUnavailableError) Error() string {
	return fmt.Sprintf("analysis unavailable: %v", e.Err)
}

func (e *AnalysisUnavailableError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed store operation. The in-flight transaction has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
