package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ticketNumberPrefix = "TKT-"
	ticketNumberDigits = 6
)

// FormatTicketNumber renders n as TKT-NNNNNN.
func FormatTicketNumber(n int64) string {
	return fmt.Sprintf("%s%0*d", ticketNumberPrefix, ticketNumberDigits, n)
}

// ParseTicketNumber extracts the numeric part of a TKT-<digits> identifier.
func ParseTicketNumber(number string) (int64, error) {
	digits, ok := strings.CutPrefix(number, ticketNumberPrefix)
	if !ok || digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTicketNumber, number)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTicketNumber, number)
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTicketNumber, number)
	}
	return n, nil
}

// NextTicketNumber returns the identifier following latest, or TKT-000001 when latest is empty.
// A malformed latest value is an error rather than a restart at 1, which would collide.
func NextTicketNumber(latest string) (string, error) {
	if latest == "" {
		return FormatTicketNumber(1), nil
	}
	n, err := ParseTicketNumber(latest)
	if err != nil {
		return "", &PersistenceError{Op: "allocate ticket number", Err: err}
	}
	return FormatTicketNumber(n + 1), nil
}
