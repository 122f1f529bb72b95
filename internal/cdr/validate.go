package cdr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidationError describes a single rejected field. It is a client error:
// the record is dropped, nothing else is affected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// phonePattern matches E.164-style numbers: '+' followed by 7-15 digits.
var phonePattern = regexp.MustCompile(`^\+\d{7,15}$`)

var validCallTypes = map[string]bool{
	CallTypeLocal:         true,
	CallTypeNational:      true,
	CallTypeInternational: true,
}

// Validate checks a raw input for well-formedness and normalizes the call
// type to lower case. It guarantees downstream code sees valid phone numbers,
// a call type from the closed set, parseable RFC3339 timestamps, and a
// non-negative duration.
func Validate(in *Input) error {
	if strings.TrimSpace(in.CallID) == "" {
		return &ValidationError{Field: "call_id", Message: "is required"}
	}
	if !phonePattern.MatchString(in.CallerNumber) {
		return &ValidationError{Field: "caller_number", Message: "must start with + and contain 7-15 digits"}
	}
	if !phonePattern.MatchString(in.CalledNumber) {
		return &ValidationError{Field: "called_number", Message: "must start with + and contain 7-15 digits"}
	}

	callType := strings.ToLower(in.CallType)
	if !validCallTypes[callType] {
		return &ValidationError{Field: "call_type", Message: "must be one of: local, national, international"}
	}
	in.CallType = callType

	if _, err := ParseTimestamp(in.StartTime); err != nil {
		return &ValidationError{Field: "start_time", Message: "invalid timestamp, use ISO format: YYYY-MM-DDTHH:MM:SSZ"}
	}
	if _, err := ParseTimestamp(in.EndTime); err != nil {
		return &ValidationError{Field: "end_time", Message: "invalid timestamp, use ISO format: YYYY-MM-DDTHH:MM:SSZ"}
	}
	if in.DurationSeconds < 0 {
		return &ValidationError{Field: "duration_seconds", Message: "must be non-negative"}
	}

	return nil
}

// ParseTimestamp parses an ISO-8601 timestamp, accepting both RFC3339 and the
// offset-less form some switches emit.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}
