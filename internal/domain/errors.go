package domain

import "fmt"

// MalformedRecordError reports a raw record that could not be normalized:
// undecodable sub-documents or a shape outside the three accepted ones.
// Callers isolate it per record; it never aborts the remaining records.
type MalformedRecordError struct {
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed record: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed record: %s", e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// DuplicateKeyError reports an insert that would violate a uniqueness
// invariant. The loader skips the insert and reports it; it is not fatal.
type DuplicateKeyError struct {
	Entity   string // "state" or "station"
	Key      string
	Existing string // current holder of the key, when known
}

func (e *DuplicateKeyError) Error() string {
	if e.Existing != "" {
		return fmt.Sprintf("duplicate %s key %q: already used by %q", e.Entity, e.Key, e.Existing)
	}
	return fmt.Sprintf("duplicate %s key %q", e.Entity, e.Key)
}

// RequiredFieldError reports a required, non-null field that is missing or
// unparseable. For weather records this is fatal to the row's batch attempt.
type RequiredFieldError struct {
	Field string
	Value string
}

func (e *RequiredFieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("required field %s is missing", e.Field)
	}
	return fmt.Sprintf("required field %s has unparseable value %q", e.Field, e.Value)
}
