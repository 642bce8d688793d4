package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine. Components wrap these with fmt.Errorf("%w")
// so callers can classify failures with errors.Is without depending on the
// component that produced them.
var (
	// ErrNotFound indicates an unknown person, override, or job ID.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a bulk job is already running, or a unique key
	// collided outside an upsert path.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates a missing root, bad generation bound, or
	// similarly malformed request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorage indicates the store itself failed; fatal to any active job.
	ErrStorage = errors.New("storage error")
)

// FetchError wraps a provider-client failure for a single record. It is
// recorded per node and is never fatal to a running job.
type FetchError struct {
	Source     string
	ExternalID string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s:%s: %v", e.Source, e.ExternalID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IntegrityWarning reports structurally invalid data discovered during a
// read-only operation (a cycle in the parent graph, an orphaned edge). It is
// collected and surfaced, never thrown across a component boundary.
type IntegrityWarning struct {
	Kind     string   `json:"kind"`
	Detail   string   `json:"detail"`
	Involved []string `json:"involved,omitempty"`
}

func (w IntegrityWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Detail)
}
