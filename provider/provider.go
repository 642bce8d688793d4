package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

// Client fetches the raw record for one external ID from a provider. The
// browser-automation/network machinery behind it (sessions, retries against
// the provider site) is the implementation's problem; the engine only sees a
// payload or an error.
type Client interface {
	FetchPersonRecord(ctx context.Context, source, externalID string) ([]byte, error)
}

// Vital is one dated life event parsed from a payload.
type Vital struct {
	Type  string  `json:"type"`
	Date  *string `json:"date,omitempty"`
	Place *string `json:"place,omitempty"`
}

// Attribute is one open-ended claim parsed from a payload.
type Attribute struct {
	Predicate string `json:"predicate"`
	Value     string `json:"value"`
}

// PersonRecord is the normalized view of one raw provider payload.
type PersonRecord struct {
	Name      string      `json:"name"`
	Gender    string      `json:"gender"`
	Living    bool        `json:"living"`
	Bio       string      `json:"bio"`
	Vitals    []Vital     `json:"vitals"`
	Claims    []Attribute `json:"claims"`
	ParentIDs []string    `json:"parents"`
	ChildIDs  []string    `json:"children"`
}

// TransformPayload parses a raw provider payload into a PersonRecord. Pure
// function; payloads are stored untouched and parsed through here whenever
// needed, never ad hoc at read sites.
func TransformPayload(raw []byte) (*PersonRecord, error) {
	var record PersonRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to parse provider payload: %w", err)
	}
	if record.Name == "" {
		return nil, fmt.Errorf("provider payload has no name field")
	}
	return &record, nil
}
