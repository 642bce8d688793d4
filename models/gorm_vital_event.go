package models

// Vital event types. Providers may emit others; these are the ones the
// override projection knows how to alias onto person views.
const (
	EventBirth   = "birth"
	EventDeath   = "death"
	EventBurial  = "burial"
	EventBaptism = "baptism"
)

// SourceLocal marks rows synthesized by a local edit rather than a provider
// crawl.
const SourceLocal = "local"

// VitalEvent represents a dated life event (birth, death, ...) attached to a
// person. A person carries at most one event per (type, source); the same
// event type from a different provider is kept as a separate row.
type VitalEvent struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	PersonID  string  `gorm:"not null;size:36;index;uniqueIndex:idx_person_event_source,priority:1" json:"person_id"`
	EventType string  `gorm:"not null;uniqueIndex:idx_person_event_source,priority:2" json:"event_type"`
	Date      *string `json:"date,omitempty"`
	Place     *string `json:"place,omitempty"`
	Source    string  `gorm:"not null;uniqueIndex:idx_person_event_source,priority:3" json:"source"`
	CreatedAt int64   `gorm:"not null" json:"created_at"`
	UpdatedAt int64   `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (VitalEvent) TableName() string {
	return "vital_events"
}
