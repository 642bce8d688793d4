package models

// RawPayload is an immutable snapshot of the raw provider JSON for one
// (source, external_id) fetch. A re-fetch appends a new row; reads take the
// latest by fetched_at. Rows are pruned by retention tooling, never edited.
type RawPayload struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Source     string `gorm:"not null;index:idx_payload_source_external,priority:1" json:"source"`
	ExternalID string `gorm:"not null;index:idx_payload_source_external,priority:2" json:"external_id"`
	Payload    []byte `gorm:"not null" json:"payload"`
	FetchedAt  int64  `gorm:"not null;index" json:"fetched_at"`
}

// TableName explicitly sets the table name for GORM.
func (RawPayload) TableName() string {
	return "raw_payloads"
}
