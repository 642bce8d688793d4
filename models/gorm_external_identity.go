package models

// ExternalIdentity maps a provider-specific record ID onto a canonical
// person. A (source, external_id) pair resolves to exactly one person, and a
// person holds at most one identity per source; both rules are enforced with
// unique indexes so dedupe is an upsert rather than a check-then-act race.
type ExternalIdentity struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Source     string `gorm:"not null;uniqueIndex:idx_source_external_id,priority:1;uniqueIndex:idx_person_source,priority:2" json:"source"`
	ExternalID string `gorm:"not null;uniqueIndex:idx_source_external_id,priority:2" json:"external_id"`
	PersonID   string `gorm:"not null;size:36;index;uniqueIndex:idx_person_source,priority:1" json:"person_id"`
	CreatedAt  int64  `gorm:"not null" json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (ExternalIdentity) TableName() string {
	return "external_identities"
}
