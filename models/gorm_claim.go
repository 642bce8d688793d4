package models

// PredicateNoParents flags a person as having no discoverable parents, so
// the integrity auditor stops reporting them as a parent-linkage gap.
const PredicateNoParents = "no_parents"

// Claim is an open-ended attribute attached to a person (occupation, alias,
// title, ...). Many claims per person; unique per (person, predicate, source)
// so re-crawls upsert in place.
type Claim struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	PersonID  string `gorm:"not null;size:36;index;uniqueIndex:idx_person_predicate_source,priority:1" json:"person_id"`
	Predicate string `gorm:"not null;uniqueIndex:idx_person_predicate_source,priority:2" json:"predicate"`
	Value     string `gorm:"not null" json:"value"`
	Source    string `gorm:"not null;uniqueIndex:idx_person_predicate_source,priority:3" json:"source"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
	UpdatedAt int64  `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Claim) TableName() string {
	return "claims"
}
