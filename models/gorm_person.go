package models

// Person represents a canonical person in the database using GORM.
// It corresponds to the 'people' table. The ID is a UUIDv7 string so
// canonical identifiers sort by creation time.
type Person struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	DisplayName string `gorm:"not null;index" json:"display_name"`
	Gender      string `json:"gender,omitempty"`
	Living      bool   `gorm:"not null;default:false" json:"living"`
	Bio         string `json:"bio,omitempty"`
	CreatedAt   int64  `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt   int64  `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp

	// Relationships
	// omitempty will hide these if they are not preloaded or are empty
	ExternalIdentities []ExternalIdentity `gorm:"foreignKey:PersonID;constraint:OnDelete:CASCADE" json:"external_identities,omitempty"`
	VitalEvents        []VitalEvent       `gorm:"foreignKey:PersonID;constraint:OnDelete:CASCADE" json:"vital_events,omitempty"`
	Claims             []Claim            `gorm:"foreignKey:PersonID;constraint:OnDelete:CASCADE" json:"claims,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Person) TableName() string {
	return "people"
}
