package models

// Override entity types. Overrides on events and claims are keyed by the row
// ID of the event/claim, not by the person.
const (
	EntityPerson = "person"
	EntityEvent  = "event"
	EntityClaim  = "claim"
)

// LocalOverride is a user-entered correction for one field of one entity.
// It is the highest-precedence layer when resolving an effective value.
// OriginalValue is captured on first write and never mutated afterwards so
// the edit can always be audited or reverted.
type LocalOverride struct {
	ID            uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType    string  `gorm:"not null;uniqueIndex:idx_entity_field,priority:1" json:"entity_type"`
	EntityID      string  `gorm:"not null;uniqueIndex:idx_entity_field,priority:2" json:"entity_id"`
	FieldName     string  `gorm:"not null;uniqueIndex:idx_entity_field,priority:3" json:"field_name"`
	OriginalValue string  `json:"original_value"`
	OverrideValue string  `gorm:"not null" json:"override_value"`
	Reason        *string `json:"reason,omitempty"`
	Source        string  `gorm:"not null;default:local" json:"source"`
	CreatedAt     int64   `gorm:"not null" json:"created_at"`
	UpdatedAt     int64   `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (LocalOverride) TableName() string {
	return "local_overrides"
}
