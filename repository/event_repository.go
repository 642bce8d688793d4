package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kinforge/kinforgebackend/models"
)

// EventRepository handles database operations for VitalEvent rows
type EventRepository struct {
	DB *gorm.DB
}

// NewEventRepository creates a new instance of EventRepository
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{DB: db}
}

// GetByID retrieves a vital event by row ID
func (r *EventRepository) GetByID(id uint) (*models.VitalEvent, error) {
	var event models.VitalEvent
	err := r.DB.First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByPersonID retrieves all vital events for a person
func (r *EventRepository) ListByPersonID(personID string) ([]models.VitalEvent, error) {
	var events []models.VitalEvent
	err := r.DB.Where("person_id = ?", personID).Order("event_type ASC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events for person %s: %w", personID, err)
	}
	return events, nil
}

// Upsert writes an event keyed on (person, type, source), updating date and
// place in place on re-crawl
func (r *EventRepository) Upsert(event *models.VitalEvent) error {
	now := time.Now().Unix()
	if event.CreatedAt == 0 {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "person_id"}, {Name: "event_type"}, {Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"date", "place", "updated_at"}),
	}).Create(event).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %s event for person %s: %w", event.EventType, event.PersonID, err)
	}
	return nil
}
