package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kinforge/kinforgebackend/models"
)

// OverrideRepository handles database operations for LocalOverride rows
type OverrideRepository struct {
	DB *gorm.DB
}

// NewOverrideRepository creates a new instance of OverrideRepository
func NewOverrideRepository(db *gorm.DB) *OverrideRepository {
	return &OverrideRepository{DB: db}
}

// Get retrieves the override for one field of one entity, if any
func (r *OverrideRepository) Get(entityType, entityID, fieldName string) (*models.LocalOverride, error) {
	var override models.LocalOverride
	err := r.DB.Where("entity_type = ? AND entity_id = ? AND field_name = ?", entityType, entityID, fieldName).
		First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get override %s/%s/%s: %w", entityType, entityID, fieldName, err)
	}
	return &override, nil
}

// Upsert writes an override keyed on (entity_type, entity_id, field_name).
// On conflict only the override value, reason, source and updated_at change;
// original_value keeps whatever was captured on first write.
func (r *OverrideRepository) Upsert(override *models.LocalOverride) error {
	now := time.Now().Unix()
	if override.CreatedAt == 0 {
		override.CreatedAt = now
	}
	override.UpdatedAt = now
	if override.Source == "" {
		override.Source = models.SourceLocal
	}

	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}, {Name: "field_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"override_value", "reason", "source", "updated_at"}),
	}).Create(override).Error
	if err != nil {
		return fmt.Errorf("failed to upsert override %s/%s/%s: %w", override.EntityType, override.EntityID, override.FieldName, err)
	}
	return nil
}

// Delete removes an override row. Returns whether a row existed.
func (r *OverrideRepository) Delete(entityType, entityID, fieldName string) (bool, error) {
	result := r.DB.Where("entity_type = ? AND entity_id = ? AND field_name = ?", entityType, entityID, fieldName).
		Delete(&models.LocalOverride{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete override %s/%s/%s: %w", entityType, entityID, fieldName, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListByEntity retrieves all overrides for one entity
func (r *OverrideRepository) ListByEntity(entityType, entityID string) ([]models.LocalOverride, error) {
	var overrides []models.LocalOverride
	err := r.DB.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("field_name ASC").Find(&overrides).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides for %s/%s: %w", entityType, entityID, err)
	}
	return overrides, nil
}

// ListByEntityIDs retrieves all overrides of one entity type across a set of
// entity IDs. Used to fan out over a person's events and claims.
func (r *OverrideRepository) ListByEntityIDs(entityType string, entityIDs []string) ([]models.LocalOverride, error) {
	if len(entityIDs) == 0 {
		return []models.LocalOverride{}, nil
	}
	var overrides []models.LocalOverride
	err := r.DB.Where("entity_type = ? AND entity_id IN ?", entityType, entityIDs).
		Order("entity_id ASC, field_name ASC").Find(&overrides).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s overrides: %w", entityType, err)
	}
	return overrides, nil
}
