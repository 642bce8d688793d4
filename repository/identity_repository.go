package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kinforge/kinforgebackend/models"
)

// IdentityRepository handles database operations for ExternalIdentity rows
type IdentityRepository struct {
	DB *gorm.DB
}

// NewIdentityRepository creates a new instance of IdentityRepository
func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{DB: db}
}

// GetBySourceExternalID resolves a provider identifier to its identity row
func (r *IdentityRepository) GetBySourceExternalID(source, externalID string) (*models.ExternalIdentity, error) {
	var identity models.ExternalIdentity
	err := r.DB.Where("source = ? AND external_id = ?", source, externalID).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve %s:%s: %w", source, externalID, err)
	}
	return &identity, nil
}

// ListByPersonID retrieves all provider identities held by a person
func (r *IdentityRepository) ListByPersonID(personID string) ([]models.ExternalIdentity, error) {
	var identities []models.ExternalIdentity
	err := r.DB.Where("person_id = ?", personID).Order("source ASC").Find(&identities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list identities for person %s: %w", personID, err)
	}
	return identities, nil
}

// CreateOrGet inserts the identity guarded by the (source, external_id)
// unique index, then reads back whichever row won. Concurrent callers racing
// on the same key all land on the same row; there is no check-then-act
// window.
func (r *IdentityRepository) CreateOrGet(identity *models.ExternalIdentity) (*models.ExternalIdentity, bool, error) {
	if identity.CreatedAt == 0 {
		identity.CreatedAt = time.Now().Unix()
	}

	result := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "external_id"}},
		DoNothing: true,
	}).Create(identity)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to upsert identity %s:%s: %w", identity.Source, identity.ExternalID, result.Error)
	}
	created := result.RowsAffected > 0

	winner, err := r.GetBySourceExternalID(identity.Source, identity.ExternalID)
	if err != nil {
		return nil, false, err
	}
	return winner, created, nil
}
