package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kinforge/kinforgebackend/models"
)

// ClaimRepository handles database operations for Claim rows
type ClaimRepository struct {
	DB *gorm.DB
}

// NewClaimRepository creates a new instance of ClaimRepository
func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{DB: db}
}

// GetByID retrieves a claim by row ID
func (r *ClaimRepository) GetByID(id uint) (*models.Claim, error) {
	var claim models.Claim
	err := r.DB.First(&claim, id).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// ListByPersonID retrieves all claims for a person
func (r *ClaimRepository) ListByPersonID(personID string) ([]models.Claim, error) {
	var claims []models.Claim
	err := r.DB.Where("person_id = ?", personID).Order("predicate ASC").Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list claims for person %s: %w", personID, err)
	}
	return claims, nil
}

// Upsert writes a claim keyed on (person, predicate, source), updating the
// value in place on re-crawl
func (r *ClaimRepository) Upsert(claim *models.Claim) error {
	now := time.Now().Unix()
	if claim.CreatedAt == 0 {
		claim.CreatedAt = now
	}
	claim.UpdatedAt = now

	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "person_id"}, {Name: "predicate"}, {Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(claim).Error
	if err != nil {
		return fmt.Errorf("failed to upsert claim %s for person %s: %w", claim.Predicate, claim.PersonID, err)
	}
	return nil
}
