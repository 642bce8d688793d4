package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kinforge/kinforgebackend/models"
)

// PayloadRepository handles database operations for RawPayload snapshots
type PayloadRepository struct {
	DB *gorm.DB
}

// NewPayloadRepository creates a new instance of PayloadRepository
func NewPayloadRepository(db *gorm.DB) *PayloadRepository {
	return &PayloadRepository{DB: db}
}

// Insert appends a new snapshot. Snapshots are immutable; a re-fetch adds a
// row rather than editing the old one.
func (r *PayloadRepository) Insert(payload *models.RawPayload) error {
	if payload.FetchedAt == 0 {
		payload.FetchedAt = time.Now().Unix()
	}
	err := r.DB.Create(payload).Error
	if err != nil {
		return fmt.Errorf("failed to insert payload for %s:%s: %w", payload.Source, payload.ExternalID, err)
	}
	return nil
}

// Latest retrieves the newest snapshot for a (source, external_id), or
// gorm.ErrRecordNotFound if none has ever been fetched
func (r *PayloadRepository) Latest(source, externalID string) (*models.RawPayload, error) {
	var payload models.RawPayload
	err := r.DB.Where("source = ? AND external_id = ?", source, externalID).
		Order("fetched_at DESC, id DESC").First(&payload).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load payload for %s:%s: %w", source, externalID, err)
	}
	return &payload, nil
}

// PruneOlderThan deletes snapshots fetched before the cutoff, keeping the
// newest per (source, external_id). Retention tooling calls this, not the
// engine.
func (r *PayloadRepository) PruneOlderThan(cutoff int64) (int64, error) {
	result := r.DB.Where(
		"fetched_at < ? AND id NOT IN (SELECT MAX(id) FROM raw_payloads GROUP BY source, external_id)",
		cutoff,
	).Delete(&models.RawPayload{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune payloads: %w", result.Error)
	}
	return result.RowsAffected, nil
}
