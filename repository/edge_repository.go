package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kinforge/kinforgebackend/models"
)

// EdgeRepository handles database operations for ParentEdge rows
type EdgeRepository struct {
	DB *gorm.DB
}

// NewEdgeRepository creates a new instance of EdgeRepository
func NewEdgeRepository(db *gorm.DB) *EdgeRepository {
	return &EdgeRepository{DB: db}
}

// Upsert records a parent -> child edge; duplicates are ignored via the
// (parent, child) unique index so re-crawls never multiply edges
func (r *EdgeRepository) Upsert(edge *models.ParentEdge) error {
	if edge.CreatedAt == 0 {
		edge.CreatedAt = time.Now().Unix()
	}
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "parent_id"}, {Name: "child_id"}},
		DoNothing: true,
	}).Create(edge).Error
	if err != nil {
		return fmt.Errorf("failed to upsert edge %s -> %s: %w", edge.ParentID, edge.ChildID, err)
	}
	return nil
}

// ListParents retrieves the parent IDs of a person in insertion order
func (r *EdgeRepository) ListParents(childID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&models.ParentEdge{}).Where("child_id = ?", childID).Order("id ASC").Pluck("parent_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list parents of %s: %w", childID, err)
	}
	return ids, nil
}

// ListChildren retrieves the child IDs of a person in insertion order
func (r *EdgeRepository) ListChildren(parentID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&models.ParentEdge{}).Where("parent_id = ?", parentID).Order("id ASC").Pluck("child_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", parentID, err)
	}
	return ids, nil
}

// ListAll retrieves every edge in insertion order, for adjacency
// materialization
func (r *EdgeRepository) ListAll() ([]models.ParentEdge, error) {
	var edges []models.ParentEdge
	err := r.DB.Order("id ASC").Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	return edges, nil
}

// Delete removes an edge by row ID (orphan cleanup)
func (r *EdgeRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.ParentEdge{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete edge %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
