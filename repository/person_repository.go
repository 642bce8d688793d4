package repository

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/facette/natsort"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kinforge/kinforgebackend/models"
)

// PersonRepository handles database operations for canonical Person rows
type PersonRepository struct {
	DB *gorm.DB
}

// NewPersonRepository creates a new instance of PersonRepository
func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{DB: db}
}

// Create creates a new person record in the database
func (r *PersonRepository) Create(person *models.Person) error {
	now := time.Now().Unix()
	if person.CreatedAt == 0 {
		person.CreatedAt = now
	}
	if person.UpdatedAt == 0 {
		person.UpdatedAt = now
	}

	err := r.DB.Create(person).Error
	if err != nil {
		return fmt.Errorf("failed to create person %s: %w", person.DisplayName, err)
	}
	return nil
}

// GetByID retrieves a person by canonical ID, preloading identities, events
// and claims
func (r *PersonRepository) GetByID(id string) (*models.Person, error) {
	var person models.Person
	err := r.DB.Preload("ExternalIdentities").Preload("VitalEvents").Preload("Claims").
		First(&person, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get person by ID %s: %w", id, err)
	}
	return &person, nil
}

// ListAll retrieves all people in natural display-name order
func (r *PersonRepository) ListAll() ([]models.Person, error) {
	var people []models.Person
	err := r.DB.Find(&people).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	sort.SliceStable(people, func(i, j int) bool {
		return natsort.Compare(people[i].DisplayName, people[j].DisplayName)
	})
	return people, nil
}

// Upsert writes normalized person fields, overwriting content on conflict
// but never touching CreatedAt. Used by the indexer so re-crawls update in
// place.
func (r *PersonRepository) Upsert(person *models.Person) error {
	now := time.Now().Unix()
	if person.CreatedAt == 0 {
		person.CreatedAt = now
	}
	person.UpdatedAt = now

	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "gender", "living", "bio", "updated_at"}),
	}).Create(person).Error
	if err != nil {
		return fmt.Errorf("failed to upsert person %s: %w", person.ID, err)
	}
	return nil
}

// Update updates an existing person's editable fields
func (r *PersonRepository) Update(person *models.Person) error {
	person.UpdatedAt = time.Now().Unix()
	result := r.DB.Model(&models.Person{}).Where("id = ?", person.ID).Updates(map[string]interface{}{
		"display_name": person.DisplayName,
		"gender":       person.Gender,
		"living":       person.Living,
		"bio":          person.Bio,
		"updated_at":   person.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update person ID %s: %w", person.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a person by canonical ID (explicit prune only)
func (r *PersonRepository) Delete(id string) error {
	result := r.DB.Delete(&models.Person{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete person ID %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search finds person IDs whose display name, bio, or claim text matches the
// query, independent of graph structure
func (r *PersonRepository) Search(query string) ([]string, error) {
	likeQuery := "%" + query + "%"

	var ids []string
	err := r.DB.Model(&models.Person{}).
		Where("display_name LIKE ? OR bio LIKE ?", likeQuery, likeQuery).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("error searching people for '%s': %w", query, err)
	}

	var claimPersonIDs []string
	err = r.DB.Model(&models.Claim{}).Where("value LIKE ?", likeQuery).Pluck("person_id", &claimPersonIDs).Error
	if err != nil {
		return nil, fmt.Errorf("error searching claims for '%s': %w", query, err)
	}

	idMap := make(map[string]bool)
	for _, id := range ids {
		idMap[id] = true
	}
	for _, id := range claimPersonIDs {
		idMap[id] = true
	}

	uniqueIDs := make([]string, 0, len(idMap))
	for id := range idMap {
		uniqueIDs = append(uniqueIDs, id)
	}
	sort.Strings(uniqueIDs)
	return uniqueIDs, nil
}
