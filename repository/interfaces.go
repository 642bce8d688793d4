package repository

import (
	"github.com/kinforge/kinforgebackend/models"
)

// PersonRepositoryInterface defines the methods for person data operations
type PersonRepositoryInterface interface {
	Create(person *models.Person) error
	GetByID(id string) (*models.Person, error)
	ListAll() ([]models.Person, error)
	Upsert(person *models.Person) error
	Update(person *models.Person) error
	Delete(id string) error
	Search(query string) ([]string, error)
}

// IdentityRepositoryInterface defines the methods for external identity data
// operations
type IdentityRepositoryInterface interface {
	GetBySourceExternalID(source, externalID string) (*models.ExternalIdentity, error)
	ListByPersonID(personID string) ([]models.ExternalIdentity, error)
	CreateOrGet(identity *models.ExternalIdentity) (*models.ExternalIdentity, bool, error)
}

// EventRepositoryInterface defines the methods for vital event data
// operations
type EventRepositoryInterface interface {
	GetByID(id uint) (*models.VitalEvent, error)
	ListByPersonID(personID string) ([]models.VitalEvent, error)
	Upsert(event *models.VitalEvent) error
}

// ClaimRepositoryInterface defines the methods for claim data operations
type ClaimRepositoryInterface interface {
	GetByID(id uint) (*models.Claim, error)
	ListByPersonID(personID string) ([]models.Claim, error)
	Upsert(claim *models.Claim) error
}

// EdgeRepositoryInterface defines the methods for parent edge data
// operations
type EdgeRepositoryInterface interface {
	Upsert(edge *models.ParentEdge) error
	ListParents(childID string) ([]string, error)
	ListChildren(parentID string) ([]string, error)
	ListAll() ([]models.ParentEdge, error)
	Delete(id uint) error
}

// OverrideRepositoryInterface defines the methods for local override data
// operations
type OverrideRepositoryInterface interface {
	Get(entityType, entityID, fieldName string) (*models.LocalOverride, error)
	Upsert(override *models.LocalOverride) error
	Delete(entityType, entityID, fieldName string) (bool, error)
	ListByEntity(entityType, entityID string) ([]models.LocalOverride, error)
	ListByEntityIDs(entityType string, entityIDs []string) ([]models.LocalOverride, error)
}

// PayloadRepositoryInterface defines the methods for raw payload snapshot
// operations
type PayloadRepositoryInterface interface {
	Insert(payload *models.RawPayload) error
	Latest(source, externalID string) (*models.RawPayload, error)
	PruneOlderThan(cutoff int64) (int64, error)
}
