package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/kinforge/kinforgebackend/models"
	"github.com/kinforge/kinforgebackend/repository"
)

// PersonAttributes carries the normalized fields used when a first sighting
// has to allocate a Person row.
type PersonAttributes struct {
	DisplayName string
	Gender      string
	Living      bool
	Bio         string
}

// IdentityService maps provider identifiers onto canonical person IDs and
// back. It is the dedupe foundation: every discovery path funnels through
// EnsurePerson before anything is persisted or queued.
type IdentityService struct {
	personRepo      repository.PersonRepositoryInterface
	identityRepo    repository.IdentityRepositoryInterface
	defaultProvider string

	// collapses concurrent EnsurePerson calls for the same key in-process;
	// the unique index on (source, external_id) covers the cross-process race
	group singleflight.Group
}

// NewIdentityService creates a new identity service
func NewIdentityService(
	personRepo repository.PersonRepositoryInterface,
	identityRepo repository.IdentityRepositoryInterface,
	defaultProvider string,
) *IdentityService {
	return &IdentityService{
		personRepo:      personRepo,
		identityRepo:    identityRepo,
		defaultProvider: defaultProvider,
	}
}

// IsCanonicalID reports whether s already has the canonical UUID shape, in
// which case resolver boundaries pass it through unchanged.
func IsCanonicalID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Resolve looks up the canonical person for a provider identifier. An input
// that is already a canonical ID is returned as-is. The second return is
// false when the identifier is unknown.
func (s *IdentityService) Resolve(source, externalID string) (string, bool, error) {
	if IsCanonicalID(externalID) {
		return externalID, true, nil
	}
	identity, err := s.identityRepo.GetBySourceExternalID(source, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return identity.PersonID, true, nil
}

// ExternalIDs returns every provider identifier held by a person, keyed by
// source.
func (s *IdentityService) ExternalIDs(personID string) (map[string]string, error) {
	identities, err := s.identityRepo.ListByPersonID(personID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(identities))
	for _, identity := range identities {
		ids[identity.Source] = identity.ExternalID
	}
	return ids, nil
}

// PreferredExternalID picks the external representation of a person,
// preferring the configured default provider, else any held identity.
func (s *IdentityService) PreferredExternalID(personID string) (source, externalID string, ok bool, err error) {
	identities, err := s.identityRepo.ListByPersonID(personID)
	if err != nil {
		return "", "", false, err
	}
	if len(identities) == 0 {
		return "", "", false, nil
	}
	for _, identity := range identities {
		if identity.Source == s.defaultProvider {
			return identity.Source, identity.ExternalID, true, nil
		}
	}
	return identities[0].Source, identities[0].ExternalID, true, nil
}

// EnsurePerson resolves (source, externalID) to its canonical person,
// allocating the Person and ExternalIdentity rows on first sighting.
// Calling it twice with the same key always yields the same ID, including
// under concurrent callers: in-process racers share one flight, and losers
// of the cross-process insert race adopt the winner's row.
func (s *IdentityService) EnsurePerson(source, externalID string, attrs PersonAttributes) (string, error) {
	if externalID == "" {
		return "", fmt.Errorf("ensure person: empty external id")
	}
	if IsCanonicalID(externalID) {
		return externalID, nil
	}

	key := source + ":" + externalID
	personID, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.ensurePerson(source, externalID, attrs)
	})
	if err != nil {
		return "", err
	}
	return personID.(string), nil
}

// EnsurePersonTx is EnsurePerson over transaction-scoped repositories, so
// the crawler can allocate relative stubs inside the same transaction that
// persists a person's row set.
func (s *IdentityService) EnsurePersonTx(tx *gorm.DB, source, externalID string, attrs PersonAttributes) (string, error) {
	scoped := NewIdentityService(
		repository.NewPersonRepository(tx),
		repository.NewIdentityRepository(tx),
		s.defaultProvider,
	)
	return scoped.EnsurePerson(source, externalID, attrs)
}

func (s *IdentityService) ensurePerson(source, externalID string, attrs PersonAttributes) (string, error) {
	if identity, err := s.identityRepo.GetBySourceExternalID(source, externalID); err == nil {
		return identity.PersonID, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to allocate canonical id: %w", err)
	}
	displayName := attrs.DisplayName
	if displayName == "" {
		displayName = externalID
	}
	person := &models.Person{
		ID:          id.String(),
		DisplayName: displayName,
		Gender:      attrs.Gender,
		Living:      attrs.Living,
		Bio:         attrs.Bio,
	}
	if err := s.personRepo.Create(person); err != nil {
		return "", err
	}

	winner, created, err := s.identityRepo.CreateOrGet(&models.ExternalIdentity{
		Source:     source,
		ExternalID: externalID,
		PersonID:   person.ID,
	})
	if err != nil {
		return "", err
	}
	if !created && winner.PersonID != person.ID {
		// lost the insert race to another process; drop our provisional row
		if err := s.personRepo.Delete(person.ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}
	return winner.PersonID, nil
}
