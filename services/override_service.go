package services

import (
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/kinforge/kinforgebackend/apperrors"
	"github.com/kinforge/kinforgebackend/models"
	"github.com/kinforge/kinforgebackend/repository"
)

// EffectiveValue is the result of resolving one field across the override
// and stored layers.
type EffectiveValue struct {
	Value        string                `json:"value"`
	IsOverridden bool                  `json:"is_overridden"`
	Override     *models.LocalOverride `json:"override,omitempty"`
}

// PersonOverrides groups every override affecting one person: their own
// fields plus those on their vital events and claims. Events and claims are
// keyed by their own row IDs, so the fan-out has to load the person's ID
// sets first.
type PersonOverrides struct {
	Person []models.LocalOverride `json:"person"`
	Events []models.LocalOverride `json:"events"`
	Claims []models.LocalOverride `json:"claims"`
}

// EventView is a vital event with overrides applied.
type EventView struct {
	ID         uint    `json:"id"`
	EventType  string  `json:"event_type"`
	Date       *string `json:"date,omitempty"`
	Place      *string `json:"place,omitempty"`
	Source     string  `json:"source"`
	Overridden bool    `json:"overridden"`
}

// ClaimView is a claim with overrides applied.
type ClaimView struct {
	ID         uint   `json:"id"`
	Predicate  string `json:"predicate"`
	Value      string `json:"value"`
	Source     string `json:"source"`
	Overridden bool   `json:"overridden"`
}

// PersonView is the presentation projection of a person: stored fields
// overlaid with local overrides, plus the derived lifespan string. Building
// it never mutates the stored layer.
type PersonView struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Gender      string      `json:"gender,omitempty"`
	Living      bool        `json:"living"`
	Bio         string      `json:"bio,omitempty"`
	Lifespan    string      `json:"lifespan,omitempty"`
	Events      []EventView `json:"events"`
	Claims      []ClaimView `json:"claims"`
}

// OverrideService resolves field values across the three precedence layers:
// local override, then normalized store (raw payloads sit behind the store
// and are only consulted at crawl time).
type OverrideService struct {
	overrideRepo repository.OverrideRepositoryInterface
	eventRepo    repository.EventRepositoryInterface
	claimRepo    repository.ClaimRepositoryInterface
	personRepo   repository.PersonRepositoryInterface
}

// NewOverrideService creates a new override service
func NewOverrideService(
	overrideRepo repository.OverrideRepositoryInterface,
	eventRepo repository.EventRepositoryInterface,
	claimRepo repository.ClaimRepositoryInterface,
	personRepo repository.PersonRepositoryInterface,
) *OverrideService {
	return &OverrideService{
		overrideRepo: overrideRepo,
		eventRepo:    eventRepo,
		claimRepo:    claimRepo,
		personRepo:   personRepo,
	}
}

func validEntityType(entityType string) bool {
	switch entityType {
	case models.EntityPerson, models.EntityEvent, models.EntityClaim:
		return true
	}
	return false
}

// SetOverride upserts the override for one field. The first write captures
// originalValue; later writes only move the override value, reason and
// source, so the captured original survives any number of edits.
func (s *OverrideService) SetOverride(entityType, entityID, fieldName, value, originalValue string, reason *string, source string) (*models.LocalOverride, error) {
	if !validEntityType(entityType) {
		return nil, fmt.Errorf("%w: unknown entity type %q", apperrors.ErrInvalidInput, entityType)
	}
	if entityID == "" || fieldName == "" {
		return nil, fmt.Errorf("%w: entity id and field name are required", apperrors.ErrInvalidInput)
	}

	override := &models.LocalOverride{
		EntityType:    entityType,
		EntityID:      entityID,
		FieldName:     fieldName,
		OriginalValue: originalValue,
		OverrideValue: value,
		Reason:        reason,
		Source:        source,
	}
	if err := s.overrideRepo.Upsert(override); err != nil {
		return nil, err
	}
	return s.overrideRepo.Get(entityType, entityID, fieldName)
}

// EffectiveValue resolves one field: the override wins when present,
// otherwise the stored value stands.
func (s *OverrideService) EffectiveValue(entityType, entityID, fieldName, storedValue string) (EffectiveValue, error) {
	override, err := s.overrideRepo.Get(entityType, entityID, fieldName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EffectiveValue{Value: storedValue}, nil
		}
		return EffectiveValue{}, err
	}
	return EffectiveValue{Value: override.OverrideValue, IsOverridden: true, Override: override}, nil
}

// RemoveOverride deletes the override row; the effective value reverts to
// the stored layer. Returns whether an override existed.
func (s *OverrideService) RemoveOverride(entityType, entityID, fieldName string) (bool, error) {
	if !validEntityType(entityType) {
		return false, fmt.Errorf("%w: unknown entity type %q", apperrors.ErrInvalidInput, entityType)
	}
	return s.overrideRepo.Delete(entityType, entityID, fieldName)
}

// OverridesForPerson fans out to the person's own fields plus every vital
// event and claim belonging to them, returning the three groups.
func (s *OverrideService) OverridesForPerson(personID string) (*PersonOverrides, error) {
	personOverrides, err := s.overrideRepo.ListByEntity(models.EntityPerson, personID)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListByPersonID(personID)
	if err != nil {
		return nil, err
	}
	eventIDs := make([]string, 0, len(events))
	for _, event := range events {
		eventIDs = append(eventIDs, strconv.FormatUint(uint64(event.ID), 10))
	}
	eventOverrides, err := s.overrideRepo.ListByEntityIDs(models.EntityEvent, eventIDs)
	if err != nil {
		return nil, err
	}

	claims, err := s.claimRepo.ListByPersonID(personID)
	if err != nil {
		return nil, err
	}
	claimIDs := make([]string, 0, len(claims))
	for _, claim := range claims {
		claimIDs = append(claimIDs, strconv.FormatUint(uint64(claim.ID), 10))
	}
	claimOverrides, err := s.overrideRepo.ListByEntityIDs(models.EntityClaim, claimIDs)
	if err != nil {
		return nil, err
	}

	return &PersonOverrides{
		Person: personOverrides,
		Events: eventOverrides,
		Claims: claimOverrides,
	}, nil
}

// SetEventOverride records a correction on a person's event of the given
// type. If no event of that type exists yet, a synthetic one with source
// "local" is created to carry the override.
func (s *OverrideService) SetEventOverride(personID, eventType, fieldName, value string, reason *string) (*models.LocalOverride, error) {
	if fieldName != "date" && fieldName != "place" {
		return nil, fmt.Errorf("%w: event field must be date or place, got %q", apperrors.ErrInvalidInput, fieldName)
	}

	events, err := s.eventRepo.ListByPersonID(personID)
	if err != nil {
		return nil, err
	}
	var target *models.VitalEvent
	for i := range events {
		if events[i].EventType != eventType {
			continue
		}
		// prefer a provider-sourced event over a previously synthesized one
		if target == nil || (target.Source == models.SourceLocal && events[i].Source != models.SourceLocal) {
			target = &events[i]
		}
	}
	if target == nil {
		target = &models.VitalEvent{PersonID: personID, EventType: eventType, Source: models.SourceLocal}
		if err := s.eventRepo.Upsert(target); err != nil {
			return nil, err
		}
	}

	original := ""
	if fieldName == "date" && target.Date != nil {
		original = *target.Date
	}
	if fieldName == "place" && target.Place != nil {
		original = *target.Place
	}
	entityID := strconv.FormatUint(uint64(target.ID), 10)
	return s.SetOverride(models.EntityEvent, entityID, fieldName, value, original, reason, models.SourceLocal)
}

// ApplyToPersonView loads a person's stored rows, overlays every applicable
// override, and recomputes the derived lifespan. Event overrides are looked
// up under both the generic field name ("date") and the type-qualified alias
// ("birth_date").
func (s *OverrideService) ApplyToPersonView(personID string) (*PersonView, error) {
	person, err := s.personRepo.GetByID(personID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: person %s", apperrors.ErrNotFound, personID)
		}
		return nil, err
	}

	view := &PersonView{
		ID:          person.ID,
		DisplayName: person.DisplayName,
		Gender:      person.Gender,
		Living:      person.Living,
		Bio:         person.Bio,
	}

	for _, field := range []struct {
		name string
		dest *string
	}{
		{"display_name", &view.DisplayName},
		{"name", &view.DisplayName},
		{"gender", &view.Gender},
		{"bio", &view.Bio},
	} {
		effective, err := s.EffectiveValue(models.EntityPerson, person.ID, field.name, *field.dest)
		if err != nil {
			return nil, err
		}
		if effective.IsOverridden {
			*field.dest = effective.Value
		}
	}

	var birthYear, deathYear string
	for _, event := range person.VitalEvents {
		entityID := strconv.FormatUint(uint64(event.ID), 10)
		eventView := EventView{
			ID:        event.ID,
			EventType: event.EventType,
			Date:      event.Date,
			Place:     event.Place,
			Source:    event.Source,
		}
		for _, field := range []string{"date", "place"} {
			stored := ""
			if field == "date" && event.Date != nil {
				stored = *event.Date
			}
			if field == "place" && event.Place != nil {
				stored = *event.Place
			}
			value, overridden, err := s.effectiveEventField(entityID, event.EventType, field, stored)
			if err != nil {
				return nil, err
			}
			if overridden || value != "" {
				v := value
				if field == "date" {
					eventView.Date = &v
				} else {
					eventView.Place = &v
				}
			}
			eventView.Overridden = eventView.Overridden || overridden
		}
		if eventView.Date != nil {
			switch event.EventType {
			case models.EventBirth:
				birthYear = yearOf(*eventView.Date)
			case models.EventDeath:
				deathYear = yearOf(*eventView.Date)
			}
		}
		view.Events = append(view.Events, eventView)
	}

	for _, claim := range person.Claims {
		entityID := strconv.FormatUint(uint64(claim.ID), 10)
		effective, err := s.EffectiveValue(models.EntityClaim, entityID, "value", claim.Value)
		if err != nil {
			return nil, err
		}
		view.Claims = append(view.Claims, ClaimView{
			ID:         claim.ID,
			Predicate:  claim.Predicate,
			Value:      effective.Value,
			Source:     claim.Source,
			Overridden: effective.IsOverridden,
		})
	}

	view.Lifespan = lifespan(birthYear, deathYear, view.Living)
	return view, nil
}

// effectiveEventField checks the generic field name first, then the
// event-type-qualified alias (birth_date, death_place, ...).
func (s *OverrideService) effectiveEventField(entityID, eventType, fieldName, storedValue string) (string, bool, error) {
	effective, err := s.EffectiveValue(models.EntityEvent, entityID, fieldName, storedValue)
	if err != nil {
		return "", false, err
	}
	if effective.IsOverridden {
		return effective.Value, true, nil
	}
	aliased, err := s.EffectiveValue(models.EntityEvent, entityID, eventType+"_"+fieldName, storedValue)
	if err != nil {
		return "", false, err
	}
	return aliased.Value, aliased.IsOverridden, nil
}

// yearOf extracts a leading 4-digit year from a date string, if any.
func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	candidate := date[:4]
	if _, err := strconv.Atoi(candidate); err != nil {
		return ""
	}
	return candidate
}

func lifespan(birthYear, deathYear string, living bool) string {
	switch {
	case birthYear != "" && deathYear != "":
		return birthYear + "-" + deathYear
	case birthYear != "" && living:
		return birthYear + "-"
	case birthYear != "":
		return birthYear + "-?"
	case deathYear != "":
		return "?-" + deathYear
	}
	return ""
}
