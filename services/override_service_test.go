package services

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kinforge/kinforgebackend/apperrors"
	"github.com/kinforge/kinforgebackend/models"
	"github.com/kinforge/kinforgebackend/repository"
)

func newOverrideService(t *testing.T, db *gorm.DB) *OverrideService {
	t.Helper()
	return NewOverrideService(
		repository.NewOverrideRepository(db),
		repository.NewEventRepository(db),
		repository.NewClaimRepository(db),
		repository.NewPersonRepository(db),
	)
}

func seedPerson(t *testing.T, db *gorm.DB, name string) *models.Person {
	t.Helper()
	person := &models.Person{ID: newTestUUID(t), DisplayName: name}
	require.NoError(t, repository.NewPersonRepository(db).Create(person))
	return person
}

func TestSetAndEffectiveValue(t *testing.T) {
	db := newTestDB(t)
	svc := newOverrideService(t, db)
	person := seedPerson(t, db, "Jon")

	_, err := svc.SetOverride(models.EntityPerson, person.ID, "display_name", "John", "Jon", nil, models.SourceLocal)
	require.NoError(t, err)

	effective, err := svc.EffectiveValue(models.EntityPerson, person.ID, "display_name", "Jon")
	require.NoError(t, err)
	assert.True(t, effective.IsOverridden)
	assert.Equal(t, "John", effective.Value)
	require.NotNil(t, effective.Override)
	assert.Equal(t, "Jon", effective.Override.OriginalValue)
}

func TestSecondSetPreservesOriginal(t *testing.T) {
	db := newTestDB(t)
	svc := newOverrideService(t, db)
	person := seedPerson(t, db, "Jon")

	_, err := svc.SetOverride(models.EntityPerson, person.ID, "name", "John", "Jon", nil, models.SourceLocal)
	require.NoError(t, err)

	updated, err := svc.SetOverride(models.EntityPerson, person.ID, "name", "Jonathan", "should-be-ignored", nil, models.SourceLocal)
	require.NoError(t, err)
	assert.Equal(t, "Jonathan", updated.OverrideValue)
	assert.Equal(t, "Jon", updated.OriginalValue, "original captured at creation must never change")
}

func TestRemoveOverrideReverts(t *testing.T) {
	db := newTestDB(t)
	svc := newOverrideService(t, db)
	person := seedPerson(t, db, "Jon")

	_, err := svc.SetOverride(models.EntityPerson, person.ID, "bio", "edited", "stored", nil, models.SourceLocal)
	require.NoError(t, err)

	existed, err := svc.RemoveOverride(models.EntityPerson, person.ID, "bio")
	require.NoError(t, err)
	assert.True(t, existed)

	effective, err := svc.EffectiveValue(models.EntityPerson, person.ID, "bio", "stored")
	require.NoError(t, err)
	assert.False(t, effective.IsOverridden)
	assert.Equal(t, "stored", effective.Value)

	existed, err = svc.RemoveOverride(models.EntityPerson, person.ID, "bio")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestSetOverrideRejectsBadEntityType(t *testing.T) {
	db := newTestDB(t)
	svc := newOverrideService(t, db)

	_, err := svc.SetOverride("album", "1", "name", "x", "", nil, models.SourceLocal)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestOverridesForPersonGroups(t *testing.T) {
	db := newTestDB(t)
	svc := newOverrideService(t, db)
	person := seedPerson(t, db, "Jon")

	eventRepo := repository.NewEventRepository(db)
	date := "1850-01-01"
	event := &models.VitalEvent{PersonID: person.ID, EventType: models.EventBirth, Date: &date, Source: "familysearch"}
	require.NoError(t, eventRepo.Upsert(event))

	claimRepo := repository.NewClaimRepository(db)
	claim := &models.Claim{PersonID: person.ID, Predicate: "occupation", Value: "smith", Source: "familysearch"}
	require.NoError(t, claimRepo.Upsert(claim))

	_, err := svc.SetOverride(models.EntityPerson, person.ID, "display_name", "John", "Jon", nil, models.SourceLocal)
	require.NoError(t, err)
	_, err = svc.SetOverride(models.EntityEvent, strconv.FormatUint(uint64(event.ID), 10), "date", "1851-02-02", date, nil, models.SourceLocal)
	require.NoError(t, err)
	_, err = svc.SetOverride(models.EntityClaim, strconv.FormatUint(uint64(claim.ID), 10), "value", "blacksmith", "smith", nil, models.SourceLocal)
	require.NoError(t, err)

	grouped, err := svc.OverridesForPerson(person.ID)
	require.NoError(t, err)
	assert.Len(t, grouped.Person, 1)
	assert.Len(t, grouped.Events, 1)
	assert.Len(t, grouped.Claims, 1)
}

func TestApplyToPersonViewOverlays(t *testing.T) {
	db := newTestDB(t)
	svc := newOverrideService(t, db)
	person := seedPerson(t, db, "Jon")

	eventRepo := repository.NewEventRepository(db)
	birthDate := "1850-01-01"
	birth := &models.VitalEvent{PersonID: person.ID, EventType: models.EventBirth, Date: &birthDate, Source: "familysearch"}
	require.NoError(t, eventRepo.Upsert(birth))
	deathDate := "1920-06-01"
	death := &models.VitalEvent{PersonID: person.ID, EventType: models.EventDeath, Date: &deathDate, Source: "familysearch"}
	require.NoError(t, eventRepo.Upsert(death))

	_, err := svc.SetOverride(models.EntityPerson, person.ID, "display_name", "John", "Jon", nil, models.SourceLocal)
	require.NoError(t, err)
	// override recorded under the event-type-qualified alias must be honored
	_, err = svc.SetOverride(models.EntityEvent, strconv.FormatUint(uint64(birth.ID), 10), "birth_date", "1852-01-01", birthDate, nil, models.SourceLocal)
	require.NoError(t, err)

	view, err := svc.ApplyToPersonView(person.ID)
	require.NoError(t, err)
	assert.Equal(t, "John", view.DisplayName)
	assert.Equal(t, "1852-1920", view.Lifespan, "lifespan must be recomputed from effective dates")

	var birthView *EventView
	for i := range view.Events {
		if view.Events[i].EventType == models.EventBirth {
			birthView = &view.Events[i]
		}
	}
	require.NotNil(t, birthView)
	require.NotNil(t, birthView.Date)
	assert.Equal(t, "1852-01-01", *birthView.Date)
	assert.True(t, birthView.Overridden)
}

func TestApplyToPersonViewUnknownPerson(t *testing.T) {
	db := newTestDB(t)
	svc := newOverrideService(t, db)

	_, err := svc.ApplyToPersonView(newTestUUID(t))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSetEventOverrideSynthesizesLocalEvent(t *testing.T) {
	db := newTestDB(t)
	svc := newOverrideService(t, db)
	person := seedPerson(t, db, "Jon")

	override, err := svc.SetEventOverride(person.ID, models.EventDeath, "date", "1900-01-01", nil)
	require.NoError(t, err)
	assert.Equal(t, "1900-01-01", override.OverrideValue)
	assert.Equal(t, "", override.OriginalValue)

	events, err := repository.NewEventRepository(db).ListByPersonID(person.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.SourceLocal, events[0].Source)
	assert.Equal(t, models.EventDeath, events[0].EventType)
}

func TestSetEventOverridePrefersProviderEvent(t *testing.T) {
	db := newTestDB(t)
	svc := newOverrideService(t, db)
	person := seedPerson(t, db, "Jon")

	eventRepo := repository.NewEventRepository(db)
	require.NoError(t, eventRepo.Upsert(&models.VitalEvent{PersonID: person.ID, EventType: models.EventBirth, Source: models.SourceLocal}))
	date := "1850-01-01"
	providerEvent := &models.VitalEvent{PersonID: person.ID, EventType: models.EventBirth, Date: &date, Source: "familysearch"}
	require.NoError(t, eventRepo.Upsert(providerEvent))

	override, err := svc.SetEventOverride(person.ID, models.EventBirth, "date", "1851-01-01", nil)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(uint64(providerEvent.ID), 10), override.EntityID)
	assert.Equal(t, date, override.OriginalValue)
}
