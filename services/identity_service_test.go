package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kinforge/kinforgebackend/database"
	"github.com/kinforge/kinforgebackend/models"
	"github.com/kinforge/kinforgebackend/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrateModels(db))
	return db
}

func newTestUUID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id.String()
}

func newIdentityService(t *testing.T, db *gorm.DB) *IdentityService {
	t.Helper()
	return NewIdentityService(
		repository.NewPersonRepository(db),
		repository.NewIdentityRepository(db),
		"familysearch",
	)
}

func TestEnsurePersonIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newIdentityService(t, db)

	first, err := svc.EnsurePerson("familysearch", "X-1", PersonAttributes{DisplayName: "Jon Snow"})
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.EnsurePerson("familysearch", "X-1", PersonAttributes{DisplayName: "ignored on repeat"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsurePersonConcurrent(t *testing.T) {
	db := newTestDB(t)
	svc := newIdentityService(t, db)

	const callers = 16
	ids := make([]string, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := svc.EnsurePerson("familysearch", "X-RACE", PersonAttributes{DisplayName: "Racer"})
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i], "all concurrent callers must resolve to the same canonical id")
	}
}

func TestEnsurePersonDistinctKeys(t *testing.T) {
	db := newTestDB(t)
	svc := newIdentityService(t, db)

	a, err := svc.EnsurePerson("familysearch", "X-1", PersonAttributes{DisplayName: "A"})
	require.NoError(t, err)
	b, err := svc.EnsurePerson("familysearch", "X-2", PersonAttributes{DisplayName: "B"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// same external id under a different source is a different sighting, but
	// resolving either key again stays stable
	c, err := svc.EnsurePerson("wikitree", "X-1", PersonAttributes{DisplayName: "A elsewhere"})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestResolve(t *testing.T) {
	db := newTestDB(t)
	svc := newIdentityService(t, db)

	id, err := svc.EnsurePerson("familysearch", "X-1", PersonAttributes{DisplayName: "Jon"})
	require.NoError(t, err)

	resolved, ok, err := svc.Resolve("familysearch", "X-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, resolved)

	_, ok, err = svc.Resolve("familysearch", "X-unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveCanonicalPassthrough(t *testing.T) {
	db := newTestDB(t)
	svc := newIdentityService(t, db)

	canonical := "0190a6e2-1111-7abc-8def-0123456789ab"
	resolved, ok, err := svc.Resolve("familysearch", canonical)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, canonical, resolved)

	ensured, err := svc.EnsurePerson("familysearch", canonical, PersonAttributes{})
	require.NoError(t, err)
	assert.Equal(t, canonical, ensured)
}

func TestPreferredExternalID(t *testing.T) {
	db := newTestDB(t)
	svc := newIdentityService(t, db)

	id, err := svc.EnsurePerson("wikitree", "W-9", PersonAttributes{DisplayName: "Jon"})
	require.NoError(t, err)

	source, externalID, ok, err := svc.PreferredExternalID(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "wikitree", source)
	assert.Equal(t, "W-9", externalID)

	// once the default provider knows the person, it wins
	identityRepo := repository.NewIdentityRepository(db)
	_, _, err = identityRepo.CreateOrGet(&models.ExternalIdentity{
		Source:     "familysearch",
		ExternalID: "F-1",
		PersonID:   id,
	})
	require.NoError(t, err)

	source, externalID, ok, err = svc.PreferredExternalID(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "familysearch", source)
	assert.Equal(t, "F-1", externalID)

	ids, err := svc.ExternalIDs(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"familysearch": "F-1", "wikitree": "W-9"}, ids)
}
