package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kinforge/kinforgebackend/models"
)

func newTestConn(t *testing.T) (*gorm.DB, *sql.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrateModels(db))
	return db, sqlDB
}

func seedPerson(t *testing.T, db *gorm.DB, name string) *models.Person {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	person := &models.Person{ID: id.String(), DisplayName: name}
	require.NoError(t, db.Create(person).Error)
	return person
}

func seedIdentity(t *testing.T, db *gorm.DB, personID, source, externalID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.ExternalIdentity{
		PersonID:   personID,
		Source:     source,
		ExternalID: externalID,
	}).Error)
}

func seedEdge(t *testing.T, db *gorm.DB, parentID, childID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.ParentEdge{
		ParentID: parentID,
		ChildID:  childID,
		Source:   "familysearch",
	}).Error)
}

func TestGetGraphSummary(t *testing.T) {
	db, sqlDB := newTestConn(t)

	grandparent := seedPerson(t, db, "Grandparent")
	parent := seedPerson(t, db, "Parent")
	child := seedPerson(t, db, "Child")
	seedEdge(t, db, grandparent.ID, parent.ID)
	seedEdge(t, db, parent.ID, child.ID)

	seedIdentity(t, db, grandparent.ID, "familysearch", "G-1")
	seedIdentity(t, db, parent.ID, "familysearch", "P-1")
	seedIdentity(t, db, parent.ID, "wikitree", "W-1")

	require.NoError(t, db.Create(&models.LocalOverride{
		EntityType:    models.EntityPerson,
		EntityID:      child.ID,
		FieldName:     "display_name",
		OverrideValue: "Kid",
	}).Error)

	summary, err := GetGraphSummary(sqlDB)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.TotalPersons)
	assert.Equal(t, int64(2), summary.PersonsWithParent)
	assert.InDelta(t, 2.0/3.0, summary.LinkedParentRatio, 0.001)
	assert.Equal(t, int64(2), summary.ParentEdges)
	assert.Equal(t, int64(1), summary.OverrideCount)
	assert.Equal(t, map[string]int64{"familysearch": 2, "wikitree": 1}, summary.ProviderCoverage)
}

func TestGetGraphSummaryEmpty(t *testing.T) {
	_, sqlDB := newTestConn(t)

	summary, err := GetGraphSummary(sqlDB)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalPersons)
	assert.Equal(t, 0.0, summary.LinkedParentRatio)
	assert.Empty(t, summary.ProviderCoverage)
}

func TestFindCoverageGaps(t *testing.T) {
	db, sqlDB := newTestConn(t)

	covered := seedPerson(t, db, "Covered")
	uncovered := seedPerson(t, db, "Uncovered")
	seedIdentity(t, db, covered.ID, "familysearch", "F-1")

	gaps, err := FindCoverageGaps(sqlDB, []string{"familysearch", "wikitree"})
	require.NoError(t, err)

	byProvider := make(map[string][]string)
	for _, gap := range gaps {
		byProvider[gap.Provider] = append(byProvider[gap.Provider], gap.PersonID)
	}
	assert.Equal(t, []string{uncovered.ID}, byProvider["familysearch"])
	assert.ElementsMatch(t, []string{covered.ID, uncovered.ID}, byProvider["wikitree"])
}

func TestFindParentLinkageGaps(t *testing.T) {
	db, sqlDB := newTestConn(t)

	root := seedPerson(t, db, "Root")
	child := seedPerson(t, db, "Child")
	confirmed := seedPerson(t, db, "Confirmed Root")
	seedEdge(t, db, root.ID, child.ID)
	require.NoError(t, db.Create(&models.Claim{
		PersonID:  confirmed.ID,
		Predicate: models.PredicateNoParents,
		Value:     "confirmed",
		Source:    "familysearch",
	}).Error)

	gaps, err := FindParentLinkageGaps(sqlDB, "")
	require.NoError(t, err)
	require.Len(t, gaps, 1, "linked persons and confirmed roots must be excluded")
	assert.Equal(t, root.ID, gaps[0].PersonID)
	assert.Empty(t, gaps[0].ExternalID)
}

func TestFindParentLinkageGapsProviderScoped(t *testing.T) {
	db, sqlDB := newTestConn(t)

	known := seedPerson(t, db, "Known Elsewhere")
	seedIdentity(t, db, known.ID, "familysearch", "F-9")
	seedPerson(t, db, "Local Only")

	gaps, err := FindParentLinkageGaps(sqlDB, "familysearch")
	require.NoError(t, err)
	require.Len(t, gaps, 1, "persons without an identity for the provider cannot be repaired through it")
	assert.Equal(t, known.ID, gaps[0].PersonID)
	assert.Equal(t, "F-9", gaps[0].ExternalID)
}

func TestFindOrphanedEdges(t *testing.T) {
	db, sqlDB := newTestConn(t)

	parent := seedPerson(t, db, "Parent")
	child := seedPerson(t, db, "Child")
	seedEdge(t, db, parent.ID, child.ID)

	missingParent := uuid.NewString()
	missingChild := uuid.NewString()
	seedEdge(t, db, missingParent, child.ID)
	seedEdge(t, db, parent.ID, missingChild)

	orphans, err := FindOrphanedEdges(sqlDB)
	require.NoError(t, err)
	require.Len(t, orphans, 2)

	byMissing := make(map[string]OrphanedEdge)
	for _, orphan := range orphans {
		byMissing[orphan.MissingEnd] = orphan
	}
	assert.Equal(t, missingParent, byMissing["parent"].MissingPerson)
	assert.Equal(t, missingChild, byMissing["child"].MissingPerson)
}

func TestFindStalePayloads(t *testing.T) {
	db, sqlDB := newTestConn(t)

	now := time.Now().Unix()
	insert := func(source, externalID string, fetchedAt int64) {
		require.NoError(t, db.Create(&models.RawPayload{
			Source:     source,
			ExternalID: externalID,
			Payload:    []byte(`{"name":"x"}`),
			FetchedAt:  fetchedAt,
		}).Error)
	}

	// refreshed record: old snapshot superseded by a fresh one
	insert("familysearch", "A", now-1000)
	insert("familysearch", "A", now-10)
	// stale record: newest snapshot is still old
	insert("familysearch", "B", now-1000)
	// other provider is out of scope
	insert("wikitree", "C", now-1000)

	stale, err := FindStalePayloads(sqlDB, "familysearch", now-100)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "B", stale[0].ExternalID)
	assert.Equal(t, now-1000, stale[0].FetchedAt)
}
