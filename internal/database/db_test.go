package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/capplot/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertRunRoundTrip(t *testing.T) {
	db := openTestDB(t)
	records := []models.Record{
		{Time: 20, Capacity: 3},
		{Time: 0, Capacity: 5},
		{Time: 10, Capacity: 7.5},
	}

	run, created, err := db.InsertRun("capacity.log", records)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, run.Count)
	assert.Equal(t, "capacity.log", run.Source)

	got, err := db.ListRecords(run.ID)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	stored, err := db.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)
	assert.True(t, run.ImportedAt.Equal(stored.ImportedAt))
	assert.False(t, stored.Published)
}

func TestInsertRunIgnoresDuplicates(t *testing.T) {
	db := openTestDB(t)
	records := []models.Record{{Time: 0, Capacity: 10}, {Time: 1, Capacity: 20}}

	first, created, err := db.InsertRun("a.log", records)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := db.InsertRun("b.log", records)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	runs, err := db.ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestInsertEmptyRun(t *testing.T) {
	db := openTestDB(t)

	run, created, err := db.InsertRun("empty.log", nil)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := db.ListRecords(run.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetRunByPrefix(t *testing.T) {
	db := openTestDB(t)
	run, _, err := db.InsertRun("a.log", []models.Record{{Time: 0, Capacity: 1}})
	require.NoError(t, err)

	got, err := db.GetRun(run.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)

	_, err = db.GetRun("does-not-exist")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestGetRunTreatsPatternCharsLiterally(t *testing.T) {
	db := openTestDB(t)
	_, _, err := db.InsertRun("a.log", []models.Record{{Time: 0, Capacity: 1}})
	require.NoError(t, err)

	for _, id := range []string{"%", "_", "________", "%%"} {
		_, err := db.GetRun(id)
		assert.True(t, errors.Is(err, ErrRunNotFound), "id %q", id)
	}
}

func TestMarkPublished(t *testing.T) {
	db := openTestDB(t)
	a, _, err := db.InsertRun("a.log", []models.Record{{Time: 0, Capacity: 1}})
	require.NoError(t, err)
	b, _, err := db.InsertRun("b.log", []models.Record{{Time: 0, Capacity: 2}})
	require.NoError(t, err)

	require.NoError(t, db.MarkPublished(a.ID))

	pending, err := db.ListUnpublishedRuns()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	got, err := db.GetRun(a.ID)
	require.NoError(t, err)
	assert.True(t, got.Published)
}

func TestChecksumDependsOnOrder(t *testing.T) {
	a := []models.Record{{Time: 0, Capacity: 1}, {Time: 1, Capacity: 2}}
	b := []models.Record{{Time: 1, Capacity: 2}, {Time: 0, Capacity: 1}}

	assert.NotEqual(t, Checksum(a), Checksum(b))
	assert.Equal(t, Checksum(a), Checksum(append([]models.Record(nil), a...)))
}
