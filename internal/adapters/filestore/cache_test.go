package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquest/internal/domain"
)

func record(incidentID string, alerts int) *domain.InvestigationRecord {
	return &domain.InvestigationRecord{
		IncidentID: incidentID,
		Summary:    domain.Summary{TotalAlerts: alerts},
	}
}

func TestLoad_MissIsNilNil(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	rec, err := store.Load(context.Background(), "INC-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	loc, err := store.Save(context.Background(), record("INC-1", 4))
	require.NoError(t, err)
	assert.FileExists(t, loc)

	rec, err := store.Load(context.Background(), "INC-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "INC-1", rec.IncidentID)
	assert.Equal(t, 4, rec.Summary.TotalAlerts)
}

func TestSave_SecondSaveIsNewArtifactAndLoadPicksNewest(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	// Deterministic timestamps so ordering does not depend on the clock.
	ts := int64(1000)
	store.now = func() int64 { ts++; return ts }

	first, err := store.Save(context.Background(), record("INC-1", 1))
	require.NoError(t, err)
	second, err := store.Save(context.Background(), record("INC-1", 2))
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "saves must not overwrite in place")
	assert.FileExists(t, first)

	rec, err := store.Load(context.Background(), "INC-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Summary.TotalAlerts)
}

func TestLoad_IsolatesIncidents(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), record("INC-1", 1))
	require.NoError(t, err)
	_, err = store.Save(context.Background(), record("INC-2", 2))
	require.NoError(t, err)

	rec, err := store.Load(context.Background(), "INC-2")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Summary.TotalAlerts)
}

func TestSave_SanitizesIncidentID(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	loc, err := store.Save(context.Background(), record("inc/../../etc", 1))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(loc), "artifact must stay inside the cache dir")

	rec, err := store.Load(context.Background(), "inc/../../etc")
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestLoad_CorruptArtifactIsAnError(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "INC-1_123.json"), []byte("{nope"), 0o644))

	_, err = store.Load(context.Background(), "INC-1")
	assert.Error(t, err)
}
