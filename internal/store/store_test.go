package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonwacht/pvyield/internal/assemble"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(filepath.Join(t.TempDir(), "pvyield.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDataset() *assemble.Dataset {
	schema := assemble.Schema{
		Columns:     []string{"panel_count", "latitude", "panel_model=SunMax 300"},
		PanelModels: []string{"SunMax 300"},
		SampleStep:  "10m0s",
		Fingerprint: "ab12cd34ef56ab78",
	}
	return &assemble.Dataset{
		Schema: schema,
		Rows: []assemble.Row{
			{
				InstallationID: "A1",
				Date:           time.Date(2023, 6, 21, 0, 0, 0, 0, time.UTC),
				Features:       []float64{10, 52.3676, 1},
				YieldKWh:       14.2,
			},
			{
				InstallationID: "A1",
				Date:           time.Date(2023, 6, 22, 0, 0, 0, 0, time.UTC),
				Features:       []float64{10, 52.3676, 1},
				YieldKWh:       11.7,
			},
		},
		Report:      assemble.Report{YieldRowsIn: 3, RowsAssembled: 2, DroppedMissingWeather: 1},
		AssembledAt: time.Date(2023, 7, 1, 8, 30, 0, 0, time.UTC),
	}
}

func TestStore_Migrate(t *testing.T) {
	s := testStore(t)

	version, err := s.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	// Migrations are idempotent.
	require.NoError(t, s.Migrate())
	version, err = s.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestStore_SaveLoadDataset(t *testing.T) {
	s := testStore(t)
	ds := testDataset()

	id, err := s.SaveDataset(ds)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	loaded, err := s.LoadDataset(id)
	require.NoError(t, err)

	assert.Equal(t, ds.Schema, loaded.Schema)
	assert.Equal(t, ds.Report, loaded.Report)
	require.Len(t, loaded.Rows, 2)
	assert.Equal(t, ds.Rows[0].InstallationID, loaded.Rows[0].InstallationID)
	assert.Equal(t, ds.Rows[0].Features, loaded.Rows[0].Features)
	assert.Equal(t, ds.Rows[0].YieldKWh, loaded.Rows[0].YieldKWh)
	assert.True(t, ds.Rows[0].Date.Equal(loaded.Rows[0].Date))
}

func TestStore_DuplicateKeyRejected(t *testing.T) {
	s := testStore(t)
	ds := testDataset()
	ds.Rows[1].Date = ds.Rows[0].Date

	_, err := s.SaveDataset(ds)
	require.Error(t, err)
}

func TestStore_LatestDatasetID(t *testing.T) {
	s := testStore(t)

	_, err := s.LatestDatasetID()
	require.Error(t, err)

	first, err := s.SaveDataset(testDataset())
	require.NoError(t, err)
	second, err := s.SaveDataset(testDataset())
	require.NoError(t, err)
	require.Greater(t, second, first)

	latest, err := s.LatestDatasetID()
	require.NoError(t, err)
	assert.Equal(t, second, latest)
}

func TestStore_LoadMissingDataset(t *testing.T) {
	s := testStore(t)
	_, err := s.LoadDataset(42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
