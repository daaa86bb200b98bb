package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInstallations(t *testing.T) {
	t.Run("parses all columns", func(t *testing.T) {
		in := strings.NewReader(strings.Join([]string{
			"id,postal_code,station_id,panel_count,panel_output_wp,total_panel_output_wp,panel_model,inverter_count,inverter_power_w,total_inverter_power_w,inverter_model,orientation_deg,inclination_deg,geometric_yield,radiation_freedom,efficiency",
			"A1,1234AB,W1,10,300,3000,SunMax 300,1,2500,2500,GridTie 2500,180,35,0.95,0.98,0.86",
		}, "\n"))

		rows, err := ReadInstallations(in)
		require.NoError(t, err)
		require.Len(t, rows, 1)

		inst := rows[0]
		assert.Equal(t, "A1", inst.ID)
		assert.Equal(t, "1234AB", inst.PostalCode)
		assert.Equal(t, "W1", inst.StationID)
		assert.Equal(t, "SunMax 300", inst.PanelModel)
		assert.Equal(t, "GridTie 2500", inst.InverterModel)
		require.NotNil(t, inst.PanelCount)
		assert.Equal(t, 10.0, *inst.PanelCount)
		require.NotNil(t, inst.Efficiency)
		assert.Equal(t, 0.86, *inst.Efficiency)
	})

	t.Run("empty and malformed cells become nil", func(t *testing.T) {
		in := strings.NewReader(strings.Join([]string{
			"id,postal_code,station_id,panel_count,panel_output_wp",
			"A1,1234AB,W1,,n/a",
		}, "\n"))

		rows, err := ReadInstallations(in)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Nil(t, rows[0].PanelCount)
		assert.Nil(t, rows[0].PanelOutputWp)
		assert.Nil(t, rows[0].OrientationDeg) // column absent entirely
	})

	t.Run("column order does not matter", func(t *testing.T) {
		in := strings.NewReader(strings.Join([]string{
			"station_id,id,panel_count,postal_code",
			"W1,A1,10,1234AB",
		}, "\n"))

		rows, err := ReadInstallations(in)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "A1", rows[0].ID)
		assert.Equal(t, "W1", rows[0].StationID)
		assert.Equal(t, "1234AB", rows[0].PostalCode)
	})

	t.Run("missing header row is an error", func(t *testing.T) {
		_, err := ReadInstallations(strings.NewReader(""))
		require.Error(t, err)
	})
}

func TestReadStations(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"id,name,latitude,longitude",
		"W1,De Bilt,52.1009,5.1773",
		"W2,Schiphol,,",
	}, "\n"))

	rows, err := ReadStations(in)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "De Bilt", rows[0].Name)
	require.NotNil(t, rows[0].Lat)
	assert.Equal(t, 52.1009, *rows[0].Lat)
	assert.Nil(t, rows[1].Lat)
	assert.Nil(t, rows[1].Lon)
}

func TestReadWeather(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"station_id,date,temp_mean,temp_min,temp_max,global_radiation",
		"W1,2023-06-21,185,120,245,2800",
		"W1,not-a-date,185,120,245,2800",
	}, "\n"))

	rows, err := ReadWeather(in)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Units stay as stored; the cleaner applies the tenths correction.
	require.NotNil(t, rows[0].MeanTemp)
	assert.Equal(t, 185.0, *rows[0].MeanTemp)
	assert.Equal(t, time.Date(2023, 6, 21, 0, 0, 0, 0, time.UTC), rows[0].Date)

	// A bad date parses to the zero time and falls to the drop policy later.
	assert.True(t, rows[1].Date.IsZero())
}

func TestReadYields(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"installation_id,date,yield_kwh",
		"A1,2023-06-21,14.2",
		"A1,2023-06-22,",
	}, "\n"))

	rows, err := ReadYields(in)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NotNil(t, rows[0].YieldKWh)
	assert.Equal(t, 14.2, *rows[0].YieldKWh)
	assert.Nil(t, rows[1].YieldKWh)
}

func TestCSVReader_ReadSources(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	reader := &CSVReader{
		InstallationsPath: write("installations.csv",
			"id,postal_code,station_id,panel_count\nA1,1234AB,W1,10\n"),
		StationsPath: write("stations.csv",
			"id,name,latitude,longitude\nW1,De Bilt,52.1009,5.1773\n"),
		WeatherPath: write("weather.csv",
			"station_id,date,temp_mean,temp_min,temp_max,global_radiation\nW1,2023-06-21,185,120,245,2800\n"),
		YieldsPath: write("yields.csv",
			"installation_id,date,yield_kwh\nA1,2023-06-21,14.2\n"),
	}

	src, err := reader.ReadSources(context.Background())
	require.NoError(t, err)
	assert.Len(t, src.Installations, 1)
	assert.Len(t, src.Stations, 1)
	assert.Len(t, src.Weather, 1)
	assert.Len(t, src.Yields, 1)

	t.Run("missing file is an error", func(t *testing.T) {
		broken := *reader
		broken.YieldsPath = filepath.Join(dir, "absent.csv")
		_, err := broken.ReadSources(context.Background())
		require.Error(t, err)
	})
}
