// Package source reads the four spreadsheet extracts the pipeline consumes.
// The extracts are plain CSV with a header row; cells are addressed by
// column name so upstream column reordering is harmless. Numeric cells that
// are empty or unparseable become nil and fall under the cleaner's
// missing-field drop policy.
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zonwacht/pvyield/internal/domain"
)

// CSVReader loads the four source tables from CSV files.
type CSVReader struct {
	InstallationsPath string
	StationsPath      string
	WeatherPath       string
	YieldsPath        string
}

// ReadSources reads all four tables. Each file is read exactly once per
// pipeline run and never mutated.
func (r *CSVReader) ReadSources(_ context.Context) (domain.RawSources, error) {
	var src domain.RawSources
	var err error

	if src.Installations, err = readFile(r.InstallationsPath, ReadInstallations); err != nil {
		return src, err
	}
	if src.Stations, err = readFile(r.StationsPath, ReadStations); err != nil {
		return src, err
	}
	if src.Weather, err = readFile(r.WeatherPath, ReadWeather); err != nil {
		return src, err
	}
	if src.Yields, err = readFile(r.YieldsPath, ReadYields); err != nil {
		return src, err
	}
	return src, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source table: %w", err)
	}
	defer f.Close()

	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadInstallations parses the installation registry.
func ReadInstallations(r io.Reader) ([]domain.RawInstallation, error) {
	return readTable(r, func(rec record) domain.RawInstallation {
		return domain.RawInstallation{
			ID:                  rec.str("id"),
			PostalCode:          rec.str("postal_code"),
			StationID:           rec.str("station_id"),
			PanelCount:          rec.optFloat("panel_count"),
			PanelOutputWp:       rec.optFloat("panel_output_wp"),
			TotalPanelOutputWp:  rec.optFloat("total_panel_output_wp"),
			PanelModel:          rec.str("panel_model"),
			InverterCount:       rec.optFloat("inverter_count"),
			InverterPowerW:      rec.optFloat("inverter_power_w"),
			TotalInverterPowerW: rec.optFloat("total_inverter_power_w"),
			InverterModel:       rec.str("inverter_model"),
			OrientationDeg:      rec.optFloat("orientation_deg"),
			InclinationDeg:      rec.optFloat("inclination_deg"),
			GeometricYield:      rec.optFloat("geometric_yield"),
			RadiationFreedom:    rec.optFloat("radiation_freedom"),
			Efficiency:          rec.optFloat("efficiency"),
		}
	})
}

// ReadStations parses the weather-station registry.
func ReadStations(r io.Reader) ([]domain.RawWeatherStation, error) {
	return readTable(r, func(rec record) domain.RawWeatherStation {
		return domain.RawWeatherStation{
			ID:   rec.str("id"),
			Name: rec.str("name"),
			Lat:  rec.optFloat("latitude"),
			Lon:  rec.optFloat("longitude"),
		}
	})
}

// ReadWeather parses the daily weather observations. Temperatures stay in
// stored units (tenths of °C); the cleaner owns the unit correction.
func ReadWeather(r io.Reader) ([]domain.RawWeatherObservation, error) {
	return readTable(r, func(rec record) domain.RawWeatherObservation {
		return domain.RawWeatherObservation{
			StationID: rec.str("station_id"),
			Date:      rec.date("date"),
			MeanTemp:  rec.optFloat("temp_mean"),
			MinTemp:   rec.optFloat("temp_min"),
			MaxTemp:   rec.optFloat("temp_max"),
			Radiation: rec.optFloat("global_radiation"),
		}
	})
}

// ReadYields parses the daily yield observations.
func ReadYields(r io.Reader) ([]domain.RawYieldObservation, error) {
	return readTable(r, func(rec record) domain.RawYieldObservation {
		return domain.RawYieldObservation{
			InstallationID: rec.str("installation_id"),
			Date:           rec.date("date"),
			YieldKWh:       rec.optFloat("yield_kwh"),
		}
	})
}

// record is one CSV row with header-based cell access.
type record struct {
	header map[string]int
	fields []string
}

func (rec record) str(col string) string {
	i, ok := rec.header[col]
	if !ok || i >= len(rec.fields) {
		return ""
	}
	return strings.TrimSpace(rec.fields[i])
}

func (rec record) optFloat(col string) *float64 {
	s := rec.str(col)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (rec record) date(col string) time.Time {
	t, err := time.ParseInLocation(domain.DateFormat, rec.str(col), time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func readTable[T any](r io.Reader, build func(record) T) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	out := make([]T, 0, len(rows)-1)
	for _, fields := range rows[1:] {
		out = append(out, build(record{header: header, fields: fields}))
	}
	return out, nil
}
