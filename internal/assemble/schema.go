// Package assemble joins the cleaned source tables into the supervised
// learning dataset: one row per (installation, date) with derived
// solar-geometry and distance features and one-hot categorical columns.
package assemble

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Feature column names. Key columns (installation_id, date) and the target
// (yield_kwh) are not features; they are kept alongside for traceability.
const (
	ColPanelCount          = "panel_count"
	ColPanelOutputWp       = "panel_output_wp"
	ColTotalPanelOutputWp  = "total_panel_output_wp"
	ColInverterCount       = "inverter_count"
	ColInverterPowerW      = "inverter_power_w"
	ColTotalInverterPowerW = "total_inverter_power_w"
	ColOrientationDeg      = "orientation_deg"
	ColInclinationDeg      = "inclination_deg"
	ColGeometricYield      = "geometric_yield"
	ColRadiationFreedom    = "radiation_freedom"
	ColEfficiency          = "efficiency"
	ColLatitude            = "latitude"
	ColLongitude           = "longitude"
	ColStationDistanceM    = "station_distance_m"
	ColAvgSunAzimuthDeg    = "avg_sun_azimuth_deg"
	ColAvgSunAltitudeDeg   = "avg_sun_altitude_deg"
	ColMeanTempC           = "temp_mean_c"
	ColMinTempC            = "temp_min_c"
	ColMaxTempC            = "temp_max_c"
	ColGlobalRadiation     = "global_radiation_jcm2"
)

// One-hot column name prefixes. A level L of the panel-model categorical
// becomes the indicator column "panel_model=L".
const (
	panelModelPrefix    = "panel_model="
	inverterModelPrefix = "inverter_model="
)

// Schema records the assembled table's column order, the categorical levels
// observed at assembly time, and the sampling cadence the solar features
// were computed with. Two runs are feature-compatible only when their
// fingerprints match; the pipeline records the schema per run rather than
// reconciling schemas across runs.
type Schema struct {
	Columns        []string `json:"columns"`
	PanelModels    []string `json:"panel_models"`
	InverterModels []string `json:"inverter_models"`
	SampleStep     string   `json:"sample_step"`
	Fingerprint    string   `json:"fingerprint"`
}

// ColumnIndex returns the feature index of a named column.
func (s *Schema) ColumnIndex(name string) (int, bool) {
	for i, c := range s.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// fingerprint derives a deterministic digest of the column order and
// sampling cadence, so feature-set drift between runs is detectable by
// comparing short hex strings.
func fingerprint(columns []string, sampleStep string) string {
	input := strings.Join(columns, "|") + "|" + sampleStep
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}
