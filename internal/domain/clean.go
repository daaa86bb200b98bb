package domain

import (
	"log/slog"
	"math"
)

// TemperatureScaleFactor converts stored temperatures (tenths of °C) to
// degrees Celsius.
const TemperatureScaleFactor = 10.0

// derivedTolerance absorbs float noise when recomputing stored products.
const derivedTolerance = 1e-6

// CleanReport counts what a cleaning pass kept and dropped.
type CleanReport struct {
	RowsIn             int
	RowsKept           int
	RowsDroppedMissing int
}

// InstallationCleanReport extends CleanReport with the registry-specific
// derived-column and constant-column findings.
type InstallationCleanReport struct {
	CleanReport

	// Mismatch counts between stored totals and recomputed products.
	// Non-zero counts mean the derivation assumption is false and the
	// stored column must be treated as real data, not redundancy.
	PanelTotalMismatches    int
	InverterTotalMismatches int

	// Derivable is true when the stored column matched the recomputed
	// product on every kept row, so the column adds no information.
	PanelTotalDerivable    bool
	InverterTotalDerivable bool

	// EfficiencyConstant is true when the efficiency column holds exactly
	// one distinct value across all kept rows.
	EfficiencyConstant bool
	EfficiencyValue    float64
}

// CleanInstallations validates and filters registry rows. Rows missing any
// required field are dropped. Stored derived totals are verified against
// their recomputed products; mismatches are surfaced as warnings. The
// efficiency column is checked for constancy.
func CleanInstallations(raws []RawInstallation, logger *slog.Logger) ([]Installation, InstallationCleanReport) {
	report := InstallationCleanReport{CleanReport: CleanReport{RowsIn: len(raws)}}
	cleaned := make([]Installation, 0, len(raws))
	efficiencies := make(map[float64]struct{})

	for _, raw := range raws {
		if raw.ID == "" || raw.PostalCode == "" || raw.StationID == "" ||
			anyNil(raw.PanelCount, raw.PanelOutputWp, raw.TotalPanelOutputWp,
				raw.InverterCount, raw.InverterPowerW, raw.TotalInverterPowerW,
				raw.OrientationDeg, raw.InclinationDeg,
				raw.GeometricYield, raw.RadiationFreedom, raw.Efficiency) {
			report.RowsDroppedMissing++
			continue
		}

		inst := Installation{
			ID:                  raw.ID,
			PostalCode:          raw.PostalCode,
			StationID:           raw.StationID,
			PanelCount:          *raw.PanelCount,
			PanelOutputWp:       *raw.PanelOutputWp,
			TotalPanelOutputWp:  *raw.TotalPanelOutputWp,
			PanelModel:          raw.PanelModel,
			InverterCount:       *raw.InverterCount,
			InverterPowerW:      *raw.InverterPowerW,
			TotalInverterPowerW: *raw.TotalInverterPowerW,
			InverterModel:       raw.InverterModel,
			OrientationDeg:      *raw.OrientationDeg,
			InclinationDeg:      *raw.InclinationDeg,
			GeometricYield:      *raw.GeometricYield,
			RadiationFreedom:    *raw.RadiationFreedom,
			Efficiency:          *raw.Efficiency,
		}

		if !productMatches(inst.TotalPanelOutputWp, inst.PanelCount, inst.PanelOutputWp) {
			report.PanelTotalMismatches++
		}
		if !productMatches(inst.TotalInverterPowerW, inst.InverterCount, inst.InverterPowerW) {
			report.InverterTotalMismatches++
		}

		efficiencies[inst.Efficiency] = struct{}{}
		cleaned = append(cleaned, inst)
	}

	report.RowsKept = len(cleaned)
	report.PanelTotalDerivable = report.PanelTotalMismatches == 0
	report.InverterTotalDerivable = report.InverterTotalMismatches == 0

	if report.PanelTotalMismatches > 0 {
		logger.Warn("stored total panel output does not equal panel count × rating; retaining column",
			"mismatched_rows", report.PanelTotalMismatches,
			"rows", report.RowsKept,
		)
	}
	if report.InverterTotalMismatches > 0 {
		logger.Warn("stored total inverter power does not equal inverter count × rating; retaining column",
			"mismatched_rows", report.InverterTotalMismatches,
			"rows", report.RowsKept,
		)
	}

	if len(efficiencies) == 1 {
		report.EfficiencyConstant = true
		for v := range efficiencies {
			report.EfficiencyValue = v
		}
		logger.Info("efficiency column is constant, excluded from feature set",
			"value", report.EfficiencyValue)
	}

	logDrops(logger, "installations", report.CleanReport)
	return cleaned, report
}

// CleanStations validates station-registry rows. Stations without an
// identifier or a complete coordinate cannot serve as join targets.
func CleanStations(raws []RawWeatherStation, logger *slog.Logger) ([]WeatherStation, CleanReport) {
	report := CleanReport{RowsIn: len(raws)}
	cleaned := make([]WeatherStation, 0, len(raws))

	for _, raw := range raws {
		if raw.ID == "" || raw.Lat == nil || raw.Lon == nil {
			report.RowsDroppedMissing++
			continue
		}
		cleaned = append(cleaned, WeatherStation{
			ID:       raw.ID,
			Name:     raw.Name,
			Location: Coordinate{Lat: *raw.Lat, Lon: *raw.Lon},
		})
	}

	report.RowsKept = len(cleaned)
	logDrops(logger, "stations", report)
	return cleaned, report
}

// CleanWeather validates daily weather rows and corrects the temperature
// unit scaling. No imputation: a row missing any required numeric field
// is dropped.
func CleanWeather(raws []RawWeatherObservation, logger *slog.Logger) ([]WeatherObservation, CleanReport) {
	report := CleanReport{RowsIn: len(raws)}
	cleaned := make([]WeatherObservation, 0, len(raws))

	for _, raw := range raws {
		if raw.StationID == "" || raw.Date.IsZero() ||
			anyNil(raw.MeanTemp, raw.MinTemp, raw.MaxTemp, raw.Radiation) {
			report.RowsDroppedMissing++
			continue
		}
		cleaned = append(cleaned, WeatherObservation{
			StationID: raw.StationID,
			Date:      raw.Date.UTC(),
			MeanTempC: *raw.MeanTemp / TemperatureScaleFactor,
			MinTempC:  *raw.MinTemp / TemperatureScaleFactor,
			MaxTempC:  *raw.MaxTemp / TemperatureScaleFactor,
			Radiation: *raw.Radiation,
		})
	}

	report.RowsKept = len(cleaned)
	logDrops(logger, "weather", report)
	return cleaned, report
}

// CleanYields validates daily yield rows. Rows missing the target are
// useless for supervised learning and are dropped.
func CleanYields(raws []RawYieldObservation, logger *slog.Logger) ([]YieldObservation, CleanReport) {
	report := CleanReport{RowsIn: len(raws)}
	cleaned := make([]YieldObservation, 0, len(raws))

	for _, raw := range raws {
		if raw.InstallationID == "" || raw.Date.IsZero() || raw.YieldKWh == nil {
			report.RowsDroppedMissing++
			continue
		}
		cleaned = append(cleaned, YieldObservation{
			InstallationID: raw.InstallationID,
			Date:           raw.Date.UTC(),
			YieldKWh:       *raw.YieldKWh,
		})
	}

	report.RowsKept = len(cleaned)
	logDrops(logger, "yields", report)
	return cleaned, report
}

// CleanAll runs every table cleaner and bundles the results.
func CleanAll(raw RawSources, logger *slog.Logger) CleanSources {
	var out CleanSources
	out.Installations, out.InstallationReport = CleanInstallations(raw.Installations, logger)
	out.Stations, out.StationReport = CleanStations(raw.Stations, logger)
	out.Weather, out.WeatherReport = CleanWeather(raw.Weather, logger)
	out.Yields, out.YieldReport = CleanYields(raw.Yields, logger)
	return out
}

func productMatches(stored, a, b float64) bool {
	return math.Abs(stored-a*b) <= derivedTolerance
}

func anyNil(vs ...*float64) bool {
	for _, v := range vs {
		if v == nil {
			return true
		}
	}
	return false
}

func logDrops(logger *slog.Logger, table string, r CleanReport) {
	if r.RowsDroppedMissing == 0 {
		return
	}
	logger.Warn("dropped rows with missing required fields",
		"table", table,
		"dropped", r.RowsDroppedMissing,
		"kept", r.RowsKept,
	)
}
