// Package domain models photovoltaic (PV) installation metadata, daily
// weather observations, and daily measured yield, plus the cleaning rules
// applied before dataset assembly.
//
// # Data Sources
//
// Four spreadsheet extracts feed the pipeline:
//
//	installation registry   — one row per PV installation
//	station registry        — one row per weather station
//	weather observations    — one row per (station, date)
//	yield observations      — one row per (installation, date), the target
//
// # Source Data Conventions
//
// Postal codes:
//
//	Dutch format "1234AB". Only the four-digit outward code carries
//	geographic meaning at the gazetteer's granularity, so codes are
//	truncated to their first 4 characters before lookup. The resolved
//	coordinate is area-level, not the installation's exact location.
//
// Temperatures:
//
//	Stored in tenths of a degree Celsius (KNMI convention): 125 = 12.5 °C.
//	Corrected by dividing by [TemperatureScaleFactor] during cleaning.
//
// Derived columns:
//
//	The registry carries total panel output and total inverter output,
//	which should equal panel count × panel rating and inverter count ×
//	inverter rating. Cleaning recomputes both products per row. A column
//	that verifies for every row is redundant and dropped from the feature
//	set; any mismatch falsifies the derivation assumption, is surfaced as
//	a data-integrity warning, and the stored column is retained.
//
// Constant columns:
//
//	The registry's system efficiency column holds the same value (0.86)
//	for every row. Cleaning verifies the column has exactly one distinct
//	value before excluding it from the feature set; a column that turns
//	out to vary is kept.
//
// # Missing-Data Policy
//
// There is no imputation anywhere in the pipeline. A row missing any
// required field is dropped at cleaning time, and a row that fails any
// join or enrichment step (unknown postal code, no weather observation for
// its station and date, degenerate daylight interval) is dropped at
// assembly time. Every drop is counted by reason so data quality stays
// auditable; none of these conditions aborts a run.
package domain
