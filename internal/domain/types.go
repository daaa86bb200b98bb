package domain

import "time"

// DateFormat is the canonical layout for observation dates. Observations are
// daily, so dates carry no time-of-day component and are always UTC.
const DateFormat = "2006-01-02"

// DateKey normalizes a timestamp to its canonical daily key.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// RawInstallation mirrors one registry row as extracted, before cleaning.
// Nullable numeric cells are pointers; nil means the cell was empty.
type RawInstallation struct {
	ID                  string
	PostalCode          string
	StationID           string
	PanelCount          *float64
	PanelOutputWp       *float64
	TotalPanelOutputWp  *float64 // stored derived column, verified against count × rating
	PanelModel          string
	InverterCount       *float64
	InverterPowerW      *float64
	TotalInverterPowerW *float64 // stored derived column
	InverterModel       string
	OrientationDeg      *float64 // roof azimuth, degrees from north
	InclinationDeg      *float64 // roof tilt from horizontal
	GeometricYield      *float64
	RadiationFreedom    *float64
	Efficiency          *float64 // constant-column candidate
}

// Installation is a cleaned registry row. All numeric fields are present;
// rows with missing required cells never survive cleaning.
type Installation struct {
	ID                  string
	PostalCode          string
	StationID           string
	PanelCount          float64
	PanelOutputWp       float64
	TotalPanelOutputWp  float64
	PanelModel          string
	InverterCount       float64
	InverterPowerW      float64
	TotalInverterPowerW float64
	InverterModel       string
	OrientationDeg      float64
	InclinationDeg      float64
	GeometricYield      float64
	RadiationFreedom    float64
	Efficiency          float64
}

// RawWeatherStation mirrors one station-registry row before cleaning.
type RawWeatherStation struct {
	ID   string
	Name string
	Lat  *float64
	Lon  *float64
}

// WeatherStation is a cleaned station-registry row, used as a join target
// and for distance computation.
type WeatherStation struct {
	ID       string
	Name     string
	Location Coordinate
}

// RawWeatherObservation mirrors one daily weather row before cleaning.
// Temperatures are in tenths of °C as stored upstream.
type RawWeatherObservation struct {
	StationID string
	Date      time.Time
	MeanTemp  *float64 // 0.1 °C
	MinTemp   *float64 // 0.1 °C
	MaxTemp   *float64 // 0.1 °C
	Radiation *float64 // global solar radiation, J/cm²
}

// WeatherObservation is a cleaned daily weather row with temperatures in
// natural units (°C).
type WeatherObservation struct {
	StationID string
	Date      time.Time
	MeanTempC float64
	MinTempC  float64
	MaxTempC  float64
	Radiation float64
}

// RawYieldObservation mirrors one daily yield row before cleaning.
type RawYieldObservation struct {
	InstallationID string
	Date           time.Time
	YieldKWh       *float64
}

// YieldObservation is a cleaned daily yield row; YieldKWh is the
// supervised-learning target.
type YieldObservation struct {
	InstallationID string
	Date           time.Time
	YieldKWh       float64
}

// RawSources bundles the four extracted tables handed to cleaning.
type RawSources struct {
	Installations []RawInstallation
	Stations      []RawWeatherStation
	Weather       []RawWeatherObservation
	Yields        []RawYieldObservation
}

// CleanSources bundles the cleaned tables plus their cleaning reports,
// ready for assembly.
type CleanSources struct {
	Installations      []Installation
	InstallationReport InstallationCleanReport
	Stations           []WeatherStation
	StationReport      CleanReport
	Weather            []WeatherObservation
	WeatherReport      CleanReport
	Yields             []YieldObservation
	YieldReport        CleanReport
}
