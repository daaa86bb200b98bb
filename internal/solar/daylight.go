package solar

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNoDaylight reports that a (date, coordinate) pair has no well-defined
// daylight interval: polar night, polar day, or a degenerate interval where
// sunrise does not precede sunset. Callers drop the affected row.
var ErrNoDaylight = errors.New("no well-defined daylight interval")

// DefaultSampleStep is the cadence at which the sun's position is sampled
// across the daylight interval. The averages are deterministic for a fixed
// cadence but change with it, so the cadence is part of the dataset schema's
// provenance.
const DefaultSampleStep = 10 * time.Minute

// sunriseZenithDeg is the conventional solar zenith at sunrise/sunset,
// 90° plus standard atmospheric refraction and solar disc radius.
const sunriseZenithDeg = 90.833

// SunriseSunset returns the UTC sunrise and sunset instants for the given
// date (its time-of-day is ignored) at a WGS-84 coordinate. Returns
// ErrNoDaylight when the sun never rises or never sets on that date.
func SunriseSunset(date time.Time, lat, lon float64) (rise, set time.Time, err error) {
	date = date.UTC()
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, time.UTC)
	gamma := fractionalYear(noon)
	decl := declination(gamma)
	eqTime := equationOfTime(gamma)

	latRad := lat / degPerRad
	cosHA := math.Cos(sunriseZenithDeg/degPerRad)/(math.Cos(latRad)*math.Cos(decl)) -
		math.Tan(latRad)*math.Tan(decl)
	if cosHA < -1 || cosHA > 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: lat %.3f on %s",
			ErrNoDaylight, lat, date.Format("2006-01-02"))
	}
	haDeg := math.Acos(cosHA) * degPerRad

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	riseMin := 720 - 4*(lon+haDeg) - eqTime
	setMin := 720 - 4*(lon-haDeg) - eqTime

	rise = midnight.Add(time.Duration(riseMin * float64(time.Minute)))
	set = midnight.Add(time.Duration(setMin * float64(time.Minute)))
	if !set.After(rise) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: sunrise %s not before sunset %s",
			ErrNoDaylight, rise.Format(time.RFC3339), set.Format(time.RFC3339))
	}
	return rise, set, nil
}

// AverageDaylightPosition samples the sun's azimuth and altitude at the
// given cadence from sunrise through sunset inclusive and returns the
// arithmetic mean of each. Pure function of its inputs; per-row calls are
// independent and safe to run concurrently.
func AverageDaylightPosition(date time.Time, lat, lon float64, step time.Duration) (avgAzimuthDeg, avgAltitudeDeg float64, err error) {
	if step <= 0 {
		return 0, 0, fmt.Errorf("sample step must be positive, got %s", step)
	}

	rise, set, err := SunriseSunset(date, lat, lon)
	if err != nil {
		return 0, 0, err
	}

	var sumAz, sumAlt float64
	samples := 0
	for t := rise; !t.After(set); t = t.Add(step) {
		az, alt := Position(t, lat, lon)
		sumAz += az
		sumAlt += alt
		samples++
	}
	if samples == 0 {
		// Unreachable while rise < set, kept so the divide below can
		// never be by zero.
		return 0, 0, fmt.Errorf("%w: empty sample window", ErrNoDaylight)
	}
	return sumAz / float64(samples), sumAlt / float64(samples), nil
}
