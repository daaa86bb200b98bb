// Package solar computes sun positions and daylight intervals from first
// principles, using the NOAA general solar position equations. The
// yield-bearing variable for a PV panel is the sun's angle of incidence,
// which varies continuously through the day, so the pipeline's features are
// full-day averages rather than single-instant samples.
package solar

import (
	"math"
	"time"
)

const degPerRad = 180 / math.Pi

// fractionalYear returns the year angle γ in radians for a UTC instant.
func fractionalYear(t time.Time) float64 {
	t = t.UTC()
	hours := float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
	return 2 * math.Pi / 365 * (float64(t.YearDay()-1) + (hours-12)/24)
}

// equationOfTime returns the difference between apparent and mean solar
// time in minutes for year angle γ.
func equationOfTime(gamma float64) float64 {
	return 229.18 * (0.000075 +
		0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))
}

// declination returns the solar declination in radians for year angle γ.
func declination(gamma float64) float64 {
	return 0.006918 -
		0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)
}

// Position returns the sun's azimuth (degrees clockwise from north) and
// altitude (degrees above the horizon, negative below) as seen from the
// given WGS-84 coordinate at a UTC instant. Pure function of its inputs.
func Position(t time.Time, lat, lon float64) (azimuthDeg, altitudeDeg float64) {
	t = t.UTC()
	gamma := fractionalYear(t)
	decl := declination(gamma)
	eqTime := equationOfTime(gamma)

	// True solar time in minutes; longitude positive east, timezone UTC.
	minutes := float64(t.Hour())*60 + float64(t.Minute()) + float64(t.Second())/60
	trueSolar := minutes + eqTime + 4*lon
	hourAngle := (trueSolar/4 - 180) / degPerRad

	latRad := lat / degPerRad
	sinAlt := math.Sin(latRad)*math.Sin(decl) + math.Cos(latRad)*math.Cos(decl)*math.Cos(hourAngle)
	altitudeDeg = math.Asin(clamp(sinAlt)) * degPerRad

	// Azimuth from south (west positive), then rotated to compass bearing.
	az := math.Atan2(math.Sin(hourAngle),
		math.Cos(hourAngle)*math.Sin(latRad)-math.Tan(decl)*math.Cos(latRad))
	azimuthDeg = math.Mod(az*degPerRad+180, 360)
	if azimuthDeg < 0 {
		azimuthDeg += 360
	}
	return azimuthDeg, altitudeDeg
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
