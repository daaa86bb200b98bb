package geo

import (
	"errors"
	"math"

	"github.com/zonwacht/pvyield/internal/domain"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84SemiMajorM = 6378137.0
	wgs84Flattening = 1.0 / 298.257223563
)

// ErrDistanceNoConvergence reports that the iterative geodesic solution did
// not converge, which happens only for nearly antipodal points. Irrelevant
// for installation-to-station distances, but the contract holds anyway.
var ErrDistanceNoConvergence = errors.New("geodesic distance did not converge")

// Distance returns the geodesic distance in meters between two WGS-84
// coordinates using Vincenty's inverse formula. Planar Euclidean distance
// on degrees is meaningless at the tens-to-hundreds of kilometers this
// pipeline spans; the ellipsoidal solution is accurate to well under a
// meter, far inside the gazetteer's area-level precision.
//
// Distance is symmetric and Distance(a, a) == 0.
func Distance(a, b domain.Coordinate) (float64, error) {
	if a == b {
		return 0, nil
	}

	const (
		maxIterations = 200
		convergence   = 1e-12
	)

	f := wgs84Flattening
	semiMinor := wgs84SemiMajorM * (1 - f)

	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	deltaLon := (b.Lon - a.Lon) * math.Pi / 180

	u1 := math.Atan((1 - f) * math.Tan(phi1))
	u2 := math.Atan((1 - f) * math.Tan(phi2))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := deltaLon
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64

	converged := false
	for i := 0; i < maxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Sqrt(
			(cosU2*sinLambda)*(cosU2*sinLambda) +
				(cosU1*sinU2-sinU1*cosU2*cosLambda)*(cosU1*sinU2-sinU1*cosU2*cosLambda))
		if sinSigma == 0 {
			// Coincident points.
			return 0, nil
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)

		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha == 0 {
			// Equatorial line.
			cos2SigmaM = 0
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}

		c := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
		prev := lambda
		lambda = deltaLon + (1-c)*f*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambda-prev) < convergence {
			converged = true
			break
		}
	}
	if !converged {
		return 0, ErrDistanceNoConvergence
	}

	uSq := cosSqAlpha * (wgs84SemiMajorM*wgs84SemiMajorM - semiMinor*semiMinor) / (semiMinor * semiMinor)
	bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*
		(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return semiMinor * bigA * (sigma - deltaSigma), nil
}
