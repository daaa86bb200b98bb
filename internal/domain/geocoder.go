package domain

import (
	"context"
	"errors"
)

// ErrUnknownPostalCode reports a postal outward code absent from the
// gazetteer. Callers drop the affected row; the error never aborts a run.
var ErrUnknownPostalCode = errors.New("postal code not found in gazetteer")

// Geocoder resolves a postal code to an area-level coordinate.
type Geocoder interface {
	// Resolve truncates the postal code to its 4-character outward code
	// and looks it up. Returns ErrUnknownPostalCode (possibly wrapped)
	// when the outward code is not in the gazetteer.
	Resolve(ctx context.Context, postalCode string) (Coordinate, error)
}
