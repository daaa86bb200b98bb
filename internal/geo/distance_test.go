package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonwacht/pvyield/internal/domain"
)

var (
	amsterdam = domain.Coordinate{Lat: 52.3676, Lon: 4.9041}
	deBilt    = domain.Coordinate{Lat: 52.1009, Lon: 5.1773}
)

func TestDistance_Symmetric(t *testing.T) {
	ab, err := Distance(amsterdam, deBilt)
	require.NoError(t, err)
	ba, err := Distance(deBilt, amsterdam)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
}

func TestDistance_Identity(t *testing.T) {
	d, err := Distance(amsterdam, amsterdam)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestDistance_KnownSeparations(t *testing.T) {
	t.Run("Amsterdam to De Bilt is roughly 35 km", func(t *testing.T) {
		d, err := Distance(amsterdam, deBilt)
		require.NoError(t, err)
		assert.Greater(t, d, 30_000.0)
		assert.Less(t, d, 40_000.0)
	})

	t.Run("one degree of latitude is about 111.3 km", func(t *testing.T) {
		a := domain.Coordinate{Lat: 52, Lon: 5}
		b := domain.Coordinate{Lat: 53, Lon: 5}
		d, err := Distance(a, b)
		require.NoError(t, err)
		assert.InDelta(t, 111_300, d, 500)
	})

	t.Run("same point different struct values", func(t *testing.T) {
		a := domain.Coordinate{Lat: 51.5, Lon: 4.25}
		d, err := Distance(a, domain.Coordinate{Lat: 51.5, Lon: 4.25})
		require.NoError(t, err)
		assert.Equal(t, 0.0, d)
	})
}
