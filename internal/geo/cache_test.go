package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonwacht/pvyield/internal/domain"
)

// countingGeocoder records how often the inner geocoder is consulted.
type countingGeocoder struct {
	inner domain.Geocoder
	calls int
}

func (c *countingGeocoder) Resolve(ctx context.Context, postalCode string) (domain.Coordinate, error) {
	c.calls++
	return c.inner.Resolve(ctx, postalCode)
}

func TestCachedGeocoder(t *testing.T) {
	ctx := context.Background()

	t.Run("repeat lookups hit the cache", func(t *testing.T) {
		counting := &countingGeocoder{inner: testGazetteer()}
		cached := NewCachedGeocoder(counting, 10)

		first, err := cached.Resolve(ctx, "1234AB")
		require.NoError(t, err)
		second, err := cached.Resolve(ctx, "1234CD") // same outward code
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, counting.calls)

		hits, misses := cached.Stats()
		assert.Equal(t, int64(1), hits)
		assert.Equal(t, int64(1), misses)
	})

	t.Run("unknown codes are not cached", func(t *testing.T) {
		counting := &countingGeocoder{inner: testGazetteer()}
		cached := NewCachedGeocoder(counting, 10)

		_, err := cached.Resolve(ctx, "9999ZZ")
		require.ErrorIs(t, err, domain.ErrUnknownPostalCode)
		_, err = cached.Resolve(ctx, "9999ZZ")
		require.ErrorIs(t, err, domain.ErrUnknownPostalCode)

		assert.Equal(t, 2, counting.calls)
	})

	t.Run("evicts least recently used beyond capacity", func(t *testing.T) {
		inner := NewGazetteer(map[string]domain.Coordinate{
			"1111": {Lat: 1, Lon: 1},
			"2222": {Lat: 2, Lon: 2},
			"3333": {Lat: 3, Lon: 3},
		})
		counting := &countingGeocoder{inner: inner}
		cached := NewCachedGeocoder(counting, 2)

		for _, code := range []string{"1111AA", "2222AA", "3333AA"} {
			_, err := cached.Resolve(ctx, code)
			require.NoError(t, err)
		}
		// 1111 was evicted; resolving it again consults the inner geocoder.
		_, err := cached.Resolve(ctx, "1111AA")
		require.NoError(t, err)
		assert.Equal(t, 4, counting.calls)

		// 3333 is still cached.
		_, err = cached.Resolve(ctx, "3333AA")
		require.NoError(t, err)
		assert.Equal(t, 4, counting.calls)
	})
}
