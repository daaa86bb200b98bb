package geo

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonwacht/pvyield/internal/domain"
)

func testGazetteer() *Gazetteer {
	return NewGazetteer(map[string]domain.Coordinate{
		"1234": {Lat: 52.37, Lon: 4.90},
		"3731": {Lat: 52.11, Lon: 5.18},
	})
}

func TestGazetteer_Resolve(t *testing.T) {
	gaz := testGazetteer()
	ctx := context.Background()

	t.Run("truncates postal code to outward code", func(t *testing.T) {
		coord, err := gaz.Resolve(ctx, "1234AB")
		require.NoError(t, err)
		assert.Equal(t, domain.Coordinate{Lat: 52.37, Lon: 4.90}, coord)
	})

	t.Run("normalizes case and whitespace", func(t *testing.T) {
		coord, err := gaz.Resolve(ctx, "  1234ab ")
		require.NoError(t, err)
		assert.Equal(t, 52.37, coord.Lat)
	})

	t.Run("unknown outward code", func(t *testing.T) {
		_, err := gaz.Resolve(ctx, "9999XY")
		require.ErrorIs(t, err, domain.ErrUnknownPostalCode)
	})

	t.Run("code shorter than outward length", func(t *testing.T) {
		_, err := gaz.Resolve(ctx, "12")
		require.ErrorIs(t, err, domain.ErrUnknownPostalCode)
	})

	t.Run("deterministic for fixed gazetteer", func(t *testing.T) {
		first, err := gaz.Resolve(ctx, "3731HA")
		require.NoError(t, err)
		second, err := gaz.Resolve(ctx, "3731HA")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestReadGazetteer(t *testing.T) {
	t.Run("parses header and rows", func(t *testing.T) {
		data := "outward_code,latitude,longitude\n1234,52.37,4.90\n5611,51.44,5.48\n"
		gaz, err := ReadGazetteer(strings.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 2, gaz.Len())

		coord, err := gaz.Resolve(context.Background(), "5611AZ")
		require.NoError(t, err)
		assert.Equal(t, 51.44, coord.Lat)
	})

	t.Run("duplicate codes keep the first occurrence", func(t *testing.T) {
		data := "outward_code,latitude,longitude\n1234,52.37,4.90\n1234,0.0,0.0\n"
		gaz, err := ReadGazetteer(strings.NewReader(data))
		require.NoError(t, err)

		coord, err := gaz.Resolve(context.Background(), "1234AB")
		require.NoError(t, err)
		assert.Equal(t, 52.37, coord.Lat)
	})

	t.Run("invalid coordinate is an error", func(t *testing.T) {
		data := "outward_code,latitude,longitude\n1234,not-a-number,4.90\n"
		_, err := ReadGazetteer(strings.NewReader(data))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid coordinate")
	})

	t.Run("empty input is an error", func(t *testing.T) {
		_, err := ReadGazetteer(strings.NewReader(""))
		require.Error(t, err)
	})
}
