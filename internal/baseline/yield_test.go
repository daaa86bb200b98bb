package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonwacht/pvyield/internal/assemble"
)

func TestLegacyYield(t *testing.T) {
	t.Run("rounds to two decimals", func(t *testing.T) {
		// (180/360 * 10 * 0.3 * 0.86 * 0.95 * 0.98) / 1000 ≈ 0.0012
		got := LegacyYield(180, 10, 0.3, 0.86, 0.95, 0.98)
		assert.Equal(t, 0.0, got)
	})

	t.Run("typical summer day", func(t *testing.T) {
		// (2880/360 * 10 * 300 * 0.86 * 0.95 * 0.98) / 1000 = 19.21584
		got := LegacyYield(2880, 10, 300, 0.86, 0.95, 0.98)
		assert.Equal(t, 19.22, got)
	})

	t.Run("zero radiation yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, LegacyYield(0, 10, 300, 0.86, 0.95, 0.98))
	})

	t.Run("scales linearly with panel count", func(t *testing.T) {
		one := LegacyYield(2880, 1, 300, 0.86, 0.95, 0.98)
		ten := LegacyYield(2880, 10, 300, 0.86, 0.95, 0.98)
		assert.InDelta(t, 10*one, ten, 0.05)
	})
}

func evalDataset(rows []assemble.Row) *assemble.Dataset {
	return &assemble.Dataset{
		Schema: assemble.Schema{
			Columns: []string{
				assemble.ColGlobalRadiation,
				assemble.ColPanelCount,
				assemble.ColPanelOutputWp,
				assemble.ColGeometricYield,
				assemble.ColRadiationFreedom,
			},
		},
		Rows: rows,
	}
}

func TestEvaluate(t *testing.T) {
	features := []float64{2880, 10, 300, 0.95, 0.98} // legacy estimate 19.22

	t.Run("perfect prediction scores zero error", func(t *testing.T) {
		ds := evalDataset([]assemble.Row{
			{InstallationID: "A1", Features: features, YieldKWh: 19.22},
		})
		eval, err := Evaluate(ds)
		require.NoError(t, err)
		assert.Equal(t, 1, eval.Rows)
		assert.InDelta(t, 0, eval.MAE, 1e-9)
		assert.InDelta(t, 0, eval.RMSE, 1e-9)
		assert.InDelta(t, 0, eval.MeanBias, 1e-9)
	})

	t.Run("bias is signed, mae is not", func(t *testing.T) {
		ds := evalDataset([]assemble.Row{
			{InstallationID: "A1", Features: features, YieldKWh: 19.22},
			{InstallationID: "A2", Features: features, YieldKWh: 18.22},
		})
		eval, err := Evaluate(ds)
		require.NoError(t, err)
		assert.Equal(t, 2, eval.Rows)
		assert.InDelta(t, 0.5, eval.MAE, 1e-9)
		assert.InDelta(t, 0.70710678, eval.RMSE, 1e-6)
		assert.InDelta(t, 0.5, eval.MeanBias, 1e-9)
	})

	t.Run("uses the efficiency column when present", func(t *testing.T) {
		ds := evalDataset(nil)
		ds.Schema.Columns = append(ds.Schema.Columns, assemble.ColEfficiency)
		// Half the constant efficiency halves the estimate to 9.61.
		ds.Rows = []assemble.Row{
			{InstallationID: "A1", Features: append(append([]float64{}, features...), 0.43), YieldKWh: 9.61},
		}
		eval, err := Evaluate(ds)
		require.NoError(t, err)
		assert.InDelta(t, 0, eval.MAE, 1e-9)
	})

	t.Run("empty dataset is an error", func(t *testing.T) {
		_, err := Evaluate(evalDataset(nil))
		require.Error(t, err)
	})

	t.Run("missing input column is an error", func(t *testing.T) {
		ds := evalDataset([]assemble.Row{{Features: features}})
		ds.Schema.Columns = ds.Schema.Columns[:3]
		_, err := Evaluate(ds)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required column")
	})
}
