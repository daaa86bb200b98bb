// Package baseline reimplements the legacy closed-form yield formula and
// scores it against measured yield. It exists purely as an evaluation
// reference for the learned model; its output never feeds the feature set.
package baseline

import (
	"fmt"
	"math"

	"github.com/zonwacht/pvyield/internal/assemble"
)

// DefaultSystemEfficiency is the system efficiency used by the legacy
// formula. The registry's efficiency column holds this value for every
// installation (verified by the cleaner's constant-column check), so it is
// a named constant rather than a per-row input.
const DefaultSystemEfficiency = 0.86

// LegacyYield computes the legacy daily yield estimate in kWh, rounded to
// two decimals as the original formula specifies.
func LegacyYield(radiation, panelCount, panelOutput, efficiency, geometricYield, radiationFreedom float64) float64 {
	kwh := (radiation / 360 * panelCount * panelOutput * efficiency * geometricYield * radiationFreedom) / 1000
	return math.Round(kwh*100) / 100
}

// Evaluation summarizes how the legacy formula tracks measured yield.
type Evaluation struct {
	Rows     int
	MAE      float64
	RMSE     float64
	MeanBias float64 // mean of (legacy − measured); positive means overprediction
}

// Evaluate scores the legacy formula on every row of an assembled dataset.
// The formula's inputs are read back out of the feature columns; a dataset
// missing any of them cannot be evaluated.
func Evaluate(ds *assemble.Dataset) (Evaluation, error) {
	if len(ds.Rows) == 0 {
		return Evaluation{}, fmt.Errorf("dataset has no rows")
	}

	cols := []string{
		assemble.ColGlobalRadiation,
		assemble.ColPanelCount,
		assemble.ColPanelOutputWp,
		assemble.ColGeometricYield,
		assemble.ColRadiationFreedom,
	}
	idx := make(map[string]int, len(cols))
	for _, name := range cols {
		i, ok := ds.Schema.ColumnIndex(name)
		if !ok {
			return Evaluation{}, fmt.Errorf("dataset missing required column %q", name)
		}
		idx[name] = i
	}

	// Efficiency is usually constant and therefore absent from the schema;
	// fall back to the documented constant when the column is not present.
	effIdx, hasEff := ds.Schema.ColumnIndex(assemble.ColEfficiency)

	var sumAbs, sumSq, sumBias float64
	for _, row := range ds.Rows {
		efficiency := DefaultSystemEfficiency
		if hasEff {
			efficiency = row.Features[effIdx]
		}
		predicted := LegacyYield(
			row.Features[idx[assemble.ColGlobalRadiation]],
			row.Features[idx[assemble.ColPanelCount]],
			row.Features[idx[assemble.ColPanelOutputWp]],
			efficiency,
			row.Features[idx[assemble.ColGeometricYield]],
			row.Features[idx[assemble.ColRadiationFreedom]],
		)
		diff := predicted - row.YieldKWh
		sumAbs += math.Abs(diff)
		sumSq += diff * diff
		sumBias += diff
	}

	n := float64(len(ds.Rows))
	return Evaluation{
		Rows:     len(ds.Rows),
		MAE:      sumAbs / n,
		RMSE:     math.Sqrt(sumSq / n),
		MeanBias: sumBias / n,
	}, nil
}
