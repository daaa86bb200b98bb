package assemble

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/zonwacht/pvyield/internal/domain"
	"github.com/zonwacht/pvyield/internal/geo"
	"github.com/zonwacht/pvyield/internal/solar"
)

// Row is one assembled observation: the (installation, date) key, the
// feature vector in schema column order, and the measured target.
type Row struct {
	InstallationID string
	Date           time.Time
	Features       []float64
	YieldKWh       float64
}

// Report counts assembly outcomes by exclusion reason. All exclusions are
// row-level and recoverable; none aborts a run.
type Report struct {
	YieldRowsIn                 int
	RowsAssembled               int
	DroppedUnknownInstallation  int
	DroppedUnresolvableLocation int
	DroppedUnknownStation       int
	DroppedDistanceFailure      int
	DroppedMissingWeather       int
	DroppedNoDaylight           int
	DroppedDuplicateKey         int
}

// Dropped returns the total number of excluded candidate rows.
func (r Report) Dropped() int {
	return r.DroppedUnknownInstallation + r.DroppedUnresolvableLocation +
		r.DroppedUnknownStation + r.DroppedDistanceFailure +
		r.DroppedMissingWeather + r.DroppedNoDaylight + r.DroppedDuplicateKey
}

// Dataset is the terminal artifact of the pipeline: the schema, the rows,
// and the assembly audit report. It contains no nulls by construction and
// its (installation, date) keys are unique.
type Dataset struct {
	Schema      Schema
	Rows        []Row
	Report      Report
	AssembledAt time.Time
}

// Assembler builds a Dataset from cleaned sources. The enrichment stage
// (sun-position integration) is a pure per-row computation fanned out over
// a small worker pool.
type Assembler struct {
	geocoder   domain.Geocoder
	logger     *slog.Logger
	sampleStep time.Duration
	workers    int
}

// New creates an Assembler. workers <= 0 means a single worker; step <= 0
// selects solar.DefaultSampleStep.
func New(geocoder domain.Geocoder, logger *slog.Logger, step time.Duration, workers int) *Assembler {
	if step <= 0 {
		step = solar.DefaultSampleStep
	}
	if workers <= 0 {
		workers = 1
	}
	return &Assembler{
		geocoder:   geocoder,
		logger:     logger,
		sampleStep: step,
		workers:    workers,
	}
}

// instEnrichment holds the once-per-installation derived values: resolved
// coordinate and distance to the assigned station. The station assignment
// is static across dates, so these are computed once and reused.
type instEnrichment struct {
	inst      domain.Installation
	coord     domain.Coordinate
	distanceM float64
	// dropReason is non-empty when the installation cannot be enriched;
	// every yield row referencing it is excluded for that reason.
	dropReason string
}

const (
	reasonUnresolvable = "unresolvable_location"
	reasonNoStation    = "unknown_station"
	reasonDistance     = "distance_failure"
)

// candidate is a yield row that survived all joins and awaits solar
// enrichment.
type candidate struct {
	yield   domain.YieldObservation
	inst    *instEnrichment
	weather domain.WeatherObservation
}

// sunPosition is the per-candidate solar enrichment result.
type sunPosition struct {
	azimuthDeg  float64
	altitudeDeg float64
	err         error
}

// Build assembles the dataset. Yield observations drive: every measured
// yield row is a candidate output row, excluded only by join misses or
// failed enrichment. The returned dataset satisfies the key-uniqueness and
// no-null invariants.
func (a *Assembler) Build(ctx context.Context, src domain.CleanSources) (*Dataset, error) {
	report := Report{YieldRowsIn: len(src.Yields)}

	stations := make(map[string]domain.WeatherStation, len(src.Stations))
	for _, st := range src.Stations {
		stations[st.ID] = st
	}
	weather := make(map[string]domain.WeatherObservation, len(src.Weather))
	for _, w := range src.Weather {
		weather[w.StationID+"|"+domain.DateKey(w.Date)] = w
	}

	enriched := a.enrichInstallations(ctx, src.Installations, stations)

	// Join pass. Order follows the yield table; duplicates keep the first
	// occurrence so the (installation, date) key stays unique.
	seen := make(map[string]struct{}, len(src.Yields))
	candidates := make([]candidate, 0, len(src.Yields))
	for _, y := range src.Yields {
		key := y.InstallationID + "|" + domain.DateKey(y.Date)
		if _, dup := seen[key]; dup {
			report.DroppedDuplicateKey++
			continue
		}
		seen[key] = struct{}{}

		ie, ok := enriched[y.InstallationID]
		if !ok {
			report.DroppedUnknownInstallation++
			continue
		}
		switch ie.dropReason {
		case "":
		case reasonUnresolvable:
			report.DroppedUnresolvableLocation++
			continue
		case reasonNoStation:
			report.DroppedUnknownStation++
			continue
		case reasonDistance:
			report.DroppedDistanceFailure++
			continue
		}

		w, ok := weather[ie.inst.StationID+"|"+domain.DateKey(y.Date)]
		if !ok {
			report.DroppedMissingWeather++
			continue
		}
		candidates = append(candidates, candidate{yield: y, inst: ie, weather: w})
	}

	positions, err := a.enrichSolar(ctx, candidates)
	if err != nil {
		return nil, err
	}

	kept := make([]candidate, 0, len(candidates))
	keptPos := make([]sunPosition, 0, len(candidates))
	for i, c := range candidates {
		if positions[i].err != nil {
			if errors.Is(positions[i].err, solar.ErrNoDaylight) {
				report.DroppedNoDaylight++
				a.logger.Warn("no daylight interval, dropping row",
					"installation_id", c.yield.InstallationID,
					"date", domain.DateKey(c.yield.Date),
					"error", positions[i].err,
				)
				continue
			}
			return nil, positions[i].err
		}
		kept = append(kept, c)
		keptPos = append(keptPos, positions[i])
	}

	schema, numeric := a.buildSchema(kept, src.InstallationReport)

	rows := make([]Row, len(kept))
	for i, c := range kept {
		rows[i] = Row{
			InstallationID: c.yield.InstallationID,
			Date:           c.yield.Date,
			Features:       encodeFeatures(schema, numeric, c, keptPos[i]),
			YieldKWh:       c.yield.YieldKWh,
		}
	}
	report.RowsAssembled = len(rows)

	a.logger.Info("dataset assembled",
		"rows", report.RowsAssembled,
		"dropped", report.Dropped(),
		"columns", len(schema.Columns),
		"fingerprint", schema.Fingerprint,
	)

	return &Dataset{
		Schema:      schema,
		Rows:        rows,
		Report:      report,
		AssembledAt: domain.Clock().Now().UTC(),
	}, nil
}

// enrichInstallations resolves each installation's coordinate and station
// distance once. Failures are recorded per installation, not returned, so
// the drop policy applies per dependent yield row.
func (a *Assembler) enrichInstallations(ctx context.Context, insts []domain.Installation, stations map[string]domain.WeatherStation) map[string]*instEnrichment {
	out := make(map[string]*instEnrichment, len(insts))
	for _, inst := range insts {
		ie := &instEnrichment{inst: inst}
		out[inst.ID] = ie

		coord, err := a.geocoder.Resolve(ctx, inst.PostalCode)
		if err != nil {
			a.logger.Warn("postal code not resolvable",
				"installation_id", inst.ID,
				"postal_code", inst.PostalCode,
				"error", err,
			)
			ie.dropReason = reasonUnresolvable
			continue
		}
		ie.coord = coord

		st, ok := stations[inst.StationID]
		if !ok {
			a.logger.Warn("assigned weather station not in registry",
				"installation_id", inst.ID,
				"station_id", inst.StationID,
			)
			ie.dropReason = reasonNoStation
			continue
		}

		dist, err := geo.Distance(coord, st.Location)
		if err != nil {
			a.logger.Warn("distance computation failed",
				"installation_id", inst.ID,
				"station_id", inst.StationID,
				"error", err,
			)
			ie.dropReason = reasonDistance
			continue
		}
		ie.distanceM = dist
	}
	return out
}

// enrichSolar computes the average daylight sun position for every
// candidate. Each (date, coordinate) computation is independent, so the
// work fans out across the configured worker count; result order matches
// the candidate order.
func (a *Assembler) enrichSolar(ctx context.Context, candidates []candidate) ([]sunPosition, error) {
	positions := make([]sunPosition, len(candidates))
	indices := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < a.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				c := candidates[i]
				az, alt, err := solar.AverageDaylightPosition(
					c.yield.Date, c.inst.coord.Lat, c.inst.coord.Lon, a.sampleStep)
				positions[i] = sunPosition{azimuthDeg: az, altitudeDeg: alt, err: err}
			}
		}()
	}

	var cancelled error
feed:
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break feed
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}
	return positions, nil
}

// numericColumn pairs a column name with its per-row extractor, keeping the
// schema and the encoded feature vectors in lockstep by construction.
type numericColumn struct {
	name  string
	value func(c candidate, sun sunPosition) float64
}

// buildSchema derives the column set from the rows being assembled: the
// fixed numeric features (minus columns the cleaner proved redundant or
// constant) plus one indicator column per categorical level observed at
// assembly time.
func (a *Assembler) buildSchema(kept []candidate, instReport domain.InstallationCleanReport) (Schema, []numericColumn) {
	numeric := []numericColumn{
		{ColPanelCount, func(c candidate, _ sunPosition) float64 { return c.inst.inst.PanelCount }},
		{ColPanelOutputWp, func(c candidate, _ sunPosition) float64 { return c.inst.inst.PanelOutputWp }},
	}
	// A stored total that failed derived-column verification carries real
	// information and stays in the feature set; a verified one is redundant.
	if !instReport.PanelTotalDerivable {
		numeric = append(numeric, numericColumn{ColTotalPanelOutputWp,
			func(c candidate, _ sunPosition) float64 { return c.inst.inst.TotalPanelOutputWp }})
	}
	numeric = append(numeric,
		numericColumn{ColInverterCount, func(c candidate, _ sunPosition) float64 { return c.inst.inst.InverterCount }},
		numericColumn{ColInverterPowerW, func(c candidate, _ sunPosition) float64 { return c.inst.inst.InverterPowerW }},
	)
	if !instReport.InverterTotalDerivable {
		numeric = append(numeric, numericColumn{ColTotalInverterPowerW,
			func(c candidate, _ sunPosition) float64 { return c.inst.inst.TotalInverterPowerW }})
	}
	numeric = append(numeric,
		numericColumn{ColOrientationDeg, func(c candidate, _ sunPosition) float64 { return c.inst.inst.OrientationDeg }},
		numericColumn{ColInclinationDeg, func(c candidate, _ sunPosition) float64 { return c.inst.inst.InclinationDeg }},
		numericColumn{ColGeometricYield, func(c candidate, _ sunPosition) float64 { return c.inst.inst.GeometricYield }},
		numericColumn{ColRadiationFreedom, func(c candidate, _ sunPosition) float64 { return c.inst.inst.RadiationFreedom }},
	)
	if !instReport.EfficiencyConstant {
		numeric = append(numeric, numericColumn{ColEfficiency,
			func(c candidate, _ sunPosition) float64 { return c.inst.inst.Efficiency }})
	}
	numeric = append(numeric,
		numericColumn{ColLatitude, func(c candidate, _ sunPosition) float64 { return c.inst.coord.Lat }},
		numericColumn{ColLongitude, func(c candidate, _ sunPosition) float64 { return c.inst.coord.Lon }},
		numericColumn{ColStationDistanceM, func(c candidate, _ sunPosition) float64 { return c.inst.distanceM }},
		numericColumn{ColAvgSunAzimuthDeg, func(_ candidate, sun sunPosition) float64 { return sun.azimuthDeg }},
		numericColumn{ColAvgSunAltitudeDeg, func(_ candidate, sun sunPosition) float64 { return sun.altitudeDeg }},
		numericColumn{ColMeanTempC, func(c candidate, _ sunPosition) float64 { return c.weather.MeanTempC }},
		numericColumn{ColMinTempC, func(c candidate, _ sunPosition) float64 { return c.weather.MinTempC }},
		numericColumn{ColMaxTempC, func(c candidate, _ sunPosition) float64 { return c.weather.MaxTempC }},
		numericColumn{ColGlobalRadiation, func(c candidate, _ sunPosition) float64 { return c.weather.Radiation }},
	)

	panelModels := distinctSorted(kept, func(c candidate) string { return c.inst.inst.PanelModel })
	inverterModels := distinctSorted(kept, func(c candidate) string { return c.inst.inst.InverterModel })

	columns := make([]string, 0, len(numeric)+len(panelModels)+len(inverterModels))
	for _, nc := range numeric {
		columns = append(columns, nc.name)
	}
	for _, m := range panelModels {
		columns = append(columns, panelModelPrefix+m)
	}
	for _, m := range inverterModels {
		columns = append(columns, inverterModelPrefix+m)
	}

	schema := Schema{
		Columns:        columns,
		PanelModels:    panelModels,
		InverterModels: inverterModels,
		SampleStep:     a.sampleStep.String(),
	}
	schema.Fingerprint = fingerprint(schema.Columns, schema.SampleStep)
	return schema, numeric
}

// encodeFeatures produces the feature vector for one row in schema order:
// numeric columns first, then one-hot indicators.
func encodeFeatures(schema Schema, numeric []numericColumn, c candidate, sun sunPosition) []float64 {
	features := make([]float64, 0, len(schema.Columns))
	for _, nc := range numeric {
		features = append(features, nc.value(c, sun))
	}
	for _, m := range schema.PanelModels {
		features = append(features, indicator(c.inst.inst.PanelModel == m))
	}
	for _, m := range schema.InverterModels {
		features = append(features, indicator(c.inst.inst.InverterModel == m))
	}
	return features
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func distinctSorted(kept []candidate, field func(candidate) string) []string {
	set := make(map[string]struct{})
	for _, c := range kept {
		if v := field(c); v != "" {
			set[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
