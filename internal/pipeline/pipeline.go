// Package pipeline orchestrates the extract-clean-assemble-persist run.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/zonwacht/pvyield/internal/assemble"
	"github.com/zonwacht/pvyield/internal/domain"
	"github.com/zonwacht/pvyield/internal/geo"
	"github.com/zonwacht/pvyield/internal/observability"
)

// SourceReader loads the four raw source tables.
type SourceReader interface {
	ReadSources(ctx context.Context) (domain.RawSources, error)
}

// Persister writes an assembled dataset to durable storage and returns its
// run ID. Persistence is the caller's policy: a nil Persister means
// build-only.
type Persister interface {
	SaveDataset(ds *assemble.Dataset) (int64, error)
}

// Pipeline wires the stages together with logging and metrics.
type Pipeline struct {
	reader    SourceReader
	assembler *assemble.Assembler
	persister Persister
	geocache  *geo.CachedGeocoder // optional, for cache hit/miss metrics
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline. geocache may be nil when the geocoder is not
// wrapped in a cache.
func New(reader SourceReader, assembler *assemble.Assembler, persister Persister, geocache *geo.CachedGeocoder, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		reader:    reader,
		assembler: assembler,
		persister: persister,
		geocache:  geocache,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes one full pipeline pass and returns the persisted dataset ID
// (0 when no persister is configured) and the assembled dataset.
func (p *Pipeline) Run(ctx context.Context) (int64, *assemble.Dataset, error) {
	start := time.Now()

	raw, err := p.reader.ReadSources(ctx)
	if err != nil {
		return 0, nil, err
	}
	p.logger.Info("sources loaded",
		"installations", len(raw.Installations),
		"stations", len(raw.Stations),
		"weather", len(raw.Weather),
		"yields", len(raw.Yields),
	)

	clean := domain.CleanAll(raw, p.logger)
	p.recordCleanMetrics(clean)

	p.metrics.YieldRowsIn.Add(float64(len(clean.Yields)))

	ds, err := p.assembler.Build(ctx, clean)
	if err != nil {
		return 0, nil, err
	}
	p.recordAssemblyMetrics(ds)
	p.metrics.AssemblyDuration.Observe(time.Since(start).Seconds())

	var id int64
	if p.persister != nil {
		if id, err = p.persister.SaveDataset(ds); err != nil {
			return 0, nil, err
		}
	}

	p.logger.Info("pipeline run complete",
		"dataset_id", id,
		"rows", len(ds.Rows),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return id, ds, nil
}

func (p *Pipeline) recordCleanMetrics(src domain.CleanSources) {
	drops := map[string]int{
		"installations": src.InstallationReport.RowsDroppedMissing,
		"stations":      src.StationReport.RowsDroppedMissing,
		"weather":       src.WeatherReport.RowsDroppedMissing,
		"yields":        src.YieldReport.RowsDroppedMissing,
	}
	for table, n := range drops {
		if n > 0 {
			p.metrics.RowsDropped.WithLabelValues("clean", "missing_fields_"+table).Add(float64(n))
		}
	}
}

func (p *Pipeline) recordAssemblyMetrics(ds *assemble.Dataset) {
	r := ds.Report
	drops := map[string]int{
		"unknown_installation":  r.DroppedUnknownInstallation,
		"unresolvable_location": r.DroppedUnresolvableLocation,
		"unknown_station":       r.DroppedUnknownStation,
		"distance_failure":      r.DroppedDistanceFailure,
		"missing_weather":       r.DroppedMissingWeather,
		"no_daylight":           r.DroppedNoDaylight,
		"duplicate_key":         r.DroppedDuplicateKey,
	}
	for reason, n := range drops {
		if n > 0 {
			p.metrics.RowsDropped.WithLabelValues("assemble", reason).Add(float64(n))
		}
	}
	p.metrics.RowsAssembled.Add(float64(r.RowsAssembled))
	p.metrics.DatasetColumns.Set(float64(len(ds.Schema.Columns)))

	if p.geocache != nil {
		hits, misses := p.geocache.Stats()
		p.metrics.GeocodeCache.WithLabelValues("hit").Add(float64(hits))
		p.metrics.GeocodeCache.WithLabelValues("miss").Add(float64(misses))
		p.logger.Debug("geocode cache stats", "hits", hits, "misses", misses)
	}
}
