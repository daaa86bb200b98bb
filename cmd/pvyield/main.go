// Command pvyield assembles the PV yield supervised-learning dataset from
// spreadsheet extracts, checkpoints it to SQLite, and scores the legacy
// yield formula against it.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/zonwacht/pvyield/internal/assemble"
	"github.com/zonwacht/pvyield/internal/baseline"
	"github.com/zonwacht/pvyield/internal/geo"
	"github.com/zonwacht/pvyield/internal/observability"
	"github.com/zonwacht/pvyield/internal/pipeline"
	"github.com/zonwacht/pvyield/internal/source"
	"github.com/zonwacht/pvyield/internal/store"
)

type globals struct {
	LogLevel  string `help:"Log level: debug, info, warn, error." default:"info" env:"LOG_LEVEL"`
	LogFormat string `help:"Log format: text or json." default:"text" env:"LOG_FORMAT"`
}

type assembleCmd struct {
	Installations string `help:"Installation registry CSV." required:"" env:"PVYIELD_INSTALLATIONS"`
	Stations      string `help:"Weather-station registry CSV." required:"" env:"PVYIELD_STATIONS"`
	Weather       string `help:"Daily weather observations CSV." required:"" env:"PVYIELD_WEATHER"`
	Yields        string `help:"Daily yield observations CSV." required:"" env:"PVYIELD_YIELDS"`
	Gazetteer     string `help:"Postal outward-code gazetteer CSV." required:"" env:"PVYIELD_GAZETTEER"`

	DB               string        `help:"SQLite checkpoint database path." default:"data/pvyield.db" env:"PVYIELD_DB"`
	SampleStep       time.Duration `help:"Sun-position sampling cadence." default:"10m" env:"PVYIELD_SAMPLE_STEP"`
	Workers          int           `help:"Enrichment worker count." default:"4" env:"PVYIELD_WORKERS"`
	GeocodeCacheSize int           `help:"Geocoder LRU cache entries." default:"1000" env:"PVYIELD_GEOCODE_CACHE_SIZE"`
	MetricsAddr      string        `help:"Serve /metrics and /healthz on this address during the run." env:"METRICS_ADDR"`
	NoPersist        bool          `help:"Assemble without writing the checkpoint."`
	ExportCSV        string        `help:"Also write the assembled dataset to this CSV path."`
}

func (c *assembleCmd) Run(g *globals) error {
	logger := observability.NewLogger(g.LogLevel, g.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.MetricsAddr != "" {
		srv := observability.NewServer(c.MetricsAddr, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	gaz, err := geo.LoadGazetteer(c.Gazetteer)
	if err != nil {
		return err
	}
	logger.Info("gazetteer loaded", "outward_codes", gaz.Len())
	geocoder := geo.NewCachedGeocoder(gaz, c.GeocodeCacheSize)

	reader := &source.CSVReader{
		InstallationsPath: c.Installations,
		StationsPath:      c.Stations,
		WeatherPath:       c.Weather,
		YieldsPath:        c.Yields,
	}
	assembler := assemble.New(geocoder, logger, c.SampleStep, c.Workers)

	var persister pipeline.Persister
	if !c.NoPersist {
		st, err := store.Open(c.DB, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		persister = st
	}

	p := pipeline.New(reader, assembler, persister, geocoder, logger, metrics)
	id, ds, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if c.ExportCSV != "" {
		if err := exportDataset(ds, c.ExportCSV); err != nil {
			return err
		}
		logger.Info("dataset exported", "path", c.ExportCSV)
	}

	fmt.Printf("dataset %d: %d rows, %d columns, fingerprint %s\n",
		id, len(ds.Rows), len(ds.Schema.Columns), ds.Schema.Fingerprint)
	printReport(ds.Report)
	return nil
}

type exportCmd struct {
	DB      string `help:"SQLite checkpoint database path." default:"data/pvyield.db" env:"PVYIELD_DB"`
	Dataset int64  `help:"Dataset run ID (0 = latest)."`
	Out     string `help:"Output CSV path, '-' for stdout." default:"-"`
}

func (c *exportCmd) Run(g *globals) error {
	logger := observability.NewLogger(g.LogLevel, g.LogFormat)

	st, err := store.Open(c.DB, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ds, err := loadDataset(st, c.Dataset)
	if err != nil {
		return err
	}

	if c.Out == "-" {
		return ds.WriteCSV(os.Stdout)
	}
	return exportDataset(ds, c.Out)
}

type baselineCmd struct {
	DB      string `help:"SQLite checkpoint database path." default:"data/pvyield.db" env:"PVYIELD_DB"`
	Dataset int64  `help:"Dataset run ID (0 = latest)."`
}

func (c *baselineCmd) Run(g *globals) error {
	logger := observability.NewLogger(g.LogLevel, g.LogFormat)

	st, err := store.Open(c.DB, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ds, err := loadDataset(st, c.Dataset)
	if err != nil {
		return err
	}

	eval, err := baseline.Evaluate(ds)
	if err != nil {
		return err
	}

	fmt.Printf("legacy formula vs measured yield over %d rows (fingerprint %s)\n",
		eval.Rows, ds.Schema.Fingerprint)
	fmt.Printf("  MAE       %.3f kWh\n", eval.MAE)
	fmt.Printf("  RMSE      %.3f kWh\n", eval.RMSE)
	fmt.Printf("  mean bias %+.3f kWh\n", eval.MeanBias)
	return nil
}

func loadDataset(st *store.Store, id int64) (*assemble.Dataset, error) {
	if id == 0 {
		latest, err := st.LatestDatasetID()
		if err != nil {
			return nil, err
		}
		id = latest
	}
	return st.LoadDataset(id)
}

func exportDataset(ds *assemble.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := ds.WriteCSV(f); err != nil {
		return err
	}
	return f.Close()
}

func printReport(r assemble.Report) {
	fmt.Printf("  yield rows in            %d\n", r.YieldRowsIn)
	fmt.Printf("  rows assembled           %d\n", r.RowsAssembled)
	if r.Dropped() == 0 {
		return
	}
	fmt.Printf("  dropped:\n")
	for _, line := range []struct {
		reason string
		n      int
	}{
		{"unknown installation", r.DroppedUnknownInstallation},
		{"unresolvable location", r.DroppedUnresolvableLocation},
		{"unknown station", r.DroppedUnknownStation},
		{"distance failure", r.DroppedDistanceFailure},
		{"missing weather", r.DroppedMissingWeather},
		{"no daylight interval", r.DroppedNoDaylight},
		{"duplicate key", r.DroppedDuplicateKey},
	} {
		if line.n > 0 {
			fmt.Printf("    %-22s %d\n", line.reason, line.n)
		}
	}
}

func main() {
	var cli struct {
		globals

		Assemble assembleCmd `cmd:"" help:"Clean, join, and enrich the source tables into a dataset."`
		Export   exportCmd   `cmd:"" help:"Write a persisted dataset as training-ready CSV."`
		Baseline baselineCmd `cmd:"" help:"Score the legacy yield formula against a persisted dataset."`
	}

	kctx := kong.Parse(&cli,
		kong.Name("pvyield"),
		kong.Description("PV installation daily-yield dataset assembly pipeline."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli.globals))
}
