package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Handydigital-dev/cmlist/categorizer"
	"github.com/Handydigital-dev/cmlist/internal/logger"
	"github.com/Handydigital-dev/cmlist/internal/metrics"
	"github.com/Handydigital-dev/cmlist/internal/talentdb"
	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const appDesc = "Categorizes talent ad-appearance notes and builds competitor reports."

var cli struct {
	Config   string `env:"CMLIST_CONFIG" help:"${env} - Path to config file" default:"config.yaml"`
	LogLevel string `help:"Log level (debug, info, warn, error); overrides the config file"`
	DBDriver string `name:"db-driver" env:"CMLIST_DB_DRIVER" help:"${env} - Talent database driver (mysql or sqlite3)"`
	DBDSN    string `name:"db-dsn" env:"CMLIST_DB_DSN" help:"${env} - Talent database DSN"`

	Categorize categorizeCmd `cmd:"" help:"Categorize a single ad note."`
	Report     reportCmd     `cmd:"" help:"Build a report from a talent CSV/TSV file."`
	Query      queryCmd      `cmd:"" help:"Search the talent database and build a report."`
	Schedule   scheduleCmd   `cmd:"" help:"Run the scheduled report job."`
	Serve      serveCmd      `cmd:"" help:"Serve the HTTP API and metrics."`
	Init       initCmd       `cmd:"" help:"Write a starter config and correspondence table."`
}

// app carries what every command needs.
type app struct {
	cfgPath  string
	cfg      categorizer.Config
	fileCfg  categorizer.Config // as loaded, before flag and env overrides
	log      logrus.FieldLogger
	registry *prometheus.Registry
	metrics  *metrics.Exporter
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("cmlist"),
		kong.Description(appDesc),
		kong.UsageOnError(),
	)

	cfg, err := categorizer.LoadConfig(cli.Config)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	fileCfg := cfg.Clone()
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.DBDriver != "" {
		cfg.Database.Driver = cli.DBDriver
	}
	if cli.DBDSN != "" {
		cfg.Database.DSN = cli.DBDSN
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	if err := logger.Setup(logger.Options{Level: cfg.Log.Level, Dir: cfg.Log.Dir}); err != nil {
		logger.Fatalf("setup logger: %v", err)
	}

	if cfg.Talents.Candidates != nil {
		categorizer.SetColumnCandidates(*cfg.Talents.Candidates)
	}

	registry := prometheus.NewRegistry()
	a := &app{
		cfgPath:  cli.Config,
		cfg:      cfg,
		fileCfg:  fileCfg,
		log:      logger.FieldLogger(),
		registry: registry,
		metrics:  metrics.NewExporter(registry),
	}
	if err := kctx.Run(a); err != nil {
		logger.Fatalf("%s: %v", kctx.Command(), err)
	}
}

// service loads the correspondence table (tablePath overrides the config)
// and builds the categorizer service.
func (a *app) service(tablePath string) (*categorizer.Service, error) {
	if tablePath != "" {
		a.cfg.Table.Path = tablePath
	}
	table, dups, err := categorizer.LoadCorrespondenceTable(a.cfg.Table.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Errorf("correspondence table %s not found; run `cmlist init` to create one", a.cfg.Table.Path)
		}
		return nil, err
	}
	for _, d := range dups {
		logger.Warnf("duplicate input label %q -> %q ignored", d.Input, d.Output)
	}
	for _, out := range table.NonCanonicalOutputs() {
		logger.Warnf("output category %q is not a report column", out)
	}
	logger.Infof("Loaded %d correspondence entries from %s", table.Len(), a.cfg.Table.Path)
	return categorizer.NewService(a.cfg, table, a.log, a.metrics)
}

func (a *app) openDB(ctx context.Context) (*talentdb.Repository, error) {
	return talentdb.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN, talentdb.WithObserver(a.metrics))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
