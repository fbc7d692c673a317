package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/muster/internal/adapters/tabular"
	app "github.com/okian/muster/internal/app"
	"github.com/okian/muster/internal/config"
	"github.com/okian/muster/internal/diag"
	"github.com/okian/muster/internal/domain/model"
	"github.com/okian/muster/internal/report"
	"github.com/okian/muster/pkg/logger"
	"github.com/okian/muster/pkg/metrics"
)

// Metrics server timeout constants.
const (
	readHeaderTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Initialize logging
	if err := logger.Init(); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Optional Prometheus exposition for long or repeated runs.
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, log, cfg.MetricsAddr)
	}

	collector := diag.NewCollector()
	inputs, err := loadInputs(ctx, log, cfg, collector)
	if err != nil {
		return fmt.Errorf("load inputs: %w", err)
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithTolerance(cfg.Tolerance),
		app.WithScoreRange(cfg.MinScore, cfg.MaxScore),
		app.WithWorkers(cfg.AggregationWorkers),
	)
	outcome, err := svc.Run(ctx, *inputs)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	// Boundary-layer issues (unreadable rows) belong in the same report
	// as the pipeline's own diagnostics.
	outcome.Issues = append(collector.Issues(), outcome.Issues...)

	if err := writeOutputs(cfg, outcome); err != nil {
		return err
	}

	log.Info(ctx, "run complete",
		logger.String("report", cfg.ReportPath),
		logger.String("roster", cfg.RosterPath),
		logger.Int("diagnostics", len(outcome.Issues)))
	return nil
}

// loadInputs opens every configured table. Rosters and relationship tables
// are optional: a missing file skips that table with a warning, matching
// how operators stage inputs incrementally. The position table is required.
func loadInputs(ctx context.Context, log logger.Logger, cfg *config.Config, collector *diag.Collector) (*app.Inputs, error) {
	reader := tabular.NewReader(collector)
	inputs := &app.Inputs{}

	openOptional := func(path, table string, parse func(f *os.File) error) error {
		if path == "" {
			return nil
		}
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			log.Warn(ctx, "input table missing; skipping",
				logger.String("table", table), logger.String("path", path))
			return nil
		}
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return parse(f)
	}

	if err := openOptional(cfg.OrdinaryRoster, app.TableOrdinary, func(f *os.File) error {
		rows, err := reader.Candidates(f, app.TableOrdinary)
		inputs.Ordinary = rows
		return err
	}); err != nil {
		return nil, err
	}
	if err := openOptional(cfg.InternalRoster, app.TableInternal, func(f *os.File) error {
		rows, err := reader.Candidates(f, app.TableInternal)
		inputs.Internal = rows
		return err
	}); err != nil {
		return nil, err
	}
	if err := openOptional(cfg.CoupleTable, app.TableCouples, func(f *os.File) error {
		rows, err := reader.Couples(f, app.TableCouples)
		inputs.Couples = rows
		return err
	}); err != nil {
		return nil, err
	}
	if err := openOptional(cfg.FamilyTable, app.TableFamily, func(f *os.File) error {
		rows, err := reader.Family(f, app.TableFamily)
		inputs.Family = rows
		return err
	}); err != nil {
		return nil, err
	}
	for _, path := range cfg.GroupRosters {
		if err := openOptional(path, app.TableGroups, func(f *os.File) error {
			rows, err := reader.GroupMembers(f, app.TableGroups)
			inputs.Groups = append(inputs.Groups, rows...)
			return err
		}); err != nil {
			return nil, err
		}
	}
	for _, path := range cfg.InterviewSheets {
		sheetID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := openOptional(path, sheetID, func(f *os.File) error {
			rows, err := reader.Interviews(f, sheetID)
			inputs.Sheets = append(inputs.Sheets, app.Sheet{ID: sheetID, Rows: rows})
			return err
		}); err != nil {
			return nil, err
		}
	}

	posFile, err := os.Open(cfg.PositionTable)
	if err != nil {
		return nil, fmt.Errorf("open position table %s: %w", cfg.PositionTable, err)
	}
	defer posFile.Close()
	positions, err := reader.Positions(posFile, "positions")
	if err != nil {
		return nil, err
	}
	inputs.Positions = positions

	if err := openOptional(cfg.DesignationTable, app.TableDesignations, func(f *os.File) error {
		rows, err := reader.Designations(f, app.TableDesignations)
		inputs.Designations = rows
		return err
	}); err != nil {
		return nil, err
	}

	return inputs, nil
}

// writeOutputs renders the run report and the roster CSV.
func writeOutputs(cfg *config.Config, outcome *app.Outcome) error {
	byKey := make(map[string]model.Candidate, len(outcome.Candidates))
	for _, cand := range outcome.Candidates {
		byKey[cand.Key] = cand
	}

	if err := os.MkdirAll(filepath.Dir(cfg.ReportPath), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	reportFile, err := os.Create(cfg.ReportPath)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer reportFile.Close()
	builder := report.NewBuilder()
	if err := builder.WriteSummary(reportFile, report.Input{
		Result:     outcome.Result,
		Scores:     outcome.Scores,
		Candidates: outcome.Candidates,
		Units:      outcome.Units,
		Stats:      outcome.Stats,
		Issues:     outcome.Issues,
		CrossTable: outcome.CrossTable,
	}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.RosterPath), 0o755); err != nil {
		return fmt.Errorf("create roster dir: %w", err)
	}
	rosterFile, err := os.Create(cfg.RosterPath)
	if err != nil {
		return fmt.Errorf("create roster: %w", err)
	}
	defer rosterFile.Close()
	if err := tabular.WriteRoster(rosterFile, outcome.Result, byKey); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	return nil
}

// serveMetrics exposes the custom registry until the context ends.
func serveMetrics(ctx context.Context, log logger.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn(ctx, "metrics listener stopped", logger.Error(err))
	}
}
