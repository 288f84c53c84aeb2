package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/tableclean/internal/config"
	"github.com/JonMunkholm/tableclean/internal/export"
	"github.com/JonMunkholm/tableclean/internal/extract"
	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/JonMunkholm/tableclean/internal/logging"
	"github.com/JonMunkholm/tableclean/internal/normalize"
	"github.com/JonMunkholm/tableclean/internal/outlier"
	"github.com/JonMunkholm/tableclean/internal/skew"
	"github.com/google/uuid"
)

// ErrNoDatabase is returned when a run reads or writes a table but the
// service was created without a database.
var ErrNoDatabase = errors.New("no database configured")

// Store is the database surface the service needs.
// Satisfied by *pgxpool.Pool.
type Store interface {
	extract.DBTX
	extract.Beginner
}

// Service runs cleaning plans against the database or local files.
type Service struct {
	db       Store // nil for file-only use
	exporter *export.Exporter
	clean    config.CleanConfig
	limiter  *RunLimiter
}

// NewService creates a Service. db may be nil when every plan reads a file
// and none writes back.
func NewService(db Store, exporter *export.Exporter, clean config.CleanConfig) *Service {
	if exporter == nil {
		exporter = export.NewExporter(nil)
	}
	return &Service{
		db:       db,
		exporter: exporter,
		clean:    clean,
		limiter:  NewRunLimiter(clean.MaxConcurrent, clean.MaxWaitTime),
	}
}

// Limiter exposes the run limiter for health reporting and shutdown.
func (s *Service) Limiter() *RunLimiter {
	return s.limiter
}

// RunReport is the outcome of one cleaning run.
type RunReport struct {
	RunID       string             `json:"run_id"`
	Frame       string             `json:"frame"`
	Rows        int                `json:"rows"`
	Columns     int                `json:"columns"`
	Outliers    []outlier.Result   `json:"outliers,omitempty"`
	Normalized  []normalize.Result `json:"normalized,omitempty"`
	SkewBefore  skew.SkewTable     `json:"skew_before,omitempty"`
	Skew        *skew.Report       `json:"skew,omitempty"`
	Lines       []string           `json:"lines"`
	Exports     []export.Output    `json:"exports,omitempty"`
	WriteBack   string             `json:"write_back,omitempty"`
	RowsWritten int64              `json:"rows_written,omitempty"`
	DurationMS  int64              `json:"duration_ms"`
}

// Run executes plan end to end: load, outliers, normalize, skew, export and
// write-back, in that order. Each run gets its own id, which is attached to
// every log line it emits.
func (s *Service) Run(ctx context.Context, plan *config.Plan) (*RunReport, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	if err := s.limiter.Acquire(ctx); err != nil {
		runsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	defer s.limiter.Release()

	if s.clean.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.clean.Timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := s.run(ctx, plan)
	runDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		logger.Error("cleaning run failed", "error", err, "code", MapError(err).Code)
		return nil, err
	}
	runsTotal.WithLabelValues("ok").Inc()

	report.RunID = runID
	report.DurationMS = time.Since(start).Milliseconds()
	logger.Info("cleaning run complete",
		"frame", report.Frame,
		"rows", report.Rows,
		"transforms", len(report.Lines),
		"exports", len(report.Exports),
		"duration_ms", report.DurationMS,
	)
	return report, nil
}

func (s *Service) run(ctx context.Context, plan *config.Plan) (*RunReport, error) {
	f, err := s.LoadFrame(ctx, plan.Table, plan.Input)
	if err != nil {
		return nil, err
	}
	rowsProcessed.Add(float64(f.NumRows()))

	report := &RunReport{Frame: f.Name, Rows: f.NumRows(), Columns: f.NumColumns(), Lines: []string{}}

	if opts := plan.OutlierOptions(s.clean); opts != nil {
		report.Outliers, err = outlier.Replace(ctx, f, *opts)
		if err != nil {
			return nil, fmt.Errorf("outliers: %w", err)
		}
		recordOutliers(report.Outliers)
	}

	if len(plan.Normalize) > 0 {
		report.Normalized, err = normalize.Apply(ctx, f, plan.Normalize)
		if err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
	}

	if !plan.Skew.Disabled {
		report.SkewBefore = skew.ComputeSkewTable(f)
		report.Skew, err = skew.Orchestrate(ctx, f, report.SkewBefore, plan.SkewOptions(s.clean))
		if err != nil {
			return nil, err
		}
		recordTransforms(report.Skew)
		report.Lines = report.Skew.Lines()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, target := range plan.Export {
		out, err := s.exporter.Export(ctx, f, target)
		if err != nil {
			return nil, err
		}
		report.Exports = append(report.Exports, *out)
	}

	if plan.WriteBack != "" {
		if s.db == nil {
			return nil, fmt.Errorf("write back %s: %w", plan.WriteBack, ErrNoDatabase)
		}
		n, err := extract.Replace(ctx, s.db, plan.WriteBack, f)
		if err != nil {
			return nil, err
		}
		report.WriteBack = plan.WriteBack
		report.RowsWritten = n
	}

	return report, nil
}

// LoadFrame reads a table from the database, or a CSV or parquet file when
// table is empty.
func (s *Service) LoadFrame(ctx context.Context, table, input string) (*frame.Frame, error) {
	if table != "" {
		if s.db == nil {
			return nil, fmt.Errorf("load %s: %w", table, ErrNoDatabase)
		}
		return extract.Table(ctx, s.db, table)
	}
	return ReadFile(ctx, input)
}

// ReadFile loads a CSV or parquet file, chosen by extension, into a frame
// named after the file.
func ReadFile(ctx context.Context, path string) (*frame.Frame, error) {
	format, err := export.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch format {
	case export.FormatParquet:
		return export.ReadParquetFile(ctx, path, name)
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		return export.ReadCSV(file, name)
	}
}

// SkewTable measures the skew of every numeric column of a table or file.
func (s *Service) SkewTable(ctx context.Context, table, input string) (skew.SkewTable, error) {
	f, err := s.LoadFrame(ctx, table, input)
	if err != nil {
		return nil, err
	}
	return skew.ComputeSkewTable(f), nil
}

// Transform runs skew reduction alone on a caller-supplied frame. A nil
// table is computed from f.
func (s *Service) Transform(ctx context.Context, f *frame.Frame, table skew.SkewTable, opts skew.Options) (*skew.Report, error) {
	ctx = logging.ContextWithRunID(ctx, uuid.New().String())

	if err := s.limiter.Acquire(ctx); err != nil {
		runsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	defer s.limiter.Release()

	if table == nil {
		table = skew.ComputeSkewTable(f)
	}

	start := time.Now()
	report, err := skew.Orchestrate(ctx, f, table, opts)
	runDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	runsTotal.WithLabelValues("ok").Inc()
	recordTransforms(report)
	return report, nil
}

// SkewOptions resolves a skew plan against the service defaults.
func (s *Service) SkewOptions(p config.SkewPlan) skew.Options {
	plan := config.Plan{Skew: p}
	return plan.SkewOptions(s.clean)
}
