// Package pipeline runs a detection end to end: load inputs, detect, write
// artifacts, persist and publish.
package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"halo-cme-lab/internal/config"
	"halo-cme-lab/internal/detection"
	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/idhash"
	"halo-cme-lab/internal/observability"
	"halo-cme-lab/internal/orchestrator"
	"halo-cme-lab/internal/reporting"
	"halo-cme-lab/internal/storage"
)

// GeneratorVersion is recorded in every report.
const GeneratorVersion = "1.0.0"

// Artifact file names.
const (
	EventsFile         = "detected_halo_cmes.csv"
	SummaryFile        = "evaluation_summary.csv"
	MetricsFile        = "evaluation_metrics.txt"
	FalseNegativesFile = "false_negatives.csv"
	ReportFile         = "DETECTION_REPORT.md"
	DebugScoresDir     = "debug_scores"
)

// Input errors. A run needs both a series and a catalog.
var (
	ErrNoSamples    = errors.New("series has no samples")
	ErrEmptyCatalog = errors.New("catalog has no windows")
)

// EventPublisher sends detected events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, runID string, events []*domain.MergedEvent) (int, error)
}

// Pipeline orchestrates detection, artifact output, persistence and publishing.
type Pipeline struct {
	cfg          *config.Config
	configDigest string
	detector     *detection.Detector
	reportGen    *reporting.Generator
	quality      *QualityChecker
	outputDir    string
	debugScores  bool
	runStore     storage.RunStore       // optional
	scoreStore   storage.ScoreStore     // optional
	publisher    EventPublisher         // optional
	metrics      *observability.Metrics // optional
	textfile     string
	configPath   string // for the replay command
	logger       *zap.Logger
	clock        func() time.Time
}

// Result is what one Run produced.
type Result struct {
	Run       *domain.DetectionRun
	Report    *reporting.Report
	Files     []string // written artifacts, relative to the output directory
	Stored    bool     // run newly persisted
	Published int
}

// NewPipeline validates cfg and builds the detection chain from it.
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: config is required")
	}
	if err := cfg.Err(); err != nil {
		return nil, err
	}
	digest, err := cfg.Digest()
	if err != nil {
		return nil, fmt.Errorf("config digest: %w", err)
	}
	detector, err := cfg.Detection.Detector()
	if err != nil {
		return nil, fmt.Errorf("build detector: %w", err)
	}

	return &Pipeline{
		cfg:          cfg,
		configDigest: digest,
		detector:     detector,
		reportGen:    reporting.NewGenerator(nil),
		quality:      NewQualityChecker(detector.Params(), detector.Margin()),
		outputDir:    cfg.Output.Dir,
		debugScores:  cfg.Output.DebugScores,
		logger:       zap.NewNop(),
		clock:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithLogger sets the logger.
func (p *Pipeline) WithLogger(logger *zap.Logger) *Pipeline {
	if logger != nil {
		p.logger = logger.With(zap.String("component", "pipeline"))
	}
	return p
}

// WithOutputDir overrides the artifact directory.
func (p *Pipeline) WithOutputDir(dir string) *Pipeline {
	p.outputDir = dir
	return p
}

// WithRunStore persists each run.
func (p *Pipeline) WithRunStore(s storage.RunStore) *Pipeline {
	p.runStore = s
	return p
}

// WithScoreStore persists composite score series.
func (p *Pipeline) WithScoreStore(s storage.ScoreStore) *Pipeline {
	p.scoreStore = s
	return p
}

// WithPublisher publishes detected events after each run.
func (p *Pipeline) WithPublisher(pub EventPublisher) *Pipeline {
	p.publisher = pub
	return p
}

// WithMetrics records run metrics and, when textfile is set, writes them there.
func (p *Pipeline) WithMetrics(m *observability.Metrics, textfile string) *Pipeline {
	p.metrics = m
	p.textfile = textfile
	return p
}

// WithConfigPath records the config file for the replay command.
func (p *Pipeline) WithConfigPath(path string) *Pipeline {
	p.configPath = path
	return p
}

// ConfigDigest returns the digest of the detection configuration.
func (p *Pipeline) ConfigDigest() string {
	return p.configDigest
}

// Run executes the full pipeline and writes output files:
//   - debug_scores/CME_<id>_scores.csv (when enabled)
//   - detected_halo_cmes.csv
//   - evaluation_summary.csv
//   - evaluation_metrics.txt
//   - false_negatives.csv
//   - DETECTION_REPORT.md
func (p *Pipeline) Run(ctx context.Context, src Source) (*Result, error) {
	started := time.Now()

	// 1. Load inputs
	samples, catalog, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	series := domain.NewSeries(samples)
	if series.Len() == 0 {
		return nil, ErrNoSamples
	}
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}

	// 2. Input checks
	quality := p.quality.Check(series, catalog)
	for _, c := range quality.Checks {
		if !c.Pass {
			p.logger.Warn("input check failed",
				zap.String("check", c.Name),
				zap.String("threshold", c.Threshold),
				zap.String("actual", c.Actual),
			)
		}
	}

	// 3. Identify the run
	inputDigest := computeInputDigest(series, catalog)
	runID := idhash.ComputeRunID(p.configDigest, inputDigest)
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("run started",
		zap.String("source", src.Name()),
		zap.Int("samples", series.Len()),
		zap.Int("windows", len(catalog)),
	)

	// 4. Detect
	orch := orchestrator.New(orchestrator.Options{
		Detector: p.detector,
		Baseline: p.cfg.Detection.BaselineOptions(),
		Workers:  p.cfg.Detection.Workers,
		Logger:   logger,
		Metrics:  p.metrics,
	})
	res, err := orch.Run(ctx, series, catalog)
	if err != nil {
		return nil, err
	}

	run := &domain.DetectionRun{
		RunID:          runID,
		CreatedAt:      p.clock(),
		ConfigDigest:   p.configDigest,
		Windows:        make([]domain.WindowSummary, len(res.Windows)),
		SkippedWindows: res.Skipped,
		Events:         res.Events,
		FalseNegatives: res.FalseNegatives,
		Summary:        res.Summary,
	}
	for i, w := range res.Windows {
		run.Windows[i] = w.Summary
	}

	// 5. Report
	report := p.reportGen.Build(run)
	report.DataSummary.Samples = series.Len()
	report.DataSummary.Parameters = series.Parameters()
	if span, ok := series.Span(); ok {
		report.DataSummary.SeriesStart = span.Start
		report.DataSummary.SeriesEnd = span.End
	}
	report.DataSummary.EmittedEvents = len(res.Emitted)
	report.DataQuality = dataQuality(quality, report.DataQuality.Diagnostics)
	report.Reproducibility = reporting.ReproducibilityMetadata{
		GeneratorVersion: GeneratorVersion,
		InputDigest:      inputDigest,
		CommitHash:       commitHash(),
		ReplayCommand:    p.replayCommand(src),
	}

	// 6. Artifacts
	files, err := p.writeArtifacts(res, report)
	if err != nil {
		return nil, err
	}

	result := &Result{Run: run, Report: report, Files: files}

	// 7. Persistence
	if result.Stored, err = p.persist(ctx, logger, run, res); err != nil {
		return nil, err
	}

	// 8. Publishing
	if p.publisher != nil {
		n, err := p.publisher.Publish(ctx, runID, run.Events)
		if err != nil {
			return nil, fmt.Errorf("publish events: %w", err)
		}
		p.metrics.RecordPublished(n)
		result.Published = n
	}

	p.metrics.RecordRun(run, p.clock())
	if err := p.metrics.WriteTextfile(p.textfile); err != nil {
		return nil, fmt.Errorf("write metrics textfile: %w", err)
	}

	logger.Info("run completed",
		zap.Int("files", len(files)),
		zap.Bool("stored", result.Stored),
		zap.Int("published", result.Published),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// writeArtifacts renders every output file into the output directory.
func (p *Pipeline) writeArtifacts(res *orchestrator.RunResult, report *reporting.Report) ([]string, error) {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, err
	}

	var files []string
	write := func(name, content string) error {
		path := filepath.Join(p.outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		files = append(files, name)
		return nil
	}

	if p.debugScores {
		if err := os.MkdirAll(filepath.Join(p.outputDir, DebugScoresDir), 0755); err != nil {
			return nil, err
		}
		for _, w := range res.Windows {
			if w.Scores == nil {
				continue
			}
			name := filepath.Join(DebugScoresDir, reporting.ScoresFileName(w.Window.ID))
			if err := write(name, reporting.RenderScoresCSV(w.Scores)); err != nil {
				return nil, err
			}
		}
	}

	outputs := []struct {
		name    string
		content string
	}{
		{EventsFile, reporting.RenderEventsCSV(report.Events)},
		{SummaryFile, reporting.RenderSummaryCSV(report.Evaluation)},
		{MetricsFile, reporting.RenderMetricsText(report.Evaluation)},
		{FalseNegativesFile, reporting.RenderFalseNegativesCSV(report.FalseNegatives)},
		{ReportFile, reporting.RenderMarkdown(report)},
	}
	for _, o := range outputs {
		if err := write(o.name, o.content); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// persist saves the run and its score series. An already stored run is not
// an error; runs are append-only.
func (p *Pipeline) persist(ctx context.Context, logger *zap.Logger, run *domain.DetectionRun, res *orchestrator.RunResult) (bool, error) {
	stored := false
	if p.runStore != nil {
		started := time.Now()
		err := p.runStore.Save(ctx, run)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			logger.Info("run already stored")
			err = nil
		case err == nil:
			stored = true
		}
		p.metrics.RecordDBQuery("run_store", "save", time.Since(started), err)
		if err != nil {
			return false, fmt.Errorf("save run: %w", err)
		}
	}

	if p.scoreStore != nil {
		for _, w := range res.Windows {
			if w.Scores == nil {
				continue
			}
			started := time.Now()
			err := p.scoreStore.InsertWindowScores(ctx, run.RunID, w.Scores)
			if errors.Is(err, storage.ErrDuplicateKey) {
				err = nil
			}
			p.metrics.RecordDBQuery("score_store", "insert", time.Since(started), err)
			if err != nil {
				return stored, fmt.Errorf("store scores for window %s: %w", w.Window.ID, err)
			}
		}
	}
	return stored, nil
}

// replayCommand returns the command to reproduce this run.
func (p *Pipeline) replayCommand(src Source) string {
	cmd := "cmelab detect " + src.ReplayArgs()
	if p.configPath != "" {
		cmd += fmt.Sprintf(" --config %q", p.configPath)
	}
	return cmd
}

// dataQuality converts a QualityResult to the report section. Input findings
// come before per-window diagnostics.
func dataQuality(result *QualityResult, diagnostics []string) reporting.DataQualitySection {
	checks := make([]reporting.QualityCheckRow, len(result.Checks))
	for i, c := range result.Checks {
		checks[i] = reporting.QualityCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return reporting.DataQualitySection{
		Checks:          checks,
		Diagnostics:     append(append([]string(nil), result.Errors...), diagnostics...),
		AllChecksPassed: result.AllPass,
	}
}

// computeInputDigest hashes the normalized series and the catalog. Row order
// and parameter order are those of the Series, so the digest does not depend
// on input column order.
func computeInputDigest(series *domain.Series, catalog []*domain.ExpectedWindow) string {
	h := sha256.New()

	params := series.Parameters()
	io.WriteString(h, "SERIES\n")
	io.WriteString(h, strings.Join(params, ","))
	columns := make([][]float64, len(params))
	for j, name := range params {
		columns[j], _ = series.Column(name)
	}
	for i, t := range series.Times() {
		io.WriteString(h, "\n")
		io.WriteString(h, strconv.FormatInt(t.UnixNano(), 10))
		for _, col := range columns {
			io.WriteString(h, "|")
			io.WriteString(h, formatValue(col[i]))
		}
	}

	io.WriteString(h, "\nCATALOG")
	for _, w := range catalog {
		fmt.Fprintf(h, "\n%s|%d|%s|%s|%d|%d",
			w.ID, w.LaunchTime.UnixMilli(), formatValue(w.Speed), w.HaloFlag,
			w.ExpectedStart.UnixMilli(), w.ExpectedEnd.UnixMilli())
	}

	return hex.EncodeToString(h.Sum(nil))
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// commitHash is replaceable in tests.
var commitHash = getGitCommitHash

// getGitCommitHash returns current git commit hash or "unknown" if not in git repo.
func getGitCommitHash() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "unknown"
	}
	return strings.TrimSpace(out.String())
}
