package emit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/types"
	"github.com/google/uuid"
)

// Mode selects which projects get a report.
type Mode string

const (
	ModeOtras Mode = "OTRAS"
	ModeConve Mode = "CONVE"
	ModeAll   Mode = "TODAS"
)

// DefaultPrefixes maps each filtering mode to its project id prefix.
var DefaultPrefixes = map[Mode]string{
	ModeOtras: "OTRAS-",
	ModeConve: "CONVE-",
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeOtras, ModeConve, ModeAll:
		return m, nil
	case "":
		return ModeOtras, nil
	}
	return "", fmt.Errorf("unknown filter %q: expected OTRAS, CONVE or TODAS", s)
}

// Builder turns a record into a template context.
type Builder interface {
	Build(ctx context.Context, rec types.Record) types.Context
}

// Renderer renders a named template. On error it may still return the
// output produced so far.
type Renderer interface {
	Render(name string, data types.Context) (string, error)
}

type PDF interface {
	Render(ctx context.Context, html, outPath string) error
}

// Publisher copies an emitted report somewhere else.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

type Config struct {
	OutputDir string
	// DebugDir receives error_<id>.html for records that failed. Empty
	// means OutputDir.
	DebugDir string
	Template string
	Prefixes map[Mode]string
	DryRun   bool
}

type Emitter struct {
	cfg       Config
	builder   Builder
	renderer  Renderer
	pdf       PDF
	publisher Publisher
	log       *logger.Logger
}

// New builds an emitter. publisher may be nil.
func New(cfg Config, builder Builder, renderer Renderer, pdf PDF, publisher Publisher, appLogger *logger.Logger) *Emitter {
	if cfg.Prefixes == nil {
		cfg.Prefixes = DefaultPrefixes
	}
	if cfg.DebugDir == "" {
		cfg.DebugDir = cfg.OutputDir
	}
	return &Emitter{
		cfg:       cfg,
		builder:   builder,
		renderer:  renderer,
		pdf:       pdf,
		publisher: publisher,
		log:       appLogger,
	}
}

// EmissionJob is one report to produce.
type EmissionJob struct {
	Record types.Record
	ID     string
	Index  int
}

type EmissionResult struct {
	Job       EmissionJob
	Path      string
	DebugPath string
	URL       string
	Error     error
}

type Failure struct {
	ProjectID string
	Error     string
}

// Summary tallies one batch.
type Summary struct {
	RunID       string
	Mode        Mode
	DryRun      bool
	Selected    int
	Succeeded   int
	Failed      int
	Skipped     int
	Interrupted bool
	Failures    []Failure
	Duration    time.Duration
}

// Filter returns the jobs for the records matching mode, in input order,
// plus the number of records dropped for lacking a project id.
func (e *Emitter) Filter(records []types.Record, mode Mode) ([]EmissionJob, int) {
	prefix := e.cfg.Prefixes[mode]

	var (
		jobs    []EmissionJob
		skipped int
	)
	for i, rec := range records {
		id := rec.ID()
		if id == "" || id == types.EmptyValue || id == "NaN" {
			skipped++
			continue
		}
		if mode != ModeAll && !strings.HasPrefix(id, prefix) {
			continue
		}
		jobs = append(jobs, EmissionJob{Record: rec, ID: id, Index: i})
	}
	return jobs, skipped
}

// Run emits one report per selected record, sequentially. Failures are
// tallied and never stop the batch; only ctx cancellation does.
func (e *Emitter) Run(ctx context.Context, records []types.Record, mode Mode) Summary {
	const component = "Emitter"
	start := time.Now()

	jobs, skipped := e.Filter(records, mode)
	summary := Summary{
		RunID:    uuid.NewString(),
		Mode:     mode,
		DryRun:   e.cfg.DryRun,
		Selected: len(jobs),
		Skipped:  skipped,
	}
	e.log.Info(component, "Selected records: run=%s mode=%s selected=%d skipped=%d", summary.RunID, mode, len(jobs), skipped)

	if e.cfg.DryRun {
		e.log.Info(component, "Dry run: no reports written: selected=%d output=%s", len(jobs), e.cfg.OutputDir)
		summary.Duration = time.Since(start)
		return summary
	}

	if err := os.MkdirAll(e.cfg.OutputDir, 0o755); err != nil {
		e.log.Error(component, "Failed to create output directory: path=%s error=%v", e.cfg.OutputDir, err)
	}

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			summary.Interrupted = true
			e.log.Warn(component, "Batch interrupted: processed=%d remaining=%d", i, len(jobs)-i)
			break
		}

		result := e.emit(ctx, job)
		if result.Error != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{ProjectID: job.ID, Error: result.Error.Error()})
			e.log.Error(component, "Report failed: id=%s debug=%s error=%v", job.ID, result.DebugPath, result.Error)
			continue
		}
		summary.Succeeded++
		e.log.Debug(component, "Report written: id=%s path=%s", job.ID, result.Path)
	}

	summary.Duration = time.Since(start)
	e.log.Info(component, "Batch completed: run=%s succeeded=%d failed=%d skipped=%d duration=%s",
		summary.RunID, summary.Succeeded, summary.Failed, summary.Skipped, summary.Duration.Round(time.Millisecond))
	return summary
}

func (e *Emitter) emit(ctx context.Context, job EmissionJob) (result EmissionResult) {
	const component = "Emitter"
	result.Job = job

	var html string
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("panic: %v", r)
		}
		if result.Error != nil {
			result.DebugPath = e.writeDebug(job, html)
		}
	}()

	data := e.builder.Build(ctx, job.Record)

	var err error
	html, err = e.renderer.Render(e.cfg.Template, data)
	if err != nil {
		result.Error = fmt.Errorf("failed to render template: %w", err)
		return result
	}

	result.Path = filepath.Join(e.cfg.OutputDir, SafeFilename(job.ID))
	if err := e.pdf.Render(ctx, html, result.Path); err != nil {
		result.Error = fmt.Errorf("failed to render pdf: %w", err)
		return result
	}

	if e.publisher != nil {
		url, err := e.publisher.Publish(ctx, result.Path)
		if err != nil {
			e.log.Warn(component, "Failed to publish report: id=%s error=%v", job.ID, err)
		} else {
			result.URL = url
		}
	}
	return result
}

// writeDebug stores the markup rendered for a failed record and returns
// its path, or "" when nothing could be written.
func (e *Emitter) writeDebug(job EmissionJob, html string) string {
	const component = "Emitter"

	if err := os.MkdirAll(e.cfg.DebugDir, 0o755); err != nil {
		e.log.Warn(component, "Failed to create debug directory: path=%s error=%v", e.cfg.DebugDir, err)
		return ""
	}
	path := filepath.Join(e.cfg.DebugDir, DebugFilename(job.ID))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		e.log.Warn(component, "Failed to write debug file: path=%s error=%v", path, err)
		return ""
	}
	return path
}

var unsafeChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SafeFilename returns informe_<id>.pdf without filesystem-unsafe characters.
func SafeFilename(projectID string) string {
	name := unsafeChars.ReplaceAllString("informe_"+projectID, "")
	if !strings.HasSuffix(name, ".pdf") {
		name += ".pdf"
	}
	return name
}

func DebugFilename(projectID string) string {
	return unsafeChars.ReplaceAllString("error_"+projectID, "") + ".html"
}

// ErrInterrupted is returned by callers that need to turn an interrupted
// summary into an exit status.
var ErrInterrupted = errors.New("batch interrupted")

// Err reports ErrInterrupted for an interrupted batch and nil otherwise.
// Per-record failures are not errors.
func (s Summary) Err() error {
	if s.Interrupted {
		return ErrInterrupted
	}
	return nil
}
