package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/farxc/informes-obras/internal/assets"
	"github.com/farxc/informes-obras/internal/config"
	"github.com/farxc/informes-obras/internal/feeds/rate"
	"github.com/farxc/informes-obras/internal/feeds/sheets"
	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/publish"
	"github.com/farxc/informes-obras/internal/render"
	"github.com/farxc/informes-obras/internal/report/assemble"
	"github.com/farxc/informes-obras/internal/report/calc"
	"github.com/farxc/informes-obras/internal/report/emit"
	"github.com/farxc/informes-obras/internal/report/format"
	"github.com/farxc/informes-obras/internal/report/ledger"
	"github.com/farxc/informes-obras/internal/report/reconcile"
	"github.com/farxc/informes-obras/internal/report/source"
)

func run(ctx context.Context, cfg *config.Config) error {
	const component = "Main"

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	appLogger := logger.New(os.Stderr, level)

	start := time.Now()
	monitor := NewMonitor()
	monitor.Start(5*time.Second, appLogger)
	defer monitor.Stop()

	appLogger.Info(component, "Starting report generation: excel=%s output=%s filter=%s dryRun=%t",
		cfg.Input.ExcelPath, cfg.Output.Dir, cfg.Output.Filter, cfg.Output.DryRun)

	mode, err := emit.ParseMode(cfg.Output.Filter)
	if err != nil {
		return err
	}

	f, err := format.New(format.DefaultConfig(), appLogger)
	if err != nil {
		return err
	}
	engine := calc.NewEngine(f, appLogger)

	workbook, err := source.LoadWorkbook(cfg.Input.ExcelPath, source.Options{
		ProjectsSheet: cfg.Input.ProjectsSheet,
		PaymentsSheet: cfg.Input.PaymentsSheet,
		PaymentsPath:  cfg.Input.PaymentsPath,
		Encoding:      cfg.Input.Encoding,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to load workbook: %w", err)
	}

	reader := sheetsReader(ctx, cfg, appLogger)

	feed := sheets.NewFeed(reader, sheets.FeedConfig{
		SpreadsheetID: cfg.Sheets.ProjectsID,
		Range:         cfg.Sheets.ProjectsRange,
		KeyColumn:     cfg.Sheets.KeyColumn,
		Columns:       cfg.Sheets.Columns,
	}, appLogger)
	feedDf, err := feed.Fetch(ctx)
	if err != nil {
		appLogger.Warn(component, "Collaborative sheet unavailable, continuing without it: error=%v", err)
		feedDf = nil
	}

	uviRate := fetchRate(ctx, cfg, appLogger)

	records, err := reconcile.New(f, engine, uviRate, appLogger).Run(workbook.Projects, feedDf)
	if err != nil {
		return fmt.Errorf("failed to reconcile records: %w", err)
	}

	payments := ledger.Build(workbook.Payments, f, appLogger)

	templates, err := render.LoadTemplates(cfg.Render.TemplatesDir, f)
	if err != nil {
		return err
	}
	if !templates.Has(cfg.Render.Template) {
		return fmt.Errorf("template %s not found in %s", cfg.Render.Template, cfg.Render.TemplatesDir)
	}

	assembler := assemble.New(assemble.Options{
		Formatter: f,
		Engine:    engine,
		Payments:  payments,
		Bundle:    assets.LoadBundle(cfg.Render.AssetsDir, appLogger),
		Images:    assets.NewFinder(cfg.Render.ImagesDir, appLogger),
		News: sheets.NewNews(reader, sheets.NewsConfig{
			SpreadsheetID: cfg.Sheets.NewsID,
			Range:         cfg.Sheets.NewsRange,
		}, appLogger),
		Program: cfg.Render.Program,
		Logger:  appLogger,
	})

	var pdf emit.PDF
	if !cfg.Output.DryRun {
		renderer, closeRenderer, err := pdfEngine(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer closeRenderer()
		pdf = renderer
	}

	var publisher emit.Publisher
	if uploader := newUploader(ctx, cfg, appLogger); uploader != nil {
		publisher = uploader
	}

	emitter := emit.New(emit.Config{
		OutputDir: cfg.Output.Dir,
		DebugDir:  cfg.Output.DebugDir,
		Template:  cfg.Render.Template,
		Prefixes:  prefixes(cfg),
		DryRun:    cfg.Output.DryRun,
	}, assembler, templates, pdf, publisher, appLogger)

	summary := emitter.Run(ctx, records, mode)

	stats := monitor.Stop()
	outDir, _ := filepath.Abs(cfg.Output.Dir)
	appLogger.Info(component, "Run finished: run=%s selected=%d succeeded=%d failed=%d skipped=%d output=%s elapsed=%s peakMemoryMB=%d",
		summary.RunID, summary.Selected, summary.Succeeded, summary.Failed, summary.Skipped, outDir,
		time.Since(start).Round(time.Millisecond), stats.PeakMemoryMB)
	for _, failure := range summary.Failures {
		appLogger.Warn(component, "Failed report: id=%s error=%s", failure.ProjectID, failure.Error)
	}

	return summary.Err()
}

// sheetsReader returns nil when no Google sheet is configured or the
// client cannot be built; both feeds then behave as unconfigured.
func sheetsReader(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) sheets.ValuesReader {
	const component = "Main"

	if cfg.Sheets.ProjectsID == "" && cfg.Sheets.NewsID == "" {
		return nil
	}
	reader, err := sheets.NewAPIReader(ctx, cfg.Sheets.CredentialsFile)
	if err != nil {
		appLogger.Warn(component, "Google Sheets disabled: error=%v", err)
		return nil
	}
	return reader
}

func fetchRate(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) string {
	const component = "Main"

	if cfg.Rate.Value != "" {
		appLogger.Info(component, "Using configured UVI rate: value=%s", cfg.Rate.Value)
		return cfg.Rate.Value
	}
	result := rate.NewClient(cfg.Rate.URL, cfg.Rate.Path, appLogger).Fetch(ctx)
	if !result.Success {
		appLogger.Warn(component, "UVI rate unavailable, updated balances will show the empty value")
		return ""
	}
	return result.Value
}

func pdfEngine(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (emit.PDF, func(), error) {
	const component = "Main"

	if cfg.Render.Engine == config.EngineChrome {
		chrome, err := render.NewChrome(ctx, cfg.Render.ChromeBin, appLogger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start chrome: %w", err)
		}
		return chrome, func() {
			if err := chrome.Close(); err != nil {
				appLogger.Warn(component, "Failed to close browser: error=%v", err)
			}
		}, nil
	}
	return render.NewWkhtmltopdf(cfg.Render.WkhtmltopdfPath, appLogger), func() {}, nil
}

func newUploader(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) *publish.Uploader {
	const component = "Main"

	pc := publish.Config{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		UseSSL:    cfg.Minio.UseSSL,
		Prefix:    cfg.Minio.Prefix,
	}
	if !pc.Enabled() || cfg.Output.DryRun {
		return nil
	}

	uploader, err := publish.NewUploader(pc, appLogger)
	if err != nil {
		appLogger.Warn(component, "Publishing disabled: error=%v", err)
		return nil
	}
	if err := uploader.EnsureBucket(ctx); err != nil {
		appLogger.Warn(component, "Publishing disabled: bucket=%s error=%v", pc.Bucket, err)
		return nil
	}
	return uploader
}

func prefixes(cfg *config.Config) map[emit.Mode]string {
	out := make(map[emit.Mode]string)
	for mode, prefix := range cfg.Prefixes() {
		out[emit.Mode(mode)] = prefix
	}
	return out
}
