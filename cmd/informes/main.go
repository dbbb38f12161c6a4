package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/farxc/informes-obras/internal/config"
	"github.com/farxc/informes-obras/internal/env"
	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/emit"
	"github.com/spf13/cobra"
)

type flags struct {
	configFile string
	excel      string
	output     string
	filter     string
	verbose    bool
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "informes",
		Short: "Generate one PDF report per public-works project",
		Long:  `Reads the projects workbook, merges the collaborative sheet and the
payments ledger, and writes informe_<id>.pdf for every selected project.`,
		Example: `  informes                          # default settings, OTRAS projects
  informes --filter TODAS
  informes --excel obras.xlsx --output informes/
  informes --dry-run -v`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&f.configFile, "config", "", "YAML configuration file (default $CONFIG_FILE or config.yaml)")
	cmd.Flags().StringVar(&f.excel, "excel", "", "projects workbook (.xlsx, .xlsm or .csv)")
	cmd.Flags().StringVar(&f.output, "output", "", "output directory for the PDFs")
	cmd.Flags().StringVar(&f.filter, "filter", "", "projects to emit: OTRAS, CONVE or TODAS")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "select projects without writing any report")
	return cmd
}

// loadConfig layers .env, the YAML file, environment variables and the
// flags that were set explicitly.
func loadConfig(cmd *cobra.Command, f flags) (*config.Config, error) {
	if err := env.Load(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	path := f.configFile
	if path == "" {
		path = env.GetString("CONFIG_FILE", "config.yaml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("excel") {
		cfg.Input.ExcelPath = f.excel
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Dir = f.output
	}
	if cmd.Flags().Changed("filter") {
		cfg.Output.Filter = f.filter
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	if f.dryRun {
		cfg.Output.DryRun = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, emit.ErrInterrupted) {
			logger.New(os.Stderr, logger.LevelInfo).Warn("Main", "Run interrupted by user")
			stop()
			os.Exit(130)
		}
		stop()
		os.Exit(1)
	}
}
