package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/farxc/informes-obras/internal/logger"
)

// PDF turns rendered markup into a document at outPath.
type PDF interface {
	Render(ctx context.Context, html, outPath string) error
}

// DefaultWkhtmltopdfArgs mirrors the page setup of the printed reports.
var DefaultWkhtmltopdfArgs = []string{
	"--enable-local-file-access",
	"--encoding", "utf-8",
	"--margin-top", "30mm",
	"--margin-bottom", "20mm",
	"--margin-left", "4mm",
	"--margin-right", "4mm",
	"--quiet",
}

// Wkhtmltopdf renders through the external wkhtmltopdf binary.
type Wkhtmltopdf struct {
	Path string
	Args []string
	log  *logger.Logger
}

func NewWkhtmltopdf(path string, appLogger *logger.Logger) *Wkhtmltopdf {
	if path == "" {
		path = "wkhtmltopdf"
	}
	return &Wkhtmltopdf{Path: path, Args: DefaultWkhtmltopdfArgs, log: appLogger}
}

func (w *Wkhtmltopdf) Render(ctx context.Context, html, outPath string) error {
	const component = "Wkhtmltopdf"

	tmp, err := os.CreateTemp("", "informe-*.html")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	args := append(append([]string{}, w.Args...), tmp.Name(), outPath)
	cmd := exec.CommandContext(ctx, w.Path, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("wkhtmltopdf failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	w.log.Debug(component, "PDF written: path=%s", outPath)
	return nil
}
