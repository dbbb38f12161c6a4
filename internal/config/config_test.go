package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "informes", cfg.Output.Dir)
	assert.Equal(t, "OTRAS", cfg.Output.Filter)
	assert.Equal(t, "informe_template.html", cfg.Render.Template)
	assert.Equal(t, EngineWkhtmltopdf, cfg.Render.Engine)
	assert.Equal(t, []string{"UVI Restante"}, cfg.Sheets.Columns)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := writeFile(t, "config.yaml", `
input:
  excel_path: /data/obras_2024.xlsx
output:
  filter: CONVE
render:
  engine: chrome
minio:
  endpoint: localhost:9000
  bucket: informes
  use_ssl: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/obras_2024.xlsx", cfg.Input.ExcelPath)
	assert.Equal(t, "obras", cfg.Input.ProjectsSheet)
	assert.Equal(t, "CONVE", cfg.Output.Filter)
	assert.Equal(t, "informes", cfg.Output.Dir)
	assert.Equal(t, EngineChrome, cfg.Render.Engine)
	assert.Equal(t, "localhost:9000", cfg.Minio.Endpoint)
	assert.True(t, cfg.Minio.UseSSL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "output:\n  dir: from-file\n")
	t.Setenv("OUTPUT_DIR", "from-env")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("GOOGLE_SHEET_COLUMNS", "UVI Restante, Observaciones")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Output.Dir)
	assert.True(t, cfg.Minio.UseSSL)
	assert.Equal(t, []string{"UVI Restante", "Observaciones"}, cfg.Sheets.Columns)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "output: [unclosed")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	excel := writeFile(t, "obras.xlsx", "x")

	cfg := Default()
	cfg.Input.ExcelPath = excel
	require.NoError(t, cfg.Validate())

	cfg.Output.Filter = "todas"
	assert.NoError(t, cfg.Validate())

	bad := Default()
	bad.Input.ExcelPath = filepath.Join(t.TempDir(), "nope.xlsx")
	bad.Output.Filter = "ALGUNAS"
	bad.Render.Engine = "latex"
	bad.Log.Level = "loud"
	bad.Minio.Endpoint = "localhost:9000"

	err := bad.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "input.excel_path")
	assert.Contains(t, msg, "output.filter")
	assert.Contains(t, msg, "render.engine")
	assert.Contains(t, msg, "log.level")
	assert.Contains(t, msg, "minio.bucket")
}

func TestPrefixes(t *testing.T) {
	cfg := Default()
	cfg.Output.PrefixConve = "CV-"

	assert.Equal(t, map[string]string{"OTRAS": "OTRAS-", "CONVE": "CV-"}, cfg.Prefixes())
}
