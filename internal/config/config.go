package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/farxc/informes-obras/internal/env"
	"github.com/farxc/informes-obras/internal/logger"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`
	Render RenderConfig `yaml:"render"`
	Sheets SheetsConfig `yaml:"sheets"`
	Rate   RateConfig   `yaml:"rate"`
	Minio  MinioConfig  `yaml:"minio"`
	Log    LogConfig    `yaml:"log"`
}

type InputConfig struct {
	ExcelPath     string `yaml:"excel_path"`
	PaymentsPath  string `yaml:"payments_path"`
	ProjectsSheet string `yaml:"projects_sheet"`
	PaymentsSheet string `yaml:"payments_sheet"`
	Encoding      string `yaml:"encoding"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	DebugDir    string `yaml:"debug_dir"`
	Filter      string `yaml:"filter"`
	PrefixOtras string `yaml:"prefix_otras"`
	PrefixConve string `yaml:"prefix_conve"`
	DryRun      bool   `yaml:"dry_run"`
}

type RenderConfig struct {
	TemplatesDir    string `yaml:"templates_dir"`
	Template        string `yaml:"template"`
	AssetsDir       string `yaml:"assets_dir"`
	ImagesDir       string `yaml:"images_dir"`
	Program         string `yaml:"program"`
	Engine          string `yaml:"engine"`
	WkhtmltopdfPath string `yaml:"wkhtmltopdf_path"`
	ChromeBin       string `yaml:"chrome_bin"`
}

type SheetsConfig struct {
	CredentialsFile string   `yaml:"credentials_file"`
	ProjectsID      string   `yaml:"projects_id"`
	ProjectsRange   string   `yaml:"projects_range"`
	KeyColumn       string   `yaml:"key_column"`
	Columns         []string `yaml:"columns"`
	NewsID          string   `yaml:"news_id"`
	NewsRange       string   `yaml:"news_range"`
}

type RateConfig struct {
	URL  string `yaml:"url"`
	Path string `yaml:"path"`
	// Value skips the fetch when set, e.g. "1.234,56".
	Value string `yaml:"value"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	EngineWkhtmltopdf = "wkhtmltopdf"
	EngineChrome      = "chrome"
)

// Default returns the settings used when neither a file nor the
// environment says otherwise.
func Default() Config {
	return Config{
		Input: InputConfig{
			ExcelPath:     "data/obras.xlsx",
			ProjectsSheet: "obras",
			PaymentsSheet: "pagos",
			Encoding:      "windows-1252",
		},
		Output: OutputConfig{
			Dir:         "informes",
			Filter:      "OTRAS",
			PrefixOtras: "OTRAS-",
			PrefixConve: "CONVE-",
		},
		Render: RenderConfig{
			TemplatesDir:    "templates",
			Template:        "informe_template.html",
			AssetsDir:       "assets",
			ImagesDir:       "assets/obras",
			Program:         "Programa COMPLETAR",
			Engine:          EngineWkhtmltopdf,
			WkhtmltopdfPath: "wkhtmltopdf",
		},
		Sheets: SheetsConfig{
			ProjectsRange: "Obras",
			KeyColumn:     "ID",
			Columns:       []string{"UVI Restante"},
			NewsRange:     "Noticias",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from the defaults, the YAML file at path
// (skipped when path is empty or missing) and then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Input.ExcelPath = env.GetString("EXCEL_PATH", c.Input.ExcelPath)
	c.Input.PaymentsPath = env.GetString("PAYMENTS_PATH", c.Input.PaymentsPath)
	c.Input.ProjectsSheet = env.GetString("PROJECTS_SHEET", c.Input.ProjectsSheet)
	c.Input.PaymentsSheet = env.GetString("PAYMENTS_SHEET", c.Input.PaymentsSheet)
	c.Input.Encoding = env.GetString("CSV_ENCODING", c.Input.Encoding)

	c.Output.Dir = env.GetString("OUTPUT_DIR", c.Output.Dir)
	c.Output.DebugDir = env.GetString("DEBUG_DIR", c.Output.DebugDir)
	c.Output.Filter = env.GetString("FILTER", c.Output.Filter)
	c.Output.PrefixOtras = env.GetString("PREFIX_OTRAS", c.Output.PrefixOtras)
	c.Output.PrefixConve = env.GetString("PREFIX_CONVE", c.Output.PrefixConve)
	c.Output.DryRun = env.GetBool("DRY_RUN", c.Output.DryRun)

	c.Render.TemplatesDir = env.GetString("TEMPLATES_DIR", c.Render.TemplatesDir)
	c.Render.Template = env.GetString("TEMPLATE_NAME", c.Render.Template)
	c.Render.AssetsDir = env.GetString("ASSETS_DIR", c.Render.AssetsDir)
	c.Render.ImagesDir = env.GetString("IMAGES_DIR", c.Render.ImagesDir)
	c.Render.Program = env.GetString("PROGRAM_NAME", c.Render.Program)
	c.Render.Engine = env.GetString("PDF_ENGINE", c.Render.Engine)
	c.Render.WkhtmltopdfPath = env.GetString("WKHTMLTOPDF_PATH", c.Render.WkhtmltopdfPath)
	c.Render.ChromeBin = env.GetString("CHROME_BIN", c.Render.ChromeBin)

	c.Sheets.CredentialsFile = env.GetString("GOOGLE_APPLICATION_CREDENTIALS", c.Sheets.CredentialsFile)
	c.Sheets.ProjectsID = env.GetString("GOOGLE_SHEET_ID_OBRAS", c.Sheets.ProjectsID)
	c.Sheets.ProjectsRange = env.GetString("GOOGLE_SHEET_RANGE_OBRAS", c.Sheets.ProjectsRange)
	c.Sheets.KeyColumn = env.GetString("GOOGLE_SHEET_KEY_COLUMN", c.Sheets.KeyColumn)
	c.Sheets.Columns = env.GetList("GOOGLE_SHEET_COLUMNS", c.Sheets.Columns)
	c.Sheets.NewsID = env.GetString("GOOGLE_SHEET_ID_NOTICIAS", c.Sheets.NewsID)
	c.Sheets.NewsRange = env.GetString("GOOGLE_SHEET_RANGE_NOTICIAS", c.Sheets.NewsRange)

	c.Rate.URL = env.GetString("UVI_RATE_URL", c.Rate.URL)
	c.Rate.Path = env.GetString("UVI_RATE_PATH", c.Rate.Path)
	c.Rate.Value = env.GetString("UVI_RATE", c.Rate.Value)

	c.Minio.Endpoint = env.GetString("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = env.GetString("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = env.GetString("MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Minio.Bucket = env.GetString("MINIO_BUCKET", c.Minio.Bucket)
	c.Minio.UseSSL = env.GetBool("MINIO_USE_SSL", c.Minio.UseSSL)
	c.Minio.Prefix = env.GetString("MINIO_PREFIX", c.Minio.Prefix)

	c.Log.Level = env.GetString("LOG_LEVEL", c.Log.Level)
}

var validFilters = []string{"OTRAS", "CONVE", "TODAS"}

// Validate checks the settings needed before any file is read. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Input.ExcelPath) == "" {
		errs = append(errs, errors.New("input.excel_path is required"))
	} else if _, err := os.Stat(c.Input.ExcelPath); err != nil {
		errs = append(errs, fmt.Errorf("input.excel_path: %w", err))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir is required"))
	}
	if !containsFold(validFilters, c.Output.Filter) {
		errs = append(errs, fmt.Errorf("output.filter %q: expected one of %s", c.Output.Filter, strings.Join(validFilters, ", ")))
	}
	if c.Render.Template == "" {
		errs = append(errs, errors.New("render.template is required"))
	}
	switch c.Render.Engine {
	case EngineWkhtmltopdf, EngineChrome:
	default:
		errs = append(errs, fmt.Errorf("render.engine %q: expected %s or %s", c.Render.Engine, EngineWkhtmltopdf, EngineChrome))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Minio.Endpoint != "" && c.Minio.Bucket == "" {
		errs = append(errs, errors.New("minio.bucket is required when minio.endpoint is set"))
	}
	if c.Sheets.NewsID != "" && c.Sheets.NewsRange == "" {
		errs = append(errs, errors.New("sheets.news_range is required when sheets.news_id is set"))
	}

	return errors.Join(errs...)
}

// Prefixes returns the project id prefix of each filter mode.
func (c *Config) Prefixes() map[string]string {
	return map[string]string{
		"OTRAS": c.Output.PrefixOtras,
		"CONVE": c.Output.PrefixConve,
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
