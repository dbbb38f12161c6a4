package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

const (
	DefaultProjectsSheet = "obras"
	DefaultPaymentsSheet = "pagos"
)

// NaNValues are the cell contents read as missing data.
var NaNValues = []string{"", "NA", "NaN", "<nil>"}

// Workbook holds the two tables of the primary source.
type Workbook struct {
	Projects      dataframe.DataFrame
	Payments      dataframe.DataFrame
	ProjectsSheet string
	PaymentsSheet string
}

type Options struct {
	ProjectsSheet string
	PaymentsSheet string
	// PaymentsPath points to a separate payments file. When empty the
	// payments sheet is read from the main workbook.
	PaymentsPath string
	// Encoding of csv files: "windows-1252" (default) or "utf-8".
	Encoding string
}

func (o Options) withDefaults() Options {
	if o.ProjectsSheet == "" {
		o.ProjectsSheet = DefaultProjectsSheet
	}
	if o.PaymentsSheet == "" {
		o.PaymentsSheet = DefaultPaymentsSheet
	}
	if o.Encoding == "" {
		o.Encoding = "windows-1252"
	}
	return o
}

// LoadWorkbook reads projects and payments. A missing payments sheet is not
// an error: the payments frame is simply empty.
func LoadWorkbook(path string, opts Options, appLogger *logger.Logger) (Workbook, error) {
	const component = "WorkbookLoader"
	opts = opts.withDefaults()

	appLogger.Debug(component, "Loading workbook: path=%s", path)

	var (
		wb  Workbook
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		wb, err = loadExcel(path, opts, appLogger)
	case ".csv":
		wb.ProjectsSheet = filepath.Base(path)
		wb.Projects, err = OpenFileAndDecode(path, opts.Encoding)
	default:
		return Workbook{}, fmt.Errorf("unsupported workbook format: %s", path)
	}
	if err != nil {
		return Workbook{}, err
	}

	if opts.PaymentsPath != "" {
		wb.PaymentsSheet = filepath.Base(opts.PaymentsPath)
		wb.Payments, err = loadPaymentsFile(opts.PaymentsPath, opts)
		if err != nil {
			appLogger.Warn(component, "Payments file not loaded: path=%s error=%v", opts.PaymentsPath, err)
			wb.Payments = dataframe.DataFrame{}
		}
	}

	appLogger.Info(component, "Workbook loaded: projects=%d payments=%d projectsSheet=%s paymentsSheet=%s",
		wb.Projects.Nrow(), wb.Payments.Nrow(), wb.ProjectsSheet, wb.PaymentsSheet)
	return wb, nil
}

func loadExcel(path string, opts Options, appLogger *logger.Logger) (Workbook, error) {
	const component = "WorkbookLoader"

	f, err := excelize.OpenFile(path)
	if err != nil {
		return Workbook{}, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	projectsSheet, ok := ResolveSheet(sheets, opts.ProjectsSheet, 0)
	if !ok {
		return Workbook{}, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := readSheet(f, projectsSheet)
	if err != nil {
		return Workbook{}, err
	}
	projects, err := FromRecords(rows)
	if err != nil {
		return Workbook{}, fmt.Errorf("failed to load sheet %s: %w", projectsSheet, err)
	}

	wb := Workbook{Projects: projects, ProjectsSheet: projectsSheet}

	paymentsSheet, ok := ResolveSheet(sheets, opts.PaymentsSheet, 1)
	if !ok || paymentsSheet == projectsSheet {
		appLogger.Info(component, "No payments sheet found: sheets=%v", sheets)
		return wb, nil
	}

	rows, err = readSheet(f, paymentsSheet)
	if err != nil {
		return Workbook{}, err
	}
	payments, err := FromRecords(rows)
	if err != nil {
		appLogger.Warn(component, "Payments sheet not loaded: sheet=%s error=%v", paymentsSheet, err)
		payments = dataframe.DataFrame{}
	}
	wb.Payments = payments
	wb.PaymentsSheet = paymentsSheet
	return wb, nil
}

func loadPaymentsFile(path string, opts Options) (dataframe.DataFrame, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return OpenFileAndDecode(path, opts.Encoding)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open payments file %s: %w", path, err)
	}
	defer f.Close()

	sheet, ok := ResolveSheet(f.GetSheetList(), opts.PaymentsSheet, 0)
	if !ok {
		return dataframe.DataFrame{}, fmt.Errorf("payments file %s has no sheets", path)
	}
	rows, err := readSheet(f, sheet)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return FromRecords(rows)
}

// ResolveSheet picks the sheet named preferred (case insensitive) or the
// one at fallback position.
func ResolveSheet(sheets []string, preferred string, fallback int) (string, bool) {
	for _, s := range sheets {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(preferred)) {
			return s, true
		}
	}
	if fallback >= 0 && fallback < len(sheets) {
		return sheets[fallback], true
	}
	return "", false
}

// readSheet returns the sheet as text. Numeric cells are rewritten with a
// decimal comma and no grouping so they read like any other locale number.
func readSheet(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	for r := 1; r < len(rows); r++ {
		for c, raw := range rows[r] {
			if raw == "" {
				continue
			}
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			typ, err := f.GetCellType(sheet, cell)
			if err != nil {
				continue
			}
			if typ == excelize.CellTypeUnset || typ == excelize.CellTypeNumber {
				rows[r][c] = CanonicalNumber(raw)
			}
		}
	}
	return rows, nil
}

// CanonicalNumber turns "1234.5" into "1234,5". Non numeric text is returned as is.
func CanonicalNumber(raw string) string {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw
	}
	return strings.Replace(strconv.FormatFloat(n, 'f', -1, 64), ".", ",", 1)
}

// FromRecords builds a text-only frame from a header row plus data rows.
// Short rows are padded and fully blank rows dropped.
func FromRecords(records [][]string) (dataframe.DataFrame, error) {
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("dataframe is empty")
	}

	header := records[0]
	width := len(header)
	for _, row := range records[1:] {
		if len(row) > width {
			width = len(row)
		}
	}

	padded := make([][]string, 0, len(records))
	padded = append(padded, pad(header, width))
	for _, row := range records[1:] {
		if isBlank(row) {
			continue
		}
		padded = append(padded, pad(row, width))
	}
	if len(padded) < 2 {
		return dataframe.DataFrame{}, fmt.Errorf("dataframe is empty")
	}

	df := dataframe.LoadRecords(padded,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NaNValues),
	)
	return df, df.Error()
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	for i := range out {
		out[i] = strings.TrimRight(out[i], "\r")
	}
	return out
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// OpenFileAndDecode reads a ';' separated csv export.
func OpenFileAndDecode(path, encoding string) (dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open file %s: %v", path, err)
	}

	defer file.Close()

	var reader io.Reader = file
	// Spreadsheet exports from Windows default to Windows1252
	if !strings.EqualFold(encoding, "utf-8") && !strings.EqualFold(encoding, "utf8") {
		reader = charmap.Windows1252.NewDecoder().Reader(file)
	}

	df := dataframe.ReadCSV(reader,
		dataframe.WithDelimiter(';'),
		dataframe.WithLazyQuotes(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NaNValues),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to parse %s: %w", path, df.Err)
	}
	// If dataframe is empty return
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("dataframe is empty")
	}

	return df, df.Error()
}
