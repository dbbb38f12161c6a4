package format

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/types"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const component = "Formatter"

var (
	ErrNotNumeric  = errors.New("value is not numeric")
	ErrNotFinite   = errors.New("value is not a finite number")
	ErrUnknownDate = errors.New("unrecognised date")
)

// Config holds the locale rules used for every display value.
type Config struct {
	Empty          string
	CurrencyPrefix string
	Thousands      string
	Decimal        string
}

func DefaultConfig() Config {
	return Config{
		Empty:          types.EmptyValue,
		CurrencyPrefix: "$ ",
		Thousands:      ".",
		Decimal:        ",",
	}
}

// DateLayouts are tried in order when a date arrives as text.
var DateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02-01-2006",
	"2/1/2006",
}

const (
	displayDate = "02/01/2006"
	// Excel serial days accepted as dates, roughly 1954 to 2119.
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

// Formatter turns raw cells into display strings. It holds no mutable state.
type Formatter struct {
	cfg       Config
	log       *logger.Logger
	moneyFmt  string
	intFmt    string
	pctFmt    string
	pctSuffix string
}

func New(cfg Config, log *logger.Logger) (*Formatter, error) {
	if utf8.RuneCountInString(cfg.Thousands) != 1 || utf8.RuneCountInString(cfg.Decimal) != 1 {
		return nil, fmt.Errorf("separators must be single characters: thousands=%q decimal=%q", cfg.Thousands, cfg.Decimal)
	}
	if cfg.Thousands == cfg.Decimal {
		return nil, fmt.Errorf("thousands and decimal separators must differ: %q", cfg.Thousands)
	}
	if cfg.Empty == "" {
		cfg.Empty = types.EmptyValue
	}

	return &Formatter{
		cfg:       cfg,
		log:       log,
		moneyFmt:  "#" + cfg.Thousands + "###" + cfg.Decimal + "##",
		intFmt:    "#" + cfg.Thousands + "###" + cfg.Decimal,
		pctFmt:    "#" + cfg.Decimal + "##",
		pctSuffix: cfg.Decimal + "00",
	}, nil
}

func (f *Formatter) Config() Config {
	return f.cfg
}

// EmptyValue is the sentinel shown for missing data.
func (f *Formatter) EmptyValue() string {
	return f.cfg.Empty
}

// IsEmpty is the single rule deciding whether a value means "no data".
func (f *Formatter) IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == "" || x == f.cfg.Empty
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case time.Time:
		return x.IsZero()
	case types.Result:
		return x.Kind == types.Empty || f.IsEmpty(x.Value)
	}
	return false
}

// Clean parses a locale number: thousands separators are dropped and the
// decimal separator becomes a dot.
func (f *Formatter) Clean(v any) (float64, error) {
	var (
		n   float64
		err error
	)
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case int32:
		n = float64(x)
	case decimal.Decimal:
		n = x.InexactFloat64()
	case string:
		n, err = strconv.ParseFloat(f.normalize(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, x)
		}
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, ErrNotFinite
	}
	return n, nil
}

// CleanDecimal is Clean with exact decimal arithmetic for text input.
func (f *Formatter) CleanDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		d, err := decimal.NewFromString(f.normalize(x))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, x)
		}
		return d, nil
	case decimal.Decimal:
		return x, nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	}
	n, err := f.Clean(v)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(n), nil
}

func (f *Formatter) normalize(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), f.cfg.Thousands, "")
	return strings.ReplaceAll(s, f.cfg.Decimal, ".")
}

func (f *Formatter) ok(s string) types.Result {
	return types.Result{Value: s, Kind: types.OK}
}

func (f *Formatter) empty() types.Result {
	return types.Result{Value: f.cfg.Empty, Kind: types.Empty}
}

func (f *Formatter) parseFailure(op string, v any, err error) types.Result {
	f.log.Warn(component, "Error formatting value: op=%s value=%v error=%v", op, v, err)
	return types.Result{Value: Stringify(v), Kind: types.ParseError, Err: err}
}

// Currency renders "$ 1.234.567,89".
func (f *Formatter) Currency(v any) types.Result {
	if f.IsEmpty(v) {
		return f.empty()
	}
	n, err := f.Clean(v)
	if err != nil {
		return f.parseFailure("currency", v, err)
	}
	return f.ok(f.cfg.CurrencyPrefix + humanize.FormatFloat(f.moneyFmt, n))
}

// CurrencyInt renders "$ 1.234.568".
func (f *Formatter) CurrencyInt(v any) types.Result {
	if f.IsEmpty(v) {
		return f.empty()
	}
	n, err := f.Clean(v)
	if err != nil {
		return f.parseFailure("currency_int", v, err)
	}
	return f.ok(f.cfg.CurrencyPrefix + humanize.FormatFloat(f.intFmt, n))
}

// Percent renders a value already on a 0..100 scale, e.g. "45,5%" or "100%".
func (f *Formatter) Percent(v any) types.Result {
	return f.percent("percent", v, false)
}

// PercentFromDecimal multiplies values in [0, 100) by 100 before rendering.
func (f *Formatter) PercentFromDecimal(v any) types.Result {
	return f.percent("percent_from_decimal", v, true)
}

// PercentScaled dispatches on how the column stores its percentages.
func (f *Formatter) PercentScaled(v any, scale types.PercentScale) types.Result {
	if scale == types.ScaleFraction {
		return f.PercentFromDecimal(v)
	}
	return f.Percent(v)
}

func (f *Formatter) percent(op string, v any, fromDecimal bool) types.Result {
	if f.IsEmpty(v) {
		return f.empty()
	}
	n, err := f.cleanPercent(v)
	if err != nil {
		return f.parseFailure(op, v, err)
	}
	if fromDecimal && n >= 0 && n < 100 {
		n *= 100
	}
	s := humanize.FormatFloat(f.pctFmt, n)
	s = strings.TrimSuffix(s, f.pctSuffix)
	return f.ok(s + "%")
}

// cleanPercent only swaps the decimal separator; dots are not stripped.
func (f *Formatter) cleanPercent(v any) (float64, error) {
	s, isString := v.(string)
	if !isString {
		return f.Clean(v)
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, f.cfg.Decimal, ".")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, ErrNotFinite
	}
	return n, nil
}

// Number renders an integer with thousands separators.
func (f *Formatter) Number(v any) types.Result {
	if f.IsEmpty(v) {
		return f.empty()
	}
	n, err := f.Clean(v)
	if err != nil {
		return f.parseFailure("number", v, err)
	}
	return f.ok(humanize.FormatFloat(f.intFmt, n))
}

// Integer truncates towards zero and renders without grouping.
func (f *Formatter) Integer(v any) types.Result {
	if f.IsEmpty(v) {
		return f.empty()
	}
	n, err := f.Clean(v)
	if err != nil {
		return f.parseFailure("integer", v, err)
	}
	return f.ok(strconv.FormatInt(int64(n), 10))
}

// Date renders DD/MM/YYYY.
func (f *Formatter) Date(v any) types.Result {
	if f.IsEmpty(v) {
		return f.empty()
	}
	t, ok := f.ParseDate(v)
	if !ok {
		return f.parseFailure("date", v, ErrUnknownDate)
	}
	return f.ok(t.Format(displayDate))
}

// ParseDate accepts time values, text in any of DateLayouts and Excel serial days.
func (f *Formatter) ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case string:
		s := strings.TrimSpace(x)
		if s == "" || s == f.cfg.Empty {
			return time.Time{}, false
		}
		for _, layout := range DateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		if n, err := f.Clean(s); err == nil {
			return excelSerial(n)
		}
		return time.Time{}, false
	}
	if f.IsEmpty(v) {
		return time.Time{}, false
	}
	n, err := f.Clean(v)
	if err != nil {
		return time.Time{}, false
	}
	return excelSerial(n)
}

func excelSerial(n float64) (time.Time, bool) {
	if n < minExcelSerial || n > maxExcelSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(n, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Display trims text values and maps missing data to the sentinel.
func (f *Formatter) Display(v any) string {
	if f.IsEmpty(v) {
		return f.cfg.Empty
	}
	s := strings.TrimSpace(Stringify(v))
	if s == "" {
		return f.cfg.Empty
	}
	return s
}

// ShortDescription keeps what follows the second comma of a project
// description, which is where the free text starts.
func (f *Formatter) ShortDescription(v any) types.Result {
	if f.IsEmpty(v) {
		return f.empty()
	}
	text := strings.TrimSpace(Stringify(v))
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "  ", " ")

	var parts []string
	for _, p := range strings.Split(text, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) >= 3 {
		return f.ok(strings.Join(parts[2:], ", "))
	}
	return f.ok(text)
}

// Stringify renders any cell value the way it would read in the sheet.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(displayDate)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
