package render

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/farxc/informes-obras/internal/report/format"
	"github.com/farxc/informes-obras/internal/report/types"
)

// Templates is the parsed set of report templates.
type Templates struct {
	set *template.Template
}

// LoadTemplates parses every *.html file under dir.
func LoadTemplates(dir string, f *format.Formatter) (*Templates, error) {
	set, err := template.New("informes").Funcs(FuncMap(f)).ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates in %s: %w", dir, err)
	}
	return &Templates{set: set}, nil
}

// ParseTemplate builds a single named template from text, mostly for tests
// and embedded defaults.
func ParseTemplate(name, text string, f *format.Formatter) (*Templates, error) {
	set, err := template.New(name).Funcs(FuncMap(f)).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return &Templates{set: set}, nil
}

func (t *Templates) Has(name string) bool {
	return t.set.Lookup(name) != nil
}

// Render executes the named template. On failure the markup produced so far
// is returned along with the error.
func (t *Templates) Render(name string, data types.Context) (string, error) {
	tpl := t.set.Lookup(name)
	if tpl == nil {
		return "", fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return buf.String(), fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// FuncMap exposes the display helpers to templates.
func FuncMap(f *format.Formatter) template.FuncMap {
	h := filters{fmt: f}
	return template.FuncMap{
		"chunk":                          Chunk,
		"dividir":                        Divide,
		"formatear_moneda":               h.currency,
		"formatear_moneda_sin_decimales": h.currencyInt,
		"formatear_numero":               h.number,
		"safeURL":                        safeURL,
	}
}

type filters struct {
	fmt *format.Formatter
}

func (h filters) currency(v any) string { return h.fmt.Currency(v).String() }
func (h filters) currencyInt(v any) string { return h.fmt.CurrencyInt(v).String() }
func (h filters) number(v any) string { return h.fmt.Number(v).String() }

// safeURL marks embedded data URIs as trusted so they survive escaping.
func safeURL(s string) template.URL {
	return template.URL(s)
}

// Chunk breaks text into lines of size runes joined by <br>.
func Chunk(size int, text string) template.HTML {
	if text == "" || size <= 0 {
		return template.HTML(template.HTMLEscapeString(text))
	}
	var parts []string
	for len(text) > 0 {
		n, i := 0, 0
		for i < len(text) && n < size {
			_, w := utf8.DecodeRuneInString(text[i:])
			i += w
			n++
		}
		parts = append(parts, template.HTMLEscapeString(text[:i]))
		text = text[i:]
	}
	return template.HTML(strings.Join(parts, "<br>"))
}

// Divide splits a slice into groups of size elements.
func Divide(size int, items any) ([][]any, error) {
	if items == nil {
		return [][]any{}, nil
	}
	v := reflect.ValueOf(items)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("dividir: want a list, got %T", items)
	}
	if size <= 0 {
		return nil, fmt.Errorf("dividir: group size must be positive, got %d", size)
	}

	groups := make([][]any, 0, (v.Len()+size-1)/size)
	for start := 0; start < v.Len(); start += size {
		end := start + size
		if end > v.Len() {
			end = v.Len()
		}
		group := make([]any, 0, end-start)
		for i := start; i < end; i++ {
			group = append(group, v.Index(i).Interface())
		}
		groups = append(groups, group)
	}
	return groups, nil
}
