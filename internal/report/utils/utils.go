package utils

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

// HasColumn reports whether df carries a column named col.
func HasColumn(df *dataframe.DataFrame, col string) bool {
	if df == nil {
		return false
	}
	return containsString(df.Names(), col)
}

// GetStr returns the cell as a string, "" for missing columns or NA cells.
func GetStr(col string, rowIdx int, df *dataframe.DataFrame) string {
	v := GetValue(col, rowIdx, df)
	if v == nil {
		return ""
	}
	return v.(string)
}

// GetValue returns the cell as a string, or nil when the column is missing
// or the cell is NA.
func GetValue(col string, rowIdx int, df *dataframe.DataFrame) any {
	if !HasColumn(df, col) {
		return nil
	}
	elem := df.Col(col).Elem(rowIdx)
	if elem.IsNA() {
		return nil
	}
	return elem.String()
}

// NormalizeColumn lowercases a header, drops diacritics and collapses every
// run of non alphanumeric characters into a single underscore.
func NormalizeColumn(name string) string {
	text := strings.ToLower(strings.TrimSpace(name))
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if stripped, _, err := transform.String(t, text); err == nil {
		text = stripped
	}
	text = nonAlnum.ReplaceAllString(text, "_")
	return strings.Trim(text, "_")
}

// PickFirst returns the first candidate present in columns, or "".
func PickFirst(columns []string, candidates ...string) string {
	for _, c := range candidates {
		if containsString(columns, c) {
			return c
		}
	}
	return ""
}
