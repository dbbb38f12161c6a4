package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/source"
	"github.com/farxc/informes-obras/internal/report/types"
	"github.com/go-gota/gota/dataframe"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// ValuesReader returns the cells of a sheet range, header row first.
type ValuesReader interface {
	Values(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
}

// APIReader reads ranges through the Google Sheets API.
type APIReader struct {
	svc *gsheets.Service
}

func NewAPIReader(ctx context.Context, credentialsFile string) (*APIReader, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsReadonlyScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &APIReader{svc: svc}, nil
}

func (r *APIReader) Values(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}
	return resp.Values, nil
}

type FeedConfig struct {
	SpreadsheetID string
	Range         string
	// KeyColumn is the sheet header holding the project id.
	KeyColumn string
	// Columns restricts the feed to these headers besides the key.
	Columns []string
}

// Feed is the collaborative sheet merged into the primary projects table.
type Feed struct {
	reader ValuesReader
	cfg    FeedConfig
	log    *logger.Logger
}

func NewFeed(reader ValuesReader, cfg FeedConfig, appLogger *logger.Logger) *Feed {
	if cfg.KeyColumn == "" {
		cfg.KeyColumn = "ID"
	}
	return &Feed{reader: reader, cfg: cfg, log: appLogger}
}

// Fetch returns the feed keyed by the projects key column. A nil feed or
// reader means the feed is not configured and yields nil without error.
func (f *Feed) Fetch(ctx context.Context) (*dataframe.DataFrame, error) {
	const component = "SheetsFeed"

	if f == nil || f.reader == nil || f.cfg.SpreadsheetID == "" {
		return nil, nil
	}

	values, err := f.reader.Values(ctx, f.cfg.SpreadsheetID, f.cfg.Range)
	if err != nil {
		return nil, err
	}

	df, err := ValuesToFrame(values, f.cfg.KeyColumn, types.ColProjectID, f.cfg.Columns)
	if err != nil {
		return nil, err
	}

	f.log.Info(component, "Feed fetched: rows=%d columns=%v", df.Nrow(), df.Names())
	return &df, nil
}

// ValuesToFrame turns raw sheet values into a text frame whose key column is
// renamed to targetKey. keep limits the extra columns; empty keeps them all.
func ValuesToFrame(values [][]interface{}, keyColumn, targetKey string, keep []string) (dataframe.DataFrame, error) {
	if len(values) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("sheet is empty")
	}

	header := stringRow(values[0])
	keyIdx := -1
	for i, h := range header {
		if strings.EqualFold(h, keyColumn) {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return dataframe.DataFrame{}, fmt.Errorf("key column %q not found in %v", keyColumn, header)
	}

	indices := []int{keyIdx}
	names := []string{targetKey}
	for i, h := range header {
		if i == keyIdx || h == "" || !wanted(h, keep) {
			continue
		}
		indices = append(indices, i)
		names = append(names, h)
	}

	records := make([][]string, 0, len(values))
	records = append(records, names)
	for _, raw := range values[1:] {
		row := stringRow(raw)
		out := make([]string, len(indices))
		for j, idx := range indices {
			if idx < len(row) {
				out[j] = row[idx]
			}
		}
		records = append(records, out)
	}
	return source.FromRecords(records)
}

func wanted(header string, keep []string) bool {
	if len(keep) == 0 {
		return true
	}
	for _, k := range keep {
		if strings.EqualFold(header, k) {
			return true
		}
	}
	return false
}

func stringRow(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
