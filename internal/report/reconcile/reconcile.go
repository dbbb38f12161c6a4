package reconcile

import (
	"fmt"
	"strings"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/calc"
	"github.com/farxc/informes-obras/internal/report/converter"
	"github.com/farxc/informes-obras/internal/report/format"
	"github.com/farxc/informes-obras/internal/report/types"
	"github.com/farxc/informes-obras/internal/report/utils"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const component = "Reconciler"

// derivation fills one derived field from record inputs.
type derivation struct {
	field   string
	compute func(r *Reconciler, rec types.Record) types.Result
}

var derivations = []derivation{
	{types.FieldRemainingProgress, func(r *Reconciler, rec types.Record) types.Result {
		return r.calc.RemainingProgress(rec.Primary(types.ColPhysicalProgress))
	}},
	{types.FieldRemainingUnits, func(r *Reconciler, rec types.Record) types.Result {
		return r.calc.RemainingUnits(rec.Primary(types.ColTotalUnits), rec.Primary(types.ColDeliveredUnits))
	}},
	{types.FieldRemainingUVI, func(r *Reconciler, rec types.Record) types.Result {
		return r.calc.RemainingUnits(rec.Primary(types.ColUVIQuantity), rec.Primary(types.ColUVIPaid))
	}},
	{types.FieldRemainingAmount, func(r *Reconciler, rec types.Record) types.Result {
		return r.calc.RemainingAmount(rec.Primary(types.ColUpdatedAmount), rec.Primary(types.ColPaidAmount))
	}},
	{types.FieldUpdatedBalance, func(r *Reconciler, rec types.Record) types.Result {
		return r.calc.UVIBalance(rec.Feed(types.ColFeedRemainingUVI), r.rate)
	}},
}

type Reconciler struct {
	fmt  *format.Formatter
	calc *calc.Engine
	log  *logger.Logger
	key  string
	rate string
}

// New builds a reconciler. rate is the daily UVI value for this batch, ""
// when it could not be fetched.
func New(f *format.Formatter, engine *calc.Engine, rate string, appLogger *logger.Logger) *Reconciler {
	return &Reconciler{
		fmt:  f,
		calc: engine,
		log:  appLogger,
		key:  types.ColProjectID,
		rate: rate,
	}
}

// Merge left joins the feed onto the primary table by project id. Every
// primary row survives; rows without a feed match get NA feed columns.
// Non key columns present on both sides are suffixed _excel and _sheets.
func (r *Reconciler) Merge(primary dataframe.DataFrame, feed *dataframe.DataFrame) (dataframe.DataFrame, error) {
	if primary.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("primary table: %w", primary.Err)
	}
	if !utils.HasColumn(&primary, r.key) {
		return dataframe.DataFrame{}, fmt.Errorf("primary table has no %s column", r.key)
	}
	if feed == nil || feed.Err != nil || feed.Nrow() == 0 {
		r.log.Info(component, "No feed to merge, using primary table only")
		return primary, nil
	}
	if !utils.HasColumn(feed, r.key) {
		r.log.Warn(component, "Feed has no %s column, using primary table only: columns=%v", r.key, feed.Names())
		return primary, nil
	}

	right := r.dedupe(trimKey(*feed, r.key), r.key)
	left := trimKey(primary, r.key)
	primaryNames := primary.Names()
	for _, col := range right.Names() {
		if col == r.key || !contains(primaryNames, col) {
			continue
		}
		left = left.Rename(col+types.SuffixPrimary, col)
		right = right.Rename(col+types.SuffixFeed, col)
	}
	if left.Err != nil {
		return dataframe.DataFrame{}, left.Err
	}
	if right.Err != nil {
		return dataframe.DataFrame{}, right.Err
	}

	merged := left.LeftJoin(right, r.key)
	if merged.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("left join on %s: %w", r.key, merged.Err)
	}

	r.log.Info(component, "Feed merged: primary=%d feed=%d merged=%d", primary.Nrow(), right.Nrow(), merged.Nrow())
	return merged, nil
}

// dedupe keeps the first feed row of each project id so the join never
// multiplies primary rows.
func (r *Reconciler) dedupe(feed dataframe.DataFrame, key string) dataframe.DataFrame {
	keys := feed.Col(key)
	seen := make(map[string]bool, feed.Nrow())
	keepIdx := make([]int, 0, feed.Nrow())
	for i := 0; i < feed.Nrow(); i++ {
		elem := keys.Elem(i)
		if elem.IsNA() {
			continue
		}
		id := elem.String()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		keepIdx = append(keepIdx, i)
	}
	if len(keepIdx) == feed.Nrow() {
		return feed
	}
	r.log.Warn(component, "Dropped duplicate or blank feed rows: kept=%d total=%d", len(keepIdx), feed.Nrow())
	return feed.Subset(keepIdx)
}

// trimKey strips surrounding blanks from the key column so ids match
// regardless of stray spaces in either source.
func trimKey(df dataframe.DataFrame, key string) dataframe.DataFrame {
	col := df.Col(key)
	values := make([]string, col.Len())
	for i := range values {
		elem := col.Elem(i)
		if elem.IsNA() {
			values[i] = "NaN"
			continue
		}
		values[i] = strings.TrimSpace(elem.String())
	}
	return df.Mutate(series.New(values, series.String, key))
}

// Backfill returns a copy of rec with the derived fields added. Values the
// source already supplied are kept.
func (r *Reconciler) Backfill(rec types.Record) types.Record {
	out := rec.Clone()
	for _, d := range derivations {
		if !r.fmt.IsEmpty(out[d.field]) {
			continue
		}
		out[d.field] = r.derive(d, rec).String()
	}
	return out
}

func (r *Reconciler) derive(d derivation, rec types.Record) (res types.Result) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error(component, "Backfill failed: id=%s field=%s panic=%v", rec.ID(), d.field, p)
			res = types.Result{Value: r.fmt.EmptyValue(), Kind: types.Failed}
		}
	}()
	return d.compute(r, rec)
}

// Run merges the sources and returns one backfilled record per primary row.
func (r *Reconciler) Run(primary dataframe.DataFrame, feed *dataframe.DataFrame) ([]types.Record, error) {
	merged, err := r.Merge(primary, feed)
	if err != nil {
		return nil, err
	}

	rows := converter.DfToRecords(merged)
	records := make([]types.Record, 0, len(rows))
	for _, rec := range rows {
		records = append(records, r.Backfill(rec))
	}

	r.log.Info(component, "Records reconciled: count=%d", len(records))
	return records, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
