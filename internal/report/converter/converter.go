package converter

import (
	"github.com/farxc/informes-obras/internal/report/types"
	"github.com/farxc/informes-obras/internal/report/utils"
	"github.com/go-gota/gota/dataframe"
)

// DfRowToRecord copies one row into a record. NA cells become nil so that
// absence stays distinct from zero and from blank text.
func DfRowToRecord(df dataframe.DataFrame, rowIdx int) types.Record {
	names := df.Names()
	rec := make(types.Record, len(names))
	for _, col := range names {
		rec[col] = utils.GetValue(col, rowIdx, &df)
	}
	return rec
}

func DfToRecords(df dataframe.DataFrame) []types.Record {
	if df.Err != nil {
		return nil
	}
	records := make([]types.Record, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		records = append(records, DfRowToRecord(df, i))
	}
	return records
}
