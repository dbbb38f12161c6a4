package converter

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDfToRecords(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"id_obra", "viv_totales", "estado"},
		{"OTRAS-1", "40", ""},
		{"CONVE-2", "0", "Finalizada"},
	},
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{""}),
	)
	require.NoError(t, df.Err)

	records := DfToRecords(df)
	require.Len(t, records, 2)

	assert.Equal(t, "OTRAS-1", records[0].ID())
	assert.Equal(t, "40", records[0]["viv_totales"])
	assert.Nil(t, records[0]["estado"])
	assert.Contains(t, records[0], "estado")

	assert.Equal(t, "0", records[1]["viv_totales"])
	assert.Equal(t, "Finalizada", records[1]["estado"])
}
