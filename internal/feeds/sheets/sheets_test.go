package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	values [][]interface{}
	err    error
	calls  int
}

func (f *fakeReader) Values(_ context.Context, _, _ string) ([][]interface{}, error) {
	f.calls++
	return f.values, f.err
}

func TestValuesToFrame(t *testing.T) {
	df, err := ValuesToFrame([][]interface{}{
		{"ID", "Nombre", "UVI Restante"},
		{"OTRAS-1", "Barrio Norte", "1.500"},
		{"OTRAS-2"},
		{},
	}, "ID", "id_obra", []string{"UVI Restante"})
	require.NoError(t, err)

	assert.Equal(t, []string{"id_obra", "UVI Restante"}, df.Names())
	require.Equal(t, 2, df.Nrow())
	assert.Equal(t, "OTRAS-1", utils.GetStr("id_obra", 0, &df))
	assert.Equal(t, "1.500", utils.GetStr("UVI Restante", 0, &df))
	assert.Nil(t, utils.GetValue("UVI Restante", 1, &df))
}

func TestValuesToFrameMissingKey(t *testing.T) {
	_, err := ValuesToFrame([][]interface{}{{"Nombre"}, {"x"}}, "ID", "id_obra", nil)
	assert.Error(t, err)

	_, err = ValuesToFrame(nil, "ID", "id_obra", nil)
	assert.Error(t, err)
}

func TestFeedFetch(t *testing.T) {
	reader := &fakeReader{values: [][]interface{}{
		{"ID", "UVI Restante"},
		{"OTRAS-1", 1500},
	}}
	feed := NewFeed(reader, FeedConfig{SpreadsheetID: "sheet", Range: "Obras!A:Z", Columns: []string{"UVI Restante"}}, logger.Discard())

	df, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, df)
	assert.Equal(t, "1500", utils.GetStr("UVI Restante", 0, df))
}

func TestFeedFetchUnconfigured(t *testing.T) {
	df, err := NewFeed(nil, FeedConfig{}, logger.Discard()).Fetch(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, df)

	var feed *Feed
	df, err = feed.Fetch(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, df)
}

func TestFeedFetchError(t *testing.T) {
	reader := &fakeReader{err: errors.New("quota exceeded")}
	df, err := NewFeed(reader, FeedConfig{SpreadsheetID: "sheet"}, logger.Discard()).Fetch(context.Background())
	assert.Error(t, err)
	assert.Nil(t, df)
}

func TestNewsForProject(t *testing.T) {
	reader := &fakeReader{values: [][]interface{}{
		{"ID Obra", "Título", "Fecha", "Descripción", "Link"},
		{"OTRAS-1", "Inicio de obra", "01/02/2024", "Se firmó el acta", "https://example.org/1"},
		{"OTRAS-2", "Entrega", "", "", ""},
		{"OTRAS-1", "Avance", "01/05/2024", "", ""},
		{"", "Sin obra", "", "", ""},
	}}
	news := NewNews(reader, NewsConfig{SpreadsheetID: "sheet", Range: "Noticias"}, logger.Discard())

	items, err := news.ForProject(context.Background(), " OTRAS-1 ")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Inicio de obra", items[0].Title)
	assert.Equal(t, "Se firmó el acta", items[0].Summary)
	assert.Equal(t, "https://example.org/1", items[0].Link)
	assert.Equal(t, "Avance", items[1].Title)

	items, err = news.ForProject(context.Background(), "CONVE-9")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)

	assert.Equal(t, 1, reader.calls)
}

func TestNewsRetriesAfterFailure(t *testing.T) {
	reader := &fakeReader{err: errors.New("timeout")}
	news := NewNews(reader, NewsConfig{SpreadsheetID: "sheet"}, logger.Discard())

	items, err := news.ForProject(context.Background(), "OTRAS-1")
	assert.Error(t, err)
	assert.Empty(t, items)

	reader.err = nil
	reader.values = [][]interface{}{{"obra", "titulo"}, {"OTRAS-1", "Nota"}}

	items, err = news.ForProject(context.Background(), "OTRAS-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, reader.calls)
}

func TestNewsUnconfigured(t *testing.T) {
	items, err := NewNews(nil, NewsConfig{}, logger.Discard()).ForProject(context.Background(), "OTRAS-1")
	assert.NoError(t, err)
	assert.Empty(t, items)
}
