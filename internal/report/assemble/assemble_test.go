package assemble

import (
	"context"
	"errors"
	"testing"

	"github.com/farxc/informes-obras/internal/assets"
	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/calc"
	"github.com/farxc/informes-obras/internal/report/format"
	"github.com/farxc/informes-obras/internal/report/ledger"
	"github.com/farxc/informes-obras/internal/report/types"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubImages struct {
	images types.ProjectImages
	panics bool
	calls  []string
}

func (s *stubImages) Images(id string) types.ProjectImages {
	s.calls = append(s.calls, id)
	if s.panics {
		panic("disk gone")
	}
	return s.images
}

type stubNews struct {
	items []types.NewsItem
	err   error
}

func (s *stubNews) ForProject(_ context.Context, _ string) ([]types.NewsItem, error) {
	return s.items, s.err
}

func payments(t *testing.T, f *format.Formatter, records [][]string) *ledger.Index {
	t.Helper()
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{"", "NaN"}),
	)
	return ledger.Build(df, f, logger.Discard())
}

func newAssembler(t *testing.T, opts Options) *Assembler {
	t.Helper()
	f, err := format.New(format.DefaultConfig(), logger.Discard())
	require.NoError(t, err)
	opts.Formatter = f
	opts.Engine = calc.NewEngine(f, logger.Discard())
	opts.Logger = logger.Discard()
	return New(opts)
}

func project() types.Record {
	return types.Record{
		types.ColProjectID:        "OTRAS-1",
		types.ColHistoricID:       "H-9",
		types.ColDescription:      "Obra, Municipio, Construcción de 10 viviendas",
		types.ColTotalUnits:       "100",
		types.ColDeliveredUnits:   "40",
		types.ColStatus:           " En ejecución ",
		types.ColMunicipality:     "La Plata",
		types.ColVentures:         "123",
		types.ColAgreementAmount:  "1500000",
		types.ColUVIQuoteDate:     "2024-03-15",
		types.ColUVIQuantity:      "2000",
		types.ColUVIPaid:          "500",
		types.ColExpedient:        "EX-2024-1",
		types.ColPhysicalProgress: "45",
		types.ColUpdatedAmount:    "1000000",
		types.ColPaidAmount:       "250000",
		types.FieldUpdatedBalance: "$ 1.234.560",
	}
}

func TestBuildFormatsProjectFields(t *testing.T) {
	a := newAssembler(t, Options{Bundle: assets.Bundle{Banner: "data:image/jpeg;base64,AA=="}})

	c := a.Build(context.Background(), project())

	assert.Equal(t, "data:image/jpeg;base64,AA==", c["banner_path"])
	assert.Equal(t, "", c["footer_path"])
	assert.Equal(t, "OTRAS-1", c["ID_obra"])
	assert.Equal(t, "H-9", c["ID_historico"])
	assert.Equal(t, "Construcción de 10 viviendas", c["Descripcion_Corta"])
	assert.Equal(t, "100", c["Viviendas_Totales"])
	assert.Equal(t, "40", c["Viviendas_Entregadas"])
	assert.Equal(t, "En ejecución", c["Estado"])
	assert.Equal(t, "La Plata", c["Municipio"])
	assert.Equal(t, "--", c["Localidad"])
	assert.Equal(t, DefaultProgram, c["Programa"])
	assert.Equal(t, "123", c["Cod_emprendimiento"])
	assert.Equal(t, "--", c["Cod_obra"])
	assert.Equal(t, "$ 1.500.000,00", c["Monto_Convenio"])
	assert.Equal(t, "15/03/2024", c["Fecha_UVI"])
	assert.Equal(t, "2.000", c["Total_UVI"])
	assert.Equal(t, "EX-2024-1", c["Exp_GDEBA"])
	assert.Equal(t, "45%", c["Avance_fisico"])
	assert.Equal(t, "--", c["Avance_financiero"])
	assert.Equal(t, "--", c["Fecha_ultimo_pago"])
}

func TestBuildDerivedFields(t *testing.T) {
	a := newAssembler(t, Options{})

	c := a.Build(context.Background(), project())

	assert.Equal(t, "55%", c[types.FieldRemainingProgress])
	assert.Equal(t, "60", c[types.FieldRemainingUnits])
	assert.Equal(t, "1.500", c[types.FieldRemainingUVI])
	assert.Equal(t, "$ 750.000", c[types.FieldRemainingAmount])
	assert.Equal(t, "$ 1.234.560", c[types.FieldUpdatedBalance])
}

func TestBuildKeepsReconciledDerivedValues(t *testing.T) {
	a := newAssembler(t, Options{})
	rec := project()
	rec[types.FieldRemainingUnits] = "7"
	delete(rec, types.FieldUpdatedBalance)

	c := a.Build(context.Background(), rec)

	assert.Equal(t, "7", c[types.FieldRemainingUnits])
	assert.Equal(t, "--", c[types.FieldUpdatedBalance])
}

func TestBuildReadsSuffixedColumns(t *testing.T) {
	a := newAssembler(t, Options{})
	rec := types.Record{
		types.ColProjectID:                        "CONVE-2",
		types.ColTotalUnits + types.SuffixPrimary: "12",
	}

	c := a.Build(context.Background(), rec)

	assert.Equal(t, "12", c["Viviendas_Totales"])
}

func TestBuildWithoutPayments(t *testing.T) {
	a := newAssembler(t, Options{})

	c := a.Build(context.Background(), project())

	assert.Empty(t, c["pagos_lista"])
	for _, key := range []string{"Nro", "Expediente", "Nro_Operatoria", "Contratista", "Estado_Pago", "Devengado", "Fecha_Pago", "Trata"} {
		assert.Equal(t, "--", c[key], key)
	}
}

func TestBuildPaymentSnapshotUsesFirstEntry(t *testing.T) {
	a := newAssembler(t, Options{})
	a.payments = payments(t, a.fmt, [][]string{
		{"id_obra", "trata", "certificado_dga", "expediente", "importe_devengado", "fecha_pago"},
		{"OTRAS-1", "T-1", "10", "EX-1", "1000", ""},
		{"OTRAS-1", "T-2", "11", "EX-2", "2000", "2024-04-01"},
		{"CONVE-2", "T-3", "12", "EX-3", "3000", "2024-05-01"},
	})

	c := a.Build(context.Background(), project())

	list, ok := c["pagos_lista"].([]types.PaymentEntry)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, "T-1", list[0].Batch)
	assert.Equal(t, "T-2", list[1].Batch)

	assert.Equal(t, "10", c["Nro"])
	assert.Equal(t, "EX-1", c["Expediente"])
	assert.Equal(t, "T-1", c["Trata"])
	assert.Equal(t, "$ 1.000", c["Devengado"])
	assert.Equal(t, "--", c["Fecha_Pago"])
	assert.Equal(t, types.StatusAccrued, c["Estado_Pago"])
	assert.Equal(t, "--", c["Contratista"])
}

func TestBuildImages(t *testing.T) {
	images := &stubImages{images: types.ProjectImages{Principal: "data:p", Extra: []string{"data:1", "data:2"}}}
	a := newAssembler(t, Options{Images: images})

	c := a.Build(context.Background(), project())

	assert.Equal(t, "data:p", c["Imagen_Obra"])
	assert.Equal(t, []string{"data:1", "data:2"}, c["Imagenes_Extra"])
	assert.Equal(t, []string{"OTRAS-1"}, images.calls)
}

func TestBuildSurvivesImageLookupPanic(t *testing.T) {
	a := newAssembler(t, Options{Images: &stubImages{panics: true}})

	var c types.Context
	require.NotPanics(t, func() { c = a.Build(context.Background(), project()) })

	assert.Equal(t, "", c["Imagen_Obra"])
	assert.Equal(t, []string{}, c["Imagenes_Extra"])
}

func TestBuildNews(t *testing.T) {
	items := []types.NewsItem{{Title: "Inauguración", Date: "01/02/2024"}}
	a := newAssembler(t, Options{News: &stubNews{items: items}})

	c := a.Build(context.Background(), project())

	assert.Equal(t, items, c["noticias"])
}

func TestBuildNewsErrorYieldsEmptyList(t *testing.T) {
	a := newAssembler(t, Options{News: &stubNews{err: errors.New("quota exceeded")}})

	c := a.Build(context.Background(), project())

	assert.Equal(t, []types.NewsItem{}, c["noticias"])
}

func TestBuildEmptyRecord(t *testing.T) {
	images := &stubImages{}
	a := newAssembler(t, Options{Images: images, News: &stubNews{}})

	var c types.Context
	require.NotPanics(t, func() { c = a.Build(context.Background(), types.Record{}) })

	assert.Equal(t, "--", c["ID_obra"])
	assert.Equal(t, "--", c["Monto_Convenio"])
	assert.Equal(t, "--", c[types.FieldRemainingProgress])
	assert.Equal(t, "", c["Exp_GDEBA"])
	assert.Empty(t, images.calls)
}
