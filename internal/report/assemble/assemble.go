package assemble

import (
	"context"

	"github.com/farxc/informes-obras/internal/assets"
	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/calc"
	"github.com/farxc/informes-obras/internal/report/format"
	"github.com/farxc/informes-obras/internal/report/ledger"
	"github.com/farxc/informes-obras/internal/report/types"
)

const component = "Assembler"

// DefaultProgram is the program name printed on every report.
const DefaultProgram = "Programa COMPLETAR"

// AssetLookup finds the images of a project.
type AssetLookup interface {
	Images(projectID string) types.ProjectImages
}

// NewsFeed returns the editorial entries linked to a project.
type NewsFeed interface {
	ForProject(ctx context.Context, projectID string) ([]types.NewsItem, error)
}

type Assembler struct {
	fmt      *format.Formatter
	calc     *calc.Engine
	payments *ledger.Index
	bundle   assets.Bundle
	images   AssetLookup
	news     NewsFeed
	program  string
	log      *logger.Logger
}

type Options struct {
	Formatter *format.Formatter
	Engine    *calc.Engine
	Payments  *ledger.Index
	Bundle    assets.Bundle
	Images    AssetLookup
	News      NewsFeed
	Program   string
	Logger    *logger.Logger
}

// New builds an assembler. Images, News and Payments may be nil.
func New(opts Options) *Assembler {
	program := opts.Program
	if program == "" {
		program = DefaultProgram
	}
	return &Assembler{
		fmt:      opts.Formatter,
		calc:     opts.Engine,
		payments: opts.Payments,
		bundle:   opts.Bundle,
		images:   opts.Images,
		news:     opts.News,
		program:  program,
		log:      opts.Logger,
	}
}

// Build returns the template context of one reconciled record. It never
// fails: every key falls back to the empty sentinel or an empty list.
func (a *Assembler) Build(ctx context.Context, rec types.Record) types.Context {
	id := rec.ID()
	images := a.projectImages(id)

	c := types.Context{
		"banner_path":    a.bundle.Banner,
		"footer_path":    a.bundle.Footer,
		"doble_flecha":   a.bundle.Arrow,
		"fuente_regular": a.bundle.FontRegular,
		"fuente_bold":    a.bundle.FontBold,

		"Memoria_Descriptiva":        a.text(rec.Primary(types.ColDescription)),
		"Imagen_Obra":                images.Principal,
		"Imagenes_Extra":             images.Extra,
		"ID_obra":                    a.text(rec.Primary(types.ColProjectID)),
		"ID_historico":               a.text(rec.Primary(types.ColHistoricID)),
		"Descripcion_Corta":          a.field("Descripcion_Corta", func() types.Result { return a.fmt.ShortDescription(rec.Primary(types.ColDescription)) }),
		"Viviendas_Totales":          a.field("Viviendas_Totales", func() types.Result { return a.fmt.Number(rec.Primary(types.ColTotalUnits)) }),
		"Viviendas_Entregadas":       a.field("Viviendas_Entregadas", func() types.Result { return a.fmt.Number(rec.Primary(types.ColDeliveredUnits)) }),
		"Estado":                     a.text(rec.Primary(types.ColStatus)),
		"Solicitante_Financiamiento": a.text(rec.Primary(types.ColFinancialApplicant)),
		"Solicitante_Presupuestario": a.text(rec.Primary(types.ColBudgetApplicant)),
		"Municipio":                  a.text(rec.Primary(types.ColMunicipality)),
		"Localidad":                  a.text(rec.Primary(types.ColLocality)),
		"Modalidad":                  a.text(rec.Primary(types.ColModality)),
		"Programa":                   a.program,
		"Cod_emprendimiento":         a.field("Cod_emprendimiento", func() types.Result { return a.fmt.Integer(rec.Primary(types.ColVentures)) }),
		"Cod_obra":                   a.field("Cod_obra", func() types.Result { return a.fmt.Integer(rec.Primary(types.ColCodes)) }),
		"Monto_Convenio":             a.field("Monto_Convenio", func() types.Result { return a.fmt.Currency(rec.Primary(types.ColAgreementAmount)) }),
		"Fecha_UVI":                  a.field("Fecha_UVI", func() types.Result { return a.fmt.Date(rec.Primary(types.ColUVIQuoteDate)) }),
		"Total_UVI":                  a.field("Total_UVI", func() types.Result { return a.fmt.Number(rec.Primary(types.ColUVIQuantity)) }),
		"Exp_GDEBA":                  a.expedient(rec.Primary(types.ColExpedient)),
		"Avance_fisico":              a.percent(rec, types.ColPhysicalProgress),
		"Avance_financiero":          a.percent(rec, types.ColFinancialProgress),
		"Monto_Devengado":            a.field("Monto_Devengado", func() types.Result { return a.fmt.Currency(rec.Primary(types.ColAccruedAmount)) }),
		"Monto_Pagado":               a.field("Monto_Pagado", func() types.Result { return a.fmt.Currency(rec.Primary(types.ColPaidAmount)) }),
		"Fecha_ultimo_pago":          a.field("Fecha_ultimo_pago", func() types.Result { return a.fmt.Date(rec.Primary(types.ColLastPaymentDate)) }),
	}

	a.derived(c, rec)
	c["noticias"] = a.projectNews(ctx, id)
	a.paymentFields(c, id)
	return c
}

// derived copies the reconciled derived fields, computing any that are
// still missing.
func (a *Assembler) derived(c types.Context, rec types.Record) {
	compute := map[string]func() types.Result{
		types.FieldRemainingProgress: func() types.Result { return a.calc.RemainingProgress(rec.Primary(types.ColPhysicalProgress)) },
		types.FieldRemainingUnits:    func() types.Result { return a.calc.RemainingUnits(rec.Primary(types.ColTotalUnits), rec.Primary(types.ColDeliveredUnits)) },
		types.FieldRemainingUVI:      func() types.Result { return a.calc.RemainingUnits(rec.Primary(types.ColUVIQuantity), rec.Primary(types.ColUVIPaid)) },
		types.FieldRemainingAmount:   func() types.Result { return a.calc.RemainingAmount(rec.Primary(types.ColUpdatedAmount), rec.Primary(types.ColPaidAmount)) },
	}

	for _, field := range []string{
		types.FieldRemainingProgress,
		types.FieldRemainingUnits,
		types.FieldRemainingUVI,
		types.FieldRemainingAmount,
		types.FieldUpdatedBalance,
	} {
		if v := rec[field]; !a.fmt.IsEmpty(v) {
			c[field] = a.text(v)
			continue
		}
		fn, ok := compute[field]
		if !ok {
			// The balance needs the batch rate, which only the reconciler holds.
			c[field] = a.fmt.EmptyValue()
			continue
		}
		c[field] = a.field(field, fn)
	}
}

// paymentFields adds the payment list and the snapshot of the first
// payment in source order.
func (a *Assembler) paymentFields(c types.Context, id string) {
	c["pagos_lista"] = a.payments.For(id)

	empty := a.fmt.EmptyValue()
	snapshot := map[string]string{
		"Nro":            empty,
		"Expediente":     empty,
		"Nro_Operatoria": empty,
		"Contratista":    empty,
		"Estado_Pago":    empty,
		"Devengado":      empty,
		"Fecha_Pago":     empty,
		"Trata":          empty,
	}
	if p, ok := a.payments.Latest(id); ok {
		snapshot["Nro"] = a.text(p.Certificate)
		snapshot["Expediente"] = a.text(p.Expedient)
		snapshot["Nro_Operatoria"] = a.text(p.Operation)
		snapshot["Contratista"] = a.text(p.Contractor)
		snapshot["Estado_Pago"] = a.text(p.Status)
		snapshot["Devengado"] = a.text(p.Accrued)
		snapshot["Fecha_Pago"] = a.text(p.PaymentDate)
		snapshot["Trata"] = a.text(p.Batch)
	}
	for k, v := range snapshot {
		c[k] = v
	}
}

func (a *Assembler) projectImages(id string) (images types.ProjectImages) {
	images.Extra = []string{}
	if a.images == nil || id == "" {
		return images
	}
	defer func() {
		if r := recover(); r != nil {
			a.log.Error(component, "Image lookup failed: id=%s panic=%v", id, r)
			images = types.ProjectImages{Extra: []string{}}
		}
	}()

	found := a.images.Images(id)
	if found.Extra == nil {
		found.Extra = []string{}
	}
	return found
}

func (a *Assembler) projectNews(ctx context.Context, id string) (items []types.NewsItem) {
	items = []types.NewsItem{}
	if a.news == nil || id == "" {
		return items
	}
	defer func() {
		if r := recover(); r != nil {
			a.log.Error(component, "News lookup failed: id=%s panic=%v", id, r)
			items = []types.NewsItem{}
		}
	}()

	found, err := a.news.ForProject(ctx, id)
	if err != nil {
		a.log.Warn(component, "Failed to fetch news: id=%s error=%v", id, err)
		return items
	}
	if found == nil {
		return items
	}
	return found
}

// field runs one formatter call and maps a panic to the empty sentinel.
func (a *Assembler) field(name string, fn func() types.Result) (out string) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error(component, "Field failed: field=%s panic=%v", name, r)
			out = a.fmt.EmptyValue()
		}
	}()

	res := fn()
	if res.Kind == types.ParseError {
		a.log.Debug(component, "Field kept raw: field=%s value=%s", name, res.Value)
	}
	if res.Value == "" {
		return a.fmt.EmptyValue()
	}
	return res.Value
}

func (a *Assembler) text(v any) string {
	return a.fmt.Display(v)
}

func (a *Assembler) percent(rec types.Record, col string) string {
	return a.field(col, func() types.Result {
		return a.fmt.PercentScaled(rec.Primary(col), types.PercentFields[col])
	})
}

// expedient is left blank rather than "--" when the project has none.
func (a *Assembler) expedient(v any) string {
	if a.fmt.IsEmpty(v) {
		return ""
	}
	return a.text(v)
}
