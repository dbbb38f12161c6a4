package ledger

import (
	"sort"
	"strings"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/format"
	"github.com/farxc/informes-obras/internal/report/types"
	"github.com/farxc/informes-obras/internal/report/utils"
	"github.com/go-gota/gota/dataframe"
)

const component = "PaymentLedger"

type Field int

const (
	FieldKey Field = iota
	FieldBatch
	FieldCertificate
	FieldExpedient
	FieldOperation
	FieldContractor
	FieldAccrued
	FieldPaymentDate
)

// Candidates lists the normalized header names accepted for each field, in
// order of preference.
var Candidates = map[Field][]string{
	FieldKey:         {"id_obra", "obra_id", "idobra", "id", "obra", "codigo_obra", "cod_obra"},
	FieldBatch:       {"trata"},
	FieldCertificate: {"certificado_dga", "nro_certificado", "certificado"},
	FieldExpedient:   {"expediente", "expediente_gdeba", "exp"},
	FieldOperation:   {"op", "nro_operatoria", "orden_de_pago"},
	FieldContractor:  {"ente", "contratista"},
	FieldAccrued:     {"importe_devengado", "devengado", "monto_devengado"},
	FieldPaymentDate: {"fecha_pago", "fecha_de_pago", "fecha", "fecha_pago_real"},
}

// Columns maps every field to the original header it was found under. An
// empty string means the sheet lacks that field.
type Columns map[Field]string

// ResolveColumns picks, for each field, the first candidate present among
// the headers once normalized. The first header normalizing to a name wins.
func ResolveColumns(headers []string) Columns {
	byNormalized := make(map[string]string, len(headers))
	normalized := make([]string, 0, len(headers))
	for _, h := range headers {
		n := utils.NormalizeColumn(h)
		if _, seen := byNormalized[n]; seen {
			continue
		}
		byNormalized[n] = h
		normalized = append(normalized, n)
	}

	cols := make(Columns, len(Candidates))
	for field, candidates := range Candidates {
		if picked := utils.PickFirst(normalized, candidates...); picked != "" {
			cols[field] = byNormalized[picked]
		}
	}
	return cols
}

// Index groups payment entries by project id, keeping source order.
type Index struct {
	entries map[string][]types.PaymentEntry
	total   int
}

func emptyIndex() *Index {
	return &Index{entries: map[string][]types.PaymentEntry{}}
}

// For returns the entries of a project, or an empty slice.
func (ix *Index) For(projectID string) []types.PaymentEntry {
	if ix == nil {
		return []types.PaymentEntry{}
	}
	entries := ix.entries[strings.TrimSpace(projectID)]
	if entries == nil {
		return []types.PaymentEntry{}
	}
	return entries
}

// Latest returns the snapshot entry of a project: the first one in source order.
func (ix *Index) Latest(projectID string) (types.PaymentEntry, bool) {
	entries := ix.For(projectID)
	if len(entries) == 0 {
		return types.PaymentEntry{}, false
	}
	return entries[0], true
}

// Projects is the number of projects with at least one entry.
func (ix *Index) Projects() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// Total is the number of indexed entries.
func (ix *Index) Total() int {
	if ix == nil {
		return 0
	}
	return ix.total
}

// Build indexes the payments sheet. An empty sheet or one without a project
// key column yields an empty index.
func Build(df dataframe.DataFrame, f *format.Formatter, log *logger.Logger) *Index {
	ix := emptyIndex()

	if df.Err != nil || df.Nrow() == 0 {
		log.Info(component, "No payments indexed: empty sheet")
		return ix
	}

	cols := ResolveColumns(df.Names())
	if cols[FieldKey] == "" {
		log.Warn(component, "No payments indexed: project key column not found in headers=%v", df.Names())
		return ix
	}
	log.Debug(component, "Resolved payment columns: %v", cols)

	for i := 0; i < df.Nrow(); i++ {
		entry, ok := entryFromRow(&df, i, cols, f)
		if !ok {
			continue
		}
		ix.entries[entry.ProjectID] = append(ix.entries[entry.ProjectID], entry)
		ix.total++
	}

	for id := range ix.entries {
		entries := ix.entries[id]
		sort.SliceStable(entries, func(a, b int) bool {
			return entries[a].SourceRow < entries[b].SourceRow
		})
	}

	log.Info(component, "Payments indexed: entries=%d projects=%d", ix.total, len(ix.entries))
	return ix
}

func entryFromRow(df *dataframe.DataFrame, row int, cols Columns, f *format.Formatter) (types.PaymentEntry, bool) {
	cell := func(field Field) any {
		if cols[field] == "" {
			return nil
		}
		return utils.GetValue(cols[field], row, df)
	}
	text := func(field Field) string {
		v := cell(field)
		if v == nil {
			return ""
		}
		return strings.TrimSpace(format.Stringify(v))
	}

	id := text(FieldKey)
	if id == "" || id == f.EmptyValue() {
		return types.PaymentEntry{}, false
	}

	entry := types.PaymentEntry{
		ProjectID:  id,
		Batch:      text(FieldBatch),
		Expedient:  text(FieldExpedient),
		Operation:  text(FieldOperation),
		Contractor: text(FieldContractor),
		SourceRow:  row,
	}

	if v := cell(FieldCertificate); v != nil {
		entry.Certificate = f.Number(v).String()
	}

	accrued := cell(FieldAccrued)
	if accrued != nil {
		entry.Accrued = f.CurrencyInt(accrued).String()
	}

	paid := cell(FieldPaymentDate)
	if paid != nil {
		entry.PaymentDate = f.Date(paid).String()
	}

	_, isDate := f.ParseDate(paid)
	switch {
	case isDate:
		entry.Status = types.StatusPaid
	case accrued != nil:
		entry.Status = types.StatusAccrued
	}

	return entry, true
}
