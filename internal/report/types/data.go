package types

import (
	"fmt"
	"strings"
)

// EmptyValue is what every display field shows when there is no data.
const EmptyValue = "--"

// Kind tags how a display value was produced.
type Kind int

const (
	OK Kind = iota
	Empty
	ParseError
	OutOfRange
	Failed
)

var kindNames = map[Kind]string{
	OK:         "ok",
	Empty:      "empty",
	ParseError: "parse_error",
	OutOfRange: "out_of_range",
	Failed:     "failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Result is a display string plus the reason it looks the way it does.
type Result struct {
	Value string
	Kind  Kind
	Err   error
}

func (r Result) String() string {
	return r.Value
}

// Valid reports whether the value came from a successful format.
func (r Result) Valid() bool {
	return r.Kind == OK
}

// Source column names of the projects sheet.
const (
	ColProjectID          = "id_obra"
	ColHistoricID         = "id_historico"
	ColDescription        = "descripcion"
	ColTotalUnits         = "viv_totales"
	ColDeliveredUnits     = "viv_entregadas"
	ColStatus             = "estado"
	ColFinancialApplicant = "solicitante_financiero"
	ColBudgetApplicant    = "solicitante_presupuestario"
	ColMunicipality       = "municipio"
	ColLocality           = "localidad"
	ColModality           = "modalidad"
	ColVentures           = "emprendimiento_incluidos"
	ColCodes              = "codigos_incluidos"
	ColAgreementAmount    = "monto_convenio"
	ColUVIQuoteDate       = "fecha_cotizacion_uvi_convenio"
	ColUVIQuantity        = "cantidad_uvis"
	ColUVIPaid            = "uvis_pagadas"
	ColExpedient          = "expediente_gdeba"
	ColPhysicalProgress   = "porcentaje_avance_fisico"
	ColFinancialProgress  = "avance_financiero"
	ColUpdatedAmount      = "monto_actualizado"
	ColAccruedAmount      = "monto_devengado"
	ColPaidAmount         = "monto_pagado"
	ColLastPaymentDate    = "fecha_ultimo_pago"
	ColMemory             = "memoria_descriptiva"
	ColFeedRemainingUVI   = "UVI Restante"
	SuffixPrimary         = "_excel"
	SuffixFeed            = "_sheets"
)

// Derived fields filled in by reconciliation.
const (
	FieldRemainingProgress = "Avance_Restante"
	FieldRemainingUnits    = "Viviendas_Restantes"
	FieldRemainingUVI      = "Uvis_Restantes"
	FieldRemainingAmount   = "Monto_Restante_Actualizado"
	FieldUpdatedBalance    = "Saldo_Obra_Actualizado"
)

// Payment statuses.
const (
	StatusPaid    = "Pagado"
	StatusAccrued = "Devengado sin pagar"
)

// PercentScale says how a stored percentage should be read.
type PercentScale int

const (
	// ScaleHundred values are stored on a 0..100 scale.
	ScaleHundred PercentScale = iota
	// ScaleFraction values are stored as fractions and multiplied by 100 when below 100.
	ScaleFraction
)

// PercentFields lists the percentage columns and how each is stored.
var PercentFields = map[string]PercentScale{
	ColPhysicalProgress:  ScaleHundred,
	ColFinancialProgress: ScaleHundred,
}

// Record is one project row. Absent cells hold nil.
type Record map[string]any

// ID returns the trimmed project id, or "" when the row has none.
func (r Record) ID() string {
	v, ok := r[ColProjectID]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Lookup returns the first non-nil value among the given keys.
func (r Record) Lookup(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Primary reads a primary source column, renamed or not by the feed merge.
func (r Record) Primary(col string) any {
	return r.Lookup(col, col+SuffixPrimary)
}

// Feed reads a feed column, renamed or not by the feed merge.
func (r Record) Feed(col string) any {
	return r.Lookup(col, col+SuffixFeed)
}

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// PaymentEntry is one ledger row already formatted for display. Blank
// strings mean the source cell was empty.
type PaymentEntry struct {
	ProjectID   string
	Batch       string
	Certificate string
	Expedient   string
	Operation   string
	Contractor  string
	Accrued     string
	PaymentDate string
	Status      string
	SourceRow   int
}

// NewsItem is a piece of editorial content linked to a project.
type NewsItem struct {
	Title   string
	Date    string
	Summary string
	Link    string
	Image   string
}

// ProjectImages holds data URIs for the images of one project.
type ProjectImages struct {
	Principal string
	Extra     []string
}

// Context is the flat key/value mapping handed to the report template.
type Context map[string]any
