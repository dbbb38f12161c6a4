package calc

import (
	"fmt"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/format"
	"github.com/farxc/informes-obras/internal/report/types"
	"github.com/shopspring/decimal"
)

const component = "Calculator"

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Engine computes derived figures. Every method is pure: inputs are never
// modified and missing or unparseable inputs produce the empty sentinel.
type Engine struct {
	fmt *format.Formatter
	log *logger.Logger
}

func NewEngine(f *format.Formatter, log *logger.Logger) *Engine {
	return &Engine{fmt: f, log: log}
}

// derive parses inputs to decimals and hands them to compute. A panic in
// compute only affects the field being derived.
func (e *Engine) derive(field string, compute func([]decimal.Decimal) types.Result, inputs ...any) (res types.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error(component, "Derivation failed: field=%s inputs=%v panic=%v", field, inputs, r)
			res = types.Result{Value: e.fmt.EmptyValue(), Kind: types.Failed, Err: fmt.Errorf("%s: %v", field, r)}
		}
	}()

	for _, in := range inputs {
		if e.fmt.IsEmpty(in) {
			return types.Result{Value: e.fmt.EmptyValue(), Kind: types.Empty}
		}
	}

	nums := make([]decimal.Decimal, len(inputs))
	for i, in := range inputs {
		d, err := e.fmt.CleanDecimal(in)
		if err != nil {
			e.log.Warn(component, "Cannot derive field: field=%s value=%v error=%v", field, in, err)
			return types.Result{Value: e.fmt.EmptyValue(), Kind: types.ParseError, Err: err}
		}
		nums[i] = d
	}
	return compute(nums)
}

// RemainingProgress returns 100 minus the physical progress. Values in
// [0, 1] are read as fractions.
func (e *Engine) RemainingProgress(current any) types.Result {
	return e.derive(types.FieldRemainingProgress, func(in []decimal.Decimal) types.Result {
		p := in[0]
		if !p.IsNegative() && !p.GreaterThan(one) {
			p = p.Mul(hundred)
		}
		rest := clamp(hundred.Sub(p), decimal.Zero, hundred)
		return e.fmt.Percent(rest.InexactFloat64())
	}, current)
}

// RemainingUnits is max(0, total - delivered) with thousands grouping.
func (e *Engine) RemainingUnits(total, delivered any) types.Result {
	return e.derive(types.FieldRemainingUnits, func(in []decimal.Decimal) types.Result {
		rest := decimal.Max(decimal.Zero, in[0].Sub(in[1]))
		return e.fmt.Number(rest.InexactFloat64())
	}, total, delivered)
}

// RemainingAmount is max(0, updated - paid) as whole currency.
func (e *Engine) RemainingAmount(updated, paid any) types.Result {
	return e.derive(types.FieldRemainingAmount, func(in []decimal.Decimal) types.Result {
		rest := decimal.Max(decimal.Zero, in[0].Sub(in[1]))
		return e.fmt.CurrencyInt(rest.InexactFloat64())
	}, updated, paid)
}

// UVIBalance values the outstanding UVI quantity at the daily rate.
func (e *Engine) UVIBalance(quantity, rate any) types.Result {
	return e.derive(types.FieldUpdatedBalance, func(in []decimal.Decimal) types.Result {
		if !in[1].IsPositive() {
			e.log.Warn(component, "Non positive UVI rate: rate=%s", in[1].String())
			return types.Result{Value: e.fmt.EmptyValue(), Kind: types.OutOfRange}
		}
		balance := decimal.Max(decimal.Zero, in[0].Mul(in[1]))
		return e.fmt.CurrencyInt(balance.InexactFloat64())
	}, quantity, rate)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
