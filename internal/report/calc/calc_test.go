package calc

import (
	"fmt"
	"math"
	"testing"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/format"
	"github.com/farxc/informes-obras/internal/report/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*Engine, *format.Formatter) {
	t.Helper()
	f, err := format.New(format.DefaultConfig(), logger.Discard())
	require.NoError(t, err)
	return NewEngine(f, logger.Discard()), f
}

func TestRemainingProgress(t *testing.T) {
	e, _ := newEngine(t)

	cases := []struct {
		in   any
		want string
	}{
		{45.0, "55%"},
		{0.45, "55%"},
		{"45", "55%"},
		{"0,45", "55%"},
		{"100", "0%"},
		{1.0, "0%"},
		{0.0, "100%"},
		{150.0, "0%"},
		{-20.0, "100%"},
		{"--", "--"},
		{nil, "--"},
		{"abc", "--"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, e.RemainingProgress(tc.in).String(), "%v", tc.in)
	}
}

func TestRemainingProgressStaysInRange(t *testing.T) {
	e, f := newEngine(t)

	for p := -50.0; p <= 250; p += 7.5 {
		res := e.RemainingProgress(p)
		require.Equal(t, types.OK, res.Kind, p)

		n, err := f.Clean(res.String()[:len(res.String())-1])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 0.0)
		assert.LessOrEqual(t, n, 100.0)
	}
}

func TestRemainingUnits(t *testing.T) {
	e, f := newEngine(t)

	assert.Equal(t, "60", e.RemainingUnits("100", "40").String())
	assert.Equal(t, "0", e.RemainingUnits(40, 100).String())
	assert.Equal(t, "1.200", e.RemainingUnits("1.500", "300").String())
	assert.Equal(t, "--", e.RemainingUnits("--", "3").String())
	assert.Equal(t, types.Empty, e.RemainingUnits("10", nil).Kind)
	assert.Equal(t, types.ParseError, e.RemainingUnits("diez", "3").Kind)

	for total := 0; total <= 120; total += 11 {
		for delivered := 0; delivered <= 120; delivered += 13 {
			got, err := f.Clean(e.RemainingUnits(total, delivered).String())
			require.NoError(t, err)
			assert.Equal(t, math.Max(0, float64(total-delivered)), got, fmt.Sprintf("%d-%d", total, delivered))
		}
	}
}

func TestRemainingAmount(t *testing.T) {
	e, _ := newEngine(t)

	assert.Equal(t, "$ 750.000", e.RemainingAmount("1.000.000", "250.000").String())
	assert.Equal(t, "$ 0", e.RemainingAmount("100", "250").String())
	assert.Equal(t, "--", e.RemainingAmount(math.NaN(), "250").String())
}

func TestUVIBalance(t *testing.T) {
	e, _ := newEngine(t)

	assert.Equal(t, "$ 1.234.560", e.UVIBalance(1000, "1.234,56").String())
	assert.Equal(t, "$ 1.234.560", e.UVIBalance("1.000", "1234,56").String())

	zero := e.UVIBalance(1000, "0")
	assert.Equal(t, "--", zero.String())
	assert.Equal(t, types.OutOfRange, zero.Kind)

	assert.Equal(t, "--", e.UVIBalance(1000, "-5").String())
	assert.Equal(t, "--", e.UVIBalance(1000, nil).String())
	assert.Equal(t, "--", e.UVIBalance(1000, "").String())
	assert.Equal(t, "--", e.UVIBalance(1000, "no disponible").String())
	assert.Equal(t, "$ 0", e.UVIBalance(-3, "10").String())
}

func TestDeriveRecoversFromPanics(t *testing.T) {
	e, _ := newEngine(t)

	res := e.derive("broken", func([]decimal.Decimal) types.Result {
		panic("boom")
	}, "1")

	assert.Equal(t, types.Failed, res.Kind)
	assert.Equal(t, "--", res.String())
	assert.Error(t, res.Err)
}

func TestDerivationsDoNotMutateInputs(t *testing.T) {
	e, _ := newEngine(t)

	in := []any{"1.000", "250"}
	_ = e.RemainingAmount(in[0], in[1])
	assert.Equal(t, []any{"1.000", "250"}, in)
}
