package fixed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedPoint_FromInt64(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		scale int
		want  string
	}{
		{"zero", 0, 0, "0"},
		{"positive", 123, 0, "123"},
		{"negative", -456, 0, "-456"},
		{"with scale", 123, 2, "1.23"},
		{"negative with scale", -456, 3, "-0.456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromInt64(tt.value, tt.scale).String())
		})
	}
}

func TestFixedPoint_FromFloat64(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"zero", 0.0, "0"},
		{"positive", 123.45, "123.45"},
		{"negative", -67.89, "-67.89"},
		{"commission", 0.001, "0.001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromFloat64(tt.value).String())
		})
	}
}

func TestFixedPoint_FromFloat64Panics(t *testing.T) {
	assert.Panics(t, func() { FromFloat64(math.NaN()) })
	assert.Panics(t, func() { FromFloat64(math.Inf(1)) })
}

func TestFixedPoint_FromFloat64Clamped(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  Point
	}{
		{"nan", math.NaN(), Zero},
		{"positive infinity", math.Inf(1), Hundred},
		{"negative infinity", math.Inf(-1), NegOne},
		{"above", 1e22, Hundred},
		{"inside", 2.5, FromFloat64(2.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, FromFloat64Clamped(tt.value, NegOne, Hundred).Eq(tt.want))
		})
	}
}

func TestFixedPoint_Parse(t *testing.T) {
	p, err := Parse("84985.00")
	require.NoError(t, err)
	assert.True(t, p.Eq(FromInt64(84985, 0)))

	_, err = Parse("not a number")
	assert.Error(t, err)
}

func TestFixedPoint_Arithmetic(t *testing.T) {
	a := FromInt64(150, 0)
	b := FromFloat64(0.001)

	assert.Equal(t, "150.001", a.Add(b).String())
	assert.Equal(t, "149.999", a.Sub(b).String())
	assert.Equal(t, "0.150", a.Mul(b).String())
	assert.True(t, a.Div(FromInt64(3, 0)).Eq(FromInt64(50, 0)))
	assert.True(t, a.MulInt(2).Eq(FromInt64(300, 0)))
	assert.True(t, a.DivInt64(2).Eq(FromInt64(75, 0)))
}

func TestFixedPoint_DivPanic(t *testing.T) {
	assert.Panics(t, func() { One.Div(Zero) })
}

func TestFixedPoint_TryDiv(t *testing.T) {
	q, err := Two.TryDiv(FromInt64(4, 0))
	require.NoError(t, err)
	assert.True(t, q.Eq(FromFloat64(0.5)))

	_, err = One.TryDiv(Zero)
	assert.Error(t, err)

	_, err = FromInt64(1_000_000_000_000, 0).TryDiv(FromFloat64(1e-12))
	assert.Error(t, err)
}

func TestFixedPoint_Comparisons(t *testing.T) {
	small := FromFloat64(1e-10)
	assert.True(t, small.Gt(Zero))
	assert.True(t, small.Lt(One))
	assert.True(t, One.Gte(One))
	assert.True(t, One.Lte(One))
	assert.Equal(t, 1, One.Cmp(Zero))
	assert.Equal(t, -1, NegOne.Sign())
	assert.True(t, NegOne.IsNeg())
	assert.True(t, One.IsPos())
}

func TestFixedPoint_Clamp(t *testing.T) {
	tests := []struct {
		name  string
		value Point
		want  Point
	}{
		{"below", NegOne, Zero},
		{"inside", FromFloat64(0.999), FromFloat64(0.999)},
		{"above", Two, One},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.value.Clamp(Zero, One).Eq(tt.want))
		})
	}
}

func TestFixedPoint_MinMax(t *testing.T) {
	assert.True(t, Min(One, Two).Eq(One))
	assert.True(t, Max(One, Two).Eq(Two))
}

func TestFixedPoint_Trunc(t *testing.T) {
	p := FromFloat64(1.23456)
	assert.Equal(t, "1.23", p.Trunc(2).String())
	assert.Equal(t, "1.23", FromFloat64(1.239).Trunc(2).String())
}

func TestFixedPoint_Pow(t *testing.T) {
	assert.Equal(t, "8", FromInt64(2, 0).Pow(FromInt64(3, 0)).String())
	assert.Equal(t, "2.25", FromFloat64(1.5).Pow(Two).String())

	root, err := FromInt64(4, 0).TryPow(FromFloat64(0.5))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, root.F64(), 1e-12)

	_, err = FromInt64(-2, 0).TryPow(FromFloat64(0.5))
	assert.Error(t, err)
}

func TestFixedPoint_Sqrt252(t *testing.T) {
	assert.InDelta(t, math.Sqrt(252), Sqrt252.F64(), 1e-12)
	assert.Equal(t, "365.25", DaysPerYear.String())
}

func TestFixedPoint_TextRoundTrip(t *testing.T) {
	want := FromFloat64(84985.015)

	text, err := want.MarshalText()
	require.NoError(t, err)

	var got Point
	require.NoError(t, got.UnmarshalText(text))
	assert.True(t, got.Eq(want))
}

func BenchmarkFixedPoint_MulDiv(b *testing.B) {
	price := FromFloat64(150.25)
	shares := FromFloat64(333.1112)
	for i := 0; i < b.N; i++ {
		_ = shares.Mul(price).Div(One.Add(FromFloat64(0.001)))
	}
}
