package fixed

var (
	NegOne  = FromInt64(-1, 0)
	Zero    = FromInt64(0, 0)
	One     = FromInt64(1, 0)
	Two     = FromInt64(2, 0)
	Hundred = FromInt64(100, 0)

	// Sqrt252 annualizes a per-step standard deviation.
	Sqrt252 = FromInt64(252, 0).Sqrt()

	// DaysPerYear is the calendar year length used for elapsed-time annualization.
	DaysPerYear = FromInt64(36525, 2)
)
