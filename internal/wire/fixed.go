package wire

import "math"

// Fixed is the protocol's signed 24.8 fixed-point number.
type Fixed int32

// NewFixed converts v to fixed point, rounding to the nearest 1/256.
func NewFixed(v float64) Fixed {
	return Fixed(int32(math.Round(v * 256)))
}

// Float64 converts f back to a float.
func (f Fixed) Float64() float64 {
	return float64(f) / 256
}
