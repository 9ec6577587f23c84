package distance

import "math"

// PowAbs returns |x|^p with fast paths for p = 1 and p = 2.
func PowAbs(x, p float64) float64 {
	switch p {
	case 1:
		return math.Abs(x)
	case 2:
		return x * x
	default:
		return math.Pow(math.Abs(x), p)
	}
}

// Root returns s^(1/p), the inverse of an accumulated PowAbs sum.
func Root(s, p float64) float64 {
	switch p {
	case 1:
		return s
	case 2:
		return math.Sqrt(s)
	default:
		return math.Pow(s, 1/p)
	}
}

// Lp returns the Lp distance between two vectors of equal length.
func Lp(a, b []float32, p float64) float64 {
	var acc float64
	for i := range a {
		acc += PowAbs(float64(a[i])-float64(b[i]), p)
	}
	return Root(acc, p)
}

// Sum returns the sum of v.
func Sum(v []float32) float64 {
	var acc float64
	for _, x := range v {
		acc += float64(x)
	}
	return acc
}
