package dsp

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Largest prime factor gonum's fftpack has a dedicated butterfly for. Other
// factors go through its generic pass, which is quadratic in the factor.
const maxFastRadix = 5

// Analytic returns the analytic signal of x: x + j*hilbert(x). The transform
// runs at len(x) when that length factors into small primes, otherwise on a
// zero-padded copy whose tail is discarded.
func Analytic(x []float64) []complex128 {
	n := len(x)
	if n == 0 {
		return nil
	}
	size := n
	if !isSmooth(size, maxFastRadix) {
		size = NextFastLength(size)
	}
	seq := make([]float64, size)
	copy(seq, x)

	half := fourier.NewFFT(size).Coefficients(nil, seq)
	spec := make([]complex128, size)
	spec[0] = half[0]
	for k := 1; k < len(half); k++ {
		spec[k] = 2 * half[k]
	}
	if size%2 == 0 {
		spec[size/2] = half[size/2]
	}

	cfft := fourier.NewCmplxFFT(size)
	out := cfft.Sequence(nil, spec)
	scale := complex(1/float64(size), 0)
	for i := range out {
		out[i] *= scale
	}
	return out[:n]
}

// Envelope returns |Analytic(x)|.
func Envelope(x []float64) []float64 {
	a := Analytic(x)
	env := make([]float64, len(a))
	for i, v := range a {
		env[i] = cmplx.Abs(v)
	}
	return env
}

// NextFastLength returns the smallest n' >= n whose prime factors are all
// 2, 3 or 5.
func NextFastLength(n int) int {
	if n <= 1 {
		return 1
	}
	for m := n; ; m++ {
		if isSmooth(m, maxFastRadix) {
			return m
		}
	}
}

func isSmooth(n, limit int) bool {
	if n <= 0 {
		return false
	}
	for _, p := range []int{2, 3, 5} {
		if p > limit {
			break
		}
		for n%p == 0 {
			n /= p
		}
	}
	return n == 1
}
