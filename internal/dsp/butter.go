package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

// ErrFilterDesign marks band edges or orders no filter can be built for.
var ErrFilterDesign = errors.New("invalid filter design")

// Section is one biquad: B are numerator taps, A denominator taps with A[0]=1.
type Section struct {
	B [3]float64
	A [3]float64
}

// Response evaluates the section at normalized angular frequency w (rad/sample).
func (s Section) Response(w float64) complex128 {
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(s.B[0], 0) + complex(s.B[1], 0)*z1 + complex(s.B[2], 0)*z2
	den := complex(s.A[0], 0) + complex(s.A[1], 0)*z1 + complex(s.A[2], 0)*z2
	return num / den
}

// SOS is a cascade of biquad sections.
type SOS []Section

// Response evaluates the cascade at normalized angular frequency w.
func (s SOS) Response(w float64) complex128 {
	h := complex(1, 0)
	for _, sec := range s {
		h *= sec.Response(w)
	}
	return h
}

// Gain returns |H| at freqHz for the given sample rate.
func (s SOS) Gain(freqHz float64, sampleRate int) float64 {
	return cmplx.Abs(s.Response(2 * math.Pi * freqHz / float64(sampleRate)))
}

// ButterworthBandpass designs an order-N digital Butterworth band-pass
// between lowHz and highHz. The result has N sections (2N poles) and unit
// gain at the band's geometric center after frequency prewarping.
func ButterworthBandpass(order int, lowHz, highHz float64, sampleRate int) (SOS, error) {
	fs := float64(sampleRate)
	switch {
	case order < 1:
		return nil, fmt.Errorf("%w: order must be at least 1, got %d", ErrFilterDesign, order)
	case sampleRate <= 0:
		return nil, fmt.Errorf("%w: sample rate must be positive", ErrFilterDesign)
	case !(lowHz > 0 && lowHz < highHz && highHz < fs/2):
		return nil, fmt.Errorf("%w: band [%v, %v] Hz must satisfy 0 < low < high < %v", ErrFilterDesign, lowHz, highHz, fs/2)
	}

	// Prewarped analog edges in rad/s.
	warp := func(f float64) float64 { return 2 * fs * math.Tan(math.Pi*f/fs) }
	w1, w2 := warp(lowHz), warp(highHz)
	w0 := math.Sqrt(w1 * w2)
	bw := w2 - w1

	// Analog low-pass prototype poles, transformed to band-pass.
	poles := make([]complex128, 0, 2*order)
	for m := -order + 1; m < order; m += 2 {
		p := -cmplx.Exp(complex(0, math.Pi*float64(m)/float64(2*order)))
		half := p * complex(bw/2, 0)
		root := cmplx.Sqrt(half*half - complex(w0*w0, 0))
		poles = append(poles, half+root, half-root)
	}

	// Bilinear transform.
	k := complex(2*fs, 0)
	for i, p := range poles {
		poles[i] = (k + p) / (k - p)
	}

	sos := pairPoles(poles)
	if len(sos) != order {
		return nil, fmt.Errorf("%w: paired %d sections for order %d", ErrFilterDesign, len(sos), order)
	}

	// Every section has zeros at z=+1 and z=-1. Normalize each to unit gain at
	// the digital image of the analog center frequency.
	center := 2 * math.Atan(w0/(2*fs))
	for i := range sos {
		sos[i].B = [3]float64{1, 0, -1}
		g := cmplx.Abs(sos[i].Response(center))
		if g == 0 || math.IsNaN(g) || math.IsInf(g, 0) {
			return nil, fmt.Errorf("%w: degenerate section gain %v", ErrFilterDesign, g)
		}
		for j := range sos[i].B {
			sos[i].B[j] /= g
		}
	}
	return sos, nil
}

// pairPoles groups conjugate pairs, and leftover real poles two at a time,
// into denominator sections.
func pairPoles(poles []complex128) SOS {
	const tol = 1e-12
	var reals []float64
	var out SOS
	for _, p := range poles {
		switch {
		case math.Abs(imag(p)) <= tol*math.Max(1, cmplx.Abs(p)):
			reals = append(reals, real(p))
		case imag(p) > 0:
			out = append(out, Section{A: [3]float64{1, -2 * real(p), real(p)*real(p) + imag(p)*imag(p)}})
		}
	}
	sort.Float64s(reals)
	for i := 0; i+1 < len(reals); i += 2 {
		a, b := reals[i], reals[i+1]
		out = append(out, Section{A: [3]float64{1, -(a + b), a * b}})
	}
	if len(reals)%2 == 1 {
		a := reals[len(reals)-1]
		out = append(out, Section{A: [3]float64{1, -a, 0}})
	}
	return out
}
