package dsp

// sectionState holds the two transposed direct-form II delay registers.
type sectionState [2]float64

// steadyState returns per-section initial conditions for a unit step, so a
// constant input produces a constant output from the first sample.
func (s SOS) steadyState() []sectionState {
	zi := make([]sectionState, len(s))
	scale := 1.0
	for i, sec := range s {
		b, a := sec.B, sec.A
		dc := 0.0
		if den := a[0] + a[1] + a[2]; den != 0 {
			dc = (b[0] + b[1] + b[2]) / den
		}
		z2 := b[2] - a[2]*dc
		z1 := b[1] - a[1]*dc + z2
		zi[i] = sectionState{scale * z1, scale * z2}
		scale *= dc
	}
	return zi
}

// apply runs the cascade over x in place, starting from zi scaled by x0.
func (s SOS) apply(x []float64, zi []sectionState, x0 float64) {
	for i, sec := range s {
		z1, z2 := zi[i][0]*x0, zi[i][1]*x0
		b0, b1, b2 := sec.B[0], sec.B[1], sec.B[2]
		a1, a2 := sec.A[1], sec.A[2]
		for n, v := range x {
			y := b0*v + z1
			z1 = b1*v - a1*y + z2
			z2 = b2*v - a2*y
			x[n] = y
		}
	}
}

// Filter runs the cascade causally from rest and returns a new slice.
func (s SOS) Filter(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	s.apply(out, make([]sectionState, len(s)), 0)
	return out
}

// PadLength is the odd-extension length FiltFilt uses for this cascade.
func (s SOS) PadLength() int {
	return 3 * (2*len(s) + 1)
}

// FiltFilt filters x forward then backward so the result has zero phase.
// The signal is extended at both ends by an odd reflection of PadLength
// samples, shortened to len(x)-1 when x is too short.
func (s SOS) FiltFilt(x []float64) []float64 {
	if len(x) == 0 || len(s) == 0 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	pad := s.PadLength()
	if pad > len(x)-1 {
		pad = len(x) - 1
	}
	ext := oddExtend(x, pad)
	zi := s.steadyState()

	s.apply(ext, zi, ext[0])
	reverse(ext)
	s.apply(ext, zi, ext[0])
	reverse(ext)

	out := make([]float64, len(x))
	copy(out, ext[pad:pad+len(x)])
	return out
}

func oddExtend(x []float64, pad int) []float64 {
	n := len(x)
	ext := make([]float64, n+2*pad)
	first, last := x[0], x[n-1]
	for i := 0; i < pad; i++ {
		ext[i] = 2*first - x[pad-i]
		ext[pad+n+i] = 2*last - x[n-2-i]
	}
	copy(ext[pad:], x)
	return ext
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
