package waveform

import "math"

// Samples converts a duration to a sample count using round-half-to-even.
// Negative durations yield zero.
func Samples(sampleRate int, durationSec float64) int {
	if sampleRate <= 0 || durationSec <= 0 {
		return 0
	}
	return int(math.RoundToEven(durationSec * float64(sampleRate)))
}

// Silence returns an all-zero buffer covering durationSec.
func Silence(sampleRate int, durationSec float64) []float64 {
	return make([]float64, Samples(sampleRate, durationSec))
}

// Tone returns amplitude*sin(2*pi*freq*t) sampled at t = i/sampleRate.
func Tone(sampleRate int, freqHz, durationSec, amplitude float64) []float64 {
	out := make([]float64, Samples(sampleRate, durationSec))
	w := 2 * math.Pi * freqHz / float64(sampleRate)
	for i := range out {
		out[i] = amplitude * math.Sin(w*float64(i))
	}
	return out
}

// LinearChirp describes a sweep whose instantaneous frequency rises
// linearly from StartHz at t=0 to EndHz at t=DurationSec.
type LinearChirp struct {
	StartHz     float64
	EndHz       float64
	DurationSec float64
}

// Rate is the sweep rate in Hz per second.
func (c LinearChirp) Rate() float64 {
	if c.DurationSec <= 0 {
		return 0
	}
	return (c.EndHz - c.StartHz) / c.DurationSec
}

// Phase returns the instantaneous phase in radians at time t.
func (c LinearChirp) Phase(t float64) float64 {
	return 2 * math.Pi * (c.StartHz*t + 0.5*c.Rate()*t*t)
}

// Frequency returns the instantaneous frequency in Hz at time t.
func (c LinearChirp) Frequency(t float64) float64 {
	return c.StartHz + c.Rate()*t
}

// Render samples the sweep at the given rate and amplitude.
func (c LinearChirp) Render(sampleRate int, amplitude float64) []float64 {
	out := make([]float64, Samples(sampleRate, c.DurationSec))
	sr := float64(sampleRate)
	for i := range out {
		out[i] = amplitude * math.Sin(c.Phase(float64(i)/sr))
	}
	return out
}

// Chirp returns a linear sweep from startHz to endHz.
func Chirp(sampleRate int, startHz, endHz, durationSec, amplitude float64) []float64 {
	return LinearChirp{StartHz: startHz, EndHz: endHz, DurationSec: durationSec}.Render(sampleRate, amplitude)
}

// FadeSamples is the ramp length ApplyFade uses for fadeMs.
func FadeSamples(sampleRate int, fadeMs float64) int {
	return Samples(sampleRate, fadeMs*1e-3)
}

// ApplyFade returns a copy of w with a linear 0->1 ramp over the first
// FadeSamples samples and 1->0 over the last. The copy is unmodified when the
// ramp is empty or the two ramps would meet or overlap.
func ApplyFade(w []float64, sampleRate int, fadeMs float64) []float64 {
	out := make([]float64, len(w))
	copy(out, w)

	n := FadeSamples(sampleRate, fadeMs)
	if n == 0 || 2*n >= len(out) {
		return out
	}
	ramp := linspace(n)
	tail := len(out) - n
	for i, g := range ramp {
		out[i] *= g
		out[tail+i] *= ramp[n-1-i]
	}
	return out
}

// linspace returns n evenly spaced gains from 0 to 1 inclusive.
func linspace(n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = 0
		return out
	}
	step := 1 / float64(n-1)
	for i := range out {
		out[i] = float64(i) * step
	}
	out[n-1] = 1
	return out
}
