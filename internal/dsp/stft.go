package dsp

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// STFTParams configures MagnitudeSpectrogram.
type STFTParams struct {
	FFTSize   int
	HopSize   int
	WinLength int
	// MinHz and MaxHz restrict the returned rows to bins with
	// MinHz <= f <= MaxHz. Both zero keeps every bin.
	MinHz float64
	MaxHz float64
}

// Validate checks the frame geometry.
func (p STFTParams) Validate() error {
	switch {
	case p.FFTSize < 2:
		return fmt.Errorf("fft size must be at least 2, got %d", p.FFTSize)
	case p.HopSize < 1:
		return fmt.Errorf("hop size must be positive, got %d", p.HopSize)
	case p.WinLength < 1 || p.WinLength > p.FFTSize:
		return fmt.Errorf("window length must be in [1, %d], got %d", p.FFTSize, p.WinLength)
	case p.MinHz < 0 || (p.MaxHz != 0 && p.MaxHz < p.MinHz):
		return fmt.Errorf("invalid band [%v, %v] Hz", p.MinHz, p.MaxHz)
	}
	return nil
}

// Spectrogram holds |STFT| restricted to a band. Frames[n][k] is the
// magnitude of bin Bins[k] in frame n, whose center sits at sample n*Hop.
type Spectrogram struct {
	SampleRate int
	Hop        int
	FFTSize    int
	Bins       []int
	Frames     [][]float64
}

// BinFrequency returns the center frequency of FFT bin k.
func (s Spectrogram) BinFrequency(k int) float64 {
	return float64(k) * float64(s.SampleRate) / float64(s.FFTSize)
}

// FrameTime returns the time in seconds of frame n.
func (s Spectrogram) FrameTime(n int) float64 {
	return float64(n*s.Hop) / float64(s.SampleRate)
}

// HannPeriodic returns a periodic Hann window of length n.
func HannPeriodic(n int) []float64 {
	if n == 1 {
		return []float64{1}
	}
	w := make([]float64, n+1)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)[:n]
}

// FrameCount is the number of centered frames for a signal of n samples.
func FrameCount(n, fftSize, hop int) int {
	padded := n + 2*(fftSize/2)
	if hop <= 0 || padded < fftSize {
		return 0
	}
	return 1 + (padded-fftSize)/hop
}

// MagnitudeSpectrogram computes a centered short-time magnitude spectrum.
// The signal is zero-padded by FFTSize/2 on both sides and the Hann window
// of WinLength is centered inside each FFTSize frame.
func MagnitudeSpectrogram(x []float64, sampleRate int, p STFTParams) (Spectrogram, error) {
	if err := p.Validate(); err != nil {
		return Spectrogram{}, err
	}
	if sampleRate <= 0 {
		return Spectrogram{}, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	spec := Spectrogram{SampleRate: sampleRate, Hop: p.HopSize, FFTSize: p.FFTSize}
	for k := 0; k <= p.FFTSize/2; k++ {
		f := spec.BinFrequency(k)
		if p.MinHz == 0 && p.MaxHz == 0 || f >= p.MinHz && f <= p.MaxHz {
			spec.Bins = append(spec.Bins, k)
		}
	}

	win := make([]float64, p.FFTSize)
	offset := (p.FFTSize - p.WinLength) / 2
	copy(win[offset:], HannPeriodic(p.WinLength))

	half := p.FFTSize / 2
	padded := make([]float64, len(x)+2*half)
	copy(padded[half:], x)

	frames := FrameCount(len(x), p.FFTSize, p.HopSize)
	spec.Frames = make([][]float64, frames)
	fft := fourier.NewFFT(p.FFTSize)
	buf := make([]float64, p.FFTSize)
	coeff := make([]complex128, p.FFTSize/2+1)
	for n := range frames {
		start := n * p.HopSize
		seg := padded[start : start+p.FFTSize]
		for i := range buf {
			buf[i] = seg[i] * win[i]
		}
		fft.Coefficients(coeff, buf)
		row := make([]float64, len(spec.Bins))
		for j, k := range spec.Bins {
			row[j] = cmplx.Abs(coeff[k])
		}
		spec.Frames[n] = row
	}
	return spec, nil
}

// BandEnergy sums squared magnitudes of a frame.
func BandEnergy(frame []float64) float64 {
	var e float64
	for _, v := range frame {
		e += v * v
	}
	return e
}
