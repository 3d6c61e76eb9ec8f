package detect

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"beaconsync/internal/dsp"
)

// ChirpParams configures the chirp detector.
type ChirpParams struct {
	FFTSize   int     `json:"fft_size"`
	HopSize   int     `json:"hop_size"`
	WinLength int     `json:"win_length"`
	MinHz     float64 `json:"min_hz"`
	MaxHz     float64 `json:"max_hz"`
	// StartIndex and EndIndex pick the boundary chirps. Negative values
	// count from the end of the timeline.
	StartIndex      int `json:"start_index"`
	EndIndex        int `json:"end_index"`
	MinPeakDistance int `json:"min_peak_distance"`
	// OnsetOnly keeps only magnitude increases when computing flux. Off by
	// default so flux is the plain sum of squared frame differences.
	OnsetOnly bool `json:"onset_only"`
}

// DefaultChirpParams returns the detector defaults for 48 kHz captures.
func DefaultChirpParams() ChirpParams {
	return ChirpParams{
		FFTSize:         2048,
		HopSize:         240,
		WinLength:       2048,
		MinHz:           15000,
		MaxHz:           19200,
		StartIndex:      2,
		EndIndex:        -3,
		MinPeakDistance: 20,
	}
}

func (p ChirpParams) stft() dsp.STFTParams {
	return dsp.STFTParams{
		FFTSize:   p.FFTSize,
		HopSize:   p.HopSize,
		WinLength: p.WinLength,
		MinHz:     p.MinHz,
		MaxHz:     p.MaxHz,
	}
}

// Validate checks the parameters against a sample rate.
func (p ChirpParams) Validate(sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidParams, sampleRate)
	}
	if err := p.stft().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if p.MaxHz <= p.MinHz || p.MaxHz > float64(sampleRate)/2 {
		return fmt.Errorf("%w: band [%v, %v] Hz outside [0, %v]", ErrInvalidParams, p.MinHz, p.MaxHz, float64(sampleRate)/2)
	}
	if p.MinPeakDistance < 1 {
		return fmt.Errorf("%w: min peak distance must be at least 1 frame, got %d", ErrInvalidParams, p.MinPeakDistance)
	}
	return nil
}

// ChirpAnalysis carries the intermediate values of a chirp detection.
type ChirpAnalysis struct {
	Flux      []float64 `json:"-"`
	Mean      float64   `json:"mean"`
	StdDev    float64   `json:"stddev"`
	Threshold float64   `json:"threshold"`
	Peaks     []int     `json:"peaks"`
	Timeline  []float64 `json:"timeline"`
	Frames    int       `json:"frames"`
	Bins      int       `json:"bins"`
}

// SpectralFlux returns per-frame band flux. Flux[0] is zero; Flux[n] compares
// frame n with frame n-1.
func SpectralFlux(spec dsp.Spectrogram, onsetOnly bool) []float64 {
	flux := make([]float64, len(spec.Frames))
	for n := 1; n < len(spec.Frames); n++ {
		prev, cur := spec.Frames[n-1], spec.Frames[n]
		var sum float64
		for k := range cur {
			d := cur[k] - prev[k]
			if onsetOnly && d < 0 {
				continue
			}
			sum += d * d
		}
		flux[n] = sum
	}
	return flux
}

// AnalyzeChirps runs the spectrogram, flux and peak stages.
func AnalyzeChirps(samples []float64, sampleRate int, p ChirpParams) (ChirpAnalysis, error) {
	if err := p.Validate(sampleRate); err != nil {
		return ChirpAnalysis{}, err
	}
	spec, err := dsp.MagnitudeSpectrogram(samples, sampleRate, p.stft())
	if err != nil {
		return ChirpAnalysis{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if len(spec.Bins) == 0 {
		return ChirpAnalysis{}, fmt.Errorf("%w: no FFT bins in [%v, %v] Hz", ErrInvalidParams, p.MinHz, p.MaxHz)
	}

	flux := SpectralFlux(spec, p.OnsetOnly)
	analysis := ChirpAnalysis{Flux: flux, Frames: len(spec.Frames), Bins: len(spec.Bins)}
	if len(flux) == 0 {
		return analysis, nil
	}
	analysis.Mean, analysis.StdDev = stat.PopMeanStdDev(flux, nil)
	analysis.Threshold = analysis.Mean + 2*analysis.StdDev
	analysis.Peaks = FindPeaks(flux, analysis.Threshold, p.MinPeakDistance)
	analysis.Timeline = make([]float64, len(analysis.Peaks))
	for i, frame := range analysis.Peaks {
		analysis.Timeline[i] = spec.FrameTime(frame)
	}
	return analysis, nil
}

// DetectChirps returns the ascending chirp onset times in seconds.
func DetectChirps(samples []float64, sampleRate int, p ChirpParams) ([]float64, error) {
	analysis, err := AnalyzeChirps(samples, sampleRate, p)
	if err != nil {
		return nil, err
	}
	return analysis.Timeline, nil
}

// SelectWindow picks the crop window between two timeline entries.
func SelectWindow(timeline []float64, startIndex, endIndex int) (Result, error) {
	start, err := timelineAt(timeline, startIndex)
	if err != nil {
		return Result{}, err
	}
	end, err := timelineAt(timeline, endIndex)
	if err != nil {
		return Result{}, err
	}
	res := Result{StartSec: start, EndSec: end, Method: MethodChirp}
	if end <= start {
		return Result{}, fmt.Errorf("%w: chirp %d at %.6fs, chirp %d at %.6fs", ErrInvalidCropWindow, startIndex, start, endIndex, end)
	}
	return res, nil
}

func timelineAt(timeline []float64, index int) (float64, error) {
	n := len(timeline)
	if index < 0 {
		if n < -index {
			return 0, fmt.Errorf("%w: need %d chirps for index %d, found %d", ErrInsufficientChirps, -index, index, n)
		}
		return timeline[n+index], nil
	}
	if n < index+1 {
		return 0, fmt.Errorf("%w: need %d chirps for index %d, found %d", ErrInsufficientChirps, index+1, index, n)
	}
	return timeline[index], nil
}

// DetectChirpWindow runs DetectChirps and SelectWindow with the configured
// boundary indices.
func DetectChirpWindow(samples []float64, sampleRate int, p ChirpParams) (Result, error) {
	timeline, err := DetectChirps(samples, sampleRate, p)
	if err != nil {
		return Result{}, err
	}
	return SelectWindow(timeline, p.StartIndex, p.EndIndex)
}
