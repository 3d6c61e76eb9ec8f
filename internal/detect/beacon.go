package detect

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"beaconsync/internal/dsp"
)

// Threshold strategies for the beacon envelope.
const (
	StrategyPeak       = "peak"
	StrategyPercentile = "percentile"
)

// BeaconParams configures DetectBeacon.
type BeaconParams struct {
	CenterHz       float64 `json:"center_hz"`
	BandwidthHz    float64 `json:"bandwidth_hz"`
	MinDurationSec float64 `json:"min_duration_sec"`
	ThresholdRatio float64 `json:"threshold_ratio"`
	Strategy       string  `json:"strategy"`
	// Percentile in (0, 100], used by the percentile strategy.
	Percentile  float64 `json:"percentile"`
	FilterOrder int     `json:"filter_order"`
}

// DefaultBeaconParams matches the default protocol's 10 kHz beacon.
func DefaultBeaconParams() BeaconParams {
	return BeaconParams{
		CenterHz:       10000,
		BandwidthHz:    300,
		MinDurationSec: 2.5,
		ThresholdRatio: 0.3,
		Strategy:       StrategyPeak,
		Percentile:     99,
		FilterOrder:    4,
	}
}

// Validate checks the parameters against a sample rate.
func (p BeaconParams) Validate(sampleRate int) error {
	nyquist := float64(sampleRate) / 2
	switch {
	case sampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidParams, sampleRate)
	case p.BandwidthHz <= 0:
		return fmt.Errorf("%w: bandwidth must be positive, got %v", ErrInvalidParams, p.BandwidthHz)
	case p.CenterHz-p.BandwidthHz <= 0 || p.CenterHz+p.BandwidthHz >= nyquist:
		return fmt.Errorf("%w: band [%v, %v] Hz outside (0, %v)", ErrInvalidParams,
			p.CenterHz-p.BandwidthHz, p.CenterHz+p.BandwidthHz, nyquist)
	case p.MinDurationSec < 0:
		return fmt.Errorf("%w: min duration must not be negative, got %v", ErrInvalidParams, p.MinDurationSec)
	case p.ThresholdRatio <= 0:
		return fmt.Errorf("%w: threshold ratio must be positive, got %v", ErrInvalidParams, p.ThresholdRatio)
	case p.FilterOrder < 1:
		return fmt.Errorf("%w: filter order must be at least 1, got %d", ErrInvalidParams, p.FilterOrder)
	}
	switch p.strategy() {
	case StrategyPeak:
	case StrategyPercentile:
		if p.Percentile <= 0 || p.Percentile > 100 {
			return fmt.Errorf("%w: percentile must be in (0, 100], got %v", ErrInvalidParams, p.Percentile)
		}
	default:
		return fmt.Errorf("%w: unknown threshold strategy %q", ErrInvalidParams, p.Strategy)
	}
	return nil
}

func (p BeaconParams) strategy() string {
	s := strings.ToLower(strings.TrimSpace(p.Strategy))
	if s == "" {
		return StrategyPeak
	}
	return s
}

// BeaconAnalysis carries the intermediate values of a beacon detection.
type BeaconAnalysis struct {
	Envelope  []float64 `json:"-"`
	Reference float64   `json:"reference"`
	Threshold float64   `json:"threshold"`
	// FirstIndex and LastIndex are -1 when nothing crossed the threshold.
	FirstIndex int `json:"first_index"`
	LastIndex  int `json:"last_index"`
	// Above counts envelope samples strictly above the threshold.
	Above    int    `json:"above"`
	Strategy string `json:"strategy"`
}

// FirstSec is FirstIndex in seconds.
func (a BeaconAnalysis) FirstSec(sampleRate int) float64 {
	return float64(a.FirstIndex) / float64(sampleRate)
}

// LastSec is LastIndex in seconds.
func (a BeaconAnalysis) LastSec(sampleRate int) float64 {
	return float64(a.LastIndex) / float64(sampleRate)
}

// AnalyzeBeacon filters, envelopes and thresholds the capture. It reports
// the crossing indices without turning them into a crop window.
func AnalyzeBeacon(samples []float64, sampleRate int, p BeaconParams) (BeaconAnalysis, error) {
	if err := p.Validate(sampleRate); err != nil {
		return BeaconAnalysis{}, err
	}
	analysis := BeaconAnalysis{FirstIndex: -1, LastIndex: -1, Strategy: p.strategy()}
	if len(samples) == 0 {
		return analysis, nil
	}

	sos, err := dsp.ButterworthBandpass(p.FilterOrder, p.CenterHz-p.BandwidthHz, p.CenterHz+p.BandwidthHz, sampleRate)
	if err != nil {
		return BeaconAnalysis{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	env := dsp.Envelope(sos.FiltFilt(samples))
	analysis.Envelope = env

	switch analysis.Strategy {
	case StrategyPercentile:
		sorted := slices.Clone(env)
		slices.Sort(sorted)
		analysis.Reference = stat.Quantile(p.Percentile/100, stat.LinInterp, sorted, nil)
	default:
		analysis.Reference = floats.Max(env)
	}
	analysis.Threshold = p.ThresholdRatio * analysis.Reference

	for i, v := range env {
		if v > analysis.Threshold {
			if analysis.FirstIndex < 0 {
				analysis.FirstIndex = i
			}
			analysis.LastIndex = i
			analysis.Above++
		}
	}
	return analysis, nil
}

// DetectBeacon returns the window between the two beacons. The first and
// last envelope crossings are moved inward by MinDurationSec.
func DetectBeacon(samples []float64, sampleRate int, p BeaconParams) (Result, error) {
	analysis, err := AnalyzeBeacon(samples, sampleRate, p)
	if err != nil {
		return Result{}, err
	}
	return analysis.Window(sampleRate, p.MinDurationSec)
}

// Window converts the crossing indices into a crop window.
func (a BeaconAnalysis) Window(sampleRate int, minDurationSec float64) (Result, error) {
	if a.FirstIndex < 0 || math.IsNaN(a.Threshold) {
		return Result{}, ErrNoBeaconEnergy
	}
	return Result{
		StartSec: a.FirstSec(sampleRate) + minDurationSec,
		EndSec:   a.LastSec(sampleRate) - minDurationSec,
		Method:   MethodBeacon,
	}, nil
}
