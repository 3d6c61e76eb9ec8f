package protocol

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Inspection compares a rendered file against the layout the config
// predicts.
type Inspection struct {
	ExpectedSamples int `json:"expected_samples"`
	ActualSamples   int `json:"actual_samples"`
	// BeaconStartRMS and BeaconEndRMS are the RMS of the two beacon regions.
	BeaconStartRMS float64 `json:"beacon_start_rms"`
	BeaconEndRMS   float64 `json:"beacon_end_rms"`
	// BeaconMaxDiff is the largest sample-wise absolute difference between
	// the two beacon regions.
	BeaconMaxDiff float64 `json:"beacon_max_diff"`
}

// LengthMatches reports whether the file has exactly the expected length.
func (i Inspection) LengthMatches() bool {
	return i.ActualSamples == i.ExpectedSamples
}

// BeaconsSymmetric reports whether both beacons agree within tolerance.
func (i Inspection) BeaconsSymmetric(tolerance float64) bool {
	return i.BeaconMaxDiff <= tolerance
}

// Inspect measures samples against the layout of s. Both beacon regions must
// lie inside samples.
func (s *Synthesizer) Inspect(samples []float64) (Inspection, error) {
	layout := s.Layout()
	result := Inspection{
		ExpectedSamples: layout.TotalSamples,
		ActualSamples:   len(samples),
	}
	begin, ok := layout.Segment(SegmentBeaconStart)
	if !ok {
		return result, fmt.Errorf("layout has no %s segment", SegmentBeaconStart)
	}
	end, ok := layout.Segment(SegmentBeaconEnd)
	if !ok {
		return result, fmt.Errorf("layout has no %s segment", SegmentBeaconEnd)
	}
	if end.End() > len(samples) {
		return result, fmt.Errorf("file holds %d samples, end beacon needs %d", len(samples), end.End())
	}

	a := samples[begin.Start:begin.End()]
	b := samples[end.Start:end.End()]
	result.BeaconStartRMS = rms(a)
	result.BeaconEndRMS = rms(b)

	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	for _, d := range diff {
		result.BeaconMaxDiff = math.Max(result.BeaconMaxDiff, math.Abs(d))
	}
	return result, nil
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(x, x) / float64(len(x)))
}
