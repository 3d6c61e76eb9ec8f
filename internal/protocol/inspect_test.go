package protocol

import (
	"math"
	"testing"
)

func TestInspectRenderedProtocol(t *testing.T) {
	synth, err := New(shortConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w := synth.Waveform()

	got, err := synth.Inspect(w)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !got.LengthMatches() {
		t.Fatalf("length %d, want %d", got.ActualSamples, got.ExpectedSamples)
	}
	if !got.BeaconsSymmetric(0) {
		t.Fatalf("beacons differ by %g", got.BeaconMaxDiff)
	}
	// A faded sine at amplitude A has RMS a little under A/sqrt(2).
	limit := shortConfig().Amplitude / math.Sqrt2
	if got.BeaconStartRMS <= 0.9*limit || got.BeaconStartRMS > limit {
		t.Fatalf("beacon RMS = %.4f, want just under %.4f", got.BeaconStartRMS, limit)
	}
}

func TestInspectDetectsTampering(t *testing.T) {
	synth, err := New(shortConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w := synth.Waveform()
	end, _ := synth.Layout().Segment(SegmentBeaconEnd)
	w[end.Start+end.Length/2] += 0.25
	w = append(w, 0, 0)

	got, err := synth.Inspect(w)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if got.LengthMatches() {
		t.Fatal("expected length mismatch")
	}
	if math.Abs(got.BeaconMaxDiff-0.25) > 1e-12 || got.BeaconsSymmetric(0.1) {
		t.Fatalf("max diff = %g, want 0.25", got.BeaconMaxDiff)
	}
}

func TestInspectTruncated(t *testing.T) {
	synth, err := New(shortConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w := synth.Waveform()
	end, _ := synth.Layout().Segment(SegmentBeaconEnd)
	if _, err := synth.Inspect(w[:end.Start+1]); err == nil {
		t.Fatal("expected error for a file that stops inside the end beacon")
	}
}
