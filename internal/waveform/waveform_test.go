package waveform

import (
	"math"
	"testing"
)

func TestSamplesRoundsHalfToEven(t *testing.T) {
	tests := []struct {
		name string
		sr   int
		sec  float64
		want int
	}{
		{name: "exact", sr: 48000, sec: 2.0, want: 96000},
		{name: "fade", sr: 48000, sec: 0.005, want: 240},
		{name: "half down to even", sr: 10, sec: 0.25, want: 2},
		{name: "half up to even", sr: 10, sec: 0.35, want: 4},
		{name: "negative", sr: 48000, sec: -1, want: 0},
		{name: "zero rate", sr: 0, sec: 1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Samples(tt.sr, tt.sec); got != tt.want {
				t.Fatalf("Samples(%d, %v) = %d, want %d", tt.sr, tt.sec, got, tt.want)
			}
		})
	}
}

func TestSilenceIsZero(t *testing.T) {
	s := Silence(48000, 0.5)
	if len(s) != 24000 {
		t.Fatalf("unexpected length %d", len(s))
	}
	for i, v := range s {
		if v != 0 {
			t.Fatalf("sample %d = %v, want 0", i, v)
		}
	}
}

func TestToneMatchesSine(t *testing.T) {
	const sr = 48000
	tone := Tone(sr, 1000, 0.01, 0.5)
	if len(tone) != 480 {
		t.Fatalf("unexpected length %d", len(tone))
	}
	for _, i := range []int{0, 12, 100, 479} {
		want := 0.5 * math.Sin(2*math.Pi*1000*float64(i)/sr)
		if math.Abs(tone[i]-want) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v", i, tone[i], want)
		}
	}
}

func TestChirpInstantaneousFrequencyEndpoints(t *testing.T) {
	c := LinearChirp{StartHz: 15000, EndHz: 19200, DurationSec: 0.1}
	const h = 1e-7
	derivative := func(at float64) float64 {
		return (c.Phase(at+h) - c.Phase(at-h)) / (2 * h) / (2 * math.Pi)
	}
	if got := derivative(0); math.Abs(got-15000) > 1e-3 {
		t.Fatalf("frequency at t=0: got %v want 15000", got)
	}
	if got := derivative(0.1); math.Abs(got-19200) > 1e-3 {
		t.Fatalf("frequency at t=duration: got %v want 19200", got)
	}
	if math.Abs(c.Frequency(0.05)-17100) > 1e-9 {
		t.Fatalf("midpoint frequency: got %v", c.Frequency(0.05))
	}
}

func TestChirpSamplesFollowPhase(t *testing.T) {
	const sr = 48000
	w := Chirp(sr, 15000, 19200, 0.1, 0.85)
	if len(w) != 4800 {
		t.Fatalf("unexpected length %d", len(w))
	}
	c := LinearChirp{StartHz: 15000, EndHz: 19200, DurationSec: 0.1}
	for _, i := range []int{0, 1, 2400, 4799} {
		want := 0.85 * math.Sin(c.Phase(float64(i)/sr))
		if math.Abs(w[i]-want) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v", i, w[i], want)
		}
	}
}

func TestApplyFadeRamps(t *testing.T) {
	const sr = 1000
	in := make([]float64, 100)
	for i := range in {
		in[i] = 0.8
	}
	out := ApplyFade(in, sr, 10)
	n := FadeSamples(sr, 10)
	if n != 10 {
		t.Fatalf("fade samples = %d", n)
	}
	if out[0] != 0 {
		t.Fatalf("first sample = %v, want 0", out[0])
	}
	if math.Abs(out[n-1]-in[n-1]) > 1e-12 {
		t.Fatalf("last ramp sample = %v, want %v", out[n-1], in[n-1])
	}
	if out[len(out)-1] != 0 {
		t.Fatalf("final sample = %v, want 0", out[len(out)-1])
	}
	if out[50] != 0.8 {
		t.Fatalf("body sample modified: %v", out[50])
	}
	if in[0] != 0.8 {
		t.Fatal("input was mutated")
	}
}

func TestApplyFadePassThrough(t *testing.T) {
	tests := []struct {
		name   string
		length int
		fadeMs float64
	}{
		{name: "zero fade", length: 50, fadeMs: 0},
		{name: "ramps meet", length: 20, fadeMs: 10},
		{name: "ramps overlap", length: 15, fadeMs: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]float64, tt.length)
			for i := range in {
				in[i] = float64(i + 1)
			}
			out := ApplyFade(in, 1000, tt.fadeMs)
			for i := range in {
				if out[i] != in[i] {
					t.Fatalf("sample %d changed: %v -> %v", i, in[i], out[i])
				}
			}
			if len(out) > 0 && &out[0] == &in[0] {
				t.Fatal("expected a copy, got the input slice")
			}
		})
	}
}
