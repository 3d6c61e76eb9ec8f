package testsupport

import (
	"math/rand"
	"testing"

	"beaconsync/internal/pcm"
	"beaconsync/internal/protocol"
	"beaconsync/internal/waveform"
)

// Capture is a synthetic recording with known marker positions.
type Capture struct {
	SampleRate int
	Samples    []float64
	// Beacon tones span [BeaconStarts[i], BeaconStarts[i]+BeaconSec).
	BeaconStarts []float64
	BeaconSec    float64
	ChirpOnsets  []float64
}

// DurationSec is the capture length.
func (c Capture) DurationSec() float64 {
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

type captureBuilder struct {
	c Capture
}

func (b *captureBuilder) now() float64 {
	return float64(len(b.c.Samples)) / float64(b.c.SampleRate)
}

func (b *captureBuilder) silence(sec float64) {
	b.c.Samples = append(b.c.Samples, waveform.Silence(b.c.SampleRate, sec)...)
}

func (b *captureBuilder) beacon(sec float64) {
	b.c.BeaconStarts = append(b.c.BeaconStarts, b.now())
	b.c.BeaconSec = sec
	b.c.Samples = append(b.c.Samples, waveform.Tone(b.c.SampleRate, 10000, sec, 0.5)...)
}

// chirps appends n sparse 15-19.2 kHz pulses (0.1 s sweep, 0.4 s gap).
func (b *captureBuilder) chirps(n int) {
	chirp := waveform.ApplyFade(waveform.Chirp(b.c.SampleRate, 15000, 19200, 0.1, 0.85), b.c.SampleRate, 5)
	gap := waveform.Silence(b.c.SampleRate, 0.4)
	for range n {
		b.c.ChirpOnsets = append(b.c.ChirpOnsets, b.now())
		b.c.Samples = append(b.c.Samples, chirp...)
		b.c.Samples = append(b.c.Samples, gap...)
	}
}

func (b *captureBuilder) noisy(amp float64, seed int64) Capture {
	rng := rand.New(rand.NewSource(seed))
	for i := range b.c.Samples {
		b.c.Samples[i] += amp * (2*rng.Float64() - 1)
	}
	return b.c
}

// BeaconCapture is two one-second 10 kHz beacons separated by two seconds
// of silence, with half a second of silence at either end and light noise.
func BeaconCapture(sampleRate int) Capture {
	b := &captureBuilder{c: Capture{SampleRate: sampleRate}}
	b.silence(0.5)
	b.beacon(1)
	b.silence(2)
	b.beacon(1)
	b.silence(0.5)
	return b.noisy(0.01, 11)
}

// SyncCapture brackets seven chirps with two one-second beacons.
func SyncCapture(sampleRate int) Capture {
	b := &captureBuilder{c: Capture{SampleRate: sampleRate}}
	b.silence(0.5)
	b.beacon(1)
	b.silence(1)
	b.chirps(7)
	b.silence(0.6)
	b.beacon(1)
	b.silence(0.5)
	return b.noisy(0.005, 13)
}

// SilentCapture is durationSec of digital silence.
func SilentCapture(sampleRate int, durationSec float64) Capture {
	b := &captureBuilder{c: Capture{SampleRate: sampleRate}}
	b.silence(durationSec)
	return b.c
}

// SparseProtocol is the default protocol with a 12-chirp train (two blocks
// of six cycles) inside 19.8 seconds of signal. The train is short enough
// for the whole-buffer flux threshold to recover every chirp.
func SparseProtocol() protocol.Config {
	cfg := protocol.Default()
	cfg.InitialSilenceSec = 7
	cfg.BeaconDurationSec = 1
	cfg.GuardSilenceSec = 1
	cfg.TailSilenceSec = 7
	cfg.ActiveSecs = 0.9
	cfg.CyclesTotal = 2
	return cfg
}

// WriteCapture stores c as a mono 16-bit WAV.
func WriteCapture(t testing.TB, path string, c Capture) {
	t.Helper()
	if err := pcm.WriteWaveform(path, c.SampleRate, c.Samples); err != nil {
		t.Fatalf("write capture %s: %v", path, err)
	}
}
