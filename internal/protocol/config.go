package protocol

import (
	"errors"
	"fmt"
	"math"

	"beaconsync/internal/waveform"
)

// ErrConfig marks protocol parameters that cannot produce a valid signal.
var ErrConfig = errors.New("invalid protocol config")

// Config holds every timing and spectral parameter of the sync protocol.
type Config struct {
	SampleRate        int     `json:"sample_rate"`
	InitialSilenceSec float64 `json:"initial_silence_sec"`
	BeaconFreqHz      float64 `json:"beacon_freq_hz"`
	BeaconDurationSec float64 `json:"beacon_duration_sec"`
	GuardSilenceSec   float64 `json:"guard_silence_sec"`
	TailSilenceSec    float64 `json:"tail_silence_sec"`
	PulseDurationSec  float64 `json:"pulse_duration_sec"`
	GapDurationSec    float64 `json:"gap_duration_sec"`
	StartFreqHz       float64 `json:"start_freq_hz"`
	EndFreqHz         float64 `json:"end_freq_hz"`
	Amplitude         float64 `json:"amplitude"`
	FadeMs            float64 `json:"fade_ms"`
	CyclesTotal       int     `json:"cycles_total"`
	ActiveSecs        float64 `json:"active_secs"`
	// BlockPauseSec inserts silence after every active block. Zero keeps the
	// blocks back to back.
	BlockPauseSec float64 `json:"block_pause_sec"`
}

// Default returns the field protocol: 48 kHz, 10 kHz beacons, two minutes of
// 15-19.2 kHz chirps.
func Default() Config {
	return Config{
		SampleRate:        48000,
		InitialSilenceSec: 15.0,
		BeaconFreqHz:      10000,
		BeaconDurationSec: 2.0,
		GuardSilenceSec:   1.5,
		TailSilenceSec:    5.0,
		PulseDurationSec:  0.10,
		GapDurationSec:    0.05,
		StartFreqHz:       15000,
		EndFreqHz:         19200,
		Amplitude:         0.85,
		FadeMs:            5,
		CyclesTotal:       2,
		ActiveSecs:        60.0,
	}
}

// Validate reports the first violated constraint wrapped in ErrConfig.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive", ErrConfig)
	}
	durations := []struct {
		name  string
		value float64
	}{
		{"initial_silence_sec", c.InitialSilenceSec},
		{"beacon_duration_sec", c.BeaconDurationSec},
		{"guard_silence_sec", c.GuardSilenceSec},
		{"tail_silence_sec", c.TailSilenceSec},
		{"pulse_duration_sec", c.PulseDurationSec},
		{"gap_duration_sec", c.GapDurationSec},
		{"fade_ms", c.FadeMs},
		{"active_secs", c.ActiveSecs},
		{"block_pause_sec", c.BlockPauseSec},
	}
	for _, d := range durations {
		if math.IsNaN(d.value) || math.IsInf(d.value, 0) || d.value < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrConfig, d.name)
		}
	}
	if !(c.Amplitude > 0 && c.Amplitude <= 1) {
		return fmt.Errorf("%w: amplitude must be in (0, 1], got %v", ErrConfig, c.Amplitude)
	}
	if !(c.StartFreqHz < c.EndFreqHz) {
		return fmt.Errorf("%w: start_freq_hz (%v) must be below end_freq_hz (%v)", ErrConfig, c.StartFreqHz, c.EndFreqHz)
	}
	if c.StartFreqHz < 0 {
		return fmt.Errorf("%w: start_freq_hz must be non-negative", ErrConfig)
	}
	nyquist := float64(c.SampleRate) / 2
	if c.EndFreqHz > nyquist {
		return fmt.Errorf("%w: end_freq_hz (%v) exceeds nyquist (%v)", ErrConfig, c.EndFreqHz, nyquist)
	}
	if c.BeaconFreqHz <= 0 || c.BeaconFreqHz >= nyquist {
		return fmt.Errorf("%w: beacon_freq_hz must be in (0, %v)", ErrConfig, nyquist)
	}
	if c.CyclesTotal < 1 {
		return fmt.Errorf("%w: cycles_total must be at least 1", ErrConfig)
	}

	pulse := waveform.Samples(c.SampleRate, c.PulseDurationSec)
	if pulse == 0 {
		return fmt.Errorf("%w: pulse_duration_sec rounds to zero samples", ErrConfig)
	}
	fade := waveform.FadeSamples(c.SampleRate, c.FadeMs)
	if 2*fade >= pulse {
		return fmt.Errorf("%w: fade of %d samples overlaps itself in a %d sample pulse", ErrConfig, fade, pulse)
	}
	if waveform.Samples(c.SampleRate, c.ActiveSecs) == 0 {
		return fmt.Errorf("%w: active_secs rounds to zero samples", ErrConfig)
	}
	return nil
}

// CycleSamples is the length of one chirp plus its trailing gap.
func (c Config) CycleSamples() int {
	return waveform.Samples(c.SampleRate, c.PulseDurationSec) + waveform.Samples(c.SampleRate, c.GapDurationSec)
}

// CyclesPerBlock is the number of whole cycles in one active block.
func (c Config) CyclesPerBlock() int {
	cycle := c.CycleSamples()
	if cycle == 0 {
		return 0
	}
	return waveform.Samples(c.SampleRate, c.ActiveSecs) / cycle
}

// ExpectedSamples sums the rounded length of every segment.
func ExpectedSamples(c Config) int {
	sr := c.SampleRate
	beacon := waveform.Samples(sr, c.BeaconDurationSec)
	guard := waveform.Samples(sr, c.GuardSilenceSec)
	block := waveform.Samples(sr, c.ActiveSecs) + waveform.Samples(sr, c.BlockPauseSec)
	return waveform.Samples(sr, c.InitialSilenceSec) +
		2*beacon + 2*guard +
		c.CyclesTotal*block +
		waveform.Samples(sr, c.TailSilenceSec)
}
