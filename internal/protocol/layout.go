package protocol

import (
	"fmt"

	"beaconsync/internal/waveform"
)

// Segment names reported by Layout.
const (
	SegmentInitialSilence = "initial_silence"
	SegmentBeaconStart    = "beacon_start"
	SegmentGuardPre       = "guard_pre"
	SegmentGuardPost      = "guard_post"
	SegmentBeaconEnd      = "beacon_end"
	SegmentTail           = "tail_silence"
)

// Segment is a contiguous span of the rendered protocol.
type Segment struct {
	Name   string `json:"name"`
	Start  int    `json:"start"`
	Length int    `json:"length"`
}

// End is the exclusive end offset.
func (s Segment) End() int { return s.Start + s.Length }

// StartSec converts the start offset to seconds.
func (s Segment) StartSec(sampleRate int) float64 {
	return float64(s.Start) / float64(sampleRate)
}

// Layout describes where every segment of a rendered protocol lives.
type Layout struct {
	SampleRate   int       `json:"sample_rate"`
	Segments     []Segment `json:"segments"`
	ChirpOnsets  []int     `json:"chirp_onsets"`
	TotalSamples int       `json:"total_samples"`
}

// Segment looks up a segment by name.
func (l Layout) Segment(name string) (Segment, bool) {
	for _, s := range l.Segments {
		if s.Name == name {
			return s, true
		}
	}
	return Segment{}, false
}

// ChirpOnsetSeconds converts every chirp onset to seconds.
func (l Layout) ChirpOnsetSeconds() []float64 {
	out := make([]float64, len(l.ChirpOnsets))
	for i, n := range l.ChirpOnsets {
		out[i] = float64(n) / float64(l.SampleRate)
	}
	return out
}

// Layout computes segment offsets without rendering any audio.
func (s *Synthesizer) Layout() Layout {
	c := s.cfg
	sr := c.SampleRate
	beacon := waveform.Samples(sr, c.BeaconDurationSec)
	guard := waveform.Samples(sr, c.GuardSilenceSec)
	active := waveform.Samples(sr, c.ActiveSecs)
	pause := waveform.Samples(sr, c.BlockPauseSec)
	cycle := c.CycleSamples()

	layout := Layout{SampleRate: sr}
	cursor := 0
	add := func(name string, length int) int {
		start := cursor
		layout.Segments = append(layout.Segments, Segment{Name: name, Start: start, Length: length})
		cursor += length
		return start
	}

	add(SegmentInitialSilence, waveform.Samples(sr, c.InitialSilenceSec))
	add(SegmentBeaconStart, beacon)
	add(SegmentGuardPre, guard)
	for b := range c.CyclesTotal {
		start := add(fmt.Sprintf("block_%d", b+1), active)
		for off := 0; off < active; off += cycle {
			layout.ChirpOnsets = append(layout.ChirpOnsets, start+off)
		}
		if pause > 0 {
			add(fmt.Sprintf("pause_%d", b+1), pause)
		}
	}
	add(SegmentGuardPost, guard)
	add(SegmentBeaconEnd, beacon)
	add(SegmentTail, waveform.Samples(sr, c.TailSilenceSec))
	layout.TotalSamples = cursor
	return layout
}
