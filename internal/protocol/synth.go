package protocol

import "beaconsync/internal/waveform"

// Synthesizer renders a validated Config.
type Synthesizer struct {
	cfg Config
}

// New validates cfg and returns a synthesizer bound to it.
func New(cfg Config) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Synthesizer{cfg: cfg}, nil
}

// Config returns the parameters the synthesizer was built with.
func (s *Synthesizer) Config() Config {
	return s.cfg
}

// Beacon returns the faded beacon tone used at both ends of the protocol.
func (s *Synthesizer) Beacon() []float64 {
	c := s.cfg
	tone := waveform.Tone(c.SampleRate, c.BeaconFreqHz, c.BeaconDurationSec, c.Amplitude)
	return waveform.ApplyFade(tone, c.SampleRate, c.FadeMs)
}

// Cycle returns one faded chirp followed by its silent gap.
func (s *Synthesizer) Cycle() []float64 {
	c := s.cfg
	chirp := waveform.Chirp(c.SampleRate, c.StartFreqHz, c.EndFreqHz, c.PulseDurationSec, c.Amplitude)
	chirp = waveform.ApplyFade(chirp, c.SampleRate, c.FadeMs)
	return append(chirp, waveform.Silence(c.SampleRate, c.GapDurationSec)...)
}

// ActiveBlock tiles whole cycles and fills the remainder with a truncated
// cycle, yielding exactly round(ActiveSecs*SampleRate) samples.
func (s *Synthesizer) ActiveBlock() []float64 {
	cycle := s.Cycle()
	total := waveform.Samples(s.cfg.SampleRate, s.cfg.ActiveSecs)
	whole := total / len(cycle)
	residual := total - whole*len(cycle)

	block := make([]float64, 0, total)
	for range whole {
		block = append(block, cycle...)
	}
	return append(block, cycle[:residual]...)
}

// ChirpTrain concatenates CyclesTotal copies of the active block, each
// followed by the optional block pause.
func (s *Synthesizer) ChirpTrain() []float64 {
	block := s.ActiveBlock()
	pause := waveform.Silence(s.cfg.SampleRate, s.cfg.BlockPauseSec)
	train := make([]float64, 0, s.cfg.CyclesTotal*(len(block)+len(pause)))
	for range s.cfg.CyclesTotal {
		train = append(train, block...)
		train = append(train, pause...)
	}
	return train
}

// Waveform renders the complete protocol signal.
func (s *Synthesizer) Waveform() []float64 {
	c := s.cfg
	beacon := s.Beacon()
	guard := waveform.Silence(c.SampleRate, c.GuardSilenceSec)

	parts := [][]float64{
		waveform.Silence(c.SampleRate, c.InitialSilenceSec),
		beacon,
		guard,
		s.ChirpTrain(),
		guard,
		beacon,
		waveform.Silence(c.SampleRate, c.TailSilenceSec),
	}
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]float64, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Synthesize validates cfg and renders it in one step.
func Synthesize(cfg Config) ([]float64, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return s.Waveform(), nil
}
