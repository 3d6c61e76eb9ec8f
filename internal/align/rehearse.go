package align

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"beaconsync/internal/detect"
	"beaconsync/internal/protocol"
	"beaconsync/internal/waveform"
)

// Rehearsal is the chirp detector's result on a clean rendering of the
// configured protocol.
//
// The flux threshold is mean+2σ over the whole buffer, so once the chirp
// train fills a large share of the recording the threshold climbs above
// every flux peak and no chirp is found. A failed rehearsal means real
// captures of this protocol will fail the same way.
type Rehearsal struct {
	ExpectedChirps int     `json:"expected_chirps"`
	FoundChirps    int     `json:"found_chirps"`
	TrainFraction  float64 `json:"train_fraction"`
	Threshold      float64 `json:"threshold"`
	PeakFlux       float64 `json:"peak_flux"`
	WindowError    string  `json:"window_error,omitempty"`
}

// Recovered reports whether every chirp was found and the crop window could
// be selected.
func (r Rehearsal) Recovered() bool {
	return r.FoundChirps == r.ExpectedChirps && r.WindowError == ""
}

// Summary is a one-line description for status output.
func (r Rehearsal) Summary() string {
	msg := fmt.Sprintf("%d of %d chirps recovered, train is %.0f%% of the signal", r.FoundChirps, r.ExpectedChirps, 100*r.TrainFraction)
	switch {
	case r.PeakFlux <= r.Threshold:
		msg += "; flux never exceeds the mean+2σ threshold, lengthen the silences or shorten active_secs"
	case r.WindowError != "":
		msg += "; " + r.WindowError
	}
	return msg
}

// RehearseChirps renders cfg and runs the chirp detector over it.
func RehearseChirps(cfg protocol.Config, params detect.ChirpParams) (Rehearsal, error) {
	synth, err := protocol.New(cfg)
	if err != nil {
		return Rehearsal{}, err
	}
	layout := synth.Layout()
	analysis, err := detect.AnalyzeChirps(synth.Waveform(), cfg.SampleRate, params)
	if err != nil {
		return Rehearsal{}, err
	}

	r := Rehearsal{
		ExpectedChirps: len(layout.ChirpOnsets),
		FoundChirps:    len(analysis.Timeline),
		Threshold:      analysis.Threshold,
	}
	if len(analysis.Flux) > 0 {
		r.PeakFlux = floats.Max(analysis.Flux)
	}
	if layout.TotalSamples > 0 {
		train := cfg.CyclesTotal * waveform.Samples(cfg.SampleRate, cfg.ActiveSecs)
		r.TrainFraction = float64(train) / float64(layout.TotalSamples)
	}
	if _, err := detect.SelectWindow(analysis.Timeline, params.StartIndex, params.EndIndex); err != nil {
		r.WindowError = err.Error()
	}
	return r, nil
}
