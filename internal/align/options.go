package align

import (
	"beaconsync/internal/config"
	"beaconsync/internal/detect"
	"beaconsync/internal/protocol"
)

// Detector names accepted by Options.Method and Options.Prefer.
const (
	MethodBeacon = config.MethodBeacon
	MethodChirp  = config.MethodChirp
	MethodBoth   = config.MethodBoth
)

// Options holds everything an Aligner needs besides its collaborators.
type Options struct {
	SampleRate int
	// Protocol is the signal the capture is expected to contain. Its layout
	// relates the beacon and chirp windows when both detectors run.
	Protocol            protocol.Config
	Method              string
	Prefer              string
	DisagreementWarnSec float64
	Beacon              detect.BeaconParams
	Chirp               detect.ChirpParams
	WorkDir             string
	KeepAudio           bool
}

// OptionsFromConfig derives aligner options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SampleRate:          cfg.Protocol.SampleRate,
		Protocol:            cfg.ProtocolConfig(),
		Method:              cfg.Align.Method,
		Prefer:              cfg.Align.Prefer,
		DisagreementWarnSec: cfg.Align.DisagreementWarnSec,
		Beacon:              cfg.BeaconParams(),
		Chirp:               cfg.ChirpParams(),
		WorkDir:             cfg.Paths.WorkDir,
		KeepAudio:           cfg.Align.KeepAudio,
	}
}
