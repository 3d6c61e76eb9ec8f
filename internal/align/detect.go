package align

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"beaconsync/internal/detect"
	"beaconsync/internal/logging"
	"beaconsync/internal/protocol"
	"beaconsync/internal/services"
)

// Detection is the outcome of running the configured detectors on a capture.
type Detection struct {
	Result detect.Result  `json:"result"`
	Beacon *detect.Result `json:"beacon,omitempty"`
	Chirp  *detect.Result `json:"chirp,omitempty"`
	// DisagreementSec is the larger of the start and end differences between
	// the capture offsets each detector implies when both ran.
	DisagreementSec float64 `json:"disagreement_sec,omitempty"`
}

// Detect runs the detectors selected by opts.Method over samples. With
// MethodBoth each detector must succeed and opts.Prefer picks the result.
func Detect(ctx context.Context, samples []float64, opts Options, logger *slog.Logger) (Detection, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var det Detection

	runBeacon := opts.Method == MethodBeacon || opts.Method == MethodBoth
	runChirp := opts.Method == MethodChirp || opts.Method == MethodBoth
	if !runBeacon && !runChirp {
		return det, services.Wrap(services.ErrConfiguration, "align", "detect",
			fmt.Sprintf("unknown method %q", opts.Method), nil)
	}

	if runBeacon {
		res, err := detect.DetectBeacon(samples, opts.SampleRate, opts.Beacon)
		if err != nil {
			return det, detectionError("beacon", err)
		}
		det.Beacon = &res
		logger.Debug("beacon window found", logging.Seconds("start_sec", res.StartSec), logging.Seconds("end_sec", res.EndSec))
	}
	if err := ctx.Err(); err != nil {
		return det, err
	}
	if runChirp {
		res, err := detect.DetectChirpWindow(samples, opts.SampleRate, opts.Chirp)
		if err != nil {
			return det, detectionError("chirp", err)
		}
		det.Chirp = &res
		logger.Debug("chirp window found", logging.Seconds("start_sec", res.StartSec), logging.Seconds("end_sec", res.EndSec))
	}

	switch {
	case det.Beacon != nil && det.Chirp != nil:
		det.DisagreementSec = disagreement(*det.Beacon, *det.Chirp, opts)
		if opts.Prefer == MethodBeacon {
			det.Result = *det.Beacon
		} else {
			det.Result = *det.Chirp
		}
		if det.DisagreementSec > opts.DisagreementWarnSec {
			logging.WarnWithContext(logger, "detectors disagree on the alignment window", "detector_disagreement",
				logging.Seconds("disagreement_sec", det.DisagreementSec),
				logging.Seconds("threshold_sec", opts.DisagreementWarnSec),
				logging.String("beacon", det.Beacon.String()),
				logging.String("chirp", det.Chirp.String()),
				logging.String(logging.FieldErrorHint, "check the capture for interference or clipped beacons"),
				logging.String(logging.FieldImpact, "output uses the "+string(det.Result.Method)+" window"),
			)
		}
		logger.Info("alignment window selected",
			logging.Args(logging.DecisionAttrs("detector", string(det.Result.Method), "align.prefer="+opts.Prefer)...)...)
	case det.Beacon != nil:
		det.Result = *det.Beacon
	default:
		det.Result = *det.Chirp
	}
	return det, nil
}

// disagreement measures how far apart the two windows place the protocol.
// Each window is converted to an offset from where the layout puts the marker
// it tracks: the outer beacon edges (the beacon window is pulled inward by the
// minimum duration) and the middle of the boundary chirps (flux peaks land
// inside the sweep). Without a usable layout the raw windows are compared.
func disagreement(beacon, chirp detect.Result, opts Options) float64 {
	raw := math.Max(math.Abs(beacon.StartSec-chirp.StartSec), math.Abs(beacon.EndSec-chirp.EndSec))
	synth, err := protocol.New(opts.Protocol)
	if err != nil {
		return raw
	}
	layout := synth.Layout()
	first, okFirst := layout.Segment(protocol.SegmentBeaconStart)
	last, okLast := layout.Segment(protocol.SegmentBeaconEnd)
	onsets := layout.ChirpOnsetSeconds()
	startOnset, okStart := timelineEntry(onsets, opts.Chirp.StartIndex)
	endOnset, okEnd := timelineEntry(onsets, opts.Chirp.EndIndex)
	if !okFirst || !okLast || !okStart || !okEnd {
		return raw
	}

	rate := float64(layout.SampleRate)
	margin := opts.Beacon.MinDurationSec
	half := opts.Protocol.PulseDurationSec / 2
	beaconStart := beacon.StartSec - margin - float64(first.Start)/rate
	beaconEnd := beacon.EndSec + margin - float64(last.End())/rate
	chirpStart := chirp.StartSec - (startOnset + half)
	chirpEnd := chirp.EndSec - (endOnset + half)
	return math.Max(math.Abs(beaconStart-chirpStart), math.Abs(beaconEnd-chirpEnd))
}

func timelineEntry(timeline []float64, index int) (float64, bool) {
	if index < 0 {
		index += len(timeline)
	}
	if index < 0 || index >= len(timeline) {
		return 0, false
	}
	return timeline[index], true
}

func detectionError(detector string, err error) error {
	if errors.Is(err, detect.ErrInsufficientChirps) {
		return services.Wrap(services.ErrValidation, "align", detector+" detection",
			"chirp train not recovered; run `beaconsync status` to rehearse the configured protocol", err)
	}
	return services.Wrap(services.ErrValidation, "align", detector+" detection", "", err)
}
