package detect

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoBeaconEnergy means no envelope sample exceeded the threshold.
	ErrNoBeaconEnergy = errors.New("no beacon energy detected")
	// ErrInsufficientChirps means the timeline is too short for the
	// configured boundary indices.
	ErrInsufficientChirps = errors.New("insufficient chirps detected")
	// ErrInvalidCropWindow means the computed end does not follow the start.
	ErrInvalidCropWindow = errors.New("invalid crop window")
	// ErrInvalidParams marks detector parameters that cannot be evaluated.
	ErrInvalidParams = errors.New("invalid detector parameters")
)

// Method names a detection strategy.
type Method string

const (
	MethodBeacon Method = "beacon"
	MethodChirp  Method = "chirp"
)

// Result is a crop window relative to the start of the analyzed capture.
type Result struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Method   Method  `json:"method"`
}

// DurationSec is EndSec - StartSec.
func (r Result) DurationSec() float64 {
	return r.EndSec - r.StartSec
}

// Validate enforces EndSec > StartSec with finite bounds.
func (r Result) Validate() error {
	if math.IsNaN(r.StartSec) || math.IsNaN(r.EndSec) || math.IsInf(r.StartSec, 0) || math.IsInf(r.EndSec, 0) {
		return fmt.Errorf("%w: non-finite bounds [%v, %v]", ErrInvalidCropWindow, r.StartSec, r.EndSec)
	}
	if r.EndSec <= r.StartSec {
		return fmt.Errorf("%w: end %.6fs does not follow start %.6fs", ErrInvalidCropWindow, r.EndSec, r.StartSec)
	}
	return nil
}

// String formats the window with microsecond precision.
func (r Result) String() string {
	return fmt.Sprintf("%s [%.6f, %.6f]", r.Method, r.StartSec, r.EndSec)
}
