package pcm

import "math"

const (
	encodeScale = 32767.0
	decodeScale = 32768.0
)

// Encode converts float samples to int16, clipping out-of-range values.
func Encode(w []float64) []int16 {
	out := make([]int16, len(w))
	for i, v := range w {
		switch {
		case math.IsNaN(v):
			v = 0
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		out[i] = int16(math.RoundToEven(v * encodeScale))
	}
	return out
}

// Decode maps int16 samples back into [-1, 1).
func Decode(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / decodeScale
	}
	return out
}
