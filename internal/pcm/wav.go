package pcm

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth      = 16
	formatPCM     = 1
	channelsMono  = 1
	int16MaxValue = 1<<15 - 1
	int16MinValue = -1 << 15
)

var (
	// ErrUnsupportedFormat marks audio that is not mono 16-bit linear PCM.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrSampleRateMismatch marks audio whose declared rate differs from the
	// protocol's.
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
)

// Header carries the container fields a capture is validated against.
type Header struct {
	SampleRate    int `json:"sample_rate"`
	Channels      int `json:"channels"`
	BitsPerSample int `json:"bits_per_sample"`
	AudioFormat   int `json:"audio_format"`
}

// Clip is a decoded WAV file.
type Clip struct {
	Header  Header
	Samples []int16
}

// DurationSec is the clip length in seconds.
func (c Clip) DurationSec() float64 {
	if c.Header.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.Header.SampleRate)
}

// WriteWAV writes mono 16-bit PCM to path, replacing any existing file.
func WriteWAV(path string, sampleRate int, samples []int16) (err error) {
	if sampleRate <= 0 {
		return fmt.Errorf("write wav %s: sample rate must be positive", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close wav: %w", cerr)
		}
	}()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	enc := wav.NewEncoder(file, sampleRate, bitDepth, channelsMono, formatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channelsMono, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav %s: %w", path, err)
	}
	return nil
}

// WriteWaveform encodes w and writes it as a mono 16-bit WAV.
func WriteWaveform(path string, sampleRate int, w []float64) error {
	return WriteWAV(path, sampleRate, Encode(w))
}

// ReadHeader parses the container header without decoding samples.
func ReadHeader(path string) (Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return Header{}, invalidFileError(path, dec.Err())
	}
	return headerOf(dec), nil
}

// ReadWAV decodes a mono 16-bit PCM file.
func ReadWAV(path string) (Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return Clip{}, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return Clip{}, invalidFileError(path, dec.Err())
	}
	header := headerOf(dec)
	if err := header.checkFormat(); err != nil {
		return Clip{}, fmt.Errorf("%s: %w", path, err)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("decode wav %s: %w", path, err)
	}
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		if v > int16MaxValue || v < int16MinValue {
			return Clip{}, fmt.Errorf("decode wav %s: sample %d out of int16 range", path, i)
		}
		samples[i] = int16(v)
	}
	return Clip{Header: header, Samples: samples}, nil
}

// LoadCapture reads a recorded WAV, enforces the capture contract and
// returns the decoded float samples.
func LoadCapture(path string, sampleRate int) ([]float64, Header, error) {
	header, err := ReadHeader(path)
	if err != nil {
		return nil, Header{}, err
	}
	if err := header.checkFormat(); err != nil {
		return nil, header, fmt.Errorf("%s: %w", path, err)
	}
	if header.SampleRate != sampleRate {
		return nil, header, fmt.Errorf("%s: %w: file declares %d Hz, expected %d Hz",
			path, ErrSampleRateMismatch, header.SampleRate, sampleRate)
	}
	clip, err := ReadWAV(path)
	if err != nil {
		return nil, header, err
	}
	return Decode(clip.Samples), header, nil
}

func (h Header) checkFormat() error {
	switch {
	case h.AudioFormat != formatPCM:
		return fmt.Errorf("%w: audio format %d is not linear PCM", ErrUnsupportedFormat, h.AudioFormat)
	case h.Channels != channelsMono:
		return fmt.Errorf("%w: %d channels, expected mono", ErrUnsupportedFormat, h.Channels)
	case h.BitsPerSample != bitDepth:
		return fmt.Errorf("%w: %d bits per sample, expected %d", ErrUnsupportedFormat, h.BitsPerSample, bitDepth)
	}
	return nil
}

func headerOf(dec *wav.Decoder) Header {
	return Header{
		SampleRate:    int(dec.SampleRate),
		Channels:      int(dec.NumChans),
		BitsPerSample: int(dec.BitDepth),
		AudioFormat:   int(dec.WavAudioFormat),
	}
}

func invalidFileError(path string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrUnsupportedFormat, cause)
	}
	return fmt.Errorf("%s: %w: not a readable wav file", path, ErrUnsupportedFormat)
}
