package config

import (
	"beaconsync/internal/detect"
	"beaconsync/internal/media/ffmpeg"
	"beaconsync/internal/protocol"
)

const (
	defaultConfigPath   = "~/.config/beaconsync/config.toml"
	projectConfigName   = "beaconsync.toml"
	defaultWorkDir      = "~/.local/share/beaconsync/work"
	defaultLogDir       = "~/.local/share/beaconsync/logs"
	defaultLedgerPath   = "~/.local/share/beaconsync/ledger.db"
	defaultAlignMethod  = MethodBeacon
	defaultAlignPrefer  = MethodChirp
	defaultDisagreement = 0.05
	defaultTrimMode     = ffmpeg.ModeCopy
	defaultBatchWorkers = 1
	defaultOutputSuffix = "_aligned"
	defaultFFmpeg       = "ffmpeg"
	defaultFFprobe      = "ffprobe"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// Alignment methods accepted by align.method and align.prefer.
const (
	MethodBeacon = "beacon"
	MethodChirp  = "chirp"
	MethodBoth   = "both"
)

var defaultExtensions = []string{".mp4", ".mov", ".mkv", ".avi"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	p := protocol.Default()
	b := detect.DefaultBeaconParams()
	ch := detect.DefaultChirpParams()
	enc := ffmpeg.DefaultEncodeSettings()
	return Config{
		Paths: Paths{
			WorkDir:    defaultWorkDir,
			LogDir:     defaultLogDir,
			LedgerPath: defaultLedgerPath,
		},
		Protocol: Protocol{
			SampleRate:        p.SampleRate,
			InitialSilenceSec: p.InitialSilenceSec,
			BeaconFreqHz:      p.BeaconFreqHz,
			BeaconDurationSec: p.BeaconDurationSec,
			GuardSilenceSec:   p.GuardSilenceSec,
			TailSilenceSec:    p.TailSilenceSec,
			PulseDurationSec:  p.PulseDurationSec,
			GapDurationSec:    p.GapDurationSec,
			StartFreqHz:       p.StartFreqHz,
			EndFreqHz:         p.EndFreqHz,
			Amplitude:         p.Amplitude,
			FadeMs:            p.FadeMs,
			CyclesTotal:       p.CyclesTotal,
			ActiveSecs:        p.ActiveSecs,
			BlockPauseSec:     p.BlockPauseSec,
		},
		Beacon: Beacon{
			BandwidthHz:    b.BandwidthHz,
			MinDurationSec: b.MinDurationSec,
			ThresholdRatio: b.ThresholdRatio,
			Strategy:       b.Strategy,
			Percentile:     b.Percentile,
			FilterOrder:    b.FilterOrder,
		},
		Chirp: Chirp{
			FFTSize:         ch.FFTSize,
			HopSize:         ch.HopSize,
			WinLength:       ch.WinLength,
			StartIndex:      ch.StartIndex,
			EndIndex:        ch.EndIndex,
			MinPeakDistance: ch.MinPeakDistance,
			OnsetOnly:       ch.OnsetOnly,
		},
		Align: Align{
			Method:              defaultAlignMethod,
			Prefer:              defaultAlignPrefer,
			DisagreementWarnSec: defaultDisagreement,
		},
		Trim: Trim{
			Mode:        defaultTrimMode,
			VideoCodec:  enc.VideoCodec,
			Preset:      enc.Preset,
			CRF:         enc.CRF,
			PixelFormat: enc.PixelFormat,
		},
		Batch: Batch{
			Workers:      defaultBatchWorkers,
			Extensions:   append([]string(nil), defaultExtensions...),
			OutputSuffix: defaultOutputSuffix,
			SkipExisting: true,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
