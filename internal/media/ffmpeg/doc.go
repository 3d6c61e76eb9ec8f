// Package ffmpeg wraps the two ffmpeg invocations the alignment pipeline
// needs: extracting a mono 16-bit PCM capture track from a recording, and
// trimming a recording to a time window.
//
// Trimming supports stream copy (fast, keyframe-bound) and a libx264
// re-encode for frame-accurate cuts. Both run through exec.CommandContext so
// cancelling the context stops the child process.
package ffmpeg
