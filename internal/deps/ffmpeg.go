package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe picks the ffprobe executable to run.
//
// An explicitly configured path wins. When ffprobe is left as the bare
// default and ffmpeg resolves to a custom install, the ffprobe sitting next
// to that ffmpeg is preferred so both tools come from the same build.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	probe := strings.TrimSpace(ffprobeCommand)
	if probe == "" {
		probe = "ffprobe"
	}
	if probe != "ffprobe" {
		return probe
	}
	ffmpegBinary := strings.TrimSpace(ffmpegCommand)
	if ffmpegBinary == "" || ffmpegBinary == "ffmpeg" {
		return probe
	}
	resolved, err := exec.LookPath(ffmpegBinary)
	if err != nil {
		return probe
	}
	candidate := siblingBinary(resolved, "ffprobe")
	if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
		return candidate
	}
	return probe
}

func siblingBinary(path, base string) string {
	name := base
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(path), name)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
