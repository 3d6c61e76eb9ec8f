package preflight

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// ToolProbe reports what a media tool says about itself.
type ToolProbe struct {
	Binary  string
	Ran     bool
	Version string
}

// ProbeTool runs "<binary> -version" and extracts the version token from the
// banner line, e.g. "6.1.1" from "ffmpeg version 6.1.1 Copyright ...".
func ProbeTool(ctx context.Context, binary string) ToolProbe {
	probe := ToolProbe{Binary: strings.TrimSpace(binary)}
	if probe.Binary == "" {
		return probe
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, probe.Binary, "-version").Output()
	if err != nil {
		return probe
	}
	probe.Ran = true
	probe.Version = parseVersionBanner(string(output))
	return probe
}

func parseVersionBanner(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return fields[i+1]
		}
	}
	return ""
}
