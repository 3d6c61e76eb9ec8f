package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"beaconsync/internal/config"
	"beaconsync/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckLedgerLocation verifies the ledger database can be opened for writing.
// A database that does not exist yet passes when its directory is writable.
func CheckLedgerLocation(path string) Result {
	const name = "Ledger"
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
		}
		if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
	}
	dir := CheckDirectoryAccess(name, filepath.Dir(path))
	if !dir.Passed {
		return dir
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckTools reports ffmpeg and ffprobe availability with their versions.
func CheckTools(ctx context.Context, cfg *config.Config) []Result {
	statuses := CheckSystemDeps(cfg)
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		if !status.Available {
			results = append(results, Result{Name: status.Name, Detail: status.Detail})
			continue
		}
		probe := ProbeTool(ctx, status.Path)
		detail := status.Path
		if probe.Version != "" {
			detail = fmt.Sprintf("%s (%s)", status.Path, probe.Version)
		}
		results = append(results, Result{Name: status.Name, Passed: true, Detail: detail})
	}
	return results
}

// CheckSystemDeps evaluates the executables needed for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.MediaRequirements(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}
