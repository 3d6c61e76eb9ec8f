package batch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// Job pairs a source with the output it will be trimmed into.
type Job struct {
	Source string `json:"source"`
	Output string `json:"output"`
}

// Discover walks root and returns the regular files whose lowercased
// extension is in exts, sorted. Files that already look like outputs (stem
// ending in suffix) and anything under skipDir are ignored.
func Discover(root string, exts []string, suffix, skipDir string) ([]string, error) {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	if skipDir != "" {
		skipDir = filepath.Clean(skipDir)
	}

	var sources []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && ((skipDir != "" && path == skipDir) || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ext := filepath.Ext(path)
		if _, ok := allowed[strings.ToLower(ext)]; !ok {
			return nil
		}
		stem := strings.TrimSuffix(d.Name(), ext)
		if suffix != "" && strings.HasSuffix(stem, suffix) {
			return nil
		}
		sources = append(sources, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	slices.Sort(sources)
	return sources, nil
}

// PlanOutput returns the output path for source. With an empty outputDir the
// output sits next to the source; otherwise the source's path relative to
// root is mirrored under outputDir.
func PlanOutput(source, root, outputDir, suffix string) (string, error) {
	dir := filepath.Dir(source)
	if outputDir != "" {
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return "", fmt.Errorf("relative path of %s: %w", source, err)
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("source %s is outside %s", source, root)
		}
		dir = filepath.Join(outputDir, rel)
	}
	ext := filepath.Ext(source)
	stem := strings.TrimSuffix(filepath.Base(source), ext)
	output := filepath.Join(dir, stem+suffix+ext)
	if output == filepath.Clean(source) {
		return "", fmt.Errorf("output for %s would overwrite the source", source)
	}
	return output, nil
}

// Plan discovers sources under root and plans their outputs.
func Plan(root string, opts Options) ([]Job, error) {
	root = filepath.Clean(root)
	sources, err := Discover(root, opts.Extensions, opts.OutputSuffix, opts.OutputDir)
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(sources))
	for _, source := range sources {
		output, err := PlanOutput(source, root, opts.OutputDir, opts.OutputSuffix)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, Job{Source: source, Output: output})
	}
	return jobs, nil
}
