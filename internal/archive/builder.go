package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"pkt.systems/pslog"

	"github.com/overheadlab/benchpack/internal/logfields"
)

// ErrNoArtifacts is returned by Builder.Build when no workspace file
// matches the test name. Batch callers treat it as a skip, matching
// the silent-empty-glob behaviour of the original tooling.
var ErrNoArtifacts = errors.New("no artifacts matched")

// Builder bundles every workspace artifact belonging to a test name
// into archive/<name>.tar.gz.
type Builder struct {
	// ConfigPath is the experiment config file included in every
	// bundle when present. Empty disables config inclusion.
	ConfigPath string
	LogsDir    string
	ResultsDir string
	WorkingDir string
	ArchiveDir string
	Logger     pslog.Logger
}

// Build collects the config file, matching logs, matching result
// tarballs, and matching working-directory entries for name, and
// writes them to archive/<name>.tar.gz. Empty glob matches are
// skipped; a fully empty match set returns ErrNoArtifacts and writes
// nothing.
func (b *Builder) Build(ctx context.Context, name string) (string, error) {
	logger := logfields.WithSubsystem(b.Logger, "archive.builder").With("test", name)

	entries, err := b.collect(name)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("test %q: %w", name, ErrNoArtifacts)
	}

	dst := filepath.Join(b.ArchiveDir, name+".tar.gz")
	size, err := Create(ctx, dst, entries)
	if err != nil {
		return "", fmt.Errorf("build archive for %q: %w", name, err)
	}
	logger.Info("archive built",
		"path", dst,
		"entries", len(entries),
		"size", strings.ReplaceAll(humanize.Bytes(uint64(size)), " ", ""),
	)
	return dst, nil
}

func (b *Builder) collect(name string) ([]Entry, error) {
	var entries []Entry
	if b.ConfigPath != "" {
		if _, err := os.Stat(b.ConfigPath); err == nil {
			entries = append(entries, Entry{Source: b.ConfigPath, Name: filepath.Base(b.ConfigPath)})
		}
	}
	globs := []struct {
		pattern string
		prefix  string
	}{
		{pattern: filepath.Join(b.LogsDir, name+"*"), prefix: "logs"},
		{pattern: filepath.Join(b.ResultsDir, name+"*.tar.gz"), prefix: "results"},
		{pattern: filepath.Join(b.WorkingDir, name+"*"), prefix: "working"},
	}
	for _, g := range globs {
		matches, err := filepath.Glob(g.pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", g.pattern, err)
		}
		for _, match := range matches {
			entries = append(entries, Entry{
				Source: match,
				Name:   filepath.ToSlash(filepath.Join(g.prefix, filepath.Base(match))),
			})
		}
	}
	return entries, nil
}
