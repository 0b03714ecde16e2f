// Package migrate normalizes numeric test-ID suffixes across archived
// benchmark artifacts. Replica counts determine the zero-pad width of
// run IDs, so raising a count after the fact leaves a workspace where
// "d-c-50-1" and "d-c-50-01" name the same run. The migrator rewrites
// every narrower ID, in member names and member contents alike, to one
// target width.
package migrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/xid"
	"pkt.systems/pslog"

	"github.com/overheadlab/benchpack/internal/archive"
	"github.com/overheadlab/benchpack/internal/logfields"
	"github.com/overheadlab/benchpack/internal/testid"
)

// binarySniffLen bounds how much of a member is inspected for NUL
// bytes before content substitution is skipped.
const binarySniffLen = 8 * 1024

// Migrator rewrites the archives in SrcDir and places the results in
// DstDir. When the two are equal the rewrite is in place; the original
// archive is only replaced by the final atomic rename.
//
// Content substitution matches the literal token "<base>-<digits>"
// where the digit run is maximal and the token does not continue a
// longer word. Prose that happens to contain such a
// token for an unrelated reason is rewritten too; use DryRun to
// preview every change first.
type Migrator struct {
	SrcDir string
	DstDir string
	// ScratchRoot hosts per-archive extraction dirs. Defaults to the
	// system temp dir.
	ScratchRoot string
	// Width is the target digit count for ID suffixes.
	Width  int
	DryRun bool
	Logger pslog.Logger
}

// Stats summarizes a migration run.
type Stats struct {
	Archives int
	Renames  int
	Rewrites int
}

// Run migrates every .tar.gz archive in SrcDir, one at a time in
// sorted name order.
func (m *Migrator) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if m.Width < 1 {
		return stats, fmt.Errorf("target width %d: must be at least 1", m.Width)
	}
	archives, err := filepath.Glob(filepath.Join(m.SrcDir, "*.tar.gz"))
	if err != nil {
		return stats, fmt.Errorf("list archives in %q: %w", m.SrcDir, err)
	}
	if len(archives) == 0 {
		return stats, fmt.Errorf("no archives found in %q", m.SrcDir)
	}
	sort.Strings(archives)
	if !m.DryRun {
		if err := os.MkdirAll(m.DstDir, 0o755); err != nil {
			return stats, fmt.Errorf("create destination dir: %w", err)
		}
	}
	for _, src := range archives {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		renames, rewrites, err := m.migrateArchive(ctx, src)
		if err != nil {
			return stats, fmt.Errorf("migrate %q: %w", src, err)
		}
		stats.Archives++
		stats.Renames += renames
		stats.Rewrites += rewrites
	}
	return stats, nil
}

func (m *Migrator) migrateArchive(ctx context.Context, srcPath string) (renames, rewrites int, err error) {
	base := testid.ArchiveBase(srcPath)
	logger := logfields.WithSubsystem(m.Logger, "migrate.engine").With("archive", filepath.Base(srcPath))

	scratchRoot := m.ScratchRoot
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	scratch := filepath.Join(scratchRoot, "benchpack-"+base+"-"+xid.New().String())
	if err := os.MkdirAll(scratch, 0o700); err != nil {
		return 0, 0, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := archive.Extract(ctx, srcPath, scratch); err != nil {
		return 0, 0, err
	}

	token := regexp.MustCompile(regexp.QuoteMeta(base) + `-(\d+)`)
	// Narrow widths before wide ones: a 1-digit ID padded to the
	// target width gains digits and must not be padded again by the
	// wider passes.
	for digits := 1; digits < m.Width; digits++ {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		nr, nw, err := m.padPass(scratch, token, digits, logger)
		if err != nil {
			return 0, 0, err
		}
		renames += nr
		rewrites += nw
	}

	logger.Info("archive migrated",
		"width", m.Width,
		"renames", renames,
		"rewrites", rewrites,
		"dry_run", m.DryRun,
	)
	if m.DryRun {
		return renames, rewrites, nil
	}

	topLevel, err := os.ReadDir(scratch)
	if err != nil {
		return 0, 0, fmt.Errorf("read scratch dir: %w", err)
	}
	entries := make([]archive.Entry, 0, len(topLevel))
	for _, e := range topLevel {
		entries = append(entries, archive.Entry{
			Source: filepath.Join(scratch, e.Name()),
			Name:   e.Name(),
		})
	}
	dst := filepath.Join(m.DstDir, filepath.Base(srcPath))
	if _, err := archive.Create(ctx, dst, entries); err != nil {
		return 0, 0, err
	}
	return renames, rewrites, nil
}

// padPass rewrites every <base>-<digits>-wide token in member names
// and member contents under root. Renames run deepest-first so a
// renamed directory never invalidates a pending child path.
func (m *Migrator) padPass(root string, token *regexp.Regexp, digits int, logger pslog.Logger) (renames, rewrites int, err error) {
	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		paths = append(paths, path)
		if d.Type().IsRegular() {
			changed, err := m.padContents(path, token, digits, logger)
			if err != nil {
				return err
			}
			if changed {
				rewrites++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	sort.Slice(paths, func(i, j int) bool {
		return strings.Count(paths[i], string(filepath.Separator)) > strings.Count(paths[j], string(filepath.Separator))
	})
	for _, path := range paths {
		name := filepath.Base(path)
		padded, n := padToken([]byte(name), token, digits, m.Width)
		if n == 0 {
			continue
		}
		renames++
		newPath := filepath.Join(filepath.Dir(path), string(padded))
		logger.Debug("rename member", "from", name, "to", string(padded), "dry_run", m.DryRun)
		if m.DryRun {
			continue
		}
		// Refuse to clobber: a mixed-width tree can already hold the
		// padded name, and overwriting it would drop a member.
		if _, err := os.Lstat(newPath); err == nil {
			return 0, 0, fmt.Errorf("rename %q to %q: target already exists", name, string(padded))
		} else if !errors.Is(err, os.ErrNotExist) {
			return 0, 0, fmt.Errorf("rename %q: %w", name, err)
		}
		if err := os.Rename(path, newPath); err != nil {
			return 0, 0, fmt.Errorf("rename %q: %w", name, err)
		}
	}
	return renames, rewrites, nil
}

func (m *Migrator) padContents(path string, token *regexp.Regexp, digits int, logger pslog.Logger) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %q: %w", path, err)
	}
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return false, nil
	}
	padded, n := padToken(data, token, digits, m.Width)
	if n == 0 {
		return false, nil
	}
	logger.Debug("rewrite contents", "file", filepath.Base(path), "substitutions", n, "dry_run", m.DryRun)
	if m.DryRun {
		return true, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, padded, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("rewrite %q: %w", path, err)
	}
	return true, nil
}

// padToken left-pads the numeric suffix of every "<base>-<digits>"
// token in data whose digit run is exactly digitsWidth long, to
// targetWidth. The digit run is maximal (a longer run never matches a
// narrower pass) and the token must not sit inside a larger
// identifier: the preceding byte may not be a letter, digit, or
// underscore. Returns the rewritten data and the substitution count.
func padToken(data []byte, token *regexp.Regexp, digitsWidth, targetWidth int) ([]byte, int) {
	matches := token.FindAllSubmatchIndex(data, -1)
	if len(matches) == 0 {
		return data, 0
	}
	var out []byte
	count := 0
	last := 0
	for _, idx := range matches {
		start, digitsStart, digitsEnd := idx[0], idx[2], idx[3]
		if digitsEnd-digitsStart != digitsWidth {
			continue
		}
		if start > 0 && isWordByte(data[start-1]) {
			continue
		}
		out = append(out, data[last:digitsStart]...)
		out = append(out, testid.Pad(string(data[digitsStart:digitsEnd]), targetWidth)...)
		last = digitsEnd
		count++
	}
	if count == 0 {
		return data, 0
	}
	out = append(out, data[last:]...)
	return out, count
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
