// Package archive creates and extracts the tar.gz bundles that hold a
// test's config, logs, results, and working files. Archives are
// written to a scratch file in the destination directory and renamed
// into place so readers never observe a partial archive.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Entry maps a filesystem path to its name inside an archive.
// Directories are walked recursively; their files inherit the entry
// name as a prefix.
type Entry struct {
	Source string
	Name   string
}

type member struct {
	source string
	name   string
	info   fs.FileInfo
}

// Create writes a tar.gz of entries to dstPath. Members are emitted in
// sorted name order so rebuilding the same content yields the same
// archive layout. Returns the archive size in bytes.
func Create(ctx context.Context, dstPath string, entries []Entry) (int64, error) {
	members, err := expand(entries)
	if err != nil {
		return 0, err
	}
	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return 0, fmt.Errorf("create archive dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".benchpack-archive-*")
	if err != nil {
		return 0, fmt.Errorf("create scratch archive: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := writeMembers(ctx, tmp, members); err != nil {
		cleanup()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, fmt.Errorf("sync archive: %w", err)
	}
	size, err := tmp.Seek(0, io.SeekEnd)
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("size archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpName, dstPath); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("finalize archive %q: %w", dstPath, err)
	}
	return size, nil
}

func writeMembers(ctx context.Context, w io.Writer, members []member) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeMember(tw, m); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip stream: %w", err)
	}
	return nil
}

func writeMember(tw *tar.Writer, m member) error {
	hdr, err := tar.FileInfoHeader(m.info, "")
	if err != nil {
		return fmt.Errorf("header for %q: %w", m.source, err)
	}
	hdr.Name = m.name
	if m.info.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %q: %w", m.name, err)
	}
	if m.info.IsDir() {
		return nil
	}
	f, err := os.Open(m.source)
	if err != nil {
		return fmt.Errorf("open %q: %w", m.source, err)
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("archive %q: %w", m.source, err)
	}
	return nil
}

func expand(entries []Entry) ([]member, error) {
	var members []member
	for _, e := range entries {
		info, err := os.Stat(e.Source)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", e.Source, err)
		}
		if !info.IsDir() {
			members = append(members, member{source: e.Source, name: filepath.ToSlash(e.Name), info: info})
			continue
		}
		err = filepath.WalkDir(e.Source, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(e.Source, path)
			if err != nil {
				return err
			}
			name := e.Name
			if rel != "." {
				name = filepath.ToSlash(filepath.Join(e.Name, rel))
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			members = append(members, member{source: path, name: name, info: fi})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %q: %w", e.Source, err)
		}
	}
	return members, nil
}

// Extract unpacks the tar.gz at srcPath into dstDir. Member names are
// cleaned and must stay inside dstDir; absolute or escaping names
// fail the extraction.
func Extract(ctx context.Context, srcPath, dstDir string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read gzip %q: %w", srcPath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar %q: %w", srcPath, err)
		}
		target, err := safeJoin(dstDir, hdr.Name)
		if err != nil {
			return fmt.Errorf("extract %q: %w", srcPath, err)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fs.FileMode(hdr.Mode)|0o700); err != nil {
				return fmt.Errorf("extract dir %q: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("extract %q: %w", hdr.Name, err)
			}
			if err := extractFile(target, fs.FileMode(hdr.Mode), tr); err != nil {
				return fmt.Errorf("extract %q: %w", hdr.Name, err)
			}
		default:
			// Symlinks and specials never appear in benchmark
			// artifacts; skip rather than fail on foreign archives.
		}
	}
}

func extractFile(target string, mode fs.FileMode, r io.Reader) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func safeJoin(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("member name %q escapes extraction dir", name)
	}
	return filepath.Join(root, cleaned), nil
}
