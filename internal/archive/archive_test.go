package archive

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func listMembers(t *testing.T, archivePath string) map[string]string {
	t.Helper()
	f, err := os.Open(archivePath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	defer gz.Close()
	members := make(map[string]string)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("read member %q: %v", hdr.Name, err)
		}
		members[hdr.Name] = string(data)
	}
	return members
}

func TestCreateAndExtractRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "alpha")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "beta")

	dst := filepath.Join(t.TempDir(), "out.tar.gz")
	size, err := Create(context.Background(), dst, []Entry{
		{Source: filepath.Join(src, "a.txt"), Name: "a.txt"},
		{Source: filepath.Join(src, "sub"), Name: "sub"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if size <= 0 {
		t.Fatalf("Create reported size %d", size)
	}

	out := t.TempDir()
	if err := Extract(context.Background(), dst, out); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(out, "sub", "b.txt"))
	if err != nil {
		t.Fatalf("read extracted: %v", err)
	}
	if string(got) != "beta" {
		t.Fatalf("extracted content %q want %q", got, "beta")
	}
}

func TestCreateDeterministicMemberOrder(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "z.txt"), "z")
	writeFile(t, filepath.Join(src, "a.txt"), "a")

	dst := filepath.Join(t.TempDir(), "out.tar.gz")
	entries := []Entry{
		{Source: filepath.Join(src, "z.txt"), Name: "z.txt"},
		{Source: filepath.Join(src, "a.txt"), Name: "a.txt"},
	}
	if _, err := Create(context.Background(), dst, entries); err != nil {
		t.Fatalf("Create: %v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		names = append(names, hdr.Name)
	}
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "z.txt" {
		t.Fatalf("member order %v, want sorted", names)
	}
}

func TestCreateMissingSourceFails(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.tar.gz")
	_, err := Create(context.Background(), dst, []Entry{{Source: "/nonexistent/file", Name: "x"}})
	if err == nil {
		t.Fatalf("expected error for missing source")
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatalf("failed Create left an archive behind")
	}
}

func TestExtractRejectsEscapingMembers(t *testing.T) {
	evil := filepath.Join(t.TempDir(), "evil.tar.gz")
	f, err := os.Create(evil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{Name: "../escape.txt", Mode: 0o644, Size: 4, Typeflag: tar.TypeReg}); err != nil {
		t.Fatalf("header: %v", err)
	}
	if _, err := tw.Write([]byte("boom")); err != nil {
		t.Fatalf("write: %v", err)
	}
	tw.Close()
	gz.Close()
	f.Close()

	if err := Extract(context.Background(), evil, t.TempDir()); err == nil {
		t.Fatalf("expected escape rejection")
	}
}

func TestBuilderCollectsMatchedArtifacts(t *testing.T) {
	ws := t.TempDir()
	cfg := filepath.Join(ws, "experiments.yaml")
	writeFile(t, cfg, "tests: []\n")
	writeFile(t, filepath.Join(ws, "logs", "d-c-50-01.log"), "log1")
	writeFile(t, filepath.Join(ws, "logs", "d-c-50-02.log"), "log2")
	writeFile(t, filepath.Join(ws, "logs", "other-01.log"), "other")
	writeFile(t, filepath.Join(ws, "results", "d-c-50-01.tar.gz"), "tarball")
	writeFile(t, filepath.Join(ws, "working", "d-c-50-01", "config.sh"), "CONF=1")

	b := &Builder{
		ConfigPath: cfg,
		LogsDir:    filepath.Join(ws, "logs"),
		ResultsDir: filepath.Join(ws, "results"),
		WorkingDir: filepath.Join(ws, "working"),
		ArchiveDir: filepath.Join(ws, "archive"),
	}
	path, err := b.Build(context.Background(), "d-c-50")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if path != filepath.Join(ws, "archive", "d-c-50.tar.gz") {
		t.Fatalf("unexpected archive path %q", path)
	}

	members := listMembers(t, path)
	for _, want := range []string{
		"experiments.yaml",
		"logs/d-c-50-01.log",
		"logs/d-c-50-02.log",
		"results/d-c-50-01.tar.gz",
		"working/d-c-50-01/",
		"working/d-c-50-01/config.sh",
	} {
		if _, ok := members[want]; !ok {
			t.Fatalf("missing member %q in %v", want, members)
		}
	}
	if _, ok := members["logs/other-01.log"]; ok {
		t.Fatalf("unrelated log bundled: %v", members)
	}
	if members["working/d-c-50-01/config.sh"] != "CONF=1" {
		t.Fatalf("working content mismatch: %q", members["working/d-c-50-01/config.sh"])
	}
}

func TestBuilderMissingGlobsAreSkipped(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "logs", "t-01.log"), "log")

	b := &Builder{
		LogsDir:    filepath.Join(ws, "logs"),
		ResultsDir: filepath.Join(ws, "results"),
		WorkingDir: filepath.Join(ws, "working"),
		ArchiveDir: filepath.Join(ws, "archive"),
	}
	path, err := b.Build(context.Background(), "t")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	members := listMembers(t, path)
	if len(members) != 1 {
		t.Fatalf("expected only the log member, got %v", members)
	}
}

func TestBuilderNoMatchesReturnsErrNoArtifacts(t *testing.T) {
	ws := t.TempDir()
	b := &Builder{
		LogsDir:    filepath.Join(ws, "logs"),
		ResultsDir: filepath.Join(ws, "results"),
		WorkingDir: filepath.Join(ws, "working"),
		ArchiveDir: filepath.Join(ws, "archive"),
	}
	if _, err := b.Build(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected ErrNoArtifacts")
	} else if !errors.Is(err, ErrNoArtifacts) {
		t.Fatalf("expected ErrNoArtifacts, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws, "archive", "ghost.tar.gz")); !os.IsNotExist(err) {
		t.Fatalf("empty match set still produced an archive")
	}
}
