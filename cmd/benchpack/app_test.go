package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"pkt.systems/pslog"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(pslog.NewStructured(io.Discard))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootHasExpectedSubcommands(t *testing.T) {
	root := newRootCommand(pslog.NewStructured(io.Discard))
	want := map[string]bool{
		"build":   false,
		"migrate": false,
		"plan":    false,
		"watch":   false,
		"config":  false,
		"version": false,
	}
	for _, sub := range root.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestRootShorthands(t *testing.T) {
	root := newRootCommand(pslog.NewStructured(io.Discard))
	if flag := root.PersistentFlags().ShorthandLookup("w"); flag == nil || flag.Name != "workspace" {
		t.Fatalf("expected -w shorthand for --workspace, got %#v", flag)
	}
	if flag := root.PersistentFlags().ShorthandLookup("c"); flag == nil || flag.Name != "config" {
		t.Fatalf("expected -c shorthand for --config, got %#v", flag)
	}
	if flag := root.PersistentFlags().ShorthandLookup("e"); flag == nil || flag.Name != "experiment-config" {
		t.Fatalf("expected -e shorthand for --experiment-config, got %#v", flag)
	}
}

func TestBuildRequiresNamesOrAll(t *testing.T) {
	ws := t.TempDir()
	if _, err := runCommand(t, "--workspace", ws, "build"); err == nil {
		t.Fatalf("expected error without names or --all")
	}
	if _, err := runCommand(t, "--workspace", ws, "build", "--all", "x"); err == nil {
		t.Fatalf("expected error with both names and --all")
	}
}

func TestMigrateArgValidation(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCommand(t, "migrate", dir); err == nil {
		t.Fatalf("expected error: DST required without --in-place")
	}
	if _, err := runCommand(t, "migrate", dir, dir, "--in-place"); err == nil {
		t.Fatalf("expected error: --in-place takes only SRC")
	}
}

func TestBuildCommandEndToEnd(t *testing.T) {
	ws := t.TempDir()
	mustWrite(t, filepath.Join(ws, "logs", "t-01.log"), "log line\n")
	mustWrite(t, filepath.Join(ws, "results", "t-01.tar.gz"), "tarball")

	if _, err := runCommand(t, "--workspace", ws, "build", "t"); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws, "archive", "t.tar.gz")); err != nil {
		t.Fatalf("archive not written: %v", err)
	}
}

func TestBuildCommandNoMatchesFails(t *testing.T) {
	ws := t.TempDir()
	if _, err := runCommand(t, "--workspace", ws, "build", "ghost"); err == nil {
		t.Fatalf("expected failure when nothing matches")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
