package main

import (
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "benchpack") {
		t.Fatalf("version output does not name the module: %q", out)
	}
	if strings.TrimSpace(out) == "benchpack" {
		t.Fatalf("version output missing version string: %q", out)
	}
}
