package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const cliManifest = `
[[crate]]
name = "app"
stable_id = 1

[[fn]]
path = "app::add"
params = ["i32", "i32"]
ret = "i32"

[[call]]
name = "add"
path = "app::add"
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestComputeJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfi.toml")
	if err := os.WriteFile(path, []byte(cliManifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	out, _, err := execute(t, "compute", "--color", "off", "--no-cache", "--format", "json", "--normalize-integers", path)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	var payload struct {
		Options string `json:"options"`
		Results []struct {
			Name   string `json:"name"`
			TypeID string `json:"typeid"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if payload.Options != "normalize-integers" {
		t.Fatalf("options = %q", payload.Options)
	}
	if len(payload.Results) != 1 || payload.Results[0].TypeID != "_ZTSFu3i32S_S_E.normalized" {
		t.Fatalf("results = %+v", payload.Results)
	}
}

func TestComputeReportsDiagnostics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	src := "[[crate]]\nname = \"app\"\n\n[[fn]]\npath = \"app::f\"\nparams = [\"Missing\"]\n"
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	_, stderr, err := execute(t, "compute", "--color", "off", "--no-cache", "--format", "pretty", path)
	if err == nil {
		t.Fatal("want error for an invalid manifest")
	}
	if !strings.Contains(stderr, "bad.toml:6:") || !strings.Contains(stderr, "Missing") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestVersionJSON(t *testing.T) {
	out, _, err := execute(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, `"tool": "cfityid"`) || !strings.Contains(out, `"version"`) {
		t.Fatalf("output = %q", out)
	}
}
