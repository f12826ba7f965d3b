package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cfityid/internal/source"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfi.toml")
	if err := os.WriteFile(path, []byte(shapes), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	fs := source.NewFileSet()
	m, err := Load(fs, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Crates) != 1 || m.Crates[0].Name != "app" || m.Crates[0].StableID != 1 {
		t.Fatalf("crates = %+v", m.Crates)
	}
	if len(m.Traits) != 1 || len(m.Traits[0].Methods) != 1 {
		t.Fatalf("traits = %+v", m.Traits)
	}
	if len(m.Calls) != 7 {
		t.Fatalf("calls = %d, want 7", len(m.Calls))
	}
	if m.Target.PointerWidth != 64 {
		t.Fatalf("default pointer width = %d", m.Target.PointerWidth)
	}
	if f := fs.Get(m.File); f == nil || f.Path != m.Path {
		t.Fatalf("manifest file not registered in the file set")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(source.NewFileSet(), filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("want error for a missing manifest")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "[[crate]\nname = 1", "failed to parse TOML"},
		{"no crates", "[target]\npointer_width = 32\n", ErrNoCrates.Error()},
		{"unknown key", "[[crate]]\nname = \"app\"\ncolour = \"blue\"\n", "unknown keys: crate.colour"},
		{"empty crate name", "[[crate]]\nstable_id = 3\n", "missing name"},
		{"wrong type", "[[crate]]\nname = 5\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(source.NewFileSet(), "bad.toml", []byte(tt.src))
			if err == nil {
				t.Fatalf("want error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
			if !strings.HasPrefix(err.Error(), "bad.toml: ") {
				t.Fatalf("err = %v, want the manifest path prefix", err)
			}
		})
	}
}

func TestManifestSpan(t *testing.T) {
	fs := source.NewFileSet()
	m, err := Parse(fs, "span.toml", []byte("[[crate]]\nname = \"app\"\n\n[[fn]]\npath = \"app::run\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sp := m.span("app::run")
	content := string(fs.Get(m.File).Content)
	if got := content[sp.Start:sp.End]; got != "app::run" {
		t.Fatalf("span text = %q", got)
	}
	inner := sub(sp, 5, 8)
	if got := content[inner.Start:inner.End]; got != "run" {
		t.Fatalf("sub span text = %q", got)
	}
	if missing := m.span("nowhere"); !missing.Empty() {
		t.Fatalf("span of absent value = %+v", missing)
	}
}
