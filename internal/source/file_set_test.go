package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveLinesAndColumns(t *testing.T) {
	fs := NewFileSet()
	id := fs.Add("sigs.toml", []byte("a = 1\nbb = 2\n"))

	start, end := fs.Resolve(Span{File: id, Start: 6, End: 8})
	if start != (LineCol{Line: 2, Col: 1}) {
		t.Errorf("unexpected start %+v", start)
	}
	if end != (LineCol{Line: 2, Col: 3}) {
		t.Errorf("unexpected end %+v", end)
	}

	// The newline itself belongs to the line it terminates.
	nl, _ := fs.Resolve(Span{File: id, Start: 5, End: 5})
	if nl != (LineCol{Line: 1, Col: 6}) {
		t.Errorf("unexpected newline position %+v", nl)
	}
}

func TestLoadNormalizesCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.toml")
	if err := os.WriteFile(path, []byte("x = 1\r\ny = 2\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "x = 1\ny = 2\n" {
		t.Fatalf("expected CRLF normalized, got %q", f.Content)
	}
	if got := fs.Position(Span{File: id, Start: 6}); got != filepath.ToSlash(path)+":2:1" {
		t.Fatalf("unexpected position %q", got)
	}
}

func TestGetOutOfRange(t *testing.T) {
	fs := NewFileSet()
	if fs.Get(3) != nil {
		t.Fatal("expected nil for unknown file")
	}
}
