package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"cfityid/internal/driver"
)

func TestRenderTable(t *testing.T) {
	results := []driver.Result{
		{Name: "add", Kind: "fn", Callee: "app::add", ID: "_ZTSFu3i32S_S_E"},
		{Name: "id-u64", Kind: "fn", Callee: "app::id::<u64>", ID: "_ZTSFu3u64S_E", Cached: true},
		{Name: "bad", Kind: "drop", Callee: "app::Gone", Err: errors.New("boom")},
	}
	var buf bytes.Buffer
	if err := renderTable(&buf, results, false, 0); err != nil {
		t.Fatalf("renderTable: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "CALL") || !strings.HasSuffix(lines[0], "TYPE ID") {
		t.Fatalf("header = %q", lines[0])
	}
	col := strings.Index(lines[0], "TYPE ID")
	if got := lines[1][col:]; got != "_ZTSFu3i32S_S_E" {
		t.Fatalf("id column = %q", got)
	}
	if !strings.HasSuffix(lines[2], "(cached)") {
		t.Fatalf("cached row = %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "error: boom") {
		t.Fatalf("failed row = %q", lines[3])
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"app::very::long::path", 10, "app::ve..."},
		{"abcdef", 3, "abc"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestColorEnabled(t *testing.T) {
	if on, err := colorEnabled("on", nil); err != nil || !on {
		t.Fatalf("on = %v, %v", on, err)
	}
	if on, err := colorEnabled("OFF", nil); err != nil || on {
		t.Fatalf("off = %v, %v", on, err)
	}
	if _, err := colorEnabled("sometimes", nil); err == nil {
		t.Fatal("want error for an unknown mode")
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"off", "", "debug", "info", "warn", "error"} {
		if _, err := newLogger(level); err != nil {
			t.Fatalf("newLogger(%q): %v", level, err)
		}
	}
	if _, err := newLogger("loud"); err == nil {
		t.Fatal("want error for an unknown level")
	}
}
