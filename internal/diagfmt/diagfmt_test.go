package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"cfityid/internal/diag"
	"cfityid/internal/source"
)

func sample(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	content := []byte("[[crate]]\nname = \"app\"\n\n[[fn]]\nparams = [\"Missing\"]\n")
	id := fs.Add("/work/cfi/sigs.toml", content)
	start := uint32(bytes.Index(content, []byte("Missing")))
	bag := diag.NewBag(8)
	d := diag.New(diag.SevError, diag.ManifestUnknownPath, source.Span{File: id, Start: start, End: start + 7}, "cannot find type `Missing`")
	d = d.WithNote(source.Span{File: id, Start: 11, End: 15}, "in crate `app`")
	bag.Add(d)
	return bag, fs
}

func TestPretty(t *testing.T) {
	bag, fs := sample(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true})
	out := buf.String()

	for _, want := range []string{
		"/work/cfi/sigs.toml:5:12: ERROR PRJ5002: cannot find type `Missing`",
		`   5 | params = ["Missing"]`,
		"^~~~~~~",
		"note: in crate `app`",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	lines := strings.Split(out, "\n")
	if idx := strings.Index(lines[2], "^"); idx != len("   5 | ")+11 {
		t.Fatalf("marker at column %d:\n%s", idx, out)
	}
}

func TestPrettyBasenameWithoutNotes(t *testing.T) {
	bag, fs := sample(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	out := buf.String()
	if !strings.HasPrefix(out, "sigs.toml:5:12:") {
		t.Fatalf("output = %q", out)
	}
	if strings.Contains(out, "note:") {
		t.Fatalf("notes printed without ShowNotes:\n%s", out)
	}
}

func TestDiagnosticsOutputJSON(t *testing.T) {
	bag, fs := sample(t)
	raw, err := json.Marshal(BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Code != "PRJ5002" || d.Severity != "ERROR" || d.Location.StartLine != 5 || d.Location.StartCol != 12 {
		t.Fatalf("diagnostic = %+v", d)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.StartLine != 2 {
		t.Fatalf("notes = %+v", d.Notes)
	}
}

func TestJSONMax(t *testing.T) {
	bag, fs := sample(t)
	bag.Add(diag.New(diag.SevWarning, diag.CfiInvalidEncoding, source.Span{}, "second"))
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 {
		t.Fatalf("count = %d, want 1", out.Count)
	}
}
