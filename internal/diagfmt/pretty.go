package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"cfityid/internal/diag"
	"cfityid/internal/source"
)

// Pretty prints diagnostics as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with the span underlined ^~~~, then notes in
// the same format. Call bag.Sort() first for a stable order.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	p := printer{w: w, fs: fs, opts: opts}
	for _, d := range items {
		p.diagnostic(d)
	}
}

type printer struct {
	w    io.Writer
	fs   *source.FileSet
	opts PrettyOpts
}

func (p printer) paint(attr color.Attribute, s string) string {
	if !p.opts.Color {
		return s
	}
	c := color.New(attr, color.Bold)
	c.EnableColor()
	return c.Sprint(s)
}

func severityColor(sev diag.Severity) color.Attribute {
	switch sev {
	case diag.SevError:
		return color.FgRed
	case diag.SevWarning:
		return color.FgYellow
	default:
		return color.FgCyan
	}
}

func (p printer) diagnostic(d diag.Diagnostic) {
	sev := p.paint(severityColor(d.Severity), d.Severity.String())
	fmt.Fprintf(p.w, "%s: %s %s: %s\n", p.position(d.Primary), sev, d.Code.ID(), d.Message)
	p.excerpt(d.Primary, severityColor(d.Severity))
	if !p.opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		fmt.Fprintf(p.w, "%s: %s: %s\n", p.position(n.Span), p.paint(color.FgCyan, "note"), n.Msg)
		p.excerpt(n.Span, color.FgCyan)
	}
}

func (p printer) position(span source.Span) string {
	f := p.fs.Get(span.File)
	if f == nil {
		return span.String()
	}
	start, _ := p.fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", formatPath(f.Path, p.opts.PathMode), start.Line, start.Col)
}

func formatPath(path string, mode PathMode) string {
	if mode == PathModeBasename {
		return filepath.Base(path)
	}
	return path
}

// excerpt prints the first line of span with a marker under the spanned
// columns.
func (p printer) excerpt(span source.Span, attr color.Attribute) {
	f := p.fs.Get(span.File)
	if f == nil || int(span.Start) > len(f.Content) {
		return
	}
	start, end := p.fs.Resolve(span)
	line := lineText(f, start.Line)
	if line == "" {
		return
	}
	gutter := fmt.Sprintf("%4d | ", start.Line)
	fmt.Fprintf(p.w, "%s%s\n", gutter, line)

	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		width = int(end.Col - start.Col)
	} else if end.Line > start.Line {
		width = max(1, len(line)-int(start.Col)+1)
	}
	marker := "^" + strings.Repeat("~", width-1)
	pad := strings.Repeat(" ", len(gutter)+int(start.Col)-1)
	fmt.Fprintf(p.w, "%s%s\n", pad, p.paint(attr, marker))
}

func lineText(f *source.File, line uint32) string {
	if line == 0 {
		return ""
	}
	begin := 0
	if line > 1 {
		if int(line-2) >= len(f.LineIdx) {
			return ""
		}
		begin = int(f.LineIdx[line-2]) + 1
	}
	finish := len(f.Content)
	if int(line-1) < len(f.LineIdx) {
		finish = int(f.LineIdx[line-1])
	}
	if begin > finish {
		return ""
	}
	return strings.TrimRight(string(f.Content[begin:finish]), "\r")
}
