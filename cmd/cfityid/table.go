package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"cfityid/internal/driver"
)

const (
	defaultTableWidth = 120
	minCalleeWidth    = 16
)

type tableStyles struct {
	header lipgloss.Style
	id     lipgloss.Style
	cached lipgloss.Style
	failed lipgloss.Style
	plain  lipgloss.Style
}

func newTableStyles(useColor bool) tableStyles {
	if !useColor {
		plain := lipgloss.NewStyle()
		return tableStyles{header: plain, id: plain, cached: plain, failed: plain, plain: plain}
	}
	return tableStyles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
		id:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		cached: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		failed: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		plain:  lipgloss.NewStyle(),
	}
}

// renderTable prints one row per result: name, kind, callee and identifier.
// Callees are truncated so that identifiers stay on one line when possible.
func renderTable(out io.Writer, results []driver.Result, useColor bool, width int) error {
	st := newTableStyles(useColor)
	headers := [3]string{"CALL", "KIND", "CALLEE"}
	widths := [3]int{len(headers[0]), len(headers[1]), len(headers[2])}
	idWidth := len("TYPE ID")
	for _, r := range results {
		widths[0] = max(widths[0], runewidth.StringWidth(r.Name))
		widths[1] = max(widths[1], runewidth.StringWidth(r.Kind))
		widths[2] = max(widths[2], runewidth.StringWidth(r.Callee))
		idWidth = max(idWidth, runewidth.StringWidth(idCell(r)))
	}
	if width <= 0 {
		width = defaultTableWidth
	}
	if room := width - widths[0] - widths[1] - idWidth - 6; widths[2] > room {
		widths[2] = max(room, minCalleeWidth)
	}

	var b strings.Builder
	row := func(cells [3]string, id string, idStyle lipgloss.Style) {
		for i, c := range cells {
			c = truncate(c, widths[i])
			b.WriteString(c)
			b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(c)+2))
		}
		b.WriteString(idStyle.Render(id))
		b.WriteByte('\n')
	}

	b.WriteString(st.header.Render(pad(headers[0], widths[0]) + "  " + pad(headers[1], widths[1]) + "  " + pad(headers[2], widths[2]) + "  TYPE ID"))
	b.WriteByte('\n')
	for _, r := range results {
		style := st.id
		switch {
		case r.Err != nil:
			style = st.failed
		case r.Cached:
			style = st.cached
		}
		row([3]string{r.Name, r.Kind, r.Callee}, idCell(r), style)
	}
	_, err := fmt.Fprint(out, b.String())
	return err
}

func idCell(r driver.Result) string {
	if r.Err != nil {
		return "error: " + r.Err.Error()
	}
	if r.Cached {
		return r.ID + " (cached)"
	}
	return r.ID
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", max(width-runewidth.StringWidth(s), 0))
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

func terminalWidth(f *os.File) int {
	fd := int(f.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}
