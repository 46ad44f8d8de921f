package outfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/swisstax/reconcile/render"
)

// MarkdownWriter prints tables as markdown. With a renderer set the markdown
// is styled for the terminal, otherwise it is written raw.
type MarkdownWriter struct {
	w        io.Writer
	renderer *glamour.TermRenderer
}

func NewMarkdownWriter(w io.Writer, styled bool) (*MarkdownWriter, error) {
	mw := &MarkdownWriter{w: w}
	if styled {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(160),
		)
		if err != nil {
			return nil, fmt.Errorf("creating markdown renderer: %w", err)
		}
		mw.renderer = r
	}
	return mw, nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", "<br>")
}

func tableRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = escapeCell(c)
	}
	return "| " + strings.Join(escaped, " | ") + " |\n"
}

// ToMarkdown renders a table model as a markdown section.
func ToMarkdown(outType OutputType, name string, tableModel *render.RenderTable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", outType.Title(name))
	for _, err := range tableModel.Errors {
		fmt.Fprintf(&b, "> **Error:** %s\n\n", escapeCell(err.Error()))
	}
	b.WriteString(tableRow(tableModel.Header))
	sep := make([]string, len(tableModel.Header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("|" + strings.Join(sep, "|") + "|\n")
	for _, row := range tableModel.Rows {
		b.WriteString(tableRow(row))
	}
	if len(tableModel.Footer) > 0 {
		b.WriteString(tableRow(tableModel.Footer))
	}
	b.WriteString("\n")
	for _, note := range tableModel.Notes {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(note))
	}
	return b.String()
}

// PrintRenderTable implements ReportWriter.
func (w *MarkdownWriter) PrintRenderTable(outType OutputType, name string, tableModel *render.RenderTable) error {
	md := ToMarkdown(outType, name, tableModel)
	if w.renderer != nil {
		out, err := w.renderer.Render(md)
		if err != nil {
			return fmt.Errorf("rendering markdown: %w", err)
		}
		md = out
	}
	_, err := io.WriteString(w.w, md)
	return err
}
