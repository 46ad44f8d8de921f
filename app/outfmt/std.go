package outfmt

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/swisstax/reconcile/render"
)

type STDWriter struct {
	w io.Writer
}

func NewSTDWriter(w io.Writer) *STDWriter {
	return &STDWriter{
		w: w,
	}
}

// Write implements io.Writer.
func (w *STDWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if err != nil {
		panic(fmt.Errorf("STDWriter.Write: %w", err))
	}
	return n, err
}

// PrintRenderTable implements ReportWriter.
func (w *STDWriter) PrintRenderTable(outType OutputType, name string, tableModel *render.RenderTable) error {
	for _, err := range tableModel.Errors {
		fmt.Fprintf(w, "[!] %v\n", err)
	}
	fmt.Fprintf(w, "%s\n", outType.Title(name))

	table := tablewriter.NewWriter(w)
	table.SetHeader(tableModel.Header)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetRowLine(true)

	for _, row := range tableModel.Rows {
		table.Append(row)
	}

	table.SetFooter(tableModel.Footer)

	table.Render()

	for _, note := range tableModel.Notes {
		fmt.Fprintln(w, note)
	}

	fmt.Fprintln(w, "")
	return nil
}
