package outfmt

import (
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/swisstax/reconcile/render"
)

type CSVWriter struct {
	OutDir string
}

// PrintRenderTable implements ReportWriter. Each table goes to its own file.
func (w *CSVWriter) PrintRenderTable(outType OutputType, name string, tableModel *render.RenderTable) error {
	fn := fmt.Sprintf("%s-%s.csv", outType.fileStem(), fileSafe(name))

	fp, err := os.Create(path.Join(w.OutDir, fn))
	if err != nil {
		return fmt.Errorf("Create file %q: %w", fn, err)
	}
	defer fp.Close()

	csvWriter := csv.NewWriter(fp)

	if err := csvWriter.Write(tableModel.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range tableModel.Rows {
		if err := csvWriter.Write(flatten(row)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if len(tableModel.Footer) > 0 {
		if err := csvWriter.Write(tableModel.Footer); err != nil {
			return fmt.Errorf("write footer: %w", err)
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flush %q: %w", fn, err)
	}

	for _, note := range tableModel.Notes {
		fmt.Fprintln(fp, note)
	}

	return nil
}

// Cells may hold multi-line values for terminal display.
func flatten(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.ReplaceAll(cell, "\n", " ")
	}
	return out
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
}

func NewCSVWriter(outDir string) (*CSVWriter, error) {
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("Creating CSV output directory: %w", err)
	}
	return &CSVWriter{OutDir: outDir}, nil
}
