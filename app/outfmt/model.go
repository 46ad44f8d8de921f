package outfmt

import (
	"fmt"

	"github.com/swisstax/reconcile/render"
)

type OutputType int

const (
	PositionChecks OutputType = iota
	PaymentReconciliation
	Mismatches
)

func (t OutputType) Title(name string) string {
	switch t {
	case PositionChecks:
		return fmt.Sprintf("Position checks for %s", name)
	case PaymentReconciliation:
		return fmt.Sprintf("Payment reconciliation for %s", name)
	case Mismatches:
		return fmt.Sprintf("Payment mismatches for %s", name)
	}
	panic(fmt.Sprint("OutputType ", int(t), " is not implemented"))
}

func (t OutputType) fileStem() string {
	switch t {
	case PositionChecks:
		return "positions"
	case PaymentReconciliation:
		return "payments"
	case Mismatches:
		return "mismatches"
	}
	return ""
}

type ReportWriter interface {
	PrintRenderTable(outType OutputType, name string, tableModel *render.RenderTable) error
}

type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatCSV, FormatMarkdown:
		return Format(s), nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected text, csv or markdown)", s)
}
