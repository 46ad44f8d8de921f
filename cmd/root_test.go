package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type bufErrPrinter struct {
	buf bytes.Buffer
}

func (p *bufErrPrinter) Ln(v ...interface{}) {
	fmt.Fprintln(&p.buf, v...)
}

func (p *bufErrPrinter) F(format string, v ...interface{}) {
	fmt.Fprintf(&p.buf, format, v...)
}

const statementJSON = `{
  "periodFrom": "2025-01-01",
  "periodTo": "2025-12-31",
  "listOfSecurities": {"depot": [{
    "depotNumber": "D1",
    "security": [{
      "positionId": 1, "country": "CH", "currency": "CHF", "securityName": "ROG",
      "stock": [
        {"referenceDate": "2025-01-01", "mutation": false, "quantity": "4", "balanceCurrency": "CHF"},
        {"referenceDate": "2026-01-01", "mutation": false, "quantity": "4", "balanceCurrency": "CHF"}
      ],
      "payment": [
        {"paymentDate": "2025-03-20", "amountCurrency": "CHF", "quantity": "4", "origin": "kursliste",
         "grossRevenueA": "38.40", "withHoldingTaxClaim": "13.44", "exchangeRate": "1"},
        {"paymentDate": "2025-03-20", "amountCurrency": "CHF", "quantity": "4", "amount": "%s", "name": "Dividend"},
        {"paymentDate": "2025-03-20", "amountCurrency": "CHF", "quantity": "4", "withHoldingTaxClaim": "13.44", "name": "Withholding"}
      ]
    }]
  }]}
}`

func writeStatement(t *testing.T, brokerAmount string) string {
	path := filepath.Join(t.TempDir(), "statement.json")
	err := os.WriteFile(path, []byte(fmt.Sprintf(statementJSON, brokerAmount)), 0o644)
	require.Nil(t, err)
	return path
}

func resetFlags() {
	Tolerance = "0.05"
	OutputFormat = "text"
	CsvOutputDir = "."
	RatesFile = ""
	CompletePeriod = false
	FullValues = false
	MismatchesOnly = false
	NoStyle = false
	NoAllowlist = false
}

func TestRunReconcile(t *testing.T) {
	rq := require.New(t)
	resetFlags()
	defer resetFlags()

	var out bytes.Buffer
	errs := &bufErrPrinter{}
	rq.Equal(0, runReconcile([]string{writeStatement(t, "38.40")}, &out, errs))
	rq.Empty(errs.buf.String())
	rq.Contains(out.String(), "Payment reconciliation for")

	out.Reset()
	rq.Equal(1, runReconcile([]string{writeStatement(t, "30")}, &out, errs))
	rq.Contains(errs.buf.String(), "1 payment mismatches")

	// A larger tolerance accepts the shortfall.
	Tolerance = "10"
	errs = &bufErrPrinter{}
	rq.Equal(0, runReconcile([]string{writeStatement(t, "30")}, &out, errs))
}

func TestRunReconcileBadInput(t *testing.T) {
	rq := require.New(t)
	resetFlags()
	defer resetFlags()

	var out bytes.Buffer
	errs := &bufErrPrinter{}
	rq.Equal(1, runReconcile([]string{filepath.Join(t.TempDir(), "missing.json")}, &out, errs))

	Tolerance = "abc"
	rq.Equal(1, runReconcile([]string{writeStatement(t, "38.40")}, &out, errs))
	rq.Contains(errs.buf.String(), "invalid tolerance")

	resetFlags()
	OutputFormat = "pdf"
	rq.Equal(1, runReconcile([]string{writeStatement(t, "38.40")}, &out, errs))
	rq.Contains(errs.buf.String(), "unknown output format")
}

func TestRunReconcileCSV(t *testing.T) {
	rq := require.New(t)
	resetFlags()
	defer resetFlags()

	OutputFormat = "csv"
	CsvOutputDir = t.TempDir()
	var out bytes.Buffer
	rq.Equal(0, runReconcile([]string{writeStatement(t, "38.40")}, &out, &bufErrPrinter{}))

	entries, err := os.ReadDir(CsvOutputDir)
	rq.Nil(err)
	rq.Len(entries, 2)
}
