package app

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swisstax/reconcile/app/outfmt"
	"github.com/swisstax/reconcile/model"
	"github.com/swisstax/reconcile/position"
)

type collectingErrPrinter struct {
	lines []string
}

func (p *collectingErrPrinter) Ln(v ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintln(v...))
}

func (p *collectingErrPrinter) F(format string, v ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintf(format, v...))
}

const goodStatement = `{
  "taxPeriod": 2025,
  "periodFrom": "2025-01-01",
  "periodTo": "2025-12-31",
  "listOfSecurities": {"depot": [{
    "depotNumber": "D1",
    "security": [{
      "positionId": 1, "country": "US", "currency": "USD", "securityName": "VT", "isin": "US9220427424",
      "stock": [
        {"referenceDate": "2025-03-01", "mutation": true, "quantity": "10", "balanceCurrency": "USD", "name": "Buy"},
        {"referenceDate": "2026-01-01", "mutation": false, "quantity": "10", "balanceCurrency": "USD"}
      ],
      "payment": [
        {"paymentDate": "2025-06-20", "amountCurrency": "USD", "quantity": "10", "origin": "kursliste",
         "grossRevenueB": "9", "exchangeRate": "0.9"},
        {"paymentDate": "2025-06-20", "amountCurrency": "USD", "quantity": "-10", "amount": "10", "name": "Dividend"}
      ]
    }]
  }]}
}`

const badStatement = `{
  "periodFrom": "2025-01-01",
  "periodTo": "2025-12-31",
  "listOfSecurities": {"depot": [{
    "depotNumber": "D9",
    "security": [{
      "positionId": 1, "country": "CH", "currency": "CHF", "securityName": "NESN",
      "stock": [
        {"referenceDate": "2025-01-01", "mutation": false, "quantity": "5", "balanceCurrency": "CHF"},
        {"referenceDate": "2026-01-01", "mutation": false, "quantity": "6", "balanceCurrency": "CHF"}
      ],
      "payment": [
        {"paymentDate": "2025-04-20", "amountCurrency": "CHF", "quantity": "5", "origin": "kursliste",
         "grossRevenueA": "15", "withHoldingTaxClaim": "5.25", "exchangeRate": "1"}
      ]
    }]
  }]}
}`

func TestRunReconcileAppGood(t *testing.T) {
	rq := require.New(t)

	var out bytes.Buffer
	opts := NewOptions()
	opts.CompletePeriodBalances = true
	errPrinter := &collectingErrPrinter{}

	results, err := RunReconcileApp(
		[]DescribedReader{{Desc: "good.json", Reader: strings.NewReader(goodStatement)}},
		opts, outfmt.NewSTDWriter(&out), errPrinter)
	rq.Nil(err)
	rq.Empty(errPrinter.lines)
	rq.Len(results, 1)

	res := results[0]
	rq.True(res.Consistent())
	rq.Len(res.Positions, 1)
	check := res.Positions[0]
	rq.Equal("VT US9220427424", check.Security)
	rq.NotNil(check.Opening)
	rq.True(check.Opening.Quantity.IsZero())
	rq.NotNil(check.Closing)
	rq.Equal("10", check.Closing.Quantity.String())

	stocks := res.Statement.ListOfSecurities.Depots[0].Securities[0].Stocks
	rq.Len(stocks, 3)
	rq.Equal(position.OpeningBalanceName, stocks[0].Name)

	report := res.Statement.PaymentReconciliation
	rq.Equal(1, report.MatchCount)
	rq.Equal(model.StatusMatch, report.Rows[0].Status)

	rq.Contains(out.String(), "Position checks for good.json")
	rq.Contains(out.String(), "Payment reconciliation for good.json")
}

func TestRunReconcileAppCollectsFailures(t *testing.T) {
	rq := require.New(t)

	var out bytes.Buffer
	opts := NewOptions()
	opts.MismatchesOnly = true
	opts.CompletePeriodBalances = true
	errPrinter := &collectingErrPrinter{}

	results, err := RunReconcileApp(
		[]DescribedReader{
			{Desc: "broken.json", Reader: strings.NewReader(`{"listOfSecurities": [`)},
			{Desc: "bad.json", Reader: strings.NewReader(badStatement)},
			{Desc: "good.json", Reader: strings.NewReader(goodStatement)},
		},
		opts, outfmt.NewSTDWriter(&out), errPrinter)
	rq.NotNil(err)
	rq.Len(results, 2)
	rq.Len(errPrinter.lines, 1)
	rq.Contains(errPrinter.lines[0], "broken.json")

	rq.True(errors.Is(err, position.ErrBalanceMismatch))
	rq.Contains(err.Error(), "bad.json: 1 error occurred")
	rq.Contains(err.Error(), "[NESN] balance mismatch on 2026-01-01")
	rq.Contains(err.Error(), "bad.json: 1 payment mismatches")
	rq.NotContains(err.Error(), "good.json")

	rq.False(results[0].Consistent())
	rq.True(results[1].Consistent())
	rq.Contains(out.String(), "Payment mismatches for bad.json")
	rq.Contains(out.String(), "INCONSISTENT")
}

func TestReadStatementValidation(t *testing.T) {
	rq := require.New(t)

	_, err := ReadStatement(strings.NewReader(`{"unknown": 1}`), "x")
	rq.NotNil(err)

	_, err = ReadStatement(strings.NewReader(`{"listOfSecurities": {"depot": [{"depotNumber": "D", "security": [
	  {"securityName": "S", "payment": [{"paymentDate": "2025-01-01", "amountCurrency": "ABC"}]}]}]}}`), "x")
	rq.NotNil(err)
	rq.Contains(err.Error(), "unknown currency")
}

func TestRunReconcileAppNamesStatementOfPositionError(t *testing.T) {
	rq := require.New(t)

	// Without period completion the timeline starts with a mutation.
	results, err := RunReconcileApp(
		[]DescribedReader{{Desc: "good.json", Reader: strings.NewReader(goodStatement)}},
		NewOptions(), outfmt.NewSTDWriter(&bytes.Buffer{}), &collectingErrPrinter{})
	rq.NotNil(err)
	rq.True(errors.Is(err, position.ErrNoBalanceFound))
	rq.Contains(err.Error(), "good.json: ")
	rq.Len(results, 1)
	rq.False(results[0].Consistent())
}
