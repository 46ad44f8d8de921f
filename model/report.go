package model

import (
	"github.com/shopspring/decimal"

	"github.com/swisstax/reconcile/date"
	decimal_opt "github.com/swisstax/reconcile/decimal_value"
)

type ReconciliationStatus string

const (
	StatusMatch    ReconciliationStatus = "match"
	StatusMismatch ReconciliationStatus = "mismatch"
	// A reference payment that is not expected to show up in broker cash flows.
	StatusExpected ReconciliationStatus = "expected"
)

// PaymentReconciliationRow is the verdict for one security on one payment
// date. Broker amounts are Null when the broker side had no entry of that
// kind.
type PaymentReconciliationRow struct {
	Country     string
	Depot       string
	Security    string
	PaymentDate date.Date

	ReferenceDividend    decimal.Decimal
	ReferenceWithholding decimal.Decimal

	BrokerDividend            decimal_opt.DecimalOpt
	BrokerDividendCurrency    string
	BrokerWithholding         decimal_opt.DecimalOpt
	BrokerWithholdingCurrency string
	BrokerWithholdingLabel    string

	// Broker amounts in the home currency. Null when not convertible.
	BrokerDividendConverted    decimal_opt.DecimalOpt
	BrokerWithholdingConverted decimal_opt.DecimalOpt

	ExchangeRate decimal_opt.DecimalOpt
	Noncash      bool
	Matched      bool
	Status       ReconciliationStatus
	Note         string
}

type PaymentReconciliationReport struct {
	Rows                 []PaymentReconciliationRow
	MatchCount           int
	MismatchCount        int
	ExpectedMissingCount int
}

// Add appends a row and updates the counters.
func (r *PaymentReconciliationReport) Add(row PaymentReconciliationRow) {
	r.Rows = append(r.Rows, row)
	switch row.Status {
	case StatusMatch:
		r.MatchCount++
	case StatusExpected:
		r.ExpectedMissingCount++
	default:
		r.MismatchCount++
	}
}

func (r *PaymentReconciliationReport) Mismatches() []PaymentReconciliationRow {
	out := []PaymentReconciliationRow{}
	for _, row := range r.Rows {
		if row.Status == StatusMismatch {
			out = append(out, row)
		}
	}
	return out
}

func (r *PaymentReconciliationReport) AllMatched() bool {
	return r.MismatchCount == 0
}
