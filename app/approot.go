package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"github.com/swisstax/reconcile/app/outfmt"
	"github.com/swisstax/reconcile/fx"
	"github.com/swisstax/reconcile/log"
	"github.com/swisstax/reconcile/model"
	"github.com/swisstax/reconcile/payment"
	"github.com/swisstax/reconcile/position"
	"github.com/swisstax/reconcile/render"
)

const traceTag = "app"

type DescribedReader struct {
	Desc   string
	Reader io.Reader
}

type Options struct {
	Tolerance decimal.Decimal
	// Adds opening and closing balances for the statement period before
	// checking positions.
	CompletePeriodBalances bool
	RenderFullValues       bool
	MismatchesOnly         bool
	Rates                  fx.RateSource
	Allowlist              payment.Allowlist
}

func NewOptions() Options {
	return Options{
		Tolerance: payment.DefaultTolerance,
		Allowlist: payment.DefaultAllowlist(),
	}
}

// StatementResult holds everything computed for one statement.
type StatementResult struct {
	Desc      string
	Statement *model.TaxStatement
	Positions []render.PositionCheck
}

func (r *StatementResult) Consistent() bool {
	for _, c := range r.Positions {
		if !c.Result.Consistent() {
			return false
		}
	}
	return true
}

func ReadStatement(r io.Reader, desc string) (*model.TaxStatement, error) {
	var st model.TaxStatement
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&st); err != nil {
		return nil, fmt.Errorf("decoding statement %s: %w", desc, err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("statement %s: %w", desc, err)
	}
	return &st, nil
}

func checkPositions(st *model.TaxStatement, options Options) ([]render.PositionCheck, error) {
	var checks []render.PositionCheck
	var errs *multierror.Error
	havePeriod := !st.PeriodFrom.IsZero() && !st.PeriodTo.IsZero()

	st.ForEachSecurity(func(depot *model.Depot, sec *model.Security) {
		id := sec.Identifier()
		if len(sec.Stocks) == 0 {
			log.Tracef(traceTag, "%s has no stock entries", id)
			return
		}
		if options.CompletePeriodBalances && havePeriod {
			completed, err := position.CompletePeriodBalances(sec.Stocks, id, st.PeriodFrom, st.PeriodTo)
			if err != nil {
				errs = multierror.Append(errs, err)
			} else {
				sec.Stocks = completed
			}
		}

		r := position.NewReconciler(sec.Stocks, id)
		check := render.PositionCheck{Depot: depot.DepotNumber, Security: id, Result: r.CheckConsistency()}
		if havePeriod {
			if q, ok := r.SynthesizePositionAtDate(st.PeriodFrom.AddDays(-1)); ok {
				check.Opening = &q
			}
			if q, ok := r.SynthesizePositionAtDate(st.PeriodTo); ok {
				check.Closing = &q
			}
		}
		if err := check.Result.Err(); err != nil {
			errs = multierror.Append(errs, err)
		}
		checks = append(checks, check)
	})
	return checks, errs.ErrorOrNil()
}

// ReconcileStatement runs the position checks and the payment calculation
// on st. Position inconsistencies are returned as an error, after all
// securities were processed.
func ReconcileStatement(st *model.TaxStatement, desc string, options Options) (*StatementResult, error) {
	res := &StatementResult{Desc: desc, Statement: st}

	checks, posErr := checkPositions(st, options)
	res.Positions = checks

	calcOpts := payment.NewOptions()
	calcOpts.Allowlist = options.Allowlist
	calcOpts.Rates = options.Rates
	payment.NewCalculator(options.Tolerance, calcOpts).Calculate(st)

	return res, posErr
}

func writeResult(res *StatementResult, writer outfmt.ReportWriter, options Options) error {
	var errs *multierror.Error
	if len(res.Positions) > 0 {
		if err := writer.PrintRenderTable(outfmt.PositionChecks, res.Desc,
			render.RenderPositionTable(res.Positions)); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	report := res.Statement.PaymentReconciliation
	var table *render.RenderTable
	outType := outfmt.PaymentReconciliation
	if options.MismatchesOnly {
		table = render.RenderMismatchTable(report, options.RenderFullValues)
		outType = outfmt.Mismatches
	} else {
		table = render.RenderPaymentReconciliationTable(report, options.RenderFullValues)
	}
	if err := writer.PrintRenderTable(outType, res.Desc, table); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// RunReconcileApp reconciles every statement and writes the reports.
// Failures of one statement do not stop the others. The returned error
// aggregates all failures, including inconsistent positions and payment
// mismatches.
func RunReconcileApp(
	statementReaders []DescribedReader,
	options Options,
	writer outfmt.ReportWriter,
	errPrinter log.ErrorPrinter) ([]*StatementResult, error) {

	var results []*StatementResult
	var errs *multierror.Error

	for _, sr := range statementReaders {
		st, err := ReadStatement(sr.Reader, sr.Desc)
		if err != nil {
			errPrinter.Ln("Error:", err)
			errs = multierror.Append(errs, err)
			continue
		}

		res, err := ReconcileStatement(st, sr.Desc, options)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", sr.Desc, err))
		}
		results = append(results, res)

		if wErr := writeResult(res, writer, options); wErr != nil {
			errPrinter.Ln("Error:", wErr)
			errs = multierror.Append(errs, wErr)
		}

		report := st.PaymentReconciliation
		log.Tracef(traceTag, "%s: %d payment rows, %d mismatches", sr.Desc, len(report.Rows), report.MismatchCount)
		if report.MismatchCount > 0 {
			errs = multierror.Append(errs,
				fmt.Errorf("%s: %d payment mismatches", sr.Desc, report.MismatchCount))
		}
	}
	return results, errs.ErrorOrNil()
}
