package position

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"github.com/swisstax/reconcile/date"
)

type IssueKind int

const (
	NoBalanceFound IssueKind = iota
	OutOfOrder
	BalanceMismatch
)

func (k IssueKind) String() string {
	switch k {
	case NoBalanceFound:
		return "no balance found"
	case OutOfOrder:
		return "out of order"
	case BalanceMismatch:
		return "balance mismatch"
	}
	return fmt.Sprintf("IssueKind(%d)", int(k))
}

var (
	ErrNoBalanceFound  = errors.New("no balance statement found to start reconciliation")
	ErrOutOfOrder      = errors.New("stock events out of order")
	ErrBalanceMismatch = errors.New("balance mismatch")
)

func (k IssueKind) sentinel() error {
	switch k {
	case NoBalanceFound:
		return ErrNoBalanceFound
	case OutOfOrder:
		return ErrOutOfOrder
	}
	return ErrBalanceMismatch
}

// ConsistencyError describes one issue found while walking a timeline.
// Expected and Actual are only meaningful for BalanceMismatch.
type ConsistencyError struct {
	Kind       IssueKind
	Identifier string
	Date       date.Date
	// The quantity implied by the previous balance and mutations.
	Expected decimal.Decimal
	// The quantity stated by the balance entry.
	Actual decimal.Decimal
	Name   string
}

func (e *ConsistencyError) Error() string {
	switch e.Kind {
	case BalanceMismatch:
		return fmt.Sprintf("[%s] %s on %s: calculated %s, reported %s (discrepancy %s)",
			e.Identifier, e.Kind, e.Date, e.Expected, e.Actual, e.Actual.Sub(e.Expected))
	case OutOfOrder:
		return fmt.Sprintf("[%s] %s: event on %s found after later events", e.Identifier, e.Kind, e.Date)
	}
	return fmt.Sprintf("[%s] %s: mutation on %s precedes any balance", e.Identifier, ErrNoBalanceFound, e.Date)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Kind.sentinel()
}

// ConsistencyResult is the outcome of CheckConsistency.
type ConsistencyResult struct {
	Identifier string
	Issues     []*ConsistencyError
	// Number of balance entries that were verified against a running total.
	BalancesChecked int
}

func (r *ConsistencyResult) Consistent() bool {
	return len(r.Issues) == 0
}

// Err returns nil when consistent, otherwise an error holding every issue.
// errors.Is matches the ErrXxx sentinels of the contained issues.
func (r *ConsistencyResult) Err() error {
	if r.Consistent() {
		return nil
	}
	var merr *multierror.Error
	for _, issue := range r.Issues {
		merr = multierror.Append(merr, issue)
	}
	merr.ErrorFormat = func(errs []error) string {
		s := fmt.Sprintf("position reconciliation failed for %s:", r.Identifier)
		for _, err := range errs {
			s += "\n  " + err.Error()
		}
		return s
	}
	return merr
}
