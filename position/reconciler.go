package position

import (
	"github.com/shopspring/decimal"

	"github.com/swisstax/reconcile/date"
	"github.com/swisstax/reconcile/log"
	"github.com/swisstax/reconcile/model"
)

const traceTag = "position"

// ReconciledQuantity is a synthesized position. Currency comes from the
// balance entry the computation was anchored on.
type ReconciledQuantity struct {
	ReferenceDate date.Date
	Quantity      decimal.Decimal
	Currency      string
}

// Reconciler checks and queries the stock timeline of a single security or
// cash position. It works on its own sorted copy of the events.
type Reconciler struct {
	identifier string
	sorted     []model.SecurityStock
}

func NewReconciler(stocks []model.SecurityStock, identifier string) *Reconciler {
	if identifier == "" {
		identifier = "unknown position"
	}
	return &Reconciler{
		identifier: identifier,
		sorted:     model.SortedSecurityStocks(stocks),
	}
}

func (r *Reconciler) Identifier() string {
	return r.identifier
}

// SortedStocks returns a copy of the sorted timeline.
func (r *Reconciler) SortedStocks() []model.SecurityStock {
	return append([]model.SecurityStock(nil), r.sorted...)
}

// CheckConsistency walks the timeline and verifies every balance against the
// running total of the previous balance plus mutations. A balance always
// resets the running total, so a single bad balance yields one issue.
// A mutation before the first balance, or an event out of order, ends the
// walk.
func (r *Reconciler) CheckConsistency() *ConsistencyResult {
	res := &ConsistencyResult{Identifier: r.identifier}
	if len(r.sorted) == 0 {
		log.Tracef(traceTag, "[%s] no stock data to check", r.identifier)
		return res
	}

	var current decimal.Decimal
	haveBalance := false
	var currentDate date.Date

	for i := range r.sorted {
		ev := &r.sorted[i]
		if haveBalance && ev.ReferenceDate.Before(currentDate) {
			log.Tracef(traceTag, "[%s] event on %s after processing %s", r.identifier, ev.ReferenceDate, currentDate)
			res.Issues = append(res.Issues, &ConsistencyError{
				Kind: OutOfOrder, Identifier: r.identifier, Date: ev.ReferenceDate, Name: ev.Name,
			})
			break
		}

		if ev.Mutation {
			if !haveBalance {
				res.Issues = append(res.Issues, &ConsistencyError{
					Kind: NoBalanceFound, Identifier: r.identifier, Date: ev.ReferenceDate, Name: ev.Name,
				})
				break
			}
			next := current.Add(ev.Quantity)
			log.Tracef(traceTag, "[%s] %s mutation %q %s: %s -> %s",
				r.identifier, ev.ReferenceDate, ev.Name, ev.Quantity, current, next)
			current = next
		} else {
			if haveBalance {
				res.BalancesChecked++
				if !current.Equal(ev.Quantity) {
					log.Tracef(traceTag, "[%s] %s mismatch: calculated %s, reported %s",
						r.identifier, ev.ReferenceDate, current, ev.Quantity)
					res.Issues = append(res.Issues, &ConsistencyError{
						Kind: BalanceMismatch, Identifier: r.identifier, Date: ev.ReferenceDate,
						Expected: current, Actual: ev.Quantity, Name: ev.Name,
					})
				} else {
					log.Tracef(traceTag, "[%s] %s balance %s matches", r.identifier, ev.ReferenceDate, current)
				}
			} else {
				log.Tracef(traceTag, "[%s] starting from balance on %s: %s %s",
					r.identifier, ev.ReferenceDate, ev.Quantity, ev.BalanceCurrency)
			}
			current = ev.Quantity
			haveBalance = true
		}
		currentDate = ev.ReferenceDate
	}
	return res
}

// SynthesizePositionAtDate computes the quantity held at the end of target,
// i.e. including mutations dated on target. A balance dated exactly on
// target is returned as is. Returns false if the timeline has no balance.
func (r *Reconciler) SynthesizePositionAtDate(target date.Date) (ReconciledQuantity, bool) {
	if idx := r.balanceAt(target); idx >= 0 {
		b := &r.sorted[idx]
		log.Tracef(traceTag, "[%s] balance exists on %s: %s", r.identifier, target, b.Quantity)
		return ReconciledQuantity{ReferenceDate: target, Quantity: b.Quantity, Currency: b.BalanceCurrency}, true
	}
	return r.synthesize(target, func(d date.Date) bool { return !d.After(target) })
}

// startOfDayPosition computes the quantity held at the start of target,
// before any of target's mutations.
func (r *Reconciler) startOfDayPosition(target date.Date) (ReconciledQuantity, bool) {
	if idx := r.balanceAt(target); idx >= 0 {
		b := &r.sorted[idx]
		return ReconciledQuantity{ReferenceDate: target, Quantity: b.Quantity, Currency: b.BalanceCurrency}, true
	}
	return r.synthesize(target, func(d date.Date) bool { return d.Before(target) })
}

// Returns the index of the first balance dated on d, or -1.
func (r *Reconciler) balanceAt(d date.Date) int {
	for i := range r.sorted {
		if !r.sorted[i].Mutation && r.sorted[i].ReferenceDate.Equal(d) {
			return i
		}
	}
	return -1
}

// synthesize anchors on the latest balance whose date is "included", adding
// later included mutations. With no such balance it anchors on the earliest
// balance that is not included and removes the excluded mutations before it.
func (r *Reconciler) synthesize(target date.Date, included func(date.Date) bool) (ReconciledQuantity, bool) {
	anchor := -1
	for i := range r.sorted {
		ev := &r.sorted[i]
		if !included(ev.ReferenceDate) {
			break
		}
		if !ev.Mutation {
			anchor = i
		}
	}

	if anchor >= 0 {
		b := &r.sorted[anchor]
		qty := b.Quantity
		for i := anchor + 1; i < len(r.sorted); i++ {
			ev := &r.sorted[i]
			if !included(ev.ReferenceDate) {
				break
			}
			if ev.Mutation {
				qty = qty.Add(ev.Quantity)
			}
		}
		log.Tracef(traceTag, "[%s] forward from balance on %s (%s): %s on %s",
			r.identifier, b.ReferenceDate, b.Quantity, qty, target)
		return ReconciledQuantity{ReferenceDate: target, Quantity: qty, Currency: b.BalanceCurrency}, true
	}

	for i := range r.sorted {
		if r.sorted[i].Mutation {
			continue
		}
		b := &r.sorted[i]
		qty := b.Quantity
		for j := i - 1; j >= 0; j-- {
			ev := &r.sorted[j]
			if included(ev.ReferenceDate) {
				break
			}
			if ev.Mutation {
				qty = qty.Sub(ev.Quantity)
			}
		}
		log.Tracef(traceTag, "[%s] backward from balance on %s (%s): %s on %s",
			r.identifier, b.ReferenceDate, b.Quantity, qty, target)
		return ReconciledQuantity{ReferenceDate: target, Quantity: qty, Currency: b.BalanceCurrency}, true
	}

	log.Tracef(traceTag, "[%s] cannot synthesize %s: no balance", r.identifier, target)
	return ReconciledQuantity{}, false
}
