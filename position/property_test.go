package position

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/swisstax/reconcile/date"
	"github.com/swisstax/reconcile/model"
)

var epoch = date.MustParse("2023-01-01")

type genTimeline struct {
	stocks  []model.SecurityStock
	b0, b1  date.Date
	between int
}

// Generates an opening balance on the epoch, mutations strictly inside
// (epoch, b1) and a closing balance on b1 that agrees with them.
func consistentTimeline(t *rapid.T) genTimeline {
	span := rapid.IntRange(2, 60).Draw(t, "span")
	opening := rapid.Int64Range(0, 1000).Draw(t, "opening")
	nMut := rapid.IntRange(0, 12).Draw(t, "nMut")

	b1 := epoch.AddDays(span)
	stocks := []model.SecurityStock{{
		ReferenceDate: epoch, Quantity: decimal.NewFromInt(opening), BalanceCurrency: "USD",
	}}
	total := decimal.NewFromInt(opening)
	for i := 0; i < nMut; i++ {
		off := rapid.IntRange(1, span-1).Draw(t, "off")
		q := decimal.New(rapid.Int64Range(-500, 500).Draw(t, "qty"), -2)
		total = total.Add(q)
		stocks = append(stocks, model.SecurityStock{
			ReferenceDate: epoch.AddDays(off), Mutation: true, Quantity: q, BalanceCurrency: "USD",
		})
	}
	stocks = append(stocks, model.SecurityStock{ReferenceDate: b1, Quantity: total, BalanceCurrency: "USD"})

	perm := rapid.Permutation(stocks).Draw(t, "perm")
	return genTimeline{stocks: perm, b0: epoch, b1: b1, between: span}
}

func TestPropConsistentTimelines(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := consistentTimeline(t)
		r := NewReconciler(g.stocks, "PROP")
		res := r.CheckConsistency()
		if !res.Consistent() {
			t.Fatalf("expected consistent: %v", res.Err())
		}
		if again := r.CheckConsistency(); again.Consistent() != res.Consistent() {
			t.Fatalf("CheckConsistency is not idempotent")
		}
	})
}

func TestPropPerturbedClosingIsMismatch(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := consistentTimeline(t)
		delta := decimal.New(rapid.Int64Range(1, 100).Draw(t, "delta"), -2)
		for i := range g.stocks {
			if !g.stocks[i].Mutation && g.stocks[i].ReferenceDate.Equal(g.b1) {
				g.stocks[i].Quantity = g.stocks[i].Quantity.Add(delta)
			}
		}
		res := NewReconciler(g.stocks, "PROP").CheckConsistency()
		if len(res.Issues) != 1 || res.Issues[0].Kind != BalanceMismatch {
			t.Fatalf("expected one mismatch, got %v", res.Issues)
		}
		if !res.Issues[0].Actual.Sub(res.Issues[0].Expected).Equal(delta) {
			t.Fatalf("discrepancy %s != %s", res.Issues[0].Actual.Sub(res.Issues[0].Expected), delta)
		}
	})
}

func TestPropSynthesisAtBalanceDate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := consistentTimeline(t)
		r := NewReconciler(g.stocks, "PROP")
		for _, s := range g.stocks {
			if s.Mutation {
				continue
			}
			pos, ok := r.SynthesizePositionAtDate(s.ReferenceDate)
			if !ok || !pos.Quantity.Equal(s.Quantity) {
				t.Fatalf("synthesis on balance date %s: %v %v, want %s", s.ReferenceDate, pos, ok, s.Quantity)
			}
		}
	})
}

func TestPropForwardBackwardAgree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := consistentTimeline(t)
		target := g.b0.AddDays(rapid.IntRange(1, g.between-1).Draw(t, "target"))

		full := NewReconciler(g.stocks, "FULL")
		withoutOpening := []model.SecurityStock{}
		for _, s := range g.stocks {
			if !s.Mutation && s.ReferenceDate.Equal(g.b0) {
				continue
			}
			withoutOpening = append(withoutOpening, s)
		}
		back := NewReconciler(withoutOpening, "BACK")

		fwdPos, ok1 := full.SynthesizePositionAtDate(target)
		backPos, ok2 := back.SynthesizePositionAtDate(target)
		if !ok1 || !ok2 {
			t.Fatalf("synthesis failed: %v %v", ok1, ok2)
		}
		if !fwdPos.Quantity.Equal(backPos.Quantity) {
			t.Fatalf("forward %s != backward %s on %s", fwdPos.Quantity, backPos.Quantity, target)
		}
		again, _ := full.SynthesizePositionAtDate(target)
		if !again.Quantity.Equal(fwdPos.Quantity) {
			t.Fatalf("synthesis is not idempotent")
		}
	})
}
