package model

import "sort"

type stockSorter struct {
	stocks []SecurityStock
}

func (s *stockSorter) Len() int {
	return len(s.stocks)
}

func (s *stockSorter) Swap(i, j int) {
	s.stocks[i], s.stocks[j] = s.stocks[j], s.stocks[i]
}

// Balances come before mutations of the same day.
func (s *stockSorter) Less(i, j int) bool {
	a, b := &s.stocks[i], &s.stocks[j]
	if c := a.ReferenceDate.Compare(b.ReferenceDate); c != 0 {
		return c < 0
	}
	return !a.Mutation && b.Mutation
}

// SortSecurityStocks sorts stocks in place by (date, mutation). The sort is
// stable, so same-day events of the same kind keep their input order.
func SortSecurityStocks(stocks []SecurityStock) {
	sort.Stable(&stockSorter{stocks})
}

// SortedSecurityStocks returns a sorted copy, leaving stocks untouched.
func SortedSecurityStocks(stocks []SecurityStock) []SecurityStock {
	out := make([]SecurityStock, len(stocks))
	copy(out, stocks)
	SortSecurityStocks(out)
	return out
}

func SortSecurityPayments(payments []SecurityPayment) {
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].PaymentDate.Before(payments[j].PaymentDate)
	})
}
