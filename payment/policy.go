package payment

import (
	"strings"

	"github.com/swisstax/reconcile/fx"
	"github.com/swisstax/reconcile/model"
)

// NoncashClassifier decides whether a reference payment is a taxable event
// that moves no cash at the broker (accumulating funds, stock dividends).
type NoncashClassifier interface {
	IsNoncash(p *model.SecurityPayment) bool
}

type NoncashClassifierFunc func(p *model.SecurityPayment) bool

func (f NoncashClassifierFunc) IsNoncash(p *model.SecurityPayment) bool {
	return f(p)
}

// PaymentTypeNoncash treats every classification other than standard as
// non-cash. An unset type is standard.
var PaymentTypeNoncash = NoncashClassifierFunc(func(p *model.SecurityPayment) bool {
	return p.PaymentType != "" && p.PaymentType != model.PaymentTypeStandard
})

// Allowlist excuses broker cash on a date where the reference list has no
// taxable amount, given the reference signs and broker labels of that date.
type Allowlist interface {
	Excuses(referenceSigns []string, brokerLabels []string) bool
}

// KeywordAllowlist matches reference signs exactly and broker labels by
// case-insensitive substring.
type KeywordAllowlist struct {
	Signs         []string
	LabelKeywords []string
}

func DefaultAllowlist() *KeywordAllowlist {
	return &KeywordAllowlist{
		// Repayments of capital contribution reserves.
		Signs:         []string{"(H)", "KEP"},
		LabelKeywords: []string{"Return of Capital"},
	}
}

func (a *KeywordAllowlist) Excuses(referenceSigns []string, brokerLabels []string) bool {
	for _, sign := range referenceSigns {
		for _, allowed := range a.Signs {
			if strings.TrimSpace(sign) == allowed {
				return true
			}
		}
	}
	for _, label := range brokerLabels {
		lower := strings.ToLower(label)
		for _, kw := range a.LabelKeywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

type Options struct {
	Noncash   NoncashClassifier
	Allowlist Allowlist
	// Consulted only when the reference entries of a date carry no rate.
	Rates fx.RateSource
}

func NewOptions() Options {
	return Options{
		Noncash:   PaymentTypeNoncash,
		Allowlist: DefaultAllowlist(),
	}
}
