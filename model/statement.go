package model

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/swisstax/reconcile/date"
	decimal_opt "github.com/swisstax/reconcile/decimal_value"
	"github.com/swisstax/reconcile/fx"
)

// All reference amounts on a statement are expressed in this currency.
const HomeCurrency = fx.HomeCurrency

type QuotationType string

const (
	PIECE   QuotationType = "PIECE"
	PERCENT QuotationType = "PERCENT"
)

// PaymentType is the federal tax administration's payment classification.
type PaymentType string

const (
	PaymentTypeStandard         PaymentType = "0"
	PaymentTypeGratis           PaymentType = "1"
	PaymentTypeOtherBenefit     PaymentType = "2"
	PaymentTypeAgio             PaymentType = "3"
	PaymentTypeFundAccumulation PaymentType = "5"
)

func (t PaymentType) String() string {
	switch t {
	case "", PaymentTypeStandard:
		return "standard"
	case PaymentTypeGratis:
		return "gratis"
	case PaymentTypeOtherBenefit:
		return "other benefit"
	case PaymentTypeAgio:
		return "agio"
	case PaymentTypeFundAccumulation:
		return "fund accumulation"
	}
	return fmt.Sprintf("PaymentType(%s)", string(t))
}

// Origin says which source a payment record was derived from.
type Origin string

const (
	OriginBroker    Origin = "broker"
	OriginReference Origin = "kursliste"
)

// SecurityStock is one entry of a stock event timeline. A balance
// (Mutation == false) states the quantity held at the start of ReferenceDate.
// A mutation states a signed change on ReferenceDate.
type SecurityStock struct {
	ReferenceDate   date.Date       `json:"referenceDate"`
	Mutation        bool            `json:"mutation"`
	QuotationType   QuotationType   `json:"quotationType,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	BalanceCurrency string          `json:"balanceCurrency"`
	Name            string          `json:"name,omitempty"`
}

func (s *SecurityStock) Kind() string {
	if s.Mutation {
		return "mutation"
	}
	return "balance"
}

func (s *SecurityStock) String() string {
	return fmt.Sprintf("%s %s %s %s", s.ReferenceDate, s.Kind(), s.Quantity, s.BalanceCurrency)
}

type SecurityPayment struct {
	PaymentDate    date.Date       `json:"paymentDate"`
	QuotationType  QuotationType   `json:"quotationType,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	AmountCurrency string          `json:"amountCurrency"`
	Name           string          `json:"name,omitempty"`

	Amount                          decimal_opt.DecimalOpt `json:"amount"`
	AmountPerUnit                   decimal_opt.DecimalOpt `json:"amountPerUnit"`
	ExchangeRate                    decimal_opt.DecimalOpt `json:"exchangeRate"`
	GrossRevenueA                   decimal_opt.DecimalOpt `json:"grossRevenueA"`
	GrossRevenueB                   decimal_opt.DecimalOpt `json:"grossRevenueB"`
	WithHoldingTaxClaim             decimal_opt.DecimalOpt `json:"withHoldingTaxClaim"`
	NonRecoverableTaxAmount         decimal_opt.DecimalOpt `json:"nonRecoverableTaxAmount"`
	NonRecoverableTaxAmountOriginal decimal_opt.DecimalOpt `json:"nonRecoverableTaxAmountOriginal"`

	PaymentType         PaymentType `json:"paymentType,omitempty"`
	Origin              Origin      `json:"origin,omitempty"`
	Sign                string      `json:"sign,omitempty"`
	BrokerLabelOriginal string      `json:"brokerLabelOriginal,omitempty"`
}

// FromReference is true for records taken from the reference price list.
// Records with no origin are broker records.
func (p *SecurityPayment) FromReference() bool {
	return p.Origin == OriginReference
}

// Label is the best human readable description of the payment.
func (p *SecurityPayment) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.BrokerLabelOriginal
}

type Security struct {
	PositionID    int           `json:"positionId"`
	Country       string        `json:"country"`
	Currency      string        `json:"currency"`
	QuotationType QuotationType `json:"quotationType,omitempty"`
	SecurityName  string        `json:"securityName"`
	ISIN          string        `json:"isin,omitempty"`
	ValorNumber   string        `json:"valorNumber,omitempty"`
	Symbol        string        `json:"symbol,omitempty"`

	Stocks   []SecurityStock   `json:"stock"`
	Payments []SecurityPayment `json:"payment"`
	// When non-empty, replaces the broker records found in Payments.
	BrokerPayments []SecurityPayment `json:"brokerPayments,omitempty"`
}

// Identifier is used in diagnostics. It prefers the most specific id known.
func (s *Security) Identifier() string {
	parts := []string{}
	if s.SecurityName != "" {
		parts = append(parts, s.SecurityName)
	}
	switch {
	case s.ISIN != "":
		parts = append(parts, s.ISIN)
	case s.ValorNumber != "":
		parts = append(parts, s.ValorNumber)
	case s.Symbol != "":
		parts = append(parts, s.Symbol)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("position %d", s.PositionID)
	}
	return strings.Join(parts, " ")
}

type Depot struct {
	DepotNumber string     `json:"depotNumber"`
	Securities  []Security `json:"security"`
}

type ListOfSecurities struct {
	Depots []Depot `json:"depot"`
}

type TaxStatement struct {
	ID               string            `json:"id,omitempty"`
	TaxPeriod        int               `json:"taxPeriod,omitempty"`
	PeriodFrom       date.Date         `json:"periodFrom"`
	PeriodTo         date.Date         `json:"periodTo"`
	ListOfSecurities *ListOfSecurities `json:"listOfSecurities,omitempty"`

	PaymentReconciliation *PaymentReconciliationReport `json:"-"`
}

// ForEachSecurity visits securities in depot order, then security order.
func (s *TaxStatement) ForEachSecurity(fn func(depot *Depot, sec *Security)) {
	if s.ListOfSecurities == nil {
		return
	}
	for i := range s.ListOfSecurities.Depots {
		depot := &s.ListOfSecurities.Depots[i]
		for j := range depot.Securities {
			fn(depot, &depot.Securities[j])
		}
	}
}

// ValidateCurrency checks that code is a known ISO 4217 currency.
func ValidateCurrency(code string) error {
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency %q", code)
	}
	return nil
}

// Validate checks the statement fields that reconciliation relies on.
func (s *TaxStatement) Validate() error {
	var err error
	s.ForEachSecurity(func(depot *Depot, sec *Security) {
		if err != nil {
			return
		}
		for _, st := range sec.Stocks {
			if st.ReferenceDate.IsZero() {
				err = fmt.Errorf("security %s in depot %s: stock entry %q has no reference date",
					sec.Identifier(), depot.DepotNumber, st.Name)
				return
			}
			if st.BalanceCurrency != "" {
				if cErr := ValidateCurrency(st.BalanceCurrency); cErr != nil {
					err = fmt.Errorf("security %s in depot %s: %w", sec.Identifier(), depot.DepotNumber, cErr)
					return
				}
			}
		}
		pays := append(append([]SecurityPayment{}, sec.Payments...), sec.BrokerPayments...)
		for _, p := range pays {
			if p.PaymentDate.IsZero() {
				err = fmt.Errorf("security %s in depot %s: payment %q has no payment date",
					sec.Identifier(), depot.DepotNumber, p.Label())
				return
			}
			if cErr := ValidateCurrency(p.AmountCurrency); cErr != nil {
				err = fmt.Errorf("security %s in depot %s: payment on %s: %w",
					sec.Identifier(), depot.DepotNumber, p.PaymentDate, cErr)
				return
			}
		}
	})
	return err
}
