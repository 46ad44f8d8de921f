package render

import (
	"fmt"
	"os"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	decimal_opt "github.com/swisstax/reconcile/decimal_value"
	"github.com/swisstax/reconcile/model"
	"github.com/swisstax/reconcile/position"
	"github.com/swisstax/reconcile/util"
)

type RenderTable struct {
	Header []string
	Rows   [][]string
	Footer []string
	Notes  []string
	Errors []error
}

var displayNanEnvSetting util.Optional[string]

func NaNString() string {
	if !displayNanEnvSetting.Present() {
		displayNanEnvSetting.Set(os.Getenv("DISPLAY_NAN"))
	}
	if displayNanEnvSetting.MustGet() == "" || displayNanEnvSetting.MustGet() == "0" {
		return "-"
	}
	return "NaN"
}

type _PrintHelper struct {
	PrintAllDecimals bool
}

// AmountStr formats val in currency using the currency's conventional
// symbol and fraction digits, unless all decimals are requested.
func (h _PrintHelper) AmountStr(val decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if h.PrintAllDecimals || cur == nil {
		return fmt.Sprintf("%s %s", val.String(), currency)
	}
	minor := val.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

func (h _PrintHelper) OptAmountStr(val decimal_opt.DecimalOpt, currency string) string {
	if val.IsNull() {
		return NaNString()
	}
	return h.AmountStr(val.Decimal, currency)
}

func (h _PrintHelper) HomeStr(val decimal.Decimal) string {
	return h.AmountStr(val, model.HomeCurrency)
}

func (h _PrintHelper) OptHomeStr(val decimal_opt.DecimalOpt) string {
	return h.OptAmountStr(val, model.HomeCurrency)
}

func strOrDash(useStr bool, str string) string {
	if useStr {
		return str
	}
	return "-"
}

func statusStr(row *model.PaymentReconciliationRow) string {
	switch row.Status {
	case model.StatusMatch:
		return "OK"
	case model.StatusExpected:
		return "expected"
	}
	return "MISMATCH"
}

// Broker amount in its own currency, with the converted value below it.
func (h _PrintHelper) brokerStr(
	val decimal_opt.DecimalOpt, currency string, converted decimal_opt.DecimalOpt) string {
	if val.IsNull() {
		return NaNString()
	}
	if currency == model.HomeCurrency || converted.IsNull() {
		return h.OptAmountStr(val, currency)
	}
	return fmt.Sprintf("%s\n(%s)", h.OptAmountStr(val, currency), h.OptHomeStr(converted))
}

func RenderPaymentReconciliationTable(
	report *model.PaymentReconciliationReport, renderFullValues bool) *RenderTable {
	return renderPaymentRows(report, report.Rows, renderFullValues)
}

// RenderMismatchTable only lists the rows which need attention.
func RenderMismatchTable(
	report *model.PaymentReconciliationReport, renderFullValues bool) *RenderTable {
	return renderPaymentRows(report, report.Mismatches(), renderFullValues)
}

func renderPaymentRows(
	report *model.PaymentReconciliationReport, rows []model.PaymentReconciliationRow,
	renderFullValues bool) *RenderTable {

	table := &RenderTable{}
	table.Header = []string{"Depot", "Security", "Country", "Date", "Status",
		"Ref. Dividend", "Ref. Withholding", "Broker Dividend", "Broker Withholding",
		"Rate", "Note",
	}
	ph := _PrintHelper{PrintAllDecimals: renderFullValues}

	sawNoncash := false
	for i := range rows {
		row := &rows[i]
		noncashMark := ""
		if row.Noncash {
			noncashMark = " *"
			sawNoncash = true
		}
		whLabel := ""
		if row.BrokerWithholdingLabel != "" {
			whLabel = fmt.Sprintf("\n[%s]", row.BrokerWithholdingLabel)
		}
		table.Rows = append(table.Rows, []string{
			row.Depot, row.Security, row.Country, row.PaymentDate.String(),
			statusStr(row) + noncashMark,
			ph.HomeStr(row.ReferenceDividend),
			ph.HomeStr(row.ReferenceWithholding),
			ph.brokerStr(row.BrokerDividend, row.BrokerDividendCurrency, row.BrokerDividendConverted),
			ph.brokerStr(row.BrokerWithholding, row.BrokerWithholdingCurrency, row.BrokerWithholdingConverted) + whLabel,
			strOrDash(!row.ExchangeRate.IsNull(), row.ExchangeRate.String()),
			row.Note,
		})
	}

	table.Footer = []string{"", "", "", "Total", fmt.Sprintf("%d rows", len(report.Rows)),
		fmt.Sprintf("%d match", report.MatchCount),
		fmt.Sprintf("%d mismatch", report.MismatchCount),
		fmt.Sprintf("%d expected", report.ExpectedMissingCount),
		"", "", "",
	}
	if sawNoncash {
		table.Notes = append(table.Notes, " * Non-cash distribution (no broker cash flow required)")
	}
	return table
}

// PositionCheck is the outcome of checking one security's stock timeline.
type PositionCheck struct {
	Depot    string
	Security string
	Result   *position.ConsistencyResult
	Opening  *position.ReconciledQuantity
	Closing  *position.ReconciledQuantity
}

func quantityStr(q *position.ReconciledQuantity) string {
	if q == nil {
		return NaNString()
	}
	return q.Quantity.String()
}

func RenderPositionTable(checks []PositionCheck) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Depot", "Security", "Opening", "Closing", "Balances Checked", "Status", "Issues"}

	nFailed := 0
	for _, c := range checks {
		issues := ""
		for i, issue := range c.Result.Issues {
			issues += util.Tern(i > 0, "\n", "") + issue.Error()
		}
		if !c.Result.Consistent() {
			nFailed++
		}
		table.Rows = append(table.Rows, []string{
			c.Depot, c.Security, quantityStr(c.Opening), quantityStr(c.Closing),
			fmt.Sprintf("%d", c.Result.BalancesChecked),
			util.Tern(c.Result.Consistent(), "OK", "INCONSISTENT"),
			issues,
		})
		if err := c.Result.Err(); err != nil {
			table.Errors = append(table.Errors, err)
		}
	}
	table.Footer = []string{"", "Total", "", "", fmt.Sprintf("%d securities", len(checks)),
		fmt.Sprintf("%d inconsistent", nFailed), ""}
	return table
}
