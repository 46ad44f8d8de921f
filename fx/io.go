package fx

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/swisstax/reconcile/date"
	"github.com/swisstax/reconcile/log"
)

// StaticRates serves rates from memory, typically loaded from a CSV export
// of the reference price list.
type StaticRates struct {
	rates map[string]map[date.Date]DailyRate
}

func NewStaticRates(rates []DailyRate) *StaticRates {
	s := &StaticRates{rates: make(map[string]map[date.Date]DailyRate)}
	for _, r := range rates {
		s.Add(r)
	}
	return s
}

func (s *StaticRates) Add(r DailyRate) {
	cur := strings.ToUpper(r.Currency)
	byDate, ok := s.rates[cur]
	if !ok {
		byDate = make(map[date.Date]DailyRate)
		s.rates[cur] = byDate
	}
	r.Currency = cur
	byDate[r.Date] = r
}

func (s *StaticRates) GetRate(currency string, on date.Date) (DailyRate, error) {
	cur := strings.ToUpper(currency)
	if cur == HomeCurrency {
		return DailyRate{Currency: cur, Date: on, ForeignToLocalRate: decimal.NewFromInt(1)}, nil
	}
	byDate := s.rates[cur]
	rate, ok := byDate[on]
	if !ok {
		return DailyRate{}, fmt.Errorf("%w for %s on %s%s", ErrRateNotFound, cur, on,
			surroundingRatesHelp(on, byDate))
	}
	return rate, nil
}

func tryGetSurroundingRates(d date.Date, rates map[date.Date]DailyRate) (beforeRate *DailyRate, afterRate *DailyRate) {
	for i := 1; i <= 7; i++ {
		if rate, ok := rates[d.AddDays(-i)]; ok {
			beforeRate = &rate
			break
		}
	}
	for i := 1; i <= 7; i++ {
		if rate, ok := rates[d.AddDays(i)]; ok {
			afterRate = &rate
			break
		}
	}
	return
}

func surroundingRatesHelp(d date.Date, rates map[date.Date]DailyRate) string {
	beforeRate, afterRate := tryGetSurroundingRates(d, rates)
	if beforeRate == nil && afterRate == nil {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(". Nearest published rates:")
	for _, r := range []*DailyRate{beforeRate, afterRate} {
		if r != nil {
			builder.WriteString(fmt.Sprintf(" %s: %s", r.Date, r.ForeignToLocalRate))
		}
	}
	return builder.String()
}

// ReadRatesCsv reads "currency,date,rate" records. A header row whose
// first field is "currency" is skipped.
func ReadRatesCsv(r io.Reader) ([]DailyRate, error) {
	csvR := csv.NewReader(r)
	csvR.FieldsPerRecord = 3
	csvR.TrimLeadingSpace = true
	records, err := csvR.ReadAll()
	if err != nil {
		return nil, err
	}

	rates := make([]DailyRate, 0, len(records))
	for i, record := range records {
		if i == 0 && strings.EqualFold(record[0], "currency") {
			continue
		}
		d, err := date.Parse(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: unable to parse date: %w", i+1, err)
		}
		rate, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: unable to parse rate %q: %w", i+1, record[2], err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("line %d: rate must be positive, got %s", i+1, rate)
		}
		rates = append(rates, DailyRate{Currency: strings.ToUpper(record[0]), Date: d, ForeignToLocalRate: rate})
	}
	return rates, nil
}

func LoadRatesCsvFile(path string) (*StaticRates, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rates, err := ReadRatesCsv(file)
	if err != nil {
		return nil, fmt.Errorf("reading rates from %s: %w", path, err)
	}
	log.Fverbosef(os.Stderr, "Loaded %d exchange rates from %s\n", len(rates), path)
	return NewStaticRates(rates), nil
}
