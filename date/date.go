package date

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/swisstax/reconcile/util"
)

const DefaultFormat = "2006-01-02"

// Represents a pure calendar date, with no effects from time zones, or time.
// Stored in UTC time at 00:00:00, so two equal dates compare equal with ==
// and can be used as map keys.
type Date struct {
	time time.Time
}

func (d Date) UTCTime() time.Time {
	return d.time
}

func New(year uint32, month time.Month, day uint32) Date {
	return Date{time.Date(int(year), month, int(day), 0, 0, 0, 0, time.UTC)}
}

func NewFromTime(t time.Time) Date {
	return New(uint32(t.Year()), t.Month(), uint32(t.Day()))
}

func (d Date) isPureUtcDate() bool {
	other := NewFromTime(d.time)
	return d == other
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Equal(other Date) bool {
	return d.time.Equal(other.time)
}

func Parse(dateStr string) (Date, error) {
	tm, err := time.Parse(DefaultFormat, dateStr)
	if err != nil {
		return Date{}, err
	}
	d := Date{tm}
	if !d.isPureUtcDate() {
		return Date{}, fmt.Errorf("%q did not produce a pure date", dateStr)
	}
	return d, nil
}

// MustParse is for tests and literals only.
func MustParse(dateStr string) Date {
	d, err := Parse(dateStr)
	util.Assertf(err == nil, "date.MustParse(%q): %v", dateStr, err)
	return d
}

// After reports whether the date d is after u.
func (d Date) After(u Date) bool {
	return d.time.After(u.time)
}

// Before reports whether the date d is before u.
func (d Date) Before(u Date) bool {
	return d.time.Before(u.time)
}

// Compare returns -1, 0 or +1, like time.Time.Compare.
func (d Date) Compare(u Date) int {
	switch {
	case d.Before(u):
		return -1
	case d.After(u):
		return 1
	}
	return 0
}

func (d Date) String() string {
	year, month, day := d.time.Date()
	return fmt.Sprintf("%d-%02d-%02d", year, month, day)
}

func (d Date) AddDays(nDays int) Date {
	newDate := Date{d.time.AddDate(0, 0, nDays)}
	util.Assert(newDate.isPureUtcDate(), "time.Time.Add of days resulted in time-of-day change")
	return newDate
}

func (d Date) Year() int {
	return d.time.Year()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a %s string: %w", DefaultFormat, err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
