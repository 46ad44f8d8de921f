package decimal_value

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// DecimalOpt is a decimal which may be absent. The zero value is Null, so
// optional amounts decoded from a statement stay Null when the field is
// missing, which is distinct from an explicit zero.
type DecimalOpt struct {
	Decimal decimal.Decimal
	Valid   bool
}

var Zero = DecimalOpt{Decimal: decimal.Zero, Valid: true}
var Null = DecimalOpt{}

func New(value decimal.Decimal) DecimalOpt {
	return DecimalOpt{Decimal: value, Valid: true}
}

func NewFromInt(value int64) DecimalOpt {
	return New(decimal.NewFromInt(value))
}

func NewFromFloat(value float64) DecimalOpt {
	return New(decimal.NewFromFloat(value))
}

func NewFromString(value string) (DecimalOpt, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Null, err
	}
	return New(d), nil
}

func RequireFromString(value string) DecimalOpt {
	return New(decimal.RequireFromString(value))
}

func (d DecimalOpt) IsNull() bool {
	return !d.Valid
}

// OrZero returns the value, or zero when Null.
func (d DecimalOpt) OrZero() decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// IsNonZero is true only for a present, non-zero value.
func (d DecimalOpt) IsNonZero() bool {
	return d.Valid && !d.Decimal.IsZero()
}

func (d DecimalOpt) Abs() DecimalOpt {
	if !d.Valid {
		return Null
	}
	return New(d.Decimal.Abs())
}

func (d DecimalOpt) Add(d2 DecimalOpt) DecimalOpt {
	if !d.Valid || !d2.Valid {
		return Null
	}
	return New(d.Decimal.Add(d2.Decimal))
}

func (d DecimalOpt) AddD(d2 decimal.Decimal) DecimalOpt {
	return d.Add(New(d2))
}

func (d DecimalOpt) Neg() DecimalOpt {
	if !d.Valid {
		return Null
	}
	return New(d.Decimal.Neg())
}

func (d DecimalOpt) Mul(d2 DecimalOpt) DecimalOpt {
	if !d.Valid || !d2.Valid {
		return Null
	}
	return New(d.Decimal.Mul(d2.Decimal))
}

func (d DecimalOpt) MulD(d2 decimal.Decimal) DecimalOpt {
	return d.Mul(New(d2))
}

func (d DecimalOpt) Equal(d2 DecimalOpt) bool {
	if d.Valid != d2.Valid {
		return false
	}
	if !d.Valid {
		return true
	}
	return d.Decimal.Equal(d2.Decimal)
}

func (d DecimalOpt) String() string {
	if !d.Valid {
		return "NaN"
	}
	return d.Decimal.String()
}

func (d DecimalOpt) StringFixed(places int32) string {
	if !d.Valid {
		return "NaN"
	}
	return d.Decimal.StringFixed(places)
}

func (d DecimalOpt) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return d.Decimal.MarshalJSON()
}

func (d *DecimalOpt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Null
		return nil
	}
	var dec decimal.Decimal
	if err := dec.UnmarshalJSON(data); err != nil {
		return err
	}
	*d = New(dec)
	return nil
}
