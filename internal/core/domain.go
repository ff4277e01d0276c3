package core

import (
	"strings"
	"time"
)

const (
	Water MeasureType = "WATER"
	Gas   MeasureType = "GAS"
)

type (
	MeasureType string

	// Measure is a single utility-meter reading reported by a customer.
	Measure struct {
		ID           string
		CustomerCode string
		Type         MeasureType
		Datetime     time.Time
		Value        int64
		Confirmed    bool
		ImageURL     string
	}
)

// ParseMeasureType normalizes a measure type string (case-insensitive).
func ParseMeasureType(s string) (MeasureType, error) {
	switch MeasureType(strings.ToUpper(strings.TrimSpace(s))) {
	case Water:
		return Water, nil
	case Gas:
		return Gas, nil
	default:
		return "", ErrInvalidType
	}
}

func (t MeasureType) Valid() bool {
	return t == Water || t == Gas
}

// MonthKey returns the calendar year and month the measure belongs to.
// Duplicate reports are rejected at this granularity.
func (m Measure) MonthKey() (year int, month int) {
	return m.Datetime.Year(), int(m.Datetime.Month())
}

func (m Measure) Validate() error {
	if strings.TrimSpace(m.CustomerCode) == "" {
		return ErrEmptyCustomerCode
	}
	if !m.Type.Valid() {
		return ErrInvalidType
	}
	if m.Datetime.IsZero() {
		return ErrInvalidDatetime
	}
	if m.Value < 0 {
		return ErrNegativeValue
	}
	return nil
}
