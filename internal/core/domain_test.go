package core

import (
	"testing"
	"time"
)

func TestParseMeasureType(t *testing.T) {
	cases := []struct {
		in   string
		want MeasureType
		ok   bool
	}{
		{"WATER", Water, true},
		{"GAS", Gas, true},
		{"water", Water, true},
		{" gas ", Gas, true},
		{"ELECTRICITY", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMeasureType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseMeasureType(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseMeasureType(%q) expected error", tc.in)
		}
	}
}

func TestMeasureValidate(t *testing.T) {
	good := Measure{
		CustomerCode: "C1",
		Type:         Water,
		Datetime:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Value:        1234,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Measure{
		{CustomerCode: "", Type: Water, Datetime: good.Datetime},
		{CustomerCode: "C1", Type: "FIRE", Datetime: good.Datetime},
		{CustomerCode: "C1", Type: Gas, Datetime: time.Time{}},
		{CustomerCode: "C1", Type: Gas, Datetime: good.Datetime, Value: -1},
	}
	for i, m := range bads {
		if err := m.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMonthKey(t *testing.T) {
	m := Measure{Datetime: time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)}
	year, month := m.MonthKey()
	if year != 2024 || month != 12 {
		t.Fatalf("MonthKey = %d-%d, want 2024-12", year, month)
	}
}
