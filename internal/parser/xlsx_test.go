package parser

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestIsDateFormat(t *testing.T) {
	custom := func(s string) *excelize.Style { return &excelize.Style{CustomNumFmt: &s} }
	cases := []struct {
		name string
		st   *excelize.Style
		want bool
	}{
		{"general", &excelize.Style{}, false},
		{"thousands", &excelize.Style{NumFmt: 4}, false},
		{"percent", &excelize.Style{NumFmt: 9}, false},
		{"short date", &excelize.Style{NumFmt: 14}, true},
		{"date time", &excelize.Style{NumFmt: 22}, true},
		{"time", &excelize.Style{NumFmt: 46}, true},
		{"iso", custom("yyyy-mm-dd"), true},
		{"elapsed", custom("[h]:mm"), true},
		{"coloured number", custom("[Red]#,##0.00"), false},
		{"magenta number", custom("[Magenta]0"), false},
		{"locale currency", custom("[$-409]#,##0"), false},
		{"quoted unit", custom(`0.0 "days"`), false},
		{"escaped", custom(`0\d`), false},
		{"sections", custom(`0;"dd"`), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := isDateFormat(tc.st); got != tc.want {
			t.Errorf("%s: isDateFormat = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFormatSerial(t *testing.T) {
	cases := map[float64]string{
		45296:   "2024-01-05",
		45296.5: "2024-01-05 12:00:00",
		0.25:    "06:00:00",
	}
	for serial, want := range cases {
		if got := formatSerial(serial, false); got != want {
			t.Errorf("formatSerial(%v) = %q, want %q", serial, got, want)
		}
	}
}
