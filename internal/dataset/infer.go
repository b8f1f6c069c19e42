package dataset

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrNoColumns is returned when the input has no header to build columns from.
var ErrNoColumns = errors.New("no columns to parse from file")

// missingTokens are the default missing-value markers of common dataframe readers.
var missingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissing reports whether a trimmed cell counts as a missing value.
func IsMissing(v string) bool {
	_, ok := missingTokens[v]
	return ok
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
		"1/2/2006", "02-Jan-2006", "Jan 2, 2006",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric parses a finite number. With a configured decimal separator the
// thousands separator is stripped first, so "1.234,5" reads as 1234.5.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if dec := opt.DecimalSeparator; dec != 0 {
		raw = strings.ReplaceAll(raw, "\u00A0", "")
		if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
			raw = strings.ReplaceAll(raw, string(thou), "")
		}
		if dec != '.' {
			raw = strings.ReplaceAll(raw, string(dec), ".")
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
