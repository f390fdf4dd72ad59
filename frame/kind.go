package frame

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindUnknown Kind = iota
	KindNumeric
	KindCategorical
	KindDatetime
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindDatetime:
		return "datetime"
	default:
		return "unknown"
	}
}

func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric":
		return KindNumeric
	case "categorical":
		return KindCategorical
	case "datetime":
		return KindDatetime
	default:
		return KindUnknown
	}
}

var nullTokens = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
	"n/a":  true,
	"na":   true,
	"nan":  true,
}

// IsNull reports whether a raw value stands for a missing value.
func IsNull(s string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(s))]
}

// ParseNumber parses a finite float. NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"02.01.2006",
	"01/02/2006",
	"01/02/2006 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTime parses s with the first matching supported layout.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// lower-cased text ("2024-03-01t08:00:00z")
	if upper := strings.ToUpper(s); upper != s {
		return ParseTime(upper)
	}
	return time.Time{}, false
}

// InferKind classifies raw values. Null values are ignored; a column without
// any value is Unknown. Numbers win over dates so "2024" stays numeric.
func InferKind(values []string) Kind {
	seen, numeric, dates := 0, 0, 0
	for _, v := range values {
		if IsNull(v) {
			continue
		}
		seen++
		if _, ok := ParseNumber(v); ok {
			numeric++
			continue
		}
		if _, ok := ParseTime(v); ok {
			dates++
		}
	}
	switch {
	case seen == 0:
		return KindUnknown
	case numeric == seen:
		return KindNumeric
	case dates == seen:
		return KindDatetime
	default:
		return KindCategorical
	}
}

// InferReadKind is the view of a CSV reader: numeric when every value is a
// number, categorical otherwise. Dates are left to the cleaning coercion.
func InferReadKind(values []string) Kind {
	k := InferKind(values)
	if k == KindDatetime {
		return KindCategorical
	}
	return k
}

// ParseFraction returns the share of non-null values parsing as kind, and
// the number of non-null values.
func ParseFraction(values []string, kind Kind) (float64, int) {
	seen, ok := 0, 0
	for _, v := range values {
		if IsNull(v) {
			continue
		}
		seen++
		switch kind {
		case KindNumeric:
			if _, good := ParseNumber(v); good {
				ok++
			}
		case KindDatetime:
			if _, good := ParseTime(v); good {
				ok++
			}
		default:
			ok++
		}
	}
	if seen == 0 {
		return 0, 0
	}
	return float64(ok) / float64(seen), seen
}
