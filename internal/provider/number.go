package provider

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumber parses a provider numeric string. Only '.' is accepted as the
// decimal separator; no observed provider emits ','.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

// Round rounds half away from zero to the given number of places.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
