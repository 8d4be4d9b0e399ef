package util

import (
	"math"
	"strconv"
	"strings"
)

// ParseFlatNo parses an apartment-sheet flat token as an integer. Tokens such
// as "G1" or "101A" are not flat numbers and report false.
func ParseFlatNo(token string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseCellNumber reads the raw value of a numeric cell ("101", "101.0").
// Formatted text such as "1,001" is not a number.
func ParseCellNumber(cell string) (float64, bool) {
	v := strings.TrimSpace(cell)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
