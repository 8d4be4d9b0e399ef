package util

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldHeader upper-cases a header for comparison so casing drift between
// workbooks does not affect scoring.
func FoldHeader(input string) string {
	return cases.Upper(language.Und).String(input)
}

// LevenshteinRatio scores s against t in [0, 1] after folding both to upper
// case. Substitutions cost 2, so the ratio is
// (len(s)+len(t) - distance) / (len(s)+len(t)). Two empty strings score 1.
func LevenshteinRatio(s, t string) float64 {
	a := []rune(FoldHeader(s))
	b := []rune(FoldHeader(t))
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return float64(total-editDistance(a, b)) / float64(total)
}

func editDistance(a, b []rune) int {
	rows, cols := len(a)+1, len(b)+1
	matrix := make([][]int, rows)
	for i := range matrix {
		matrix[i] = make([]int, cols)
		matrix[i][0] = i
	}
	for j := 0; j < cols; j++ {
		matrix[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 2
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[rows-1][cols-1]
}

// SplitList splits a comma separated cell. Tokens are returned untrimmed so
// messages can quote them as written.
func SplitList(cell string) []string {
	return strings.Split(cell, ",")
}
