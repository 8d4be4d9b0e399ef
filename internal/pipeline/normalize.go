package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"flatsheet/internal"
	"flatsheet/internal/catalog"
	"flatsheet/internal/util"
)

// Normalizer rewrites raw sheet headers to the canonical header they most
// resemble.
type Normalizer struct {
	schema *catalog.Schema
}

func NewNormalizer(schema *catalog.Schema) *Normalizer {
	return &Normalizer{schema: schema}
}

// Canonicalize returns the candidate with the strictly greatest Levenshtein
// ratio, so the first listed candidate wins a tie. A header scoring 0 against
// every candidate is returned unchanged.
func (n *Normalizer) Canonicalize(raw string, id internal.SheetIdentity) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &internal.SchemaError{Sheet: id, Reason: "empty column header"}
	}
	if !n.schema.Has(id) {
		return "", &internal.SchemaError{Sheet: id, Reason: "no canonical schema for sheet"}
	}

	header := raw
	best := 0.0
	for _, candidate := range n.schema.Headers(id) {
		score := util.LevenshteinRatio(raw, candidate)
		if score > best {
			best = score
			header = candidate
		}
	}
	return header, nil
}

func (n *Normalizer) CanonicalizeAll(raws []string, id internal.SheetIdentity) ([]string, error) {
	out := make([]string, 0, len(raws))
	for i, raw := range raws {
		header, err := n.Canonicalize(raw, id)
		if err != nil {
			return nil, fmt.Errorf("header %d: %w", i+1, err)
		}
		out = append(out, header)
	}
	return out, nil
}

// NormalizeSheet replaces the sheet's header row in place. Row values are
// left untouched.
func (n *Normalizer) NormalizeSheet(s *internal.Sheet) error {
	headers, err := n.CanonicalizeAll(s.Columns, s.Identity)
	if err != nil {
		return err
	}
	for i, h := range headers {
		if h != s.Columns[i] {
			slog.Debug("header normalized", "sheet", s.Identity, "raw", s.Columns[i], "canonical", h)
		}
	}
	s.Columns = headers
	return nil
}
