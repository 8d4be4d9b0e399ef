package internal

import (
	"errors"
	"fmt"
)

var (
	ErrMissingIdentifier = errors.New("missing run identifier")
	ErrSourceNotFound    = errors.New("source workbook not found")
)

// SchemaError reports a sheet that cannot be read against its canonical
// schema: an empty header, a missing sheet, or a column validation needs.
type SchemaError struct {
	Sheet  SheetIdentity
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema error in sheet %s, column %q: %s", e.Sheet, e.Column, e.Reason)
	}
	return fmt.Sprintf("schema error in sheet %s: %s", e.Sheet, e.Reason)
}

// RequireColumns resolves the index of each named column or fails on the
// first one the sheet lacks.
func RequireColumns(s *Sheet, names ...string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, name := range names {
		idx := s.ColumnIndex(name)
		if idx < 0 {
			return nil, &SchemaError{Sheet: s.Identity, Column: name, Reason: "required column not found"}
		}
		out = append(out, idx)
	}
	return out, nil
}
