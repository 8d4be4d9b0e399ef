package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"flatsheet/internal"
)

//go:embed schema.yaml
var schemaYAML []byte

type schemaFile struct {
	Sheets []struct {
		Name    string   `yaml:"name"`
		Headers []string `yaml:"headers"`
	} `yaml:"sheets"`
}

// Schema holds the canonical header list of every sheet. It is never mutated
// after construction; Headers hands out copies.
type Schema struct {
	headers map[internal.SheetIdentity][]string
}

// DefaultSchema parses the embedded schema. The file ships with the binary, so
// a failure here is a build defect.
func DefaultSchema() *Schema {
	s, err := ParseSchema(schemaYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded schema: %v", err))
	}
	return s
}

func ParseSchema(blob []byte) (*Schema, error) {
	var file schemaFile
	if err := yaml.Unmarshal(blob, &file); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	s := &Schema{headers: map[internal.SheetIdentity][]string{}}
	for _, sheet := range file.Sheets {
		id := internal.SheetIdentity(strings.TrimSpace(sheet.Name))
		if !isKnownSheet(id) {
			return nil, fmt.Errorf("schema: unknown sheet %q", sheet.Name)
		}
		if len(sheet.Headers) == 0 {
			return nil, fmt.Errorf("schema: sheet %s has no headers", id)
		}
		for _, h := range sheet.Headers {
			if strings.TrimSpace(h) == "" {
				return nil, fmt.Errorf("schema: sheet %s has an empty header", id)
			}
		}
		s.headers[id] = append([]string(nil), sheet.Headers...)
	}
	for _, id := range internal.SheetIdentities {
		if _, ok := s.headers[id]; !ok {
			return nil, fmt.Errorf("schema: sheet %s missing", id)
		}
	}
	return s, nil
}

func (s *Schema) Headers(id internal.SheetIdentity) []string {
	return append([]string(nil), s.headers[id]...)
}

func (s *Schema) Has(id internal.SheetIdentity) bool {
	_, ok := s.headers[id]
	return ok
}

func isKnownSheet(id internal.SheetIdentity) bool {
	for _, known := range internal.SheetIdentities {
		if id == known {
			return true
		}
	}
	return false
}
