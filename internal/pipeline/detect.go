package pipeline

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
)

type WorkbookAttachment struct {
	FileName string
	Content  []byte
}

var unsafeIdentifierChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]+`)

// ExtractWorkbookAttachments returns the xlsx parts of a raw email together
// with its subject. Other attachments are ignored.
func ExtractWorkbookAttachments(raw []byte) ([]WorkbookAttachment, string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}

	parts := append([]*enmime.Part{}, env.Attachments...)
	parts = append(parts, env.Inlines...)

	out := []WorkbookAttachment{}
	for _, part := range parts {
		name := strings.TrimSpace(part.FileName)
		if !IsWorkbookFileName(name) || len(part.Content) == 0 {
			continue
		}
		out = append(out, WorkbookAttachment{FileName: name, Content: part.Content})
	}
	return out, env.GetHeader("Subject"), nil
}

func IsWorkbookFileName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xlsx" || ext == ".xlsm"
}

// IdentifierFromFileName derives the run identifier from an attachment name:
// the base name without extension, with path and reserved characters replaced.
func IdentifierFromFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeIdentifierChars.ReplaceAllString(base, "_")
	return strings.TrimSpace(base)
}
