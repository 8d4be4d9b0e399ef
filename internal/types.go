package internal

type SheetIdentity string

const (
	SheetArea      SheetIdentity = "Area"
	SheetApartment SheetIdentity = "Apartment"
	SheetFlatOwner SheetIdentity = "FlatOwner"
)

// SheetIdentities is the workbook order: positional resolution maps the first
// three sheets onto these identities, and exports follow the same order.
var SheetIdentities = []SheetIdentity{SheetArea, SheetApartment, SheetFlatOwner}

// Sheet is a header row plus data rows. Rows are aligned with Columns and
// padded to the same width when loaded.
type Sheet struct {
	Name     string
	Identity SheetIdentity
	Columns  []string
	Rows     [][]string
}

// ColumnIndex returns the first column with the given name, or -1.
func (s *Sheet) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (s *Sheet) Value(row, col int) string {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return ""
	}
	return s.Rows[row][col]
}

// SetColumn fills every row of the named column with value. Every existing
// column of that name is overwritten in place, duplicates included; otherwise
// the column is appended at the end.
func (s *Sheet) SetColumn(name, value string) {
	var cols []int
	for i, c := range s.Columns {
		if c == name {
			cols = append(cols, i)
		}
	}
	if len(cols) == 0 {
		s.Columns = append(s.Columns, name)
		cols = []int{len(s.Columns) - 1}
	}
	for i := range s.Rows {
		for len(s.Rows[i]) < len(s.Columns) {
			s.Rows[i] = append(s.Rows[i], "")
		}
		for _, col := range cols {
			s.Rows[i][col] = value
		}
	}
}

type SheetSet map[SheetIdentity]*Sheet

type ErrorType string

const (
	ApartmentSheetError ErrorType = "ApartmentSheetError"
	FlatOwnerError      ErrorType = "FlatOwnerError"
)

type ValidationError struct {
	Type    ErrorType
	Message string
	Row     int
}

type Warning struct {
	Kind    string
	Message string
	Row     int
}

const UnknownBlockWarning = "UnknownBlockWarning"

type RunStatus string

const (
	RunExported RunStatus = "exported"
	RunFailed   RunStatus = "failed"
	RunError    RunStatus = "error"
)

type RunRecord struct {
	ID         string
	Identifier string
	Source     string
	Status     RunStatus
	ErrorCount int
	Detail     string
	Outputs    []string
	CreatedAt  string
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
