package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

type Confidence string

const (
	ConfidenceExact     Confidence = "exact"
	ConfidenceFuzzy     Confidence = "fuzzy"
	ConfidenceAmbiguous Confidence = "ambiguous"
)

// ColumnMapping names the spreadsheet headers holding each field.
// Empty strings mean the field was not found.
type ColumnMapping struct {
	NameColumn      string     `json:"nameColumn"`
	FirstNameColumn string     `json:"firstNameColumn"`
	LastNameColumn  string     `json:"lastNameColumn"`
	EmailColumn     string     `json:"emailColumn"`
	Confidence      Confidence `json:"confidence"`
}

func (m ColumnMapping) hasName() bool {
	return m.NameColumn != "" || (m.FirstNameColumn != "" && m.LastNameColumn != "")
}

func (m ColumnMapping) complete() bool {
	return m.hasName() && m.EmailColumn != ""
}

// Usable reports whether rows can be mapped without a human picking columns.
func (m ColumnMapping) Usable() bool {
	return m.Confidence != ConfidenceAmbiguous && m.complete()
}

var (
	fullNameHeaders  = []string{"name", "full name", "patient name", "client name", "customer name"}
	firstNameHeaders = []string{"first name", "firstname", "first", "fname"}
	lastNameHeaders  = []string{"last name", "lastname", "last", "lname"}
	emailHeaders     = []string{"email", "email address", "e-mail", "e-mail address", "patient email", "client email"}
)

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func oneOf(v string, list []string) bool {
	for _, item := range list {
		if v == item {
			return true
		}
	}
	return false
}

// DetectColumns maps arbitrary headers onto name and email fields. Exact
// synonyms are tried first, then substring matches; per field the first
// matching header wins.
func DetectColumns(headers []string) ColumnMapping {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	var m ColumnMapping
	for i, n := range normalized {
		if m.NameColumn == "" && oneOf(n, fullNameHeaders) {
			m.NameColumn = headers[i]
		}
		if m.FirstNameColumn == "" && oneOf(n, firstNameHeaders) {
			m.FirstNameColumn = headers[i]
		}
		if m.LastNameColumn == "" && oneOf(n, lastNameHeaders) {
			m.LastNameColumn = headers[i]
		}
		if m.EmailColumn == "" && oneOf(n, emailHeaders) {
			m.EmailColumn = headers[i]
		}
	}
	if m.complete() {
		m.Confidence = ConfidenceExact
		return m
	}

	for i, n := range normalized {
		hasName := strings.Contains(n, "name")
		if m.NameColumn == "" && m.FirstNameColumn == "" && hasName &&
			!strings.Contains(n, "first") && !strings.Contains(n, "last") {
			m.NameColumn = headers[i]
		}
		if m.FirstNameColumn == "" && hasName && strings.Contains(n, "first") {
			m.FirstNameColumn = headers[i]
		}
		if m.LastNameColumn == "" && hasName && strings.Contains(n, "last") {
			m.LastNameColumn = headers[i]
		}
		if m.EmailColumn == "" && (strings.Contains(n, "email") || strings.Contains(n, "e-mail")) {
			m.EmailColumn = headers[i]
		}
	}
	if m.complete() {
		m.Confidence = ConfidenceFuzzy
		return m
	}

	m.Confidence = ConfidenceAmbiguous
	return m
}

// Recipient is one usable spreadsheet row.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MapRow extracts a recipient. ok is false when the name or email ends up empty.
func MapRow(row map[string]string, m ColumnMapping) (Recipient, bool) {
	var name string
	if m.NameColumn != "" && strings.TrimSpace(row[m.NameColumn]) != "" {
		name = strings.TrimSpace(row[m.NameColumn])
	} else if m.FirstNameColumn != "" || m.LastNameColumn != "" {
		var first, last string
		if m.FirstNameColumn != "" {
			first = strings.TrimSpace(row[m.FirstNameColumn])
		}
		if m.LastNameColumn != "" {
			last = strings.TrimSpace(row[m.LastNameColumn])
		}
		name = strings.TrimSpace(first + " " + last)
	}

	var email string
	if m.EmailColumn != "" {
		email = strings.ToLower(strings.TrimSpace(row[m.EmailColumn]))
	}

	if name == "" || email == "" {
		return Recipient{}, false
	}
	return Recipient{Name: name, Email: email}, true
}

// MapRows maps every row and counts the ones dropped.
func MapRows(rows []map[string]string, m ColumnMapping) (out []Recipient, dropped int) {
	for _, row := range rows {
		r, ok := MapRow(row, m)
		if !ok {
			dropped++
			continue
		}
		out = append(out, r)
	}
	return out, dropped
}

var ErrEmptyCSV = errors.New("csv has no header row")

// ParseCSV reads a header row followed by data rows keyed by header.
// Blank lines are skipped and short rows are padded with empty values.
func ParseCSV(r io.Reader) (headers []string, rows []map[string]string, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err = reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}
