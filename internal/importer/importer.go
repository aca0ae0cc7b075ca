// Package importer parses customer lists uploaded as CSV, JSON or XLSX.
package importer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// Row is one customer record read from an upload. Line is the 1-based row
// number in the source, counting the header row for tabular formats.
type Row struct {
	Line      int      `json:"-"`
	FirstName string   `json:"first_name" validate:"max=100"`
	LastName  string   `json:"last_name" validate:"max=100"`
	Email     string   `json:"email" validate:"required,email,max=255"`
	Phone     string   `json:"phone" validate:"max=50"`
	Tags      []string `json:"tags"`
	Notes     string   `json:"notes"`
}

// Validate checks the row's fields.
func (r Row) Validate() error {
	return utils.ValidateStruct(r)
}

// RowError reports why a row was not imported.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result summarizes an import.
type Result struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// Skip records a rejected row.
func (r *Result) Skip(line int, msg string) {
	r.Skipped++
	r.Errors = append(r.Errors, RowError{Row: line, Message: msg})
}

// Parse dispatches on the file extension. maxRows of 0 disables the limit.
func Parse(filename string, r io.Reader, maxRows int) ([]Row, error) {
	var (
		rows []Row
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = ParseCSV(r)
	case ".json":
		rows, err = ParseJSON(r)
	case ".xlsx":
		rows, err = ParseXLSX(r)
	default:
		return nil, fmt.Errorf("%q: expected .csv, .json or .xlsx: %w", filename, utils.ErrUnsupportedFile)
	}
	if err != nil {
		return nil, err
	}
	if maxRows > 0 && len(rows) > maxRows {
		return nil, fmt.Errorf("%d rows exceeds the limit of %d: %w", len(rows), maxRows, utils.ErrInvalidInput)
	}
	return rows, nil
}

// ParseCSV reads a CSV whose first record is the header.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed csv: %v: %w", err, utils.ErrInvalidInput)
	}
	return fromTable(records)
}

// ParseXLSX reads the first sheet of a workbook whose first row is the header.
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("malformed xlsx: %v: %w", err, utils.ErrInvalidInput)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", utils.ErrInvalidInput)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %v: %w", sheets[0], err, utils.ErrInvalidInput)
	}
	return fromTable(records)
}

// ParseJSON reads an array of objects keyed by the same column names as
// the tabular formats. Tags may be a list or a ';'-separated string.
func ParseJSON(r io.Reader) ([]Row, error) {
	var objects []map[string]interface{}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("malformed json: expected an array of objects: %w", utils.ErrInvalidInput)
	}

	rows := make([]Row, 0, len(objects))
	for i, obj := range objects {
		row := Row{Line: i + 1}
		for k, v := range obj {
			col, ok := columnFor(k)
			if !ok {
				continue
			}
			if col == colTags {
				row.Tags = jsonTags(v)
				continue
			}
			row.set(col, jsonString(v))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type column int

const (
	colFirstName column = iota
	colLastName
	colEmail
	colPhone
	colTags
	colNotes
)

var headerAliases = map[string]column{
	"firstname":    colFirstName,
	"givenname":    colFirstName,
	"lastname":     colLastName,
	"surname":      colLastName,
	"familyname":   colLastName,
	"email":        colEmail,
	"emailaddress": colEmail,
	"phone":        colPhone,
	"phonenumber":  colPhone,
	"mobile":       colPhone,
	"tags":         colTags,
	"notes":        colNotes,
	"note":         colNotes,
}

// columnFor matches a header ignoring case, spaces, underscores and dashes.
func columnFor(header string) (column, bool) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(header)))
	key = strings.TrimPrefix(key, "\ufeff")
	col, ok := headerAliases[key]
	return col, ok
}

func fromTable(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("file is empty: %w", utils.ErrInvalidInput)
	}

	cols := make(map[int]column, len(records[0]))
	hasEmail := false
	for i, h := range records[0] {
		if col, ok := columnFor(h); ok {
			cols[i] = col
			hasEmail = hasEmail || col == colEmail
		}
	}
	if !hasEmail {
		return nil, fmt.Errorf("header row has no email column: %w", utils.ErrInvalidInput)
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := Row{Line: i + 2}
		for idx, val := range rec {
			if col, ok := cols[idx]; ok {
				row.set(col, val)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *Row) set(col column, raw string) {
	val := strings.TrimSpace(raw)
	switch col {
	case colFirstName:
		r.FirstName = val
	case colLastName:
		r.LastName = val
	case colEmail:
		r.Email = strings.ToLower(val)
	case colPhone:
		r.Phone = val
	case colTags:
		r.Tags = SplitTags(val)
	case colNotes:
		r.Notes = val
	}
}

// SplitTags splits a ';'-separated tag list, dropping blanks and duplicates.
func SplitTags(raw string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ";") {
		if t := strings.TrimSpace(part); t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func jsonString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func jsonTags(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return SplitTags(t)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, jsonString(p))
		}
		return SplitTags(strings.Join(parts, ";"))
	default:
		return nil
	}
}

// WriteCSV renders customers in the import column layout so an export can be
// re-imported.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"first_name", "last_name", "email", "phone", "tags", "notes"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.FirstName, r.LastName, r.Email, r.Phone, strings.Join(r.Tags, ";"), r.Notes}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
