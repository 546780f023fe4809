// Package recipients turns an uploaded spreadsheet (CSV or XLSX) into the
// recipient list of a send request.
package recipients

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ignite/blast-sender/internal/domain"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoSheets          = errors.New("workbook has no sheets")
)

// Format is the tabular encoding of an uploaded file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Column aliases, matched against lower-cased, trimmed header cells. The
// first alias with a non-empty value in a row wins.
var (
	emailAliases = []string{"email", "emails", "e-mail"}
	nameAliases  = []string{"name", "fullname", "firstname", "first name"}
)

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks the parser from the file extension. Unknown extensions
// return "" and are sniffed by Parse; legacy binary workbooks are reported
// as their own (unsupported) format.
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls", ".ods", ".numbers":
		return Format(strings.TrimPrefix(ext, "."))
	default:
		return ""
	}
}

// Parse reads the first sheet of an uploaded file. The first row is the
// header. Rows without an email are dropped; an empty file or a header
// without an email column yields no recipients.
func Parse(filename string, r io.Reader) ([]domain.Recipient, error) {
	br := bufio.NewReader(r)

	format := DetectFormat(filename)
	if format == "" {
		head, err := br.Peek(len(zipMagic))
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading upload: %w", err)
		}
		format = FormatCSV
		if bytes.Equal(head, zipMagic) {
			format = FormatXLSX
		}
	}

	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(br, strings.EqualFold(filepath.Ext(filename), ".tsv"))
	case FormatXLSX:
		rows, err = readXLSX(br)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return FromRows(rows), nil
}

// FromRows maps header + data rows to recipients.
func FromRows(rows [][]string) []domain.Recipient {
	recipients := []domain.Recipient{}
	if len(rows) == 0 {
		return recipients
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	for _, row := range rows[1:] {
		email := firstValue(row, index, emailAliases)
		if email == "" {
			continue
		}
		recipients = append(recipients, domain.Recipient{
			Email: email,
			Name:  firstValue(row, index, nameAliases),
		})
	}
	return recipients
}

func firstValue(row []string, index map[string]int, aliases []string) string {
	for _, alias := range aliases {
		i, ok := index[alias]
		if !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}

func readCSV(r io.Reader, tabs bool) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // allow ragged rows
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	if tabs {
		cr.Comma = '\t'
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
