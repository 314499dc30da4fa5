package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Grid is the rectangular cell grid decoded from an uploaded file. Rows may
// have differing lengths; consumers must treat missing trailing cells as
// empty. Delimiter is zero for spreadsheet input.
type Grid struct {
	Rows      [][]string
	Delimiter rune
}

// DecodeTabular turns raw file bytes into a Grid. The filename is used only
// to choose spreadsheet versus delimited-text decoding.
func DecodeTabular(data []byte, filename string) (*Grid, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return decodeSpreadsheet(data)
	}
	return decodeDelimited(data)
}

// decodeSpreadsheet reads the first sheet of an xlsx workbook. Additional
// sheets are ignored.
func decodeSpreadsheet(data []byte) (*Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &FileFormatError{Reason: fmt.Sprintf("cannot open spreadsheet: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &FileFormatError{Reason: "spreadsheet contains no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &FileFormatError{Reason: fmt.Sprintf("cannot read sheet %q: %v", sheets[0], err)}
	}

	var kept [][]string
	for _, row := range rows {
		if !rowIsEmpty(row) {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return nil, &FileFormatError{Reason: "spreadsheet contains no data"}
	}
	return &Grid{Rows: kept}, nil
}

func decodeDelimited(data []byte) (*Grid, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, &FileFormatError{Reason: "file contains no data"}
	}

	delim := detectDelimiter(lines[0])
	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &FileFormatError{Reason: fmt.Sprintf("cannot decode delimited text: %v", err)}
	}
	return &Grid{Rows: rows, Delimiter: delim}, nil
}

// detectDelimiter inspects only the first non-empty line: a tab wins over
// both separators, a semicolon wins over a comma.
func detectDelimiter(line string) rune {
	switch {
	case strings.ContainsRune(line, '\t'):
		return '\t'
	case strings.ContainsRune(line, ';'):
		return ';'
	default:
		return ','
	}
}

func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
