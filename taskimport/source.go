package taskimport

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

// Source is a parsed tabular input: a header plus data rows. RowNums maps
// each data row to its 1-based position in the file so diagnostics can
// name the offending row.
type Source struct {
	Header  []string
	Rows    [][]string
	RowNums []int
}

// ReadCSV reads a delimited text source. The first non-empty line is the
// header; quoted fields may embed delimiters and line breaks.
func ReadCSV(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "cannot open source file %q: %v", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are resolved per logical column

	src := &Source{}
	lineNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ValidationErrorf("malformed CSV in %q: %v", path, err)
		}
		lineNum++
		if isEmptyRow(record) {
			continue
		}
		if src.Header == nil {
			src.Header = record
			continue
		}
		src.Rows = append(src.Rows, record)
		src.RowNums = append(src.RowNums, lineNum)
	}

	if src.Header == nil {
		return nil, errors.ValidationErrorf("source file %q contains no header row", path)
	}
	return src, nil
}

// ReadExcel reads a named sheet from a spreadsheet. Row 1 is the header.
func ReadExcel(path, sheet string) (*Source, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "cannot open source file %q: %v", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.ValidationErrorf("sheet %q not found in %q", sheet, path)
	}

	src := &Source{}
	for i, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		if src.Header == nil {
			src.Header = row
			continue
		}
		src.Rows = append(src.Rows, row)
		src.RowNums = append(src.RowNums, i+1)
	}

	if src.Header == nil {
		return nil, errors.ValidationErrorf("sheet %q in %q contains no header row", sheet, path)
	}
	return src, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
