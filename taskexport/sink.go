package taskexport

import (
	"encoding/csv"
	"encoding/json"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

// WriteCSVFile writes a header plus rows as a delimited text file.
func WriteCSVFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrConfiguration, "cannot create output file %q: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "failed to write %q", path)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write %q", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "failed to write %q", path)
	}
	return f.Close()
}

// WriteExcelFile writes a header plus rows as a single-sheet spreadsheet.
func WriteExcelFile(path, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrapf(err, "failed to name sheet %q", sheet)
	}
	writeRow := func(rowNum int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &cells)
	}
	if err := writeRow(1, header); err != nil {
		return errors.Wrapf(err, "failed to write %q", path)
	}
	for i, row := range rows {
		if err := writeRow(i+2, row); err != nil {
			return errors.Wrapf(err, "failed to write %q", path)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(errors.ErrConfiguration, "cannot save output file %q: %v", path, err)
	}
	return nil
}

// WriteJSONFile writes a header plus rows as an array of row objects keyed
// by column name. Empty cells are omitted.
func WriteJSONFile(path string, header []string, rows [][]string) error {
	objects := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(row))
		for i, cell := range row {
			if cell != "" && i < len(header) {
				obj[header[i]] = cell
			}
		}
		objects = append(objects, obj)
	}
	body, err := json.MarshalIndent(objects, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode export")
	}
	if err := os.WriteFile(path, append(body, '\n'), 0o644); err != nil {
		return errors.Wrapf(errors.ErrConfiguration, "cannot write output file %q: %v", path, err)
	}
	return nil
}

// WriteCSV writes the table as a delimited text file.
func (t *Table) WriteCSV(path string) error {
	return WriteCSVFile(path, t.Header, t.Rows)
}

// WriteExcel writes the table as a single-sheet spreadsheet.
func (t *Table) WriteExcel(path, sheet string) error {
	return WriteExcelFile(path, sheet, t.Header, t.Rows)
}

// WriteJSON writes the table as an array of row objects keyed by the
// canonical column names.
func (t *Table) WriteJSON(path string) error {
	return WriteJSONFile(path, t.Header, t.Rows)
}
