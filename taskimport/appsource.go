package taskimport

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

// App sheet column headers. The app sheet is small and always addressed
// by name; position mode only applies to the task sheet.
const (
	appColCounter        = "App counter"
	appColName           = "App name"
	appColQvfDirectory   = "QVF directory"
	appColQvfName        = "QVF name"
	appColExcludeData    = "Exclude data connections"
	appColTags           = "App tags"
	appColCustomProps    = "App custom properties"
	appColOwnerDirectory = "Owner user directory"
	appColOwnerID        = "Owner user id"
	appColPublishStream  = "Publish to stream"
)

var appMandatoryColumns = []string{appColCounter, appColName, appColQvfDirectory, appColQvfName}

// ParseApps parses the companion app-upload sheet. One row per app; App
// counter values must be unique and are referenced from task rows as
// "newapp-<n>".
func ParseApps(src *Source, log *zap.SugaredLogger) ([]AppRecord, error) {
	pos := make(map[string]int, len(src.Header))
	for i, h := range src.Header {
		pos[strings.TrimSpace(h)] = i
	}
	for _, name := range appMandatoryColumns {
		if _, ok := pos[name]; !ok {
			return nil, errors.ValidationErrorf("mandatory column %q missing from app sheet header", name)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := pos[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var diags diagnostics
	seen := make(map[int]int) // counter -> row
	var records []AppRecord

	for i, row := range src.Rows {
		rowNum := src.RowNums[i]

		counterCell := cell(row, appColCounter)
		counter, err := strconv.Atoi(counterCell)
		if err != nil || counter < 1 {
			diags.errs = append(diags.errs,
				errors.ValidationErrorf("row %d, column %q: must be a positive integer, got %q", rowNum, appColCounter, counterCell))
			continue
		}
		if firstRow, dup := seen[counter]; dup {
			diags.errs = append(diags.errs,
				errors.ValidationErrorf("row %d, column %q: app counter %d already used on row %d", rowNum, appColCounter, counter, firstRow))
			continue
		}
		seen[counter] = rowNum

		rec := AppRecord{
			Counter:            counter,
			Name:               cell(row, appColName),
			QvfDirectory:       cell(row, appColQvfDirectory),
			QvfName:            cell(row, appColQvfName),
			OwnerUserDirectory: cell(row, appColOwnerDirectory),
			OwnerUserID:        cell(row, appColOwnerID),
			PublishToStream:    cell(row, appColPublishStream),
			Row:                rowNum,
		}
		if rec.Name == "" {
			diags.errs = append(diags.errs,
				errors.ValidationErrorf("row %d, column %q: must not be empty", rowNum, appColName))
		}
		if rec.QvfName == "" {
			diags.errs = append(diags.errs,
				errors.ValidationErrorf("row %d, column %q: must not be empty", rowNum, appColQvfName))
		}

		switch exclude := cell(row, appColExcludeData); exclude {
		case "1":
			rec.ExcludeDataConnections = true
		case "0", "":
		default:
			diags.errs = append(diags.errs,
				errors.ValidationErrorf("row %d, column %q: must be 0, 1 or empty, got %q", rowNum, appColExcludeData, exclude))
		}

		if tags := cell(row, appColTags); tags != "" {
			rec.Tags = splitList(tags)
		}
		if props := cell(row, appColCustomProps); props != "" {
			for _, part := range splitList(props) {
				name, value, found := strings.Cut(part, "=")
				if !found || strings.TrimSpace(name) == "" || strings.TrimSpace(value) == "" {
					diags.errs = append(diags.errs,
						errors.ValidationErrorf("row %d, column %q: expected name=value, got %q", rowNum, appColCustomProps, part))
					continue
				}
				rec.CustomProperties = append(rec.CustomProperties,
					PropertyRef{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
			}
		}

		records = append(records, rec)
	}

	if err := diags.err(); err != nil {
		return nil, err
	}
	log.Named("app.parser").Infow("App source parsed", "apps", len(records))
	return records, nil
}
