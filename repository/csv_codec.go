package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"casedb-backend/extract"
	"casedb-backend/models"
)

// ListSeparator joins multi-valued cells in CSV tables.
const ListSeparator = "; "

// ErrMissingColumn is returned when a CSV table lacks a required column.
var ErrMissingColumn = errors.New("csv table missing required column")

var listingColumns = []string{"court", "date", "title", "link"}

// WriteCases writes records as a dataset table.
func WriteCases(w io.Writer, records []models.CaseRecord) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(extract.Columns))
	for i, c := range extract.Columns {
		header[i] = string(c)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := make([]string, 0, len(header))
		for _, c := range extract.Columns {
			row = append(row, caseCell(&r, c))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func caseCell(r *models.CaseRecord, c extract.Column) string {
	switch c {
	case extract.ColumnTribunal:
		return r.Tribunal
	case extract.ColumnCaseName:
		return r.CaseName
	case extract.ColumnDecisionDate:
		return formatDate(r.DecisionDate)
	case extract.ColumnAggravation:
		return formatBool(r.AggravationDiscussed)
	case extract.ColumnMitigation:
		return formatBool(r.MitigationDiscussed)
	case extract.ColumnCitations:
		return strings.Join(r.Citations, ListSeparator)
	case extract.ColumnTitles:
		return strings.Join(r.OffenceTitles, ListSeparator)
	case extract.ColumnStatutes:
		return strings.Join(r.StatuteKeys(), ListSeparator)
	case extract.ColumnCourt:
		return string(r.Court)
	case extract.ColumnLink:
		return r.Link
	}
	return ""
}

// ReadCases reads a dataset table. Columns are matched by header name, so
// tables written by older versions without court_tag still load.
func ReadCases(rd io.Reader) ([]models.CaseRecord, error) {
	rows, idx, err := readTable(rd, string(extract.ColumnCaseName), string(extract.ColumnLink))
	if err != nil {
		return nil, err
	}

	records := make([]models.CaseRecord, 0, len(rows))
	for line, row := range rows {
		get := func(c extract.Column) string { return cell(row, idx, string(c)) }
		r := models.CaseRecord{
			Tribunal:      get(extract.ColumnTribunal),
			CaseName:      get(extract.ColumnCaseName),
			Citations:     splitList(get(extract.ColumnCitations)),
			OffenceTitles: splitList(get(extract.ColumnTitles)),
			StatuteRefs:   []models.StatuteRef{},
			Court:         models.Court(get(extract.ColumnCourt)),
			Link:          get(extract.ColumnLink),
		}
		if d := get(extract.ColumnDecisionDate); d != "" {
			t, ok := extract.ParseDate(d)
			if !ok {
				return nil, fmt.Errorf("row %d: bad decision_date %q", line+2, d)
			}
			r.DecisionDate = t
		}
		r.AggravationDiscussed = parseBool(get(extract.ColumnAggravation))
		r.MitigationDiscussed = parseBool(get(extract.ColumnMitigation))
		for _, key := range splitList(get(extract.ColumnStatutes)) {
			section, act, _ := strings.Cut(key, " ")
			r.StatuteRefs = append(r.StatuteRefs, models.StatuteRef{Section: section, Act: act})
		}
		records = append(records, r)
	}
	return records, nil
}

// WriteListing writes listing rows.
func WriteListing(w io.Writer, rows []models.ListingRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(listingColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{string(r.Court), formatDate(r.Date), r.Title, r.Link}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadListing reads a listing with date, title and link columns. Rows without
// a court column take the given court.
func ReadListing(rd io.Reader, court models.Court) ([]models.ListingRow, error) {
	rows, idx, err := readTable(rd, "link")
	if err != nil {
		return nil, err
	}

	out := make([]models.ListingRow, 0, len(rows))
	for _, row := range rows {
		r := models.ListingRow{
			Court: models.Court(cell(row, idx, "court")),
			Title: cell(row, idx, "title"),
			Link:  cell(row, idx, "link"),
		}
		if r.Link == "" {
			continue
		}
		if r.Court == "" {
			r.Court = court
		}
		if t, ok := extract.ParseDate(cell(row, idx, "date")); ok {
			r.Date = t
		}
		out = append(out, r)
	}
	return out, nil
}

func readTable(rd io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%w: empty table", ErrMissingColumn)
	}

	idx := make(map[string]int, len(all[0]))
	for i, h := range all[0] {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, r := range required {
		if _, ok := idx[r]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, r)
		}
	}
	return all[1:], idx, nil
}

func cell(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, strings.TrimSpace(ListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
