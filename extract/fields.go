package extract

import (
	"time"

	"casedb-backend/document"
	"casedb-backend/models"
)

// Column names a dataset column. Each column is owned by exactly one
// extractor.
type Column string

const (
	ColumnTribunal     Column = "tribunal/court"
	ColumnCaseName     Column = "case_name"
	ColumnDecisionDate Column = "decision_date"
	ColumnAggravation  Column = "aggravation_discussed"
	ColumnMitigation   Column = "mitigation_discussed"
	ColumnCitations    Column = "citations"
	ColumnTitles       Column = "possible_titles"
	ColumnStatutes     Column = "possible_statutes"
	ColumnCourt        Column = "court_tag"
	ColumnLink         Column = "link"
)

// Columns lists the dataset columns in table order.
var Columns = []Column{
	ColumnTribunal,
	ColumnCaseName,
	ColumnDecisionDate,
	ColumnAggravation,
	ColumnMitigation,
	ColumnCitations,
	ColumnTitles,
	ColumnStatutes,
	ColumnCourt,
	ColumnLink,
}

// listing-owned columns come from the listing row, not from the document
var listingColumns = map[Column]bool{ColumnCourt: true, ColumnLink: true}

// Fields holds per-field extraction results. A nil field is absent.
type Fields struct {
	CaseName      *string
	Tribunal      *string
	DecisionDate  *time.Time
	OffenceTitles []string
	StatuteRefs   []models.StatuteRef
	Citations     []string
	Mitigation    *bool
	Aggravation   *bool
}

// take copies one column's value from src.
func (f *Fields) take(col Column, src Fields) {
	switch col {
	case ColumnCaseName:
		f.CaseName = src.CaseName
	case ColumnTribunal:
		f.Tribunal = src.Tribunal
	case ColumnDecisionDate:
		f.DecisionDate = src.DecisionDate
	case ColumnTitles:
		f.OffenceTitles = src.OffenceTitles
	case ColumnStatutes:
		f.StatuteRefs = src.StatuteRefs
	case ColumnCitations:
		f.Citations = src.Citations
	case ColumnMitigation:
		f.Mitigation = src.Mitigation
	case ColumnAggravation:
		f.Aggravation = src.Aggravation
	}
}

// DocContext is the explicit per-document input passed between extraction
// steps. Nothing in it is shared across documents.
type DocContext struct {
	Doc   *document.Document
	Link  string
	Court models.Court
}
