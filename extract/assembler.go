package extract

import (
	"errors"
	"fmt"
	"strings"

	"casedb-backend/models"
)

var (
	// ErrSchemaConflict is returned by NewAssembler when extractors disagree
	// about column ownership.
	ErrSchemaConflict = errors.New("extractor schema conflict")

	// ErrIncompleteRecord is returned when an identity field is missing. The
	// record must not be persisted.
	ErrIncompleteRecord = errors.New("incomplete case record")
)

// Assembler runs a fixed set of extractors and merges their results into one
// CaseRecord. Column ownership is checked once at construction.
type Assembler struct {
	extractors []Extractor
	owner      map[Column]string
}

// NewAssembler validates that every column is claimed by at most one
// extractor, that no extractor claims a listing column or an unknown column,
// and that the case name has an owner.
func NewAssembler(extractors ...Extractor) (*Assembler, error) {
	known := make(map[Column]bool, len(Columns))
	for _, c := range Columns {
		known[c] = true
	}

	owner := make(map[Column]string)
	for _, e := range extractors {
		if e.Extract == nil {
			return nil, fmt.Errorf("%w: extractor %q has no extract func", ErrSchemaConflict, e.Name)
		}
		for _, c := range e.Columns {
			switch {
			case !known[c]:
				return nil, fmt.Errorf("%w: extractor %q claims unknown column %q", ErrSchemaConflict, e.Name, c)
			case listingColumns[c]:
				return nil, fmt.Errorf("%w: column %q comes from the listing, not extractor %q", ErrSchemaConflict, c, e.Name)
			}
			if prev, ok := owner[c]; ok {
				return nil, fmt.Errorf("%w: column %q claimed by both %q and %q", ErrSchemaConflict, c, prev, e.Name)
			}
			owner[c] = e.Name
		}
	}
	if _, ok := owner[ColumnCaseName]; !ok {
		return nil, fmt.Errorf("%w: no extractor owns %q", ErrSchemaConflict, ColumnCaseName)
	}

	return &Assembler{extractors: extractors, owner: owner}, nil
}

// Owner returns the name of the extractor that owns a column.
func (a *Assembler) Owner(c Column) (string, bool) {
	name, ok := a.owner[c]
	return name, ok
}

// Extract runs every extractor and merges the owned columns.
func (a *Assembler) Extract(dc *DocContext) Fields {
	var merged Fields
	for _, e := range a.extractors {
		out := e.Extract(dc)
		for _, c := range e.Columns {
			merged.take(c, out)
		}
	}
	return merged
}

// Assemble builds the record for one document. Absent optional fields take
// their zero value; a missing case name or link yields ErrIncompleteRecord.
func (a *Assembler) Assemble(dc *DocContext) (models.CaseRecord, error) {
	f := a.Extract(dc)

	var missing []string
	if f.CaseName == nil || *f.CaseName == "" {
		missing = append(missing, string(ColumnCaseName))
	}
	if strings.TrimSpace(dc.Link) == "" {
		missing = append(missing, string(ColumnLink))
	}
	if len(missing) > 0 {
		return models.CaseRecord{}, fmt.Errorf("%w: missing %s", ErrIncompleteRecord, strings.Join(missing, ", "))
	}

	rec := models.CaseRecord{
		CaseName:      *f.CaseName,
		Court:         dc.Court,
		OffenceTitles: nonNil(f.OffenceTitles),
		StatuteRefs:   f.StatuteRefs,
		Citations:     removeName(nonNil(f.Citations), CanonicalName(*f.CaseName)),
		Link:          strings.TrimSpace(dc.Link),
	}
	if rec.StatuteRefs == nil {
		rec.StatuteRefs = []models.StatuteRef{}
	}
	if f.Tribunal != nil {
		rec.Tribunal = *f.Tribunal
	}
	if f.DecisionDate != nil {
		rec.DecisionDate = *f.DecisionDate
	}
	if f.Mitigation != nil {
		rec.MitigationDiscussed = *f.Mitigation
	}
	if f.Aggravation != nil {
		rec.AggravationDiscussed = *f.Aggravation
	}
	return rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
