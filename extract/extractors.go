package extract

import (
	"strings"
	"time"

	"casedb-backend/models"
)

// Resolver maps a statute pair to its offence title.
type Resolver interface {
	Resolve(ref models.StatuteRef) (string, bool)
}

// Extractor is one independent extraction rule.
type Extractor struct {
	Name    string
	Columns []Column
	Extract func(*DocContext) Fields
}

const (
	LabelTribunal     = "Tribunal/Court"
	LabelDecisionDate = "Decision Date"
)

var dateLayouts = []string{
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"02 January 2006",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate parses a decision or listing date in any of the layouts the source
// site uses.
func ParseDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CaseName canonicalises a header title. Titles without a "v" pattern are
// returned trimmed.
func CaseName(title string) string {
	title = strings.TrimSpace(title)
	if span, ok := PartyNames.Find(title); ok {
		if cleaned := cleanPartySpan(span); cleaned != "" {
			return CanonicalName(cleaned)
		}
	}
	return title
}

// CaseNameExtractor reads the header title.
func CaseNameExtractor() Extractor {
	return Extractor{
		Name:    "case_name",
		Columns: []Column{ColumnCaseName},
		Extract: func(dc *DocContext) Fields {
			name := CaseName(dc.Doc.Title())
			if name == "" {
				return Fields{}
			}
			return Fields{CaseName: &name}
		},
	}
}

// CourtDateExtractor reads the tribunal and decision date from the info table.
func CourtDateExtractor() Extractor {
	return Extractor{
		Name:    "court_date",
		Columns: []Column{ColumnTribunal, ColumnDecisionDate},
		Extract: func(dc *DocContext) Fields {
			var f Fields
			if v, ok := dc.Doc.Field(LabelTribunal); ok && v != "" {
				f.Tribunal = &v
			}
			if v, ok := dc.Doc.Field(LabelDecisionDate); ok {
				if t, ok := ParseDate(v); ok {
					f.DecisionDate = &t
				}
			}
			return f
		},
	}
}

// Citations returns the distinct party-name spans in text, first-seen order,
// without the document's own case name.
func Citations(text, ownName string) []string {
	own := CanonicalName(ownName)
	seen := make(map[string]bool)
	var out []string
	for _, span := range PartyNames.FindAll(text) {
		c := cleanPartySpan(span)
		if c == "" {
			continue
		}
		key := CanonicalName(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return removeName(out, own)
}

// removeName drops every citation equal to name; absence is not an error.
func removeName(citations []string, name string) []string {
	if name == "" {
		return citations
	}
	out := citations[:0]
	for _, c := range citations {
		if CanonicalName(c) != name {
			out = append(out, c)
		}
	}
	return out
}

// CitationExtractor scans the full body text for case citations.
func CitationExtractor() Extractor {
	return Extractor{
		Name:    "citations",
		Columns: []Column{ColumnCitations},
		Extract: func(dc *DocContext) Fields {
			return Fields{Citations: Citations(dc.Doc.Text(), CaseName(dc.Doc.Title()))}
		},
	}
}

// DiscussionFlags reports whether mitigating and aggravating factors are
// mentioned.
func DiscussionFlags(text string) (mitigation, aggravation bool) {
	_, mitigation = Mitigation.Find(text)
	_, aggravation = Aggravation.Find(text)
	return mitigation, aggravation
}

// FlagExtractor sets the discussion flags.
func FlagExtractor() Extractor {
	return Extractor{
		Name:    "discussion_flags",
		Columns: []Column{ColumnMitigation, ColumnAggravation},
		Extract: func(dc *DocContext) Fields {
			m, a := DiscussionFlags(dc.Doc.Text())
			return Fields{Mitigation: &m, Aggravation: &a}
		},
	}
}

// DefaultExtractors returns the full extractor set.
func DefaultExtractors(resolver Resolver, maxCandidates int) []Extractor {
	return []Extractor{
		CaseNameExtractor(),
		CourtDateExtractor(),
		StatuteExtractor(resolver, maxCandidates),
		CitationExtractor(),
		FlagExtractor(),
	}
}
