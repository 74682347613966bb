package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCourtTag is returned when a court tag is neither subordinate nor supreme
var ErrInvalidCourtTag = errors.New("invalid court tag: only the subordinate (state) or supreme court is supported")

// Court identifies which court's listing a judgment came from
type Court string

const (
	CourtSubordinate Court = "subordinate"
	CourtSupreme     Court = "supreme"
)

// Courts lists every supported court tag in processing order
var Courts = []Court{CourtSubordinate, CourtSupreme}

// ParseCourt validates a court tag
func ParseCourt(s string) (Court, error) {
	switch c := Court(strings.ToLower(strings.TrimSpace(s))); c {
	case CourtSubordinate, CourtSupreme:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCourtTag, s)
	}
}

// UnresolvedOffence is the offence title recorded for a statute pair that has no
// entry in the statute table
const UnresolvedOffence = "unresolved"

// DateLayout is the on-disk format for decision and listing dates
const DateLayout = "2006-01-02"

// StatuteRef is a (section, act) pair cited by a judgment
type StatuteRef struct {
	Section string `json:"section"`
	Act     string `json:"act"`
}

// Key returns the normalised "<section> <act>" lookup key
func (s StatuteRef) Key() string {
	return strings.Join(strings.Fields(s.Section+" "+s.Act), " ")
}

func (s StatuteRef) String() string {
	return s.Key()
}

// CaseRecord represents one extracted judgment
type CaseRecord struct {
	CaseName             string       `json:"case_name"`
	Court                Court        `json:"court"`
	Tribunal             string       `json:"tribunal,omitempty"`
	DecisionDate         time.Time    `json:"decision_date"`
	OffenceTitles        []string     `json:"offence_titles"`
	StatuteRefs          []StatuteRef `json:"statute_refs"`
	Citations            []string     `json:"citations"`
	MitigationDiscussed  bool         `json:"mitigation_discussed"`
	AggravationDiscussed bool         `json:"aggravation_discussed"`
	Link                 string       `json:"link"`
}

// StatuteKeys returns the record's statute references as lookup keys
func (r *CaseRecord) StatuteKeys() []string {
	keys := make([]string, 0, len(r.StatuteRefs))
	for _, ref := range r.StatuteRefs {
		keys = append(keys, ref.Key())
	}
	return keys
}

// StatuteEntry maps a (section, act) pair to an offence title
type StatuteEntry struct {
	Ref          StatuteRef `json:"ref"`
	OffenceTitle string     `json:"offence_title"`
}

// ListingRow is one row of a court's judgment listing
type ListingRow struct {
	Court Court     `json:"court"`
	Date  time.Time `json:"date"`
	Title string    `json:"title"`
	Link  string    `json:"link"`
}

// Dataset is the ordered collection of extracted cases, unique by link
type Dataset struct {
	Records []CaseRecord `json:"records"`
}

// Links returns the set of links present in the dataset
func (d *Dataset) Links() map[string]struct{} {
	links := make(map[string]struct{}, len(d.Records))
	for _, r := range d.Records {
		links[r.Link] = struct{}{}
	}
	return links
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.Records)
}
