package search

import (
	"sort"
	"strings"

	"casedb-backend/models"
)

// Filter returns the records matching the classified query, in dataset order.
// All comparisons are case-insensitive substring containment.
func Filter(records []models.CaseRecord, q Query) []models.CaseRecord {
	key := strings.ToLower(q.Key)
	if key == "" {
		return []models.CaseRecord{}
	}

	switch q.Mode {
	case ModeStatute:
		return filter(records, key, statuteText)
	case ModeCaseName:
		return filter(records, key, caseNameText)
	default:
		for _, field := range []func(*models.CaseRecord) string{caseNameText, titlesText, statuteText} {
			if out := filter(records, key, field); len(out) > 0 {
				return out
			}
		}
		return []models.CaseRecord{}
	}
}

// Search classifies and filters in one step.
func Search(records []models.CaseRecord, raw string) (Query, []models.CaseRecord) {
	q := Classify(raw)
	return q, Filter(records, q)
}

func filter(records []models.CaseRecord, key string, field func(*models.CaseRecord) string) []models.CaseRecord {
	out := []models.CaseRecord{}
	for i := range records {
		if strings.Contains(field(&records[i]), key) {
			out = append(out, records[i])
		}
	}
	return out
}

func caseNameText(r *models.CaseRecord) string {
	return strings.ToLower(r.CaseName)
}

func titlesText(r *models.CaseRecord) string {
	return strings.ToLower(strings.Join(r.OffenceTitles, ","))
}

func statuteText(r *models.CaseRecord) string {
	return strings.ToLower(strings.Join(r.StatuteKeys(), ","))
}

// CitationCount is how often a case is cited across a result set.
type CitationCount struct {
	Citation string `json:"citation"`
	Count    int    `json:"count"`
}

// Summary describes a result set.
type Summary struct {
	Total           int             `json:"total"`
	AggravationRate float64         `json:"aggravation_rate"`
	MitigationRate  float64         `json:"mitigation_rate"`
	TopCitations    []CitationCount `json:"top_citations"`
}

// DefaultTopCitations is the number of citations Summarize reports.
const DefaultTopCitations = 10

// Summarize computes the percentage of records discussing aggravating and
// mitigating factors and the most cited cases.
func Summarize(records []models.CaseRecord, top int) Summary {
	s := Summary{Total: len(records), TopCitations: []CitationCount{}}
	if len(records) == 0 {
		return s
	}

	var agg, mit int
	counts := make(map[string]*CitationCount)
	var order []string
	for _, r := range records {
		if r.AggravationDiscussed {
			agg++
		}
		if r.MitigationDiscussed {
			mit++
		}
		for _, c := range r.Citations {
			k := strings.ToLower(c)
			if cc, ok := counts[k]; ok {
				cc.Count++
				continue
			}
			counts[k] = &CitationCount{Citation: c, Count: 1}
			order = append(order, k)
		}
	}
	s.AggravationRate = percent(agg, len(records))
	s.MitigationRate = percent(mit, len(records))

	for _, k := range order {
		s.TopCitations = append(s.TopCitations, *counts[k])
	}
	sort.SliceStable(s.TopCitations, func(i, j int) bool {
		return s.TopCitations[i].Count > s.TopCitations[j].Count
	})
	if top > 0 && len(s.TopCitations) > top {
		s.TopCitations = s.TopCitations[:top]
	}
	return s
}

// percent rounds to one decimal place.
func percent(n, total int) float64 {
	return float64(int(float64(n)*1000/float64(total)+0.5)) / 10
}
