package extract

import (
	"casedb-backend/models"
)

// DefaultMaxCandidates bounds the pairs kept from the body cross-product.
const DefaultMaxCandidates = 64

// StatuteResult is the output of statute extraction.
type StatuteResult struct {
	OffenceTitles []string
	StatuteRefs   []models.StatuteRef
	// FromHeader is true when the pairs came from the header annotations.
	FromHeader bool
}

// HeaderPairs pairs each section in a span with the next act in that span,
// or with the closest preceding act when none follows.
func HeaderPairs(spans []string) []models.StatuteRef {
	var pairs []models.StatuteRef
	for _, span := range spans {
		sections := Sections.Spans(span)
		if len(sections) == 0 {
			continue
		}
		acts := Acts.Spans(span)
		if len(acts) == 0 {
			continue
		}
		for _, sec := range sections {
			act := pairAct(sec, acts)
			for _, num := range splitSections(sec.Text) {
				pairs = append(pairs, models.StatuteRef{Section: num, Act: act})
			}
		}
	}
	return dedupePairs(pairs)
}

func pairAct(sec Span, acts []Span) string {
	prev := ""
	for _, a := range acts {
		if a.Start >= sec.End {
			return cleanAct(a.Text)
		}
		prev = cleanAct(a.Text)
	}
	return prev
}

// BodyPairs returns the cross-product of the distinct sections and acts found
// anywhere in the paragraphs, in first-seen order.
func BodyPairs(paragraphs []string) []models.StatuteRef {
	var sections, acts []string
	seenSec := make(map[string]bool)
	seenAct := make(map[string]bool)
	for _, p := range paragraphs {
		for _, s := range Sections.FindAll(p) {
			for _, num := range splitSections(s) {
				if !seenSec[num] {
					seenSec[num] = true
					sections = append(sections, num)
				}
			}
		}
		for _, a := range Acts.FindAll(p) {
			a = cleanAct(a)
			if !seenAct[a] {
				seenAct[a] = true
				acts = append(acts, a)
			}
		}
	}

	pairs := make([]models.StatuteRef, 0, len(sections)*len(acts))
	for _, s := range sections {
		for _, a := range acts {
			pairs = append(pairs, models.StatuteRef{Section: s, Act: a})
		}
	}
	return pairs
}

func dedupePairs(pairs []models.StatuteRef) []models.StatuteRef {
	seen := make(map[string]bool, len(pairs))
	out := make([]models.StatuteRef, 0, len(pairs))
	for _, p := range pairs {
		k := p.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

// ResolvePairs resolves deduplicated pairs. Every resolved pair is kept;
// unresolved pairs are kept in order while the total stays within
// maxCandidates (0 means no limit) and add the "unresolved" title.
func ResolvePairs(pairs []models.StatuteRef, resolver Resolver, maxCandidates int) StatuteResult {
	pairs = dedupePairs(pairs)

	titles := make([]string, len(pairs))
	resolved := 0
	for i, p := range pairs {
		if title, ok := resolver.Resolve(p); ok {
			titles[i] = title
			resolved++
		}
	}

	limited := maxCandidates > 0
	budget := maxCandidates - resolved

	var res StatuteResult
	seenTitle := make(map[string]bool)
	for i, p := range pairs {
		title := titles[i]
		if title == "" {
			if limited {
				if budget <= 0 {
					continue
				}
				budget--
			}
			title = models.UnresolvedOffence
		}
		res.StatuteRefs = append(res.StatuteRefs, p)
		if !seenTitle[title] {
			seenTitle[title] = true
			res.OffenceTitles = append(res.OffenceTitles, title)
		}
	}
	return res
}

// Statutes runs the two-tier strategy: header annotations first, then the
// substantive paragraphs (or the whole body when none are tagged).
func Statutes(dc *DocContext, resolver Resolver, maxCandidates int) StatuteResult {
	if pairs := HeaderPairs(dc.Doc.HeaderSpans()); len(pairs) > 0 {
		res := ResolvePairs(pairs, resolver, 0)
		res.FromHeader = true
		return res
	}
	paragraphs := dc.Doc.Paragraphs()
	if len(paragraphs) == 0 {
		paragraphs = []string{dc.Doc.Text()}
	}
	return ResolvePairs(BodyPairs(paragraphs), resolver, maxCandidates)
}

// StatuteExtractor owns the offence title and statute columns.
func StatuteExtractor(resolver Resolver, maxCandidates int) Extractor {
	return Extractor{
		Name:    "statutes",
		Columns: []Column{ColumnTitles, ColumnStatutes},
		Extract: func(dc *DocContext) Fields {
			res := Statutes(dc, resolver, maxCandidates)
			return Fields{OffenceTitles: res.OffenceTitles, StatuteRefs: res.StatuteRefs}
		},
	}
}
