// Package merge keeps the per-court listings and the case dataset consistent
// across repeated runs. Identity is the judgment link throughout.
package merge

import (
	"sort"
	"strings"

	"casedb-backend/models"
)

// Stats reports what a Merge did.
type Stats struct {
	Added     int
	Duplicate int
}

// NewSlice returns the listing rows whose link is not yet in compiled, in
// listing order. Repeated links inside the listing are kept once.
func NewSlice(listing, compiled []models.ListingRow) []models.ListingRow {
	seen := make(map[string]struct{}, len(compiled)+len(listing))
	for _, r := range compiled {
		seen[linkKey(r.Link)] = struct{}{}
	}
	var out []models.ListingRow
	for _, r := range listing {
		k := linkKey(r.Link)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// CompileListing unions the new slice into the compiled listing, sorted by
// date then link.
func CompileListing(compiled, slice []models.ListingRow) []models.ListingRow {
	out := make([]models.ListingRow, 0, len(compiled)+len(slice))
	out = append(out, compiled...)
	out = append(out, NewSlice(slice, compiled)...)
	sort.SliceStable(out, func(i, j int) bool {
		return lessByDate(out[i].Date.IsZero(), out[j].Date.IsZero(),
			out[i].Date.Before(out[j].Date), out[i].Date.Equal(out[j].Date),
			out[i].Link, out[j].Link)
	})
	return out
}

// Pending returns the compiled rows of court whose link is not in the
// dataset. These are the documents a run still has to extract.
func Pending(compiled []models.ListingRow, dataset *models.Dataset, court models.Court) []models.ListingRow {
	have := dataset.Links()
	var out []models.ListingRow
	for _, r := range compiled {
		if r.Court != "" && r.Court != court {
			continue
		}
		if _, ok := have[linkKey(r.Link)]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Merge appends records whose link is not yet present and re-sorts the
// dataset by decision date. Records already present are counted as
// duplicates and left untouched, so merging the same records twice is a
// no-op. Not safe for concurrent use on the same dataset.
func Merge(dataset *models.Dataset, records []models.CaseRecord) Stats {
	var stats Stats
	have := dataset.Links()
	for _, r := range records {
		k := linkKey(r.Link)
		if _, ok := have[k]; ok || k == "" {
			stats.Duplicate++
			continue
		}
		have[k] = struct{}{}
		r.Link = k
		dataset.Records = append(dataset.Records, r)
		stats.Added++
	}
	SortRecords(dataset.Records)
	return stats
}

// SortRecords orders records by decision date, undated last, then by link.
func SortRecords(records []models.CaseRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		return lessByDate(a.DecisionDate.IsZero(), b.DecisionDate.IsZero(),
			a.DecisionDate.Before(b.DecisionDate), a.DecisionDate.Equal(b.DecisionDate),
			a.Link, b.Link)
	})
}

func lessByDate(aZero, bZero, before, equal bool, aLink, bLink string) bool {
	switch {
	case aZero != bZero:
		return bZero
	case !aZero && !equal:
		return before
	default:
		return aLink < bLink
	}
}

func linkKey(link string) string {
	return strings.TrimSpace(link)
}
