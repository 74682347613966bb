package search

import (
	"testing"

	"casedb-backend/models"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw      string
		wantMode Mode
		wantKey  string
	}{
		{"Section 33 Penal Code", ModeStatute, "33 penal code"},
		{"s 5 Misuse of Drugs Act", ModeStatute, "5 misuse of drugs act"},
		{"Penal Code", ModeStatute, "penal code"},
		{"Tan v Lim", ModeCaseName, "tan v lim"},
		{"tan v. lim", ModeCaseName, "tan v lim"},
		{"forgery", ModeFreeText, "forgery"},
		{"  Actual   Harm ", ModeFreeText, "actual harm"},
	}
	for _, tt := range tests {
		got := Classify(tt.raw)
		if got.Mode != tt.wantMode || got.Key != tt.wantKey {
			t.Errorf("Classify(%q) = %s %q, want %s %q", tt.raw, got.Mode, got.Key, tt.wantMode, tt.wantKey)
		}
		if got.Raw != tt.raw {
			t.Errorf("Classify(%q).Raw = %q", tt.raw, got.Raw)
		}
	}
}

func dataset() []models.CaseRecord {
	return []models.CaseRecord{
		{
			CaseName:             "public prosecutor v tan ah kow",
			OffenceTitles:        []string{"Forgery"},
			StatuteRefs:          []models.StatuteRef{{Section: "33", Act: "Penal Code"}},
			Citations:            []string{"Lee v Chua", "Ong v Koh"},
			AggravationDiscussed: true,
			Link:                 "r1",
		},
		{
			CaseName:            "tan v lim",
			OffenceTitles:       []string{"Theft"},
			StatuteRefs:         []models.StatuteRef{{Section: "379", Act: "Penal Code"}},
			Citations:           []string{"ONG v KOH"},
			MitigationDiscussed: true,
			Link:                "r2",
		},
		{
			CaseName:            "ong v koh",
			OffenceTitles:       []string{models.UnresolvedOffence},
			StatuteRefs:         []models.StatuteRef{{Section: "5", Act: "Misuse of Drugs Act"}},
			Citations:           []string{"Tan v Lim"},
			MitigationDiscussed: true,
			Link:                "r3",
		},
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"Section 33 Penal Code", []string{"r1"}},
		{"penal code", []string{"r1", "r2"}},
		{"Tan v Lim", []string{"r2"}},
		{"kow", []string{"r1"}},
		{"forgery", []string{"r1"}},
		{"drugs", []string{"r3"}},
		{"nothing matches", []string{}},
		{"   ", []string{}},
	}
	for _, tt := range tests {
		_, got := Search(dataset(), tt.raw)
		links := []string{}
		for _, r := range got {
			links = append(links, r.Link)
		}
		if diff := cmp.Diff(tt.want, links); diff != "" {
			t.Errorf("Search(%q) mismatch (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(dataset(), 2)
	want := Summary{
		Total:           3,
		AggravationRate: 33.3,
		MitigationRate:  66.7,
		TopCitations: []CitationCount{
			{Citation: "Ong v Koh", Count: 2},
			{Citation: "Lee v Chua", Count: 1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}

	empty := Summarize(nil, DefaultTopCitations)
	if empty.Total != 0 || empty.TopCitations == nil {
		t.Errorf("empty summary = %+v", empty)
	}
}
