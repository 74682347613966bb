package repository

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"casedb-backend/models"

	"github.com/google/go-cmp/cmp"
)

func sampleRecords() []models.CaseRecord {
	return []models.CaseRecord{
		{
			CaseName:             "public prosecutor v tan ah kow",
			Court:                models.CourtSubordinate,
			Tribunal:             "District Court",
			DecisionDate:         time.Date(2018, time.January, 12, 0, 0, 0, 0, time.UTC),
			OffenceTitles:        []string{"Forgery", models.UnresolvedOffence},
			StatuteRefs:          []models.StatuteRef{{Section: "33", Act: "Penal Code"}, {Section: "5", Act: "Misuse of Drugs Act"}},
			Citations:            []string{"Public Prosecutor v Lim Ah Seng, Tan", "Ong v Koh"},
			MitigationDiscussed:  true,
			AggravationDiscussed: false,
			Link:                 "https://example.test/j/1",
		},
		{
			CaseName:      "re lim bee hoon",
			Court:         models.CourtSupreme,
			OffenceTitles: []string{},
			StatuteRefs:   []models.StatuteRef{},
			Citations:     []string{},
			Link:          "https://example.test/j/2",
		},
	}
}

func TestCasesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCases(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteCases: %v", err)
	}

	header, _, _ := strings.Cut(buf.String(), "\n")
	want := "tribunal/court,case_name,decision_date,aggravation_discussed,mitigation_discussed,citations,possible_titles,possible_statutes,court_tag,link"
	if header != want {
		t.Errorf("header = %q", header)
	}

	got, err := ReadCases(&buf)
	if err != nil {
		t.Fatalf("ReadCases: %v", err)
	}
	if diff := cmp.Diff(sampleRecords(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCasesLegacyTable(t *testing.T) {
	table := "\ufeffcase_name,decision_date,possible_titles,mitigation_discussed,link\n" +
		"tan v lim,3 Feb 2015,Theft; Cheating,True,https://example.test/j/9\n"

	got, err := ReadCases(strings.NewReader(table))
	if err != nil {
		t.Fatal(err)
	}
	want := []models.CaseRecord{{
		CaseName:            "tan v lim",
		DecisionDate:        time.Date(2015, time.February, 3, 0, 0, 0, 0, time.UTC),
		OffenceTitles:       []string{"Theft", "Cheating"},
		StatuteRefs:         []models.StatuteRef{},
		Citations:           []string{},
		MitigationDiscussed: true,
		Link:                "https://example.test/j/9",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadCases mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCasesErrors(t *testing.T) {
	if _, err := ReadCases(strings.NewReader("case_name\nx\n")); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("missing link column: error = %v", err)
	}
	if _, err := ReadCases(strings.NewReader("")); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("empty table: error = %v", err)
	}
	if _, err := ReadCases(strings.NewReader("case_name,decision_date,link\nx,someday,l\n")); err == nil {
		t.Error("bad date should fail")
	}
}

func TestListingRoundTrip(t *testing.T) {
	rows := []models.ListingRow{
		{Court: models.CourtSupreme, Date: time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC), Title: "PP v Tan", Link: "a"},
		{Court: models.CourtSupreme, Title: "Undated", Link: "b"},
	}
	var buf bytes.Buffer
	if err := WriteListing(&buf, rows); err != nil {
		t.Fatal(err)
	}
	got, err := ReadListing(&buf, models.CourtSubordinate)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadListingDefaultsCourt(t *testing.T) {
	table := "date,title,link\n1 Mar 2019,PP v Tan,https://example.test/a\n,No link,\n"
	got, err := ReadListing(strings.NewReader(table), models.CourtSupreme)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.ListingRow{{
		Court: models.CourtSupreme,
		Date:  time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC),
		Title: "PP v Tan",
		Link:  "https://example.test/a",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadListing mismatch (-want +got):\n%s", diff)
	}
}
