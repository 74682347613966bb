package document

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func loadFixture(t *testing.T) *Document {
	t.Helper()
	raw, err := os.ReadFile("testdata/judgment.html")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestParseTitle(t *testing.T) {
	doc := loadFixture(t)
	if got := doc.Title(); got != "PUBLIC PROSECUTOR v Tan Ah Kow" {
		t.Errorf("Title() = %q", got)
	}
}

func TestParseInfoTable(t *testing.T) {
	doc := loadFixture(t)

	tests := []struct {
		label string
		want  string
	}{
		{"Decision Date", "12 Jan 2018"},
		{"Tribunal/Court", "District Court"},
		{"tribunal/court", "District Court"},
		{"Case Number", "DAC 912345 of 2017"},
		{"Coram", "Lim Wee Ming"},
	}
	for _, tt := range tests {
		got, ok := doc.Field(tt.label)
		if !ok || got != tt.want {
			t.Errorf("Field(%q) = %q, %v; want %q", tt.label, got, ok, tt.want)
		}
	}

	if _, ok := doc.Field("Counsel"); ok {
		t.Error("Field(Counsel) should be absent")
	}

	want := []string{"Case Number", "Decision Date", "Tribunal/Court", "Coram"}
	if diff := cmp.Diff(want, doc.Labels()); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
}

func TestParseParagraphs(t *testing.T) {
	doc := loadFixture(t)
	want := []string{
		"The accused pleaded guilty. In Public Prosecutor v Lim Ah Seng the court considered mitigating factors.",
		"There were no aggravating factors.",
		"See also Tan Ah Kow v Public Prosecutor Antecedents",
	}
	if diff := cmp.Diff(want, doc.Paragraphs()); diff != "" {
		t.Errorf("Paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestParseHeaderSpans(t *testing.T) {
	doc := loadFixture(t)
	want := []string{"Criminal Law", "Offences", "Forgery – Section 33 Penal Code"}
	if diff := cmp.Diff(want, doc.HeaderSpans()); diff != "" {
		t.Errorf("HeaderSpans mismatch (-want +got):\n%s", diff)
	}
}

func TestParseText(t *testing.T) {
	doc := loadFixture(t)
	text := doc.Text()

	if strings.Contains(text, "\u00a0") {
		t.Error("Text() still contains non-breaking spaces")
	}
	if strings.Contains(text, "Site navigation") || strings.Contains(text, "PP v Nobody") {
		t.Error("Text() includes content outside the judgment container")
	}
	lines := strings.Split(text, "\n")
	if lines[0] != "PUBLIC PROSECUTOR v Tan Ah Kow" {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(text, "Copyright notice") {
		t.Error("Text() should keep untagged paragraphs")
	}
	for _, l := range lines {
		if l != strings.TrimSpace(l) || strings.Contains(l, "  ") {
			t.Errorf("line not normalised: %q", l)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no container", `<html><body><h2>PP v Tan</h2><p>text</p></body></html>`},
		{"no title", `<html><body><div class="contentsOfFile"><p class="Judg-1">text</p></div></body></html>`},
		{"empty title", `<html><body><div class="contentsOfFile"><h2>  </h2></div></body></html>`},
		{"empty input", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("Parse error = %v, want ErrMalformedDocument", err)
			}
		})
	}
}

func TestParseWithoutOptionalParts(t *testing.T) {
	raw := `<div class="contentsOfFile extra"><h2>Re Lim Bee Hoon</h2><p>Body only.</p></div>`
	doc, err := Parse([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Paragraphs()) != 0 || len(doc.HeaderSpans()) != 0 || len(doc.Labels()) != 0 {
		t.Errorf("expected no paragraphs, spans or labels, got %v %v %v",
			doc.Paragraphs(), doc.HeaderSpans(), doc.Labels())
	}
	if doc.Text() != "Re Lim Bee Hoon\nBody only." {
		t.Errorf("Text() = %q", doc.Text())
	}
}
