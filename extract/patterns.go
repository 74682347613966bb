package extract

import (
	"regexp"
	"strings"
)

// Matcher is a named pattern that returns matched spans or nothing.
type Matcher struct {
	Name string
	re   *regexp.Regexp
}

// NewMatcher compiles a named matcher. It panics on an invalid pattern, so it
// is meant for package-level patterns.
func NewMatcher(name, pattern string) *Matcher {
	return &Matcher{Name: name, re: regexp.MustCompile(pattern)}
}

// Find returns the first matched span.
func (m *Matcher) Find(s string) (string, bool) {
	loc := m.re.FindStringSubmatchIndex(s)
	if loc == nil {
		return "", false
	}
	return m.span(s, loc), true
}

// FindAll returns every matched span in order.
func (m *Matcher) FindAll(s string) []string {
	var out []string
	for _, loc := range m.re.FindAllStringSubmatchIndex(s, -1) {
		out = append(out, m.span(s, loc))
	}
	return out
}

// Spans returns every match with its byte offset.
func (m *Matcher) Spans(s string) []Span {
	var out []Span
	for _, loc := range m.re.FindAllStringSubmatchIndex(s, -1) {
		out = append(out, Span{Text: m.span(s, loc), Start: loc[0], End: loc[1]})
	}
	return out
}

// span prefers the first capture group when the pattern has one.
func (m *Matcher) span(s string, loc []int) string {
	if len(loc) >= 4 && loc[2] >= 0 {
		return s[loc[2]:loc[3]]
	}
	return s[loc[0]:loc[1]]
}

// Span is a matched substring and its position.
type Span struct {
	Text  string
	Start int
	End   int
}

const (
	capitalWord = `[A-Z][A-Za-z'-]*`
	// kinship markers, transliteration particles and connectors that may sit
	// between capitalised party-name words
	particle  = `(?:s/o|d/o|a/l|a/p|bte|bin|binti|and|another|anr|de|the|for|other|others|matters)`
	partySide = `\b` + capitalWord + `(?: +(?:` + capitalWord + `|` + particle + `\b))*`
)

var (
	// PartyNames matches "<party> v <party>" spans.
	PartyNames = NewMatcher("party_names", `(`+partySide+` v `+partySide+`)`)

	// Sections matches a section marker followed by one or more numbers,
	// e.g. "Section 33", "s 5", "ss 5, 7 and 8".
	Sections = NewMatcher("sections",
		`(?:^|[\s(\[,;])(?:[Ss]ections?|[Ss]{1,2})\.? +(\d+[A-Z]?(?: *(?:,|and|&|or) *\d+[A-Z]?)*)`)

	// Acts matches an act or code name: capitalised words joined by "of" or
	// "and", ending in "Act" or "Code".
	Acts = NewMatcher("acts",
		`(Corruption, Drug Trafficking and Other Serious Crimes \(Confiscation of Benefits\) Act|\b[A-Z][a-z]+ (?:(?:[A-Z][a-z]+|of|and) )*(?:Act|Code)\b)`)

	// Mitigation and Aggravation detect discussion of sentencing factors.
	Mitigation  = NewMatcher("mitigation", `(?i)mitigat(?:ion|ing)`)
	Aggravation = NewMatcher("aggravation", `(?i)aggravat(?:ing|ed)`)

	sectionNumber = regexp.MustCompile(`\d+[A-Z]?`)
)

var (
	// connectors that cannot end a party name
	danglingParticles = map[string]bool{
		"the": true, "for": true, "and": true, "de": true, "bin": true, "bte": true,
		"binti": true, "s/o": true, "d/o": true, "a/l": true, "a/p": true,
	}
	leadingFragments = map[string]bool{"In": true, "See": true, "Cf": true}
	trailingArtefacts = map[string]bool{"Antecedents": true, "Untraced": true}
	actStopWords      = map[string]bool{"The": true, "Under": true, "In": true, "By": true, "See": true}
)

// CanonicalName lower-cases a party-name span and collapses its whitespace.
func CanonicalName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// cleanPartySpan strips leading citation fragments, trailing artefacts and
// dangling connectors from a matched party-name span.
func cleanPartySpan(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 && leadingFragments[words[0]] {
		words = words[1:]
	}
	for len(words) > 0 {
		last := words[len(words)-1]
		if !trailingArtefacts[last] && !danglingParticles[last] {
			break
		}
		words = words[:len(words)-1]
	}
	out := strings.Join(words, " ")
	if !strings.Contains(out, " v ") || strings.HasPrefix(out, "v ") || strings.HasSuffix(out, " v") {
		return ""
	}
	return out
}

// cleanAct trims leading stop words the act pattern can pick up at a sentence
// start.
func cleanAct(s string) string {
	words := strings.Fields(s)
	for len(words) > 2 && actStopWords[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// splitSections expands a section list such as "5, 7 and 8".
func splitSections(s string) []string {
	return sectionNumber.FindAllString(s, -1)
}
