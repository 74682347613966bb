// Package search classifies free-text queries and filters the case dataset.
package search

import (
	"regexp"
	"strings"

	"casedb-backend/extract"
)

// Mode is the kind of query.
type Mode string

const (
	ModeStatute  Mode = "statute"
	ModeCaseName Mode = "case_name"
	ModeFreeText Mode = "free_text"
)

// Query is a classified query with its lower-cased lookup key.
type Query struct {
	Raw  string `json:"raw"`
	Mode Mode   `json:"mode"`
	Key  string `json:"key"`
}

// matcher returns the lookup key when the query belongs to its mode.
type matcher struct {
	mode  Mode
	match func(q string) (string, bool)
}

var (
	actOrCode      = regexp.MustCompile(`(?i)\b(?:act|code)\b`)
	statuteSection = regexp.MustCompile(`(?i)(?:\b(?:sections?|ss?)\.?\s*)?(\d+[a-z]?)`)
	statuteAct     = regexp.MustCompile(`(?i)((?:[a-z]+ +)*?(?:act|code))\b`)
	standaloneV    = regexp.MustCompile(`(?i)(?:^|\s)v\.?\s`)
	casePartyLower = regexp.MustCompile(`(?i)([a-z][a-z'/-]*(?: +[a-z][a-z'/-]*)*? v\.? +[a-z][a-z'/-]*(?: +[a-z][a-z'/-]*)*)`)
	ofThe          = regexp.MustCompile(`(?i)^(?:of +)?(?:the +)?`)
)

// ordered: the first matcher that accepts a query decides its mode
var matchers = []matcher{
	{mode: ModeStatute, match: statuteKey},
	{mode: ModeCaseName, match: caseNameKey},
}

// Classify decides the query mode and normalised key.
func Classify(raw string) Query {
	q := strings.Join(strings.Fields(raw), " ")
	for _, m := range matchers {
		if key, ok := m.match(q); ok {
			return Query{Raw: raw, Mode: m.mode, Key: key}
		}
	}
	return Query{Raw: raw, Mode: ModeFreeText, Key: strings.ToLower(q)}
}

// statuteKey builds "<section> <act>" from a query naming an act or code.
func statuteKey(q string) (string, bool) {
	if !actOrCode.MatchString(q) {
		return "", false
	}

	section := ""
	rest := q
	if loc := statuteSection.FindStringSubmatchIndex(q); loc != nil {
		section = q[loc[2]:loc[3]]
		rest = q[loc[1]:]
	}

	act := actPhrase(rest)
	if act == "" {
		act = actPhrase(q)
	}

	key := strings.TrimSpace(section + " " + act)
	if key == "" {
		key = q
	}
	return strings.ToLower(key), true
}

func actPhrase(s string) string {
	m := statuteAct.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return ofThe.ReplaceAllString(strings.TrimSpace(m[1]), "")
}

// caseNameKey extracts the party-name span of a "X v Y" query.
func caseNameKey(q string) (string, bool) {
	if !standaloneV.MatchString(" " + q + " ") {
		return "", false
	}
	if span, ok := extract.PartyNames.Find(q); ok {
		return extract.CanonicalName(span), true
	}
	if span := casePartyLower.FindString(q); span != "" {
		return extract.CanonicalName(strings.Replace(span, " v. ", " v ", 1)), true
	}
	return strings.ToLower(q), true
}
