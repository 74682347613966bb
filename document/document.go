// Package document parses a judgment page into the structural parts the field
// extractors read: the header title, the labelled info table, the body text,
// the substantive judgment paragraphs and the annotation spans under the header.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrMalformedDocument is returned when a page lacks the judgment container or
// its header title.
var ErrMalformedDocument = errors.New("malformed judgment document")

const (
	containerClass   = "contentsOfFile"
	infoTableID      = "info-table"
	headerParaClass  = "txt-body"
	judgmentParaPref = "Judg-"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\r\v]+`)
	blankLines      = regexp.MustCompile(`\n{2,}`)
)

// Document is a parsed judgment page. It is immutable after Parse.
type Document struct {
	title       string
	info        map[string]string
	infoOrder   []string
	text        string
	paragraphs  []string
	headerSpans []string
}

// Parse builds a Document from raw judgment HTML.
func Parse(raw []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	container := findFirst(root, func(n *html.Node) bool {
		return n.DataAtom == atom.Div && hasClass(n, containerClass)
	})
	if container == nil {
		return nil, fmt.Errorf("%w: no %s container", ErrMalformedDocument, containerClass)
	}

	heading := findFirst(container, func(n *html.Node) bool { return n.DataAtom == atom.H2 })
	if heading == nil {
		return nil, fmt.Errorf("%w: no header title", ErrMalformedDocument)
	}
	title := inlineText(heading)
	if title == "" {
		return nil, fmt.Errorf("%w: empty header title", ErrMalformedDocument)
	}

	doc := &Document{
		title: title,
		info:  make(map[string]string),
		text:  blockText(container),
	}

	if table := findFirst(container, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && attr(n, "id") == infoTableID
	}); table != nil {
		doc.readInfoTable(table)
	}

	for _, p := range findAll(container, func(n *html.Node) bool {
		return n.DataAtom == atom.P && hasClassPrefix(n, judgmentParaPref)
	}) {
		if t := inlineText(p); t != "" {
			doc.paragraphs = append(doc.paragraphs, t)
		}
	}

	if header := findFirst(container, func(n *html.Node) bool {
		return n.DataAtom == atom.P && hasClass(n, headerParaClass)
	}); header != nil {
		doc.headerSpans = outerSpans(header)
	}

	return doc, nil
}

// Title returns the header title of the judgment.
func (d *Document) Title() string { return d.title }

// Field returns the value of a labelled info-table field. Labels compare
// case-insensitively.
func (d *Document) Field(label string) (string, bool) {
	v, ok := d.info[normalizeLabel(label)]
	return v, ok
}

// Labels returns the info-table labels in document order.
func (d *Document) Labels() []string {
	return append([]string(nil), d.infoOrder...)
}

// Text returns the full body text, one line per block element.
func (d *Document) Text() string { return d.text }

// Paragraphs returns the substantive judgment paragraphs in document order.
func (d *Document) Paragraphs() []string {
	return append([]string(nil), d.paragraphs...)
}

// HeaderSpans returns the annotation spans of the first header paragraph.
func (d *Document) HeaderSpans() []string {
	return append([]string(nil), d.headerSpans...)
}

func (d *Document) readInfoTable(table *html.Node) {
	for _, tr := range findAll(table, func(n *html.Node) bool { return n.DataAtom == atom.Tr }) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
				continue
			}
			t := inlineText(c)
			if t == "" || t == ":" {
				continue
			}
			cells = append(cells, t)
		}

		var label, value string
		switch {
		case len(cells) >= 2:
			label, value = cells[0], strings.Join(cells[1:], " ")
		case len(cells) == 1:
			i := strings.Index(cells[0], ":")
			if i < 0 {
				continue
			}
			label, value = cells[0][:i], cells[0][i+1:]
		default:
			continue
		}

		key := normalizeLabel(label)
		value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), ":"))
		if key == "" {
			continue
		}
		if _, seen := d.info[key]; !seen {
			d.infoOrder = append(d.infoOrder, strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), ":")))
		}
		d.info[key] = value
	}
}

func normalizeLabel(label string) string {
	label = strings.TrimSuffix(strings.TrimSpace(label), ":")
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

// outerSpans returns the text of spans not nested inside another span.
func outerSpans(p *html.Node) []string {
	var spans []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Span {
				if t := inlineText(c); t != "" {
					spans = append(spans, t)
				}
				continue
			}
			walk(c)
		}
	}
	walk(p)
	return spans
}
