// Package render turns the coach's Markdown replies into HTML for the
// chat UI and into plain text for browser speech synthesis.
package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markdown converts Markdown to an HTML fragment. On conversion
// failure the input is returned HTML-escaped rather than lost.
func Markdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		var esc bytes.Buffer
		_ = html.Render(&esc, &html.Node{Type: html.TextNode, Data: md})
		return esc.String()
	}
	return buf.String()
}

// blockElements get a sentence pause when flattening to speech text.
var blockElements = map[atom.Atom]bool{
	atom.P:  true,
	atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Br:         true,
	atom.Blockquote: true,
}

// PlainText flattens an HTML fragment to speakable text: tags are
// dropped and block boundaries become sentence pauses so speech
// synthesis does not run paragraphs together.
func PlainText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return collapseSpaces(stripTags(fragment))
	}

	var b strings.Builder
	flatten(doc, &b)
	return collapseSpaces(b.String())
}

func flatten(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head:
			return
		}
		if blockElements[n.DataAtom] && b.Len() > 0 {
			b.WriteString(". ")
		}
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				b.WriteString(" ")
			}
			b.WriteString(text)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flatten(c, b)
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, " ")
}

var spacePattern = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	s = spacePattern.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " .", ".")
	return strings.TrimSpace(s)
}
