// Package textprep turns CMS field HTML into plain text suitable for an
// embedding request.
package textprep

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxLength is the truncation limit used when none is given.
const DefaultMaxLength = 10000

// DefaultStripElements are removed together with their text.
var DefaultStripElements = []string{"pre", "code", "script", "iframe", "embed", "object", "style", "noscript"}

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	disallowedPattern = regexp.MustCompile(`[^\p{L}\p{N}_.?!,'" ]`)
)

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "ol": true, "p": true,
	"section": true, "table": true, "td": true, "th": true, "tr": true,
	"ul": true,
}

// Prepare strips markup from rawHTML and returns cleaned text of at most
// maxLength characters. Elements named in DefaultStripElements or extraStrip
// are dropped with their content.
func Prepare(rawHTML string, extraStrip []string, maxLength int) string {
	return prepare(rawHTML, stripSet(extraStrip), maxLength)
}

func stripSet(extra []string) map[string]bool {
	strip := make(map[string]bool, len(DefaultStripElements)+len(extra))
	for _, name := range DefaultStripElements {
		strip[name] = true
	}
	for _, name := range extra {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			strip[name] = true
		}
	}
	return strip
}

func prepare(rawHTML string, strip map[string]bool, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	text := extract("<div>"+rawHTML+"</div>", strip)
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = disallowedPattern.ReplaceAllString(text, "")

	if runes := []rune(text); len(runes) > maxLength {
		text = string(runes[:maxLength])
	}
	return strings.TrimSpace(text)
}

func extract(markup string, strip map[string]bool) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		// The tokenizer only fails on reader errors.
		return markup
	}
	var sb strings.Builder
	walk(doc, &sb, strip)
	return sb.String()
}

func walk(n *html.Node, sb *strings.Builder, strip map[string]bool) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if strip[n.Data] {
			return
		}
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, sb, strip)
	}
	if block {
		sb.WriteByte(' ')
	}
}

// RemoveStopWords deletes every whole-word, case-insensitive occurrence of
// words from text and collapses the remaining whitespace.
func RemoveStopWords(text string, words []string) string {
	return removeStopWords(text, stopWordPatterns(words))
}

func stopWordPatterns(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, word := range words {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return patterns
}

func removeStopWords(text string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		text = pattern.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// Preparer bundles the cleaning settings used by the sync worker. The strip
// set and stop-word patterns are built once.
type Preparer struct {
	strip     map[string]bool
	stopWords []*regexp.Regexp
	maxLength int
}

// NewPreparer creates a Preparer.
func NewPreparer(strip, stopWords []string, maxLength int) Preparer {
	return Preparer{
		strip:     stripSet(strip),
		stopWords: stopWordPatterns(stopWords),
		maxLength: maxLength,
	}
}

// Prepare cleans rawHTML and removes the configured stop words.
func (p Preparer) Prepare(rawHTML string) string {
	return removeStopWords(prepare(rawHTML, p.strip, p.maxLength), p.stopWords)
}
