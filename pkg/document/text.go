package document

import (
	"encoding/xml"
	"errors"
	"regexp"
	"strings"

	"github.com/papercomputeco/keepsake/pkg/geometry"
	"github.com/papercomputeco/keepsake/pkg/scene"
)

// ContainsID reports whether an element with the given id is present in the
// serialized document.
func ContainsID(text, id string) bool {
	if id == "" {
		return false
	}
	return strings.Contains(text, `id="`+escapeAttr(id)+`"`)
}

// HasShape reports whether the document carries a shape entry for id.
func HasShape(text, id string) bool {
	if id == "" {
		return false
	}
	attr := `id="` + escapeAttr(id) + `"`
	for offset := 0; ; {
		i := strings.Index(text[offset:], attr)
		if i < 0 {
			return false
		}
		i += offset
		if i > 0 && isSpace(text[i-1]) && inShapeTag(text[:i]) {
			return true
		}
		offset = i + len(attr)
	}
}

// inShapeTag reports whether prefix ends inside an open <shape tag.
func inShapeTag(prefix string) bool {
	open := strings.LastIndexByte(prefix, '<')
	if open < 0 || strings.IndexByte(prefix[open:], '>') >= 0 {
		return false
	}
	tag := prefix[open:]
	return len(tag) > len("<shape") && strings.HasPrefix(tag, "<shape") && isSpace(tag[len("<shape")])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Rewrite renames one attribute on one tag, for extension-notation elements
// only.
type Rewrite struct {
	Tag  string
	From string
	To   string
}

// rewrites is the fixed table of attribute names that drift between
// notations.
var rewrites = []Rewrite{
	{Tag: "connection", From: "source", To: "sourceRef"},
	{Tag: "connection", From: "target", To: "targetRef"},
}

var typeAttr = regexp.MustCompile(`\btype="([^"]*)"`)

type rewriteMatcher struct {
	Rewrite
	tag, from, to *regexp.Regexp
}

var rewriteMatchers = func() []rewriteMatcher {
	out := make([]rewriteMatcher, 0, len(rewrites))
	for _, rw := range rewrites {
		out = append(out, rewriteMatcher{
			Rewrite: rw,
			tag:     regexp.MustCompile(`<` + regexp.QuoteMeta(rw.Tag) + `\b[^>]*>`),
			from:    regexp.MustCompile(`(\s)` + regexp.QuoteMeta(rw.From) + `="`),
			to:      regexp.MustCompile(`\s` + regexp.QuoteMeta(rw.To) + `="`),
		})
	}
	return out
}()

// Normalize applies the attribute rewrite table to every extension-notation
// element and returns the rewritten text and the number of attributes
// renamed. Primary-notation elements are left untouched, as is any element
// that already carries the target attribute name.
func Normalize(text string) (string, int) {
	count := 0
	for _, rw := range rewriteMatchers {
		text = rw.tag.ReplaceAllStringFunc(text, func(tag string) string {
			m := typeAttr.FindStringSubmatch(tag)
			if m == nil || !scene.IsExtension(m[1]) {
				return tag
			}
			if rw.to.MatchString(tag) || !rw.from.MatchString(tag) {
				return tag
			}
			count++
			return rw.from.ReplaceAllString(tag, "${1}"+rw.To+`="`)
		})
	}
	return text, count
}

// Placeholder is a minimal shape entry synthesized for a node the document is
// missing.
type Placeholder struct {
	ID     string
	Type   string
	Name   string
	Text   string
	Bounds geometry.Bounds
}

// InjectPlaceholders appends a shape entry for each placeholder whose id has
// no shape in text. Placeholders already present are skipped. It returns the
// new text and the ids actually injected.
func InjectPlaceholders(text string, placeholders []Placeholder) (string, []string, error) {
	closing := "</" + rootTag + ">"
	idx := strings.LastIndex(text, closing)
	if idx < 0 {
		return text, nil, errors.New("document has no closing root element")
	}

	var b strings.Builder
	var injected []string
	seen := make(map[string]bool)
	for _, p := range placeholders {
		if p.ID == "" || seen[p.ID] || HasShape(text, p.ID) {
			continue
		}
		seen[p.ID] = true

		bounds := p.Bounds.Sanitized()
		data, err := xml.Marshal(Shape{
			ID:          p.ID,
			Type:        p.Type,
			Name:        p.Name,
			Text:        p.Text,
			X:           bounds.X,
			Y:           bounds.Y,
			Width:       bounds.Width,
			Height:      bounds.Height,
			Placeholder: true,
		})
		if err != nil {
			return text, nil, err
		}
		b.WriteString("  ")
		b.Write(data)
		b.WriteString("\n")
		injected = append(injected, p.ID)
	}

	if len(injected) == 0 {
		return text, nil, nil
	}
	return text[:idx] + b.String() + text[idx:], injected, nil
}

func escapeAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
