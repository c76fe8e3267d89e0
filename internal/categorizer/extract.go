package categorizer

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"survey-categorizer/internal/models"
)

var (
	thinkRe  = regexp.MustCompile(models.ThinkTag)
	markdown = goldmark.New()
)

// ExtractJSON pulls the JSON array out of a model response. In order it tries a fenced
// code block (```json or bare ```) holding an array, the first balanced [...] span in the
// text, the span from the first '[' to the last ']', and finally the whole text. Think blocks
// are removed first in every case.
func ExtractJSON(response string) string {
	cleaned := strings.TrimSpace(thinkRe.ReplaceAllString(response, ""))

	if block, ok := fencedArray(cleaned); ok {
		return block
	}
	if span, ok := balancedArray(cleaned); ok {
		return span
	}
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start >= 0 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}

// fencedArray returns the body of the first json or untagged fenced code block that is an array.
func fencedArray(s string) (string, bool) {
	if !strings.Contains(s, "```") {
		return "", false
	}
	src := []byte(s)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var found string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if lang := string(block.Language(src)); lang != "" && !strings.EqualFold(lang, "json") {
			return ast.WalkSkipChildren, nil
		}
		var buf bytes.Buffer
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		body := strings.TrimSpace(buf.String())
		if strings.HasPrefix(body, "[") && strings.HasSuffix(body, "]") {
			found = body
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})
	return found, found != ""
}

// balancedArray finds the first top-level [...] span, ignoring brackets inside JSON strings.
func balancedArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
