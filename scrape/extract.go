package scrape

import (
	"bankops/bank"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// page data extractors. several institutions only expose the CSRF token or document
// key inline in free-form HTML/JS, so the pipeline never touches raw markup: adapters
// declare a pattern here and get a decoded value back.

// Pattern matches one embedded value in a page. the expression must have exactly one
// capture group for the value.
type Pattern struct {
	Name   string
	Regexp *regexp.Regexp
	// UnicodeEscaped marks values the page emits with \uXXXX escapes that must be
	// unescaped before use.
	UnicodeEscaped bool
}

func MakePattern(name string, expr string) Pattern {
	return Pattern{Name: name, Regexp: regexp.MustCompile(expr)}
}

func (p Pattern) Extract(page string) (string, error) {
	match := p.Regexp.FindStringSubmatch(page)
	if len(match) < 2 {
		return "", &bank.MalformedResponseError{Field: p.Name, Detail: "value not found in page"}
	}
	value := match[1]
	if p.UnicodeEscaped {
		decoded, err := UnescapeUnicode(value)
		if err != nil {
			return "", fmt.Errorf("unescape %s: %w", p.Name, err)
		}
		value = decoded
	}
	return value, nil
}

var unicodeEscape = regexp.MustCompile(`\\u[0-9a-fA-F]{4}`)

// UnescapeUnicode decodes \uXXXX escape sequences embedded in scraped script text.
func UnescapeUnicode(s string) (string, error) {
	var firstErr error
	decoded := unicodeEscape.ReplaceAllStringFunc(s, func(escape string) string {
		code, err := strconv.ParseUint(escape[2:], 16, 32)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("parse escape %q: %w", escape, err)
			}
			return escape
		}
		return string(rune(code))
	})
	return decoded, firstErr
}

// EmbeddedJSON pulls a JSON blob assigned to a variable in a script tag, e.g.
// `window.__DATA__ = {...};`. it returns the raw JSON text balanced from the opening
// brace, leaving decoding to the caller.
func EmbeddedJSON(page string, variable string) (string, error) {
	idx := strings.Index(page, variable)
	if idx < 0 {
		return "", &bank.MalformedResponseError{Field: variable, Detail: "embedded json not found in page"}
	}
	rest := page[idx+len(variable):]

	assign := strings.Index(rest, "=")
	if assign < 0 || strings.TrimSpace(rest[:assign]) != "" {
		return "", &bank.MalformedResponseError{Field: variable, Detail: "variable is not an assignment"}
	}
	return balancedJSON(rest[assign+1:], variable)
}

func balancedJSON(text string, variable string) (string, error) {
	start := strings.IndexAny(text, "{[")
	if start < 0 || strings.TrimSpace(text[:start]) != "" {
		return "", &bank.MalformedResponseError{Field: variable, Detail: "embedded value is not a json object"}
	}
	text = text[start:]

	depth := 0
	inString := false
	escaped := false
	for i, r := range text {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
			}
		case '}', ']':
			if !inString {
				depth--
				if depth == 0 {
					return text[:i+1], nil
				}
			}
		}
	}
	return "", &bank.MalformedResponseError{Field: variable, Detail: "embedded json is unbalanced"}
}
