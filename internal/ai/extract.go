package ai

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned when a completion contains no JSON value.
var ErrNoJSON = errors.New("no JSON found in completion")

// ExtractJSON pulls the first balanced JSON object or array out of LLM
// prose. Models wrap structured answers in explanation text or markdown
// fences despite instructions not to, so handlers run completions through
// this before unmarshalling.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", ErrNoJSON
	}

	openCh := text[start]
	closeCh := byte('}')
	if openCh == '[' {
		closeCh = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}
