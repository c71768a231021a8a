package jsonutils

import (
	"regexp"
	"strings"
)

// ExtractJSON tries to extract a JSON block from LLM output.
//
// Priority:
// 1. Triple-backtick fenced ```json ... ```
// 2. Any {...} JSON object
//
// It also sanitizes common LLM formatting issues like stray trailing
// commas and invisible Unicode characters, so the summarizer can decode
// the model's answer even when the model wraps it in prose.
func ExtractJSON(input string) string {
	// Remove BOMs and invisible control characters
	input = strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '\uFEFF', '\u200B', '\u200C', '\u200D':
			return -1 // skip
		}
		return r
	}, input))

	// Case 1: fenced block
	reFence := regexp.MustCompile("(?s)```json(.*?)```")
	if match := reFence.FindStringSubmatch(input); len(match) > 1 {
		input = strings.TrimSpace(match[1])
	} else {
		// Case 2: raw object (greedy match from first { to last })
		reObj := regexp.MustCompile(`(?s)\{.*\}`)
		if match := reObj.FindString(input); match != "" {
			input = strings.TrimSpace(match)
		}
	}

	// Remove any trailing commas before closing braces/brackets
	reTrailingComma := regexp.MustCompile(`,(\s*[}\]])`)
	input = reTrailingComma.ReplaceAllString(input, "$1")

	return strings.TrimSpace(input)
}
