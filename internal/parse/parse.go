// Package parse turns raw vision-model output into clean tag lists.
//
// Model responses are unreliable: tags arrive behind chain-of-thought
// narration, in mixed scripts, with half-width and full-width separators,
// or as one unbroken sentence. Everything here is best-effort cleanup,
// not exact recovery.
package parse

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxTagLen is the per-tag length ceiling. Anything longer is assumed
// to be a leaked sentence fragment, not a tag.
const maxTagLen = 100

// separators in priority order: the first one present in the text wins
var separators = []string{",", "，", "、", ";", "；"}

// reasoningPhrases mark chain-of-thought narration leaking into the
// response. Matched case-insensitively as substrings.
var reasoningPhrases = []string{
	"okay,", "let's", "let me", "first,", "i need", "i think",
	"the user", "looking at", "appears to be", "seems to",
	"probably", "maybe", "might be", "could be",
}

// Tags extracts at most expected tags from a raw model response.
// Tags are trimmed, NFC-normalized, deduplicated by first occurrence
// and capped at the length ceiling. An empty or hopeless input yields
// an empty slice, never an error.
func Tags(raw string, expected int) []string {
	if expected <= 0 {
		return nil
	}

	text := stripWrapping(raw)
	if text == "" {
		return nil
	}

	if hasReasoning(text) {
		if recovered := recoverTagLine(text); recovered != "" {
			text = recovered
		}
	}

	tokens := split(text)

	seen := make(map[string]bool, len(tokens))
	var tags []string
	for _, tok := range tokens {
		tag := norm.NFC.String(strings.TrimSpace(tok))
		if tag == "" || utf8.RuneCountInString(tag) > maxTagLen {
			continue
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == expected {
			break
		}
	}

	return tags
}

// stripWrapping removes surrounding quotes and code fences
func stripWrapping(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		s = strings.TrimSpace(s[3 : len(s)-3])
		// Drop a leading fence language marker if present
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], ", ") {
			s = strings.TrimSpace(s[i+1:])
		}
	}
	return strings.TrimSpace(s)
}

// hasReasoning reports whether the text contains chain-of-thought markers
func hasReasoning(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range reasoningPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// recoverTagLine tries to dig the actual tag list out of a response
// contaminated with reasoning. Returns "" when nothing usable is found.
func recoverTagLine(text string) string {
	// Models narrate first and emit the tag list last, so scan lines
	// in reverse for one that looks like a separator-joined list.
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || hasReasoning(line) {
			continue
		}
		if countSeparators(line) >= 2 {
			return line
		}
	}

	// An explicit "tags:" label also marks the list
	lower := strings.ToLower(text)
	if i := strings.LastIndex(lower, "tags:"); i >= 0 {
		rest := text[i+len("tags:"):]
		if j := strings.IndexByte(rest, '\n'); j >= 0 {
			rest = rest[:j]
		}
		if rest = strings.TrimSpace(rest); rest != "" {
			return rest
		}
	}

	// Last resort: quoted fragments are likely the tags themselves
	if quoted := extractQuoted(text); len(quoted) > 0 {
		return strings.Join(quoted, ",")
	}

	return ""
}

func countSeparators(s string) int {
	n := 0
	for _, sep := range separators {
		n += strings.Count(s, sep)
	}
	return n
}

// extractQuoted returns the contents of double-quoted substrings
func extractQuoted(s string) []string {
	s = strings.NewReplacer("“", `"`, "”", `"`).Replace(s)
	parts := strings.Split(s, `"`)

	var out []string
	// Odd-indexed parts sit between quote pairs
	for i := 1; i < len(parts); i += 2 {
		if frag := strings.TrimSpace(parts[i]); frag != "" {
			out = append(out, frag)
		}
	}
	return out
}

// split breaks the text on the first separator present, falling back to
// whitespace, falling back to the whole string as a single tag
func split(text string) []string {
	for _, sep := range separators {
		if strings.Contains(text, sep) {
			return strings.Split(text, sep)
		}
	}
	if fields := strings.Fields(text); len(fields) > 1 {
		return fields
	}
	return []string{text}
}
