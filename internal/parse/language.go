package parse

import (
	"regexp"
	"strings"
)

// Canonical extracts a single canonical comma-joined tag string from a
// raw model response, trying script-aware parsers ordered by the
// configured language first. Vision models frequently answer in the
// wrong language or mix scripts, so no single pattern can be trusted;
// the first parser producing a non-empty result wins. Returns "" when
// nothing can be recovered.
func Canonical(raw, language string) string {
	text := stripWrapping(raw)
	if text == "" {
		return ""
	}

	for _, p := range parserOrder(language) {
		if result := p(text); result != "" {
			return result
		}
	}
	return ""
}

type languageParser func(string) string

func parserOrder(language string) []languageParser {
	switch language {
	case "zh":
		return []languageParser{parseCJK(hanListRe, hanWordRe), parseLatin(latinWordRe), parseCJK(kanaListRe, kanaWordRe), parseCJK(hangulListRe, hangulWordRe), parseLatin(extLatinWordRe)}
	case "en":
		return []languageParser{parseLatin(latinWordRe), parseCJK(hanListRe, hanWordRe), parseCJK(kanaListRe, kanaWordRe), parseCJK(hangulListRe, hangulWordRe), parseLatin(extLatinWordRe)}
	case "ja":
		return []languageParser{parseCJK(kanaListRe, kanaWordRe), parseCJK(hanListRe, hanWordRe), parseLatin(latinWordRe), parseCJK(hangulListRe, hangulWordRe), parseLatin(extLatinWordRe)}
	case "ko":
		return []languageParser{parseCJK(hangulListRe, hangulWordRe), parseCJK(hanListRe, hanWordRe), parseLatin(latinWordRe), parseCJK(kanaListRe, kanaWordRe), parseLatin(extLatinWordRe)}
	default:
		return []languageParser{parseLatin(extLatinWordRe), parseLatin(latinWordRe), parseCJK(hanListRe, hanWordRe), parseCJK(kanaListRe, kanaWordRe), parseCJK(hangulListRe, hangulWordRe)}
	}
}

// wordFallbackLimit caps how many bare word tokens the fallback path
// extracts when no enumerated list is found
const wordFallbackLimit = 8

var (
	// Runs of same-script text with enumeration-comma structure,
	// at least three items long
	hanListRe    = regexp.MustCompile(`\p{Han}+(?:[,，、]\s*\p{Han}+){2,}`)
	kanaListRe   = regexp.MustCompile(`[\p{Hiragana}\p{Katakana}\p{Han}ー]+(?:[,，、]\s*[\p{Hiragana}\p{Katakana}\p{Han}ー]+){2,}`)
	hangulListRe = regexp.MustCompile(`\p{Hangul}+(?:[,，、]\s*\p{Hangul}+){2,}`)

	// Bare same-script word tokens for the fallback path
	hanWordRe      = regexp.MustCompile(`\p{Han}{2,}`)
	kanaWordRe     = regexp.MustCompile(`[\p{Hiragana}\p{Katakana}\p{Han}ー]{2,}`)
	hangulWordRe   = regexp.MustCompile(`\p{Hangul}{2,}`)
	latinWordRe    = regexp.MustCompile(`[a-zA-Z]{3,}`)
	extLatinWordRe = regexp.MustCompile(`[a-zA-ZÀ-ÿ]{3,}`)
)

// parseCJK looks for an enumerated same-script tag list, preferring the
// last match (models narrate first, then list), else falls back to
// extracting bare word tokens.
func parseCJK(listRe, wordRe *regexp.Regexp) languageParser {
	return func(text string) string {
		if matches := listRe.FindAllString(text, -1); len(matches) > 0 {
			last := strings.TrimSpace(matches[len(matches)-1])
			for _, sep := range []string{",", "，", "、", ";", "；"} {
				if strings.Contains(last, sep) {
					var tags []string
					for _, t := range strings.Split(last, sep) {
						if t = strings.TrimSpace(t); t != "" {
							tags = append(tags, t)
						}
					}
					if len(tags) > 0 {
						return strings.Join(dedupe(tags, 0), ",")
					}
				}
			}
		}

		if words := wordRe.FindAllString(text, -1); len(words) > 0 {
			return strings.Join(dedupe(words, wordFallbackLimit), ",")
		}
		return ""
	}
}

// parseLatin prefers a comma-separated list of mostly-letter tags
// (multi-word tags like "search engine" allowed), else extracts bare
// word tokens.
func parseLatin(wordRe *regexp.Regexp) languageParser {
	return func(text string) string {
		if strings.Contains(text, ",") {
			var valid []string
			for _, t := range strings.Split(text, ",") {
				t = strings.TrimSpace(t)
				if isWordlike(t) {
					valid = append(valid, t)
				}
			}
			// A real tag list has at least three plausible entries
			if len(valid) >= 3 {
				return strings.Join(dedupe(valid, 0), ",")
			}
		}

		if words := wordRe.FindAllString(text, -1); len(words) > 0 {
			return strings.Join(dedupe(words, wordFallbackLimit), ",")
		}
		return ""
	}
}

// isWordlike reports whether a candidate tag is mainly letters and
// spaces once punctuation is stripped
func isWordlike(tag string) bool {
	var clean []rune
	for _, r := range tag {
		if isLetter(r) || r == ' ' {
			clean = append(clean, r)
		}
	}
	return len(strings.TrimSpace(string(clean))) >= 2
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= 'À' && r <= 'ÿ')
}

// dedupe removes duplicates preserving first occurrence; limit of 0
// means unlimited
func dedupe(items []string, limit int) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
