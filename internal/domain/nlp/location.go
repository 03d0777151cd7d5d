package nlp

import (
	"strings"
	"unicode"
)

const (
	locationPreposition = `\b(?:tại|ở|chỗ|nơi)\s+`
	// locationBoundary lists what may legitimately follow a place phrase:
	// temporal connectives, clock-shaped tokens and numeric dates. A bare
	// number such as a room number never ends the phrase.
	locationBoundary = `(?:(?:lúc|vào|từ|đến|tới|nhắc|báo|ngày|mai|hôm|mốt|sáng|trưa|chiều|tối|đêm|cả\s+ngày|tuần|thứ|chủ\s+nhật|giờ)\b` +
		`|\d{1,2}(?::\d{2}|[hg]\d{0,2}\b|\s*giờ\b)` +
		`|\d{1,2}[/-]\d{1,2}\b)`
)

// locationMatchers has no folded twins: "o", "cho" and "noi" are common
// words once diacritics are gone.
var locationMatchers = []matcher{
	newMatcher("bounded", locationPreposition+`([^,.\n!?]+?)(?=\s*$|\s*[,.\n!?]|\s+`+locationBoundary+`)`),
	newMatcher("fallback", locationPreposition+`(.+?)(?=\s*$|\s+`+locationBoundary+`)`),
}

const locationTrim = " ,.;:!?-"

// ExtractLocation finds a place phrase introduced by a locative preposition
// and removes it, preposition included, from text. raw is the user's
// original input; when the phrase occurs there verbatim the raw casing is
// kept.
func ExtractLocation(text, raw string) LocationResult {
	d := newDoc(text)
	for _, m := range locationMatchers {
		sp, ok := m.find(d)
		if !ok {
			continue
		}
		loc := strings.Trim(sp.group(1), locationTrim)
		if loc == "" {
			continue
		}
		loc = recase(loc, raw)
		return LocationResult{Location: &loc, Remaining: d.cut(sp).text}
	}
	return LocationResult{Remaining: text}
}

// recase returns the occurrence of phrase in raw, compared rune by rune
// after lowercasing, or phrase itself when raw does not contain it.
func recase(phrase, raw string) string {
	src := []rune(collapseSpaces(raw))
	needle := []rune(strings.ToLower(phrase))
	if len(needle) == 0 || len(needle) > len(src) {
		return phrase
	}
	for i := 0; i+len(needle) <= len(src); i++ {
		match := true
		for j, r := range needle {
			if unicode.ToLower(src[i+j]) != r {
				match = false
				break
			}
		}
		if match {
			return string(src[i : i+len(needle)])
		}
	}
	return phrase
}
