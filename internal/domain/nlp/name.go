package nlp

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopWords = rx(`\b(?:thời\s+gian|hôm\s+nay|hom\s+nay|ngày\s+mai|ngay\s+mai|cả\s+ngày|ca\s+ngay|` +
	`vào|lúc|từ|đến|tới|ngày|khoảng|này|nay|kia|sáng|sang|chiều|chieu|tối|toi|trưa|trua|đêm|dem|hôm|hom|mai)\b`)

const nameTrim = ".,!?;:-–— "

// ExtractEventName removes the raw temporal literals and stop words from
// text and returns what is left as a title, or DefaultEventName.
func ExtractEventName(text string, raw []string) string {
	literals := append([]string(nil), raw...)
	sort.SliceStable(literals, func(i, j int) bool {
		return utf8.RuneCountInString(literals[i]) > utf8.RuneCountInString(literals[j])
	})

	s := text
	for _, lit := range literals {
		s = removeWord(s, lit)
	}
	if out, err := stopWords.Replace(s, " ", -1, -1); err == nil {
		s = out
	}

	var tokens []string
	for _, tok := range strings.Fields(s) {
		if !isPunctuation(tok) {
			tokens = append(tokens, tok)
		}
	}
	name := strings.Trim(strings.Join(tokens, " "), nameTrim)
	if name == "" {
		return DefaultEventName
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

// removeWord blanks every occurrence of lit in s that is not glued to a
// neighbouring letter, digit or mark.
func removeWord(s, lit string) string {
	lit = strings.TrimSpace(lit)
	if lit == "" {
		return s
	}
	var b strings.Builder
	rest := s
	for {
		i := strings.Index(rest, lit)
		if i < 0 {
			b.WriteString(rest)
			break
		}
		j := i + len(lit)
		before, _ := utf8.DecodeLastRuneInString(rest[:i])
		after, _ := utf8.DecodeRuneInString(rest[j:])
		if (i > 0 && isWordRune(before)) || (j < len(rest) && isWordRune(after)) {
			b.WriteString(rest[:j])
		} else {
			b.WriteString(rest[:i])
			b.WriteString(" ")
		}
		rest = rest[j:]
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isPunctuation(tok string) bool {
	for _, r := range tok {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}
