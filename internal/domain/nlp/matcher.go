package nlp

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// span is one match of a matcher over a document, in rune offsets.
type span struct {
	name   string
	start  int
	end    int
	text   string
	groups []string
}

// group returns submatch i, or "" when the group did not participate.
func (s span) group(i int) string {
	if i <= 0 || i > len(s.groups) {
		return ""
	}
	return s.groups[i-1]
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// matcher is one entry of an ordered pattern table. The accented pattern runs
// against the normalized text; the optional folded twin runs against the
// diacritic-free variant and is only consulted when the accented one misses.
type matcher struct {
	name   string
	re     *regexp2.Regexp
	folded *regexp2.Regexp
}

func rx(pattern string) *regexp2.Regexp {
	return regexp2.MustCompile(pattern, regexp2.IgnoreCase)
}

// newMatcher builds a matcher without a folded twin.
func newMatcher(name, pattern string) matcher {
	return matcher{name: name, re: rx(pattern)}
}

// newTolerantMatcher builds a matcher whose folded twin is the pattern with
// its own diacritics stripped.
func newTolerantMatcher(name, pattern string) matcher {
	return matcher{name: name, re: rx(pattern), folded: rx(Fold(pattern))}
}

// withFolded builds a matcher with an explicit folded twin, for tables where
// blind folding would create ambiguous words.
func withFolded(name, pattern, folded string) matcher {
	return matcher{name: name, re: rx(pattern), folded: rx(folded)}
}

// doc pairs a text with its folded variant. Both have the same rune count
// whenever aligned is true, so a span found on one can be cut from the other.
type doc struct {
	text    string
	folded  string
	aligned bool
}

func newDoc(text string) doc {
	folded := Fold(text)
	return doc{
		text:    text,
		folded:  folded,
		aligned: utf8.RuneCountInString(text) == utf8.RuneCountInString(folded),
	}
}

// cut removes the span from the document and tidies whitespace.
func (d doc) cut(s span) doc {
	r := []rune(d.text)
	if s.start < 0 || s.end > len(r) || s.start >= s.end {
		return d
	}
	out := string(r[:s.start]) + " " + string(r[s.end:])
	return newDoc(collapseSpaces(out))
}

// find returns the first match of m in d.
func (m matcher) find(d doc) (span, bool) {
	if sp, ok := firstMatch(m.name, m.re, d.text, d.text); ok {
		return sp, true
	}
	if m.folded != nil && d.aligned {
		return firstMatch(m.name, m.folded, d.folded, d.text)
	}
	return span{}, false
}

// findAll returns every non-overlapping match of m in d. Folded matches are
// added when they do not overlap an accented one.
func (m matcher) findAll(d doc) []span {
	out := allMatches(m.name, m.re, d.text, d.text)
	if m.folded == nil || !d.aligned {
		return out
	}
	for _, sp := range allMatches(m.name, m.folded, d.folded, d.text) {
		if !overlapsAny(sp, out) {
			out = append(out, sp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// firstMatch runs re over haystack and reads the matched runes back from
// source, which must be rune-aligned with haystack.
func firstMatch(name string, re *regexp2.Regexp, haystack, source string) (span, bool) {
	m, err := re.FindStringMatch(haystack)
	if err != nil || m == nil {
		return span{}, false
	}
	return toSpan(name, m, []rune(source)), true
}

func allMatches(name string, re *regexp2.Regexp, haystack, source string) []span {
	var out []span
	src := []rune(source)
	m, err := re.FindStringMatch(haystack)
	for err == nil && m != nil {
		out = append(out, toSpan(name, m, src))
		m, err = re.FindNextMatch(m)
	}
	return out
}

func toSpan(name string, m *regexp2.Match, src []rune) span {
	sp := span{
		name:  name,
		start: m.Index,
		end:   m.Index + m.Length,
		text:  string(src[m.Index : m.Index+m.Length]),
	}
	groups := m.Groups()
	for _, g := range groups[1:] {
		if len(g.Captures) == 0 {
			sp.groups = append(sp.groups, "")
			continue
		}
		sp.groups = append(sp.groups, string(src[g.Index:g.Index+g.Length]))
	}
	return sp
}

func overlapsAny(s span, others []span) bool {
	for _, o := range others {
		if s.overlaps(o) {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
