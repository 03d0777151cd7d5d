package nlp

import (
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizedText is the output of the normalization stage.
type NormalizedText struct {
	Raw        string
	Normalized string
	Folded     string
}

type abbreviation struct {
	re   *regexp2.Regexp
	full string
}

func abbr(pattern, full string) abbreviation {
	return abbreviation{re: rx(pattern), full: full}
}

// abbreviations is applied in order; multi-word entries come before the
// single words they contain.
var abbreviations = []abbreviation{
	abbr(`\bca\s+ngay\b`, "cả ngày"),
	abbr(`\bngay\s+mai\b`, "ngày mai"),
	abbr(`\bhom\s+nay\b`, "hôm nay"),
	abbr(`\btuan\s+sau\b`, "tuần sau"),
	abbr(`\btuan\s+toi\b`, "tuần tới"),
	abbr(`\bo\b`, "ở"),
	abbr(`\bphong\b`, "phòng"),
	abbr(`\bph\b`, "phòng"),
	abbr(`\bhop\b`, "họp"),
	abbr(`\bgap\b`, "gặp"),
	abbr(`\bnhom\b`, "nhóm"),
	abbr(`\bluc\b`, "lúc"),
	abbr(`\blk\b`, "lúc"),
	abbr(`\bhn\b`, "hà nội"),
	abbr(`\btp\b`, "thành phố"),
	abbr(`\bg\b`, "giờ"),
	abbr(`\bgio\b`, "giờ"),
	abbr(`\bh\b`, "giờ"),
	abbr(`\bpt\b`, "phút"),
	abbr(`\bphut\b`, "phút"),
	abbr(`\bnhac\b`, "nhắc"),
	abbr(`\btruoc\b`, "trước"),
	abbr(`\btieng\b`, "tiếng"),
	// "toi" after a reminder verb or a preposition is the pronoun "tôi".
	abbr(`(?<!\b(?:nhắc|báo|bao|với|voi|cho)\s)\btoi\b`, "tối"),
	abbr(`\btrua\b`, "trưa"),
	abbr(`\bchieu\b`, "chiều"),
}

// Normalize lowercases, collapses whitespace, expands abbreviations and
// derives the folded variant. Empty input yields empty fields.
func Normalize(s string) NormalizedText {
	raw := strings.TrimSpace(norm.NFC.String(s))
	if raw == "" {
		return NormalizedText{}
	}
	normalized := collapseSpaces(strings.ToLower(raw))
	normalized = expandAbbreviations(normalized)
	return NormalizedText{
		Raw:        raw,
		Normalized: normalized,
		Folded:     Fold(normalized),
	}
}

func expandAbbreviations(s string) string {
	out := s
	for _, a := range abbreviations {
		replaced, err := a.re.Replace(out, a.full, -1, -1)
		if err != nil {
			continue
		}
		out = replaced
	}
	return out
}

// Fold strips diacritics: canonical decomposition, removal of combining
// marks, recomposition, and đ→d which has no decomposition.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case 'đ':
			return 'd'
		case 'Đ':
			return 'D'
		}
		return r
	}, out)
}
