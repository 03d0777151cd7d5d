package nlp

import (
	"sort"
	"strings"
)

// TodayText is the date anchor used when the text names no date.
const TodayText = "hôm nay"

var periodMatcher = newMatcher("period", `\b(sáng|trưa|chiều|tối|đêm)\b`)

var allDayMatcher = newTolerantMatcher("all_day", `\bcả\s+ngày\b`)

const (
	weekdayWord = `(?:thứ\s*(?:[2-7]|hai|ba|tư|năm|sáu|bảy)|chủ\s+nhật|cn|t[2-7])`
	weekWord    = `tuần\s+(?:sau|tới|này)`
)

// anchorMatchers is evaluated in order; the first hit is the date anchor.
var anchorMatchers = []matcher{
	newTolerantMatcher("day_month_words", `\bngày\s+(\d{1,2})\s+tháng\s+(\d{1,2})(?:\s+năm\s+(\d{4}|\d{2}))?\b`),
	newMatcher("numeric", `\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{4}|\d{2}))?\b`),
	newTolerantMatcher("weekday_week", `\b`+weekdayWord+`\s+`+weekWord+`\b`),
	newTolerantMatcher("weekday", `\b`+weekdayWord+`\b`),
	withFolded("relative",
		`\b(?:hôm\s+nay|bữa\s+nay|ngày\s+mai|ngày\s+kia|ngày\s+mốt|mai|mốt)\b`,
		`\b(?:hom\s+nay|bua\s+nay|ngay\s+mai|ngay\s+kia|ngay\s+mot)\b`),
	newTolerantMatcher("week", `\b`+weekWord+`\b`),
}

// clock is one clock pattern and the canonical literal it produces.
type clock struct {
	matcher
	format func(sp span) string
}

var clockMatchers = []clock{
	{newMatcher("colon", `\b(\d{1,2}):(\d{2})\b`), func(sp span) string {
		return sp.group(1) + ":" + sp.group(2)
	}},
	{newMatcher("h", `\b(\d{1,2})h(\d{0,2})\b(?!\s*trước)`), func(sp span) string {
		return sp.group(1) + "h" + sp.group(2)
	}},
	{newMatcher("gio", `\b(\d{1,2})\s*giờ(?:\s*(\d{1,2})(?![:/-]\d)(?:\s*phút)?)?\b(?!\s*trước)`), func(sp span) string {
		return sp.group(1) + "giờ" + sp.group(2)
	}},
	{newMatcher("g", `\b(\d{1,2})g(\d{0,2})\b`), func(sp span) string {
		return sp.group(1) + "g" + sp.group(2)
	}},
	{newMatcher("luc", `\blúc\s+(\d{1,2})\b(?![:/-]\d|\s*giờ)`), func(sp span) string {
		return sp.group(1) + ":00"
	}},
}

const clockShape = `\d{1,2}(?::\d{2}|[hg]\d{0,2}|\s*giờ(?:\s*\d{1,2}(?:\s*phút)?)?)?`

var rangeMatcher = newTolerantMatcher("range", `\btừ\s+(`+clockShape+`)\s+(?:đến|tới|-)\s+(`+clockShape+`)\b(?![:/-]\d)`)

// ExtractTimeExpression scans text for a day period, an all-day marker, a
// date anchor and up to two clock expressions. It never fails.
func ExtractTimeExpression(text string) TimeExpression {
	d := newDoc(text)
	var te TimeExpression

	if sp, ok := periodMatcher.find(d); ok {
		te.HasTimePeriod = true
		te.TimePeriod = periodOf(sp.group(1))
		te.addRaw(sp.text)
	}

	if sp, ok := allDayMatcher.find(d); ok {
		te.AllDay = true
		te.addRaw(sp.text)
	}

	te.DateText = TodayText
	for _, m := range anchorMatchers {
		sp, ok := m.find(d)
		if !ok {
			continue
		}
		te.DateText = sp.text
		if m.name == "day_month_words" {
			te.DateText = sp.group(1) + "/" + sp.group(2)
			if y := sp.group(3); y != "" {
				te.DateText += "/" + y
			}
		}
		te.addRaw(sp.text)
		break
	}

	clocks := collectClocks(d)
	for i, c := range clocks {
		te.addRaw(c.text)
		v := c.value
		switch i {
		case 0:
			te.TimeStart = &v
		case 1:
			te.TimeEnd = &v
		}
	}

	if sp, ok := rangeMatcher.find(d); ok {
		start := strings.TrimSpace(sp.group(1))
		end := strings.TrimSpace(sp.group(2))
		te.TimeStart = &start
		te.TimeEnd = &end
		te.addRaw(sp.text)
	}

	if te.TimeStart == nil && te.TimeEnd != nil {
		te.TimeStart, te.TimeEnd = te.TimeEnd, nil
	}
	return te
}

type clockHit struct {
	span
	value string
}

// collectClocks returns every clock hit in position order, without
// overlapping spans or repeated values.
func collectClocks(d doc) []clockHit {
	var hits []clockHit
	for _, c := range clockMatchers {
		for _, sp := range c.findAll(d) {
			hits = append(hits, clockHit{span: sp, value: c.format(sp)})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	var kept []clockHit
	seen := make(map[string]bool)
	for _, h := range hits {
		if seen[h.value] {
			continue
		}
		overlap := false
		for _, k := range kept {
			if h.overlaps(k.span) {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		seen[h.value] = true
		kept = append(kept, h)
	}
	return kept
}

func periodOf(word string) Period {
	switch strings.ToLower(word) {
	case "sáng":
		return PeriodMorning
	case "trưa":
		return PeriodNoon
	case "chiều":
		return PeriodAfternoon
	case "tối":
		return PeriodEvening
	case "đêm":
		return PeriodNight
	}
	return PeriodNone
}
