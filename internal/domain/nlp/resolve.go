package nlp

import (
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

const (
	defaultHour       = 9
	defaultPeriodHour = 19
	// maxYearSearch bounds the lookup for the next valid occurrence of a
	// yearless date; 29/2 needs at most eight years.
	maxYearSearch = 8
)

var relativeDays = map[string]int{
	"hom nay":  0,
	"bua nay":  0,
	"mai":      1,
	"ngay mai": 1,
	"ngay kia": 2,
	"ngay mot": 2,
	"mot":      2,
}

var weekdayTargets = map[string]time.Weekday{
	"2": time.Monday, "hai": time.Monday,
	"3": time.Tuesday, "ba": time.Tuesday,
	"4": time.Wednesday, "tu": time.Wednesday,
	"5": time.Thursday, "nam": time.Thursday,
	"6": time.Friday, "sau": time.Friday,
	"7": time.Saturday, "bay": time.Saturday,
}

// Anchor classifiers run on the folded, lowercased date text.
var (
	weekdayAnchor = rx(`^(?:thu\s*([2-7]|hai|ba|tu|nam|sau|bay)|(chu\s+nhat|cn)|t([2-7]))(?:\s+tuan\s+(sau|toi|nay))?$`)
	weekAnchor    = rx(`^tuan\s+(sau|toi|nay)$`)
	numericAnchor = rx(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d+))?$`)
)

// Clock parsers, tried in order.
var clockParsers = []*regexp2.Regexp{
	rx(`^(\d{1,2}):(\d{2})$`),
	rx(`^(\d{1,2})h(\d{0,2})$`),
	rx(`^(\d{1,2})\s*giờ\s*(\d{0,2})(?:\s*phút)?$`),
	rx(`^(\d{1,2})g(\d{0,2})$`),
	rx(`^(\d{1,2})$`),
}

// Resolve turns a time expression into absolute start and end times
// relative to now. Dates are built in now's location.
func Resolve(te TimeExpression, now time.Time) (time.Time, *time.Time, error) {
	anchor, err := resolveAnchor(te.DateText, now)
	if err != nil {
		return time.Time{}, nil, err
	}

	if te.AllDay {
		start := atClock(anchor, 0, 0, 0)
		end := atClock(anchor, 23, 59, 59)
		return start, &end, nil
	}

	period := PeriodNone
	if te.HasTimePeriod {
		period = te.TimePeriod
	}

	h, m := defaultHour, 0
	if period != PeriodNone {
		h = defaultPeriodHour
	}
	if te.TimeStart != nil {
		if ph, pm, ok := parseClock(*te.TimeStart); ok {
			h, m = applyPeriod(ph, period), pm
		}
	}
	start := atClock(anchor, h, m, 0)
	if start.Before(now) && sameDate(start, now) {
		start = start.AddDate(0, 0, 1)
	}

	if te.TimeEnd == nil {
		return start, nil, nil
	}
	eh, em, ok := parseClock(*te.TimeEnd)
	if !ok {
		return start, nil, nil
	}
	end := atClock(anchor, applyPeriod(eh, period), em, 0)
	for !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	if end.Before(now) {
		end = end.AddDate(0, 0, 1)
	}
	return start, &end, nil
}

// resolveAnchor maps a date literal to midnight of the day it names.
func resolveAnchor(dateText string, now time.Time) (time.Time, error) {
	today := atClock(now, 0, 0, 0)
	key := strings.ToLower(collapseSpaces(Fold(dateText)))
	if key == "" {
		return today, nil
	}

	if n, ok := relativeDays[key]; ok {
		return today.AddDate(0, 0, n), nil
	}

	if m, _ := weekdayAnchor.FindStringMatch(key); m != nil {
		g := m.Groups()
		target := time.Sunday
		switch {
		case g[1].Length > 0:
			target = weekdayTargets[g[1].String()]
		case g[3].Length > 0:
			target = weekdayTargets[g[3].String()]
		}
		days := (int(target) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		if mod := g[4].String(); (mod == "sau" || mod == "toi") && days < 7 {
			days += 7
		}
		return today.AddDate(0, 0, days), nil
	}

	if m, _ := weekAnchor.FindStringMatch(key); m != nil {
		if m.Groups()[1].String() == "nay" {
			return today, nil
		}
		return today.AddDate(0, 0, 7), nil
	}

	if m, _ := numericAnchor.FindStringMatch(key); m != nil {
		g := m.Groups()
		return resolveNumericDate(dateText, g[1].String(), g[2].String(), g[3].String(), today)
	}

	return time.Time{}, &DateError{Literal: dateText, Reason: "unrecognized date"}
}

func resolveNumericDate(literal, dd, mm, yy string, today time.Time) (time.Time, error) {
	day, _ := strconv.Atoi(dd)
	month, _ := strconv.Atoi(mm)

	if yy != "" {
		year, err := strconv.Atoi(yy)
		if err != nil {
			return time.Time{}, &DateError{Literal: literal, Reason: "bad year"}
		}
		switch len(yy) {
		case 2:
			year += 2000
		case 4:
		default:
			return time.Time{}, &DateError{Literal: literal, Reason: "bad year"}
		}
		if !validDate(year, month, day) {
			return time.Time{}, &DateError{Literal: literal, Reason: "day or month out of range"}
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location()), nil
	}

	// 2000 is a leap year, so anything invalid there is invalid every year.
	if !validDate(2000, month, day) {
		return time.Time{}, &DateError{Literal: literal, Reason: "day or month out of range"}
	}
	for year := today.Year(); year <= today.Year()+maxYearSearch; year++ {
		if !validDate(year, month, day) {
			continue
		}
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
		if !d.Before(today) {
			return d, nil
		}
	}
	return time.Time{}, &DateError{Literal: literal, Reason: "no upcoming occurrence"}
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Day() == day && int(d.Month()) == month
}

// parseClock reads hour and minute from a clock literal. Out-of-range
// values count as unparsed.
func parseClock(s string) (int, int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, re := range clockParsers {
		m, _ := re.FindStringMatch(s)
		if m == nil {
			continue
		}
		g := m.Groups()
		h, err := strconv.Atoi(g[1].String())
		if err != nil {
			continue
		}
		mins := 0
		if len(g) > 2 && g[2].Length > 0 {
			if mins, err = strconv.Atoi(g[2].String()); err != nil {
				continue
			}
		}
		if h > 23 || mins > 59 {
			return 0, 0, false
		}
		return h, mins, true
	}
	return 0, 0, false
}

// applyPeriod converts a 12-hour reading into 24-hour form.
func applyPeriod(h int, p Period) int {
	switch p {
	case PeriodAfternoon, PeriodEvening, PeriodNight:
		if h < 12 {
			return h + 12
		}
	case PeriodMorning:
		if h == 12 {
			return 0
		}
	}
	return h
}

func atClock(t time.Time, h, m, s int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), h, m, s, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
