package nlp

import (
	"strconv"
	"strings"
)

const (
	reminderVerb    = `(?:nhắc|báo)`
	reminderPronoun = `(?:\s+(?:tôi|tui|mình|em|anh|chị|toi|minh|chi))?`
	hourUnit        = `(tiếng|giờ|h)`
	minuteUnit      = `(phút)`
)

// reminderMatchers is ordered: hour phrasings win over minute phrasings, and
// verb-led phrasings win over bare ones. Group 1 is the quantity, group 2
// the unit.
var reminderMatchers = []matcher{
	newTolerantMatcher("verb_before_hours", `\b`+reminderVerb+reminderPronoun+`\s+trước\s+(\d+)\s*`+hourUnit+`\b`),
	newTolerantMatcher("verb_hours_before", `\b`+reminderVerb+reminderPronoun+`\s+(\d+)\s*`+hourUnit+`\s+trước\b`),
	newTolerantMatcher("before_hours", `\btrước\s+(\d+)\s*`+hourUnit+`\b`),
	newTolerantMatcher("hours_before", `\b(\d+)\s*`+hourUnit+`\s+trước\b`),
	newTolerantMatcher("verb_before_minutes", `\b`+reminderVerb+reminderPronoun+`\s+trước\s+(\d+)\s*`+minuteUnit+`\b`),
	newTolerantMatcher("verb_minutes_before", `\b`+reminderVerb+reminderPronoun+`\s+(\d+)\s*`+minuteUnit+`\s+trước\b`),
	newTolerantMatcher("before_minutes", `\btrước\s+(\d+)\s*`+minuteUnit+`\b`),
	newTolerantMatcher("minutes_before", `\b(\d+)\s*`+minuteUnit+`\s+trước\b`),
}

var (
	reminderVocabulary = newTolerantMatcher("verb", `\b`+reminderVerb+`\b`)
	reminderPrefix     = rx(`^\s*` + reminderVerb + `\s+(?:tôi|tui|mình|em|anh|chị|toi|minh|chi)\s+`)
)

// ExtractReminder finds an explicit "remind N minutes/hours before" phrase
// and removes it from the text. A reminder verb without a quantity yields
// nil minutes; choosing a default is left to the caller.
func ExtractReminder(text string) ReminderResult {
	d := newDoc(text)
	for _, m := range reminderMatchers {
		sp, ok := m.find(d)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(sp.group(1))
		if err != nil {
			continue
		}
		if isHourUnit(sp.group(2)) {
			n *= 60
		}
		return ReminderResult{Minutes: &n, Remaining: d.cut(sp).text}
	}

	if _, ok := reminderVocabulary.find(d); ok {
		stripped, err := reminderPrefix.Replace(d.text, "", -1, 1)
		if err != nil {
			stripped = d.text
		}
		return ReminderResult{Remaining: collapseSpaces(stripped)}
	}
	return ReminderResult{Remaining: text}
}

func isHourUnit(unit string) bool {
	switch strings.ToLower(Fold(unit)) {
	case "tieng", "gio", "h":
		return true
	}
	return false
}
