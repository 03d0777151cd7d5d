package nlp_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/lichhen/internal/domain/nlp"
	. "github.com/smartystreets/goconvey/convey"
)

func strPtr(s string) *string { return &s }

func at(y int, m time.Month, d, h, mi, s int) time.Time {
	return time.Date(y, m, d, h, mi, s, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	// Wednesday.
	now := at(2025, time.January, 1, 10, 0, 0)

	Convey("Given a fixed now", t, func() {
		Convey("When resolving relative days", func() {
			cases := []struct {
				date  string
				clock *string
				want  time.Time
			}{
				{"hôm nay", strPtr("14h"), at(2025, time.January, 1, 14, 0, 0)},
				{"hôm nay", strPtr("9h"), at(2025, time.January, 2, 9, 0, 0)},
				{"ngày mai", strPtr("14h"), at(2025, time.January, 2, 14, 0, 0)},
				{"mai", nil, at(2025, time.January, 2, 9, 0, 0)},
				{"mốt", nil, at(2025, time.January, 3, 9, 0, 0)},
				{"ngày kia", strPtr("8:15"), at(2025, time.January, 3, 8, 15, 0)},
				{"bữa nay", strPtr("23:59"), at(2025, time.January, 1, 23, 59, 0)},
			}
			for _, c := range cases {
				start, end, err := nlp.Resolve(nlp.TimeExpression{DateText: c.date, TimeStart: c.clock}, now)
				So(err, ShouldBeNil)
				So(end, ShouldBeNil)
				So(start, ShouldEqual, c.want)
			}
		})

		Convey("When a day period is given without a clock", func() {
			start, _, err := nlp.Resolve(nlp.TimeExpression{
				DateText: nlp.TodayText, HasTimePeriod: true, TimePeriod: nlp.PeriodEvening,
			}, now)
			So(err, ShouldBeNil)
			So(start, ShouldEqual, at(2025, time.January, 1, 19, 0, 0))
		})

		Convey("When a day period remaps the hour", func() {
			cases := []struct {
				clock  string
				period nlp.Period
				hour   int
			}{
				{"3h", nlp.PeriodAfternoon, 15},
				{"7giờ", nlp.PeriodEvening, 19},
				{"11g", nlp.PeriodNight, 23},
				{"12h", nlp.PeriodMorning, 0},
				{"12h", nlp.PeriodNoon, 12},
				{"15h", nlp.PeriodAfternoon, 15},
				{"8h", nlp.PeriodMorning, 8},
			}
			for _, c := range cases {
				start, _, err := nlp.Resolve(nlp.TimeExpression{
					DateText: "ngày mai", TimeStart: strPtr(c.clock), HasTimePeriod: true, TimePeriod: c.period,
				}, now)
				So(err, ShouldBeNil)
				So(start.Hour(), ShouldEqual, c.hour)
				So(start.Day(), ShouldEqual, 2)
			}
		})

		Convey("When the clock is out of range", func() {
			start, _, err := nlp.Resolve(nlp.TimeExpression{DateText: "ngày mai", TimeStart: strPtr("25h")}, now)

			Convey("Then the default hour is used", func() {
				So(err, ShouldBeNil)
				So(start, ShouldEqual, at(2025, time.January, 2, 9, 0, 0))
			})
		})

		Convey("When the range crosses midnight", func() {
			start, end, err := nlp.Resolve(nlp.TimeExpression{
				DateText: "ngày mai", TimeStart: strPtr("22h"), TimeEnd: strPtr("1h"),
			}, now)

			Convey("Then the end moves to the next day", func() {
				So(err, ShouldBeNil)
				So(start, ShouldEqual, at(2025, time.January, 2, 22, 0, 0))
				So(*end, ShouldEqual, at(2025, time.January, 3, 1, 0, 0))
			})
		})

		Convey("When the start rolls over but the end was earlier on the same day", func() {
			start, end, err := nlp.Resolve(nlp.TimeExpression{
				DateText: nlp.TodayText, TimeStart: strPtr("8h"), TimeEnd: strPtr("9h"),
			}, now)

			Convey("Then the end still follows the start", func() {
				So(err, ShouldBeNil)
				So(start, ShouldEqual, at(2025, time.January, 2, 8, 0, 0))
				So(*end, ShouldEqual, at(2025, time.January, 2, 9, 0, 0))
			})
		})

		Convey("When the range lies on a past dated day", func() {
			start, end, err := nlp.Resolve(nlp.TimeExpression{
				DateText: "1/1/2020", TimeStart: strPtr("9h"), TimeEnd: strPtr("11h"),
			}, now)

			Convey("Then the end is pushed one more day", func() {
				So(err, ShouldBeNil)
				So(start, ShouldEqual, at(2020, time.January, 1, 9, 0, 0))
				So(*end, ShouldEqual, at(2020, time.January, 2, 11, 0, 0))
			})
		})

		Convey("When the all-day flag is set", func() {
			start, end, err := nlp.Resolve(nlp.TimeExpression{
				DateText: "20/1", TimeStart: strPtr("14h"), TimeEnd: strPtr("16h"), AllDay: true,
			}, now)

			Convey("Then the whole day is covered regardless of clocks", func() {
				So(err, ShouldBeNil)
				So(start, ShouldEqual, at(2025, time.January, 20, 0, 0, 0))
				So(*end, ShouldEqual, at(2025, time.January, 20, 23, 59, 59))
			})
		})

		Convey("When resolving numeric dates", func() {
			cases := []struct {
				date string
				want time.Time
			}{
				{"12/12", at(2025, time.December, 12, 9, 0, 0)},
				{"20-1", at(2025, time.January, 20, 9, 0, 0)},
				{"15/3/25", at(2025, time.March, 15, 9, 0, 0)},
				{"15/3/2027", at(2027, time.March, 15, 9, 0, 0)},
				{"29/2", at(2028, time.February, 29, 9, 0, 0)},
			}
			for _, c := range cases {
				start, _, err := nlp.Resolve(nlp.TimeExpression{DateText: c.date}, now)
				So(err, ShouldBeNil)
				So(start, ShouldEqual, c.want)
			}
		})

		Convey("When a yearless date already passed this year", func() {
			june := at(2025, time.June, 1, 8, 0, 0)
			start, _, err := nlp.Resolve(nlp.TimeExpression{DateText: "3/3", TimeStart: strPtr("15h")}, june)

			Convey("Then it moves to next year", func() {
				So(err, ShouldBeNil)
				So(start, ShouldEqual, at(2026, time.March, 3, 15, 0, 0))
			})
		})

		Convey("When the date does not exist", func() {
			for _, lit := range []string{"31/4", "30/2", "0/5", "12/13", "29/2/2025", "1/1/202"} {
				_, _, err := nlp.Resolve(nlp.TimeExpression{DateText: lit}, now)

				So(err, ShouldNotBeNil)
				So(errors.Is(err, nlp.ErrInvalidDate), ShouldBeTrue)
				var de *nlp.DateError
				So(errors.As(err, &de), ShouldBeTrue)
				So(de.Literal, ShouldEqual, lit)
			}
		})

		Convey("When the date text is not a date", func() {
			_, _, err := nlp.Resolve(nlp.TimeExpression{DateText: "hôm qua"}, now)
			So(errors.Is(err, nlp.ErrInvalidDate), ShouldBeTrue)
		})

		Convey("When a bare week modifier is given", func() {
			next, _, err := nlp.Resolve(nlp.TimeExpression{DateText: "tuần sau", TimeStart: strPtr("10:30")}, now)
			So(err, ShouldBeNil)
			So(next, ShouldEqual, at(2025, time.January, 8, 10, 30, 0))

			this, _, err := nlp.Resolve(nlp.TimeExpression{DateText: "tuần này", TimeStart: strPtr("16h")}, now)
			So(err, ShouldBeNil)
			So(this, ShouldEqual, at(2025, time.January, 1, 16, 0, 0))
		})
	})
}

var weekdayPhrases = []struct {
	phrase string
	day    time.Weekday
}{
	{"thứ 2", time.Monday},
	{"thứ ba", time.Tuesday},
	{"thứ tư", time.Wednesday},
	{"thứ 5", time.Thursday},
	{"thứ sáu", time.Friday},
	{"thứ bảy", time.Saturday},
	{"chủ nhật", time.Sunday},
}

// nextWeekday is the first day strictly after today falling on target.
func nextWeekday(today time.Time, target time.Weekday) time.Time {
	d := today.AddDate(0, 0, 1)
	for d.Weekday() != target {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func TestResolveWeekdays(t *testing.T) {
	Convey("Given every weekday as now", t, func() {
		// 2025-01-06 is a Monday.
		for offset := 0; offset < 7; offset++ {
			now := at(2025, time.January, 6+offset, 7, 0, 0)
			today := at(2025, time.January, 6+offset, 0, 0, 0)

			for _, w := range weekdayPhrases {
				want := nextWeekday(today, w.day)
				label := fmt.Sprintf("%s from %s", w.phrase, now.Weekday())

				Convey("When resolving "+label, func() {
					bare, _, err := nlp.Resolve(nlp.TimeExpression{DateText: w.phrase}, now)
					So(err, ShouldBeNil)

					this, _, err := nlp.Resolve(nlp.TimeExpression{DateText: w.phrase + " tuần này"}, now)
					So(err, ShouldBeNil)

					next, _, err := nlp.Resolve(nlp.TimeExpression{DateText: w.phrase + " tuần sau"}, now)
					So(err, ShouldBeNil)

					Convey("Then the bare weekday is never today", func() {
						So(bare, ShouldEqual, want.Add(9*time.Hour))
						So(bare.Weekday(), ShouldEqual, w.day)
					})

					Convey("Then tuần này means the next occurrence", func() {
						So(this, ShouldEqual, bare)
					})

					Convey("Then tuần sau is at least a week away", func() {
						wantNext := want
						if want.Sub(today) < 7*24*time.Hour {
							wantNext = want.AddDate(0, 0, 7)
						}
						So(next, ShouldEqual, wantNext.Add(9*time.Hour))
						So(next.Sub(today), ShouldBeGreaterThanOrEqualTo, 7*24*time.Hour)
					})
				})
			}
		}
	})

	Convey("Given now is a Monday", t, func() {
		now := at(2025, time.January, 6, 7, 0, 0)

		Convey("Then thứ hai resolves exactly seven days later", func() {
			start, _, err := nlp.Resolve(nlp.TimeExpression{DateText: "thứ hai"}, now)
			So(err, ShouldBeNil)
			So(start, ShouldEqual, at(2025, time.January, 13, 9, 0, 0))
		})

		Convey("Then short and unaccented forms agree", func() {
			for _, lit := range []string{"t3", "thu 3", "thu ba", "thứ  ba"} {
				start, _, err := nlp.Resolve(nlp.TimeExpression{DateText: lit}, now)
				So(err, ShouldBeNil)
				So(start, ShouldEqual, at(2025, time.January, 7, 9, 0, 0))
			}
			start, _, err := nlp.Resolve(nlp.TimeExpression{DateText: "cn"}, now)
			So(err, ShouldBeNil)
			So(start, ShouldEqual, at(2025, time.January, 12, 9, 0, 0))
		})
	})
}
