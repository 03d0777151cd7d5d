package nlp_test

import (
	"testing"

	"github.com/okian/lichhen/internal/domain/nlp"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExtractEventName(t *testing.T) {
	Convey("Given the event name extractor", t, func() {
		Convey("When raw literals and stop words are removed", func() {
			name := nlp.ExtractEventName("họp team từ 9h đến 11h ngày 12/12",
				[]string{"12/12", "9h", "11h", "từ 9h đến 11h"})
			So(name, ShouldEqual, "Họp team")
		})

		Convey("When nothing is left", func() {
			So(nlp.ExtractEventName("lúc 9h", []string{"9h"}), ShouldEqual, nlp.DefaultEventName)
			So(nlp.ExtractEventName("", nil), ShouldEqual, nlp.DefaultEventName)
		})

		Convey("When punctuation surrounds the name", func() {
			So(nlp.ExtractEventName(" , gặp khách - !", nil), ShouldEqual, "Gặp khách")
		})

		Convey("When a literal is part of a longer word", func() {
			name := nlp.ExtractEventName("phòng 19h30 họp", []string{"19h"})

			Convey("Then the longer word is kept", func() {
				So(name, ShouldEqual, "Phòng 19h30 họp")
			})
		})
	})
}
