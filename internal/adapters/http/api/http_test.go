package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/lichhen/internal/adapters/http/api"
	service "github.com/okian/lichhen/internal/app"
	"github.com/okian/lichhen/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var now = time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)

func newMux(opts ...api.Option) *http.ServeMux {
	svc := service.New(
		service.WithLocation(time.UTC),
		service.WithClock(func() time.Time { return now }),
		service.WithScanSchedule(""),
		service.WithDefaultReminderMinutes(30),
	)
	mux := http.NewServeMux()
	api.NewServer(svc, svc, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the API", t, func() {
		mux := newMux()

		Convey("Then /healthz reports ok", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")
		})

		Convey("Then /metrics serves Prometheus text", func() {
			do(mux, http.MethodGet, "/healthz", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "lichhen_")
		})

		Convey("Then /stats reports the service state", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, false)
		})

		Convey("Then unsupported methods are rejected", func() {
			w := do(mux, http.MethodPost, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestParseEndpoint(t *testing.T) {
	Convey("Given the parse endpoint", t, func() {
		mux := newMux(api.WithMaxTextLength(200))

		Convey("When a full sentence is posted", func() {
			w := do(mux, http.MethodPost, "/nlp/parse", `{"text":"Họp team từ 9h đến 11h ngày 12/12 tại phòng 201"}`)
			body := decode(w)

			Convey("Then every field is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["event_name"], ShouldEqual, "Họp team")
				So(body["start_time"], ShouldEqual, "2025-12-12 09:00:00")
				So(body["end_time"], ShouldEqual, "2025-12-12 11:00:00")
				So(body["location"], ShouldEqual, "phòng 201")
				So(body["time_reminder"], ShouldBeNil)
			})
		})

		Convey("When the text is blank", func() {
			w := do(mux, http.MethodPost, "/nlp/parse", `{"text":"   "}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "missing_text")
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/nlp/parse", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the text is too long", func() {
			w := do(mux, http.MethodPost, "/nlp/parse", `{"text":"`+strings.Repeat("ă", 201)+`"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "text_too_long")
		})

		Convey("When the date is impossible", func() {
			w := do(mux, http.MethodPost, "/nlp/parse", `{"text":"Họp ngày 31/4"}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decode(w)["code"], ShouldEqual, "invalid_date")
		})
	})

	Convey("Given a parse endpoint with a tight rate limit", t, func() {
		mux := newMux(api.WithParseRateLimit(0.001, 1))

		Convey("When a client sends two requests in a row", func() {
			first := do(mux, http.MethodPost, "/nlp/parse", `{"text":"Họp lúc 10h"}`)
			second := do(mux, http.MethodPost, "/nlp/parse", `{"text":"Họp lúc 10h"}`)

			Convey("Then the second is throttled", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode(second)["code"], ShouldEqual, "rate_limited")
			})
		})

		Convey("When one peer rotates X-Forwarded-For", func() {
			codes := make([]int, 0, 3)
			for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
				codes = append(codes, doFrom(mux, "192.0.2.1:1234", ip).Code)
			}

			Convey("Then it shares one budget", func() {
				So(codes, ShouldResemble, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests})
			})
		})

		Convey("When different peers send one request each", func() {
			a := doFrom(mux, "192.0.2.1:1234", "")
			b := doFrom(mux, "192.0.2.2:1234", "")

			Convey("Then neither is throttled", func() {
				So(a.Code, ShouldEqual, http.StatusOK)
				So(b.Code, ShouldEqual, http.StatusOK)
			})
		})
	})

	Convey("Given a rate limited parse endpoint behind a trusted proxy", t, func() {
		mux := newMux(api.WithParseRateLimit(0.001, 1), api.WithTrustedProxy(true))

		Convey("When the proxy forwards two clients", func() {
			a := doFrom(mux, "192.0.2.1:1234", "10.0.0.1")
			b := doFrom(mux, "192.0.2.1:1234", "10.0.0.2, 192.0.2.1")
			again := doFrom(mux, "192.0.2.1:1234", "10.0.0.1")

			Convey("Then each forwarded client has its own budget", func() {
				So(a.Code, ShouldEqual, http.StatusOK)
				So(b.Code, ShouldEqual, http.StatusOK)
				So(again.Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})
	})
}

func doFrom(mux *http.ServeMux, remoteAddr, forwarded string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/nlp/parse", strings.NewReader(`{"text":"Họp lúc 10h"}`))
	req.RemoteAddr = remoteAddr
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestRequestBodyLimit(t *testing.T) {
	Convey("Given the API with a short text limit", t, func() {
		mux := newMux(api.WithMaxTextLength(200))
		huge := `{"text":"` + strings.Repeat("a", 64<<10) + `"}`

		created := decode(do(mux, http.MethodPost, "/events",
			`{"user_id":7,"event_name":"Họp","start_time":"2025-01-03 09:30:00"}`))
		id, _ := created["id"].(string)

		for _, route := range []struct{ method, path string }{
			{http.MethodPost, "/nlp/parse"},
			{http.MethodPost, "/events/parse"},
			{http.MethodPost, "/events"},
			{http.MethodPut, "/events/" + id},
		} {
			Convey("When an oversized body is sent to "+route.method+" "+route.path, func() {
				w := do(mux, route.method, route.path, huge)

				Convey("Then it is rejected as too large", func() {
					So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
					So(decode(w)["code"], ShouldEqual, "body_too_large")
				})
			})
		}

		Convey("When a body just over the text limit is sent", func() {
			w := do(mux, http.MethodPost, "/nlp/parse", `{"text":"`+strings.Repeat("a", 300)+`"}`)

			Convey("Then the text check answers instead", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "text_too_long")
			})
		})
	})
}

func TestEventEndpoints(t *testing.T) {
	Convey("Given the events API", t, func() {
		mux := newMux()

		Convey("When an event is created", func() {
			w := do(mux, http.MethodPost, "/events",
				`{"user_id":7,"event_name":"Khám răng","start_time":"2025-01-03 09:30:00","end_time":"2025-01-03 10:30:00","location":"nha khoa","time_reminder":45}`)
			created := decode(w)
			id, _ := created["id"].(string)

			Convey("Then it is returned with an ID", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(id, ShouldNotBeEmpty)
				So(created["user_id"], ShouldEqual, float64(7))
				So(created["start_time"], ShouldEqual, "2025-01-03 09:30:00")
				So(created["reminder_sent"], ShouldEqual, false)
			})

			Convey("Then it can be fetched", func() {
				got := do(mux, http.MethodGet, "/events/"+id, "")
				So(got.Code, ShouldEqual, http.StatusOK)
				So(decode(got)["event_name"], ShouldEqual, "Khám răng")
			})

			Convey("Then it appears in the listings", func() {
				all := decode(do(mux, http.MethodGet, "/events", ""))
				So(all["count"], ShouldEqual, float64(1))
				mine := decode(do(mux, http.MethodGet, "/events/user/7", ""))
				So(mine["count"], ShouldEqual, float64(1))
				other := decode(do(mux, http.MethodGet, "/events/user/8", ""))
				So(other["count"], ShouldEqual, float64(0))
			})

			Convey("And it is partially updated", func() {
				upd := do(mux, http.MethodPut, "/events/"+id, `{"event_name":"Khám răng định kỳ","end_time":null}`)
				body := decode(upd)
				So(upd.Code, ShouldEqual, http.StatusOK)
				So(body["event_name"], ShouldEqual, "Khám răng định kỳ")
				So(body["end_time"], ShouldBeNil)
				So(body["location"], ShouldEqual, "nha khoa")
			})

			Convey("And an update puts the end before the start", func() {
				upd := do(mux, http.MethodPut, "/events/"+id, `{"end_time":"2025-01-03 08:00:00"}`)
				So(upd.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(upd)["code"], ShouldEqual, "invalid_event")
			})

			Convey("And it is deleted", func() {
				del := do(mux, http.MethodDelete, "/events/"+id, "")
				So(del.Code, ShouldEqual, http.StatusOK)
				So(do(mux, http.MethodGet, "/events/"+id, "").Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, http.MethodDelete, "/events/"+id, "").Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then the calendar export carries an alarm", func() {
				cal := do(mux, http.MethodGet, "/events/user/7/calendar.ics", "")
				body := cal.Body.String()
				So(cal.Code, ShouldEqual, http.StatusOK)
				So(cal.Header().Get("Content-Type"), ShouldStartWith, "text/calendar")
				So(body, ShouldContainSubstring, "BEGIN:VCALENDAR")
				So(body, ShouldContainSubstring, "BEGIN:VEVENT")
				So(body, ShouldContainSubstring, "BEGIN:VALARM")
				So(body, ShouldContainSubstring, "-PT45M")
			})

			Convey("Then the calendar is stamped with the service clock", func() {
				body := do(mux, http.MethodGet, "/events/user/7/calendar.ics", "").Body.String()
				So(body, ShouldContainSubstring, "DTSTAMP:20250101T080000Z")
			})
		})

		Convey("When the end is not after the start", func() {
			w := do(mux, http.MethodPost, "/events",
				`{"user_id":7,"event_name":"x","start_time":"2025-01-03 09:30:00","end_time":"2025-01-03 09:00:00"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "invalid_event")
		})

		Convey("When the start time is missing or malformed", func() {
			So(do(mux, http.MethodPost, "/events", `{"user_id":7,"event_name":"x"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/events", `{"user_id":7,"event_name":"x","start_time":"mai"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When RFC3339 times are used", func() {
			w := do(mux, http.MethodPost, "/events", `{"user_id":7,"event_name":"x","start_time":"2025-01-03T09:30:00+07:00"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(decode(w)["start_time"], ShouldEqual, "2025-01-03 02:30:00")
		})

		Convey("When a sentence is parsed and stored", func() {
			w := do(mux, http.MethodPost, "/events/parse",
				`{"user_id":9,"text":"Ăn tối với gia đình lúc 7h tối mai ở nhà hàng Hải Sản, nhắc trước 1 tiếng"}`)
			body := decode(w)

			Convey("Then the stored event and the extraction are returned", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				event, _ := body["event"].(map[string]any)
				So(event["user_id"], ShouldEqual, float64(9))
				So(event["start_time"], ShouldEqual, "2025-01-02 19:00:00")
				So(event["time_reminder"], ShouldEqual, float64(60))
				parsed, _ := body["parsed"].(map[string]any)
				So(parsed["location"], ShouldEqual, "nhà hàng Hải Sản")
			})
		})

		Convey("When a parsed sentence has no owner", func() {
			w := do(mux, http.MethodPost, "/events/parse", `{"text":"Họp lúc 10h"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "invalid_event")
		})

		Convey("When the user id is not a number", func() {
			So(do(mux, http.MethodGet, "/events/user/abc", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/events/user/abc/calendar.ics", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an unknown event is requested", func() {
			w := do(mux, http.MethodGet, "/events/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})
	})
}
