package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/lichhen/internal/adapters/notify"
	"github.com/okian/lichhen/internal/config"
	"github.com/okian/lichhen/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestBuild(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		cfg := config.New()
		cfg.Timezone = "Asia/Ho_Chi_Minh"
		ctx := context.Background()

		a, err := build(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		convey.So(a, convey.ShouldNotBeNil)
		defer func() { _ = a.shutdown(ctx) }()

		convey.Convey("Then the service uses the configured zone", func() {
			convey.So(a.svc.Location().String(), convey.ShouldEqual, "Asia/Ho_Chi_Minh")
			convey.So(a.srv.Addr, convey.ShouldEqual, cfg.Addr)
			convey.So(a.srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})

		convey.Convey("Then the API and docs routes are mounted", func() {
			for _, path := range []string{"/healthz", "/stats", "/events", "/api-docs", "/openapi.yaml"} {
				rec := httptest.NewRecorder()
				a.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a started application shuts down cleanly", func() {
			convey.So(a.svc.Start(ctx), convey.ShouldBeNil)
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			convey.So(a.shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given an unknown store driver", t, func() {
		cfg := config.New()
		cfg.Store.Driver = "mongo"

		convey.Convey("Then build fails", func() {
			a, err := build(context.Background(), cfg)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(a, convey.ShouldBeNil)
		})
	})
}

func TestNewNotifier(t *testing.T) {
	convey.Convey("Given SMTP settings", t, func() {
		cfg := config.New()

		convey.Convey("When no host is configured", func() {
			convey.Convey("Then reminders are logged", func() {
				_, ok := newNotifier(cfg).(*notify.LogNotifier)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When host and recipient are configured", func() {
			cfg.SMTP.Host = "smtp.example.com"
			cfg.SMTP.To = "me@example.com"
			cfg.SMTP.Username = "me"

			convey.Convey("Then reminders are mailed", func() {
				_, ok := newNotifier(cfg).(*notify.SMTPNotifier)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop returns when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}
