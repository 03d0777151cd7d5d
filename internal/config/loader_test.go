package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	repository "github.com/okian/lichhen/internal/adapters/repository"
	"github.com/okian/lichhen/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LICHHEN_ADDR", ":8080")
			_ = os.Setenv("LICHHEN_LOG_LEVEL", "debug")
			_ = os.Setenv("LICHHEN_REMINDER__QUEUE_SIZE", "50")
			_ = os.Setenv("LICHHEN_REMINDER__SCAN_SCHEDULE", "*/5 * * * *")
			_ = os.Setenv("LICHHEN_HTTP__PARSE_RATE", "2.5")
			_ = os.Setenv("LICHHEN_HTTP__TRUST_FORWARDED", "true")
			_ = os.Setenv("LICHHEN_SMTP__HOST", "smtp.example.com")
			_ = os.Setenv("LICHHEN_SMTP__TO", "me@example.com")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Reminder.QueueSize, convey.ShouldEqual, 50)
				convey.So(cfg.Reminder.ScanSchedule, convey.ShouldEqual, "*/5 * * * *")
				convey.So(cfg.HTTP.ParseRate, convey.ShouldEqual, 2.5)
				convey.So(cfg.HTTP.TrustForwarded, convey.ShouldBeTrue)
				convey.So(cfg.MailEnabled(), convey.ShouldBeTrue)
			})

			convey.Convey("Then untouched nested values keep their defaults", func() {
				convey.So(cfg.Reminder.DefaultMinutes, convey.ShouldEqual, 15)
				convey.So(cfg.SMTP.Port, convey.ShouldEqual, 587)
				convey.So(cfg.Store.Driver, convey.ShouldEqual, repository.DriverMemory)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
timezone: "UTC"
store:
  driver: sqlite
  dsn: "file:test.db"
reminder:
  default_minutes: 30
  worker_count: 3
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LICHHEN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Timezone, convey.ShouldEqual, "UTC")
				convey.So(cfg.Store.Driver, convey.ShouldEqual, repository.DriverSQLite)
				convey.So(cfg.Store.DSN, convey.ShouldEqual, "file:test.db")
				convey.So(cfg.Reminder.DefaultMinutes, convey.ShouldEqual, 30)
				convey.So(cfg.Reminder.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.Reminder.QueueSize, convey.ShouldEqual, 1_000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
reminder:
  worker_count: 3
  dedupe_size: 77
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LICHHEN_CONFIG", tmpFile)
			_ = os.Setenv("LICHHEN_ADDR", ":8080")
			_ = os.Setenv("LICHHEN_REMINDER__WORKER_COUNT", "8")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Reminder.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.Reminder.DedupeSize, convey.ShouldEqual, 77)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LICHHEN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("LICHHEN_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("LICHHEN_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the environment names a bad schedule", func() {
			_ = os.Setenv("LICHHEN_REMINDER__SCAN_SCHEDULE", "whenever")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "scan_schedule")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key := kv[:i]
				if len(key) >= len(config.EnvPrefix) && key[:len(config.EnvPrefix)] == config.EnvPrefix {
					_ = os.Unsetenv(key)
				}
				break
			}
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "lichhen-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
