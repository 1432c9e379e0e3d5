package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/kenshin/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KENSHIN_CONFIG",
		"KENSHIN_LOG_LEVEL",
		"KENSHIN_ADDR",
		"KENSHIN_DB_PATH",
		"KENSHIN_MAX_UPLOAD_BYTES",
		"KENSHIN_DEFAULT_EXTRACTION_FRACTION",
		"KENSHIN_SCORING_RULE_FILE",
		"KENSHIN_ADMIN_USER",
		"KENSHIN_ADMIN_PASSWORD",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBPath, convey.ShouldEqual, "kenshin.db")
				convey.So(cfg.DefaultExtractionFraction, convey.ShouldEqual, 0.3)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("KENSHIN_ADDR", ":9090")
			t.Setenv("KENSHIN_DB_PATH", "/tmp/kenshin-test.db")
			t.Setenv("KENSHIN_DEFAULT_EXTRACTION_FRACTION", "0.5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env values should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/kenshin-test.db")
				convey.So(cfg.DefaultExtractionFraction, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When loading config from a YAML file", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			yaml := "addr: \":7070\"\ndb_path: " + filepath.Join(dir, "data.db") + "\nlog_level: debug\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			t.Setenv("KENSHIN_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})

			convey.Convey("And env should still win over the file", func() {
				t.Setenv("KENSHIN_ADDR", ":6060")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When the config file is missing", func() {
			t.Setenv("KENSHIN_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then it should report a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
			})
		})

		convey.Convey("When the extraction fraction is out of range", func() {
			t.Setenv("KENSHIN_DEFAULT_EXTRACTION_FRACTION", "1.5")

			_, err := config.Load(ctx)

			convey.Convey("Then it should report an invalid config", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})
		})
	})
}
