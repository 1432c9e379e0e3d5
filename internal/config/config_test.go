package config_test

import (
	"context"
	"testing"

	"github.com/okian/kenshin/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.DBPath, convey.ShouldEqual, "kenshin.db")
			convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, int64(8<<20))
			convey.So(cfg.DefaultExtractionFraction, convey.ShouldEqual, 0.3)
			convey.So(cfg.ScoringRuleFile, convey.ShouldBeEmpty)
			convey.So(cfg.AdminUser, convey.ShouldEqual, "admin")
			convey.So(cfg.AdminPassword, convey.ShouldEqual, "password")
		})
	})
}
