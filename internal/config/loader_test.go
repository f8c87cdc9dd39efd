package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bracketlab/tiering/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		t.Setenv("TIERING_CONFIG", "")

		Convey("When loading with no overrides", func() {
			cfg, err := config.Load()

			Convey("Then defaults are returned", func() {
				So(err, ShouldBeNil)
				So(cfg.StartggEndpoint, ShouldEqual, "https://api.start.gg/gql/alpha")
				So(cfg.GeocoderRetries, ShouldEqual, 5)
				So(cfg.OutputDir, ShouldEqual, "tts_values")
				So(cfg.SearchVideogameID, ShouldEqual, 1386)
			})
		})

		Convey("When env vars override defaults", func() {
			t.Setenv("TIERING_STARTGG_TOKEN", "sekrit")
			t.Setenv("TIERING_OUTPUT_DIR", "out")
			cfg, err := config.Load()

			So(err, ShouldBeNil)
			So(cfg.StartggToken, ShouldEqual, "sekrit")
			So(cfg.OutputDir, ShouldEqual, "out")
		})

		Convey("When a YAML file is layered under env", func() {
			path := filepath.Join(t.TempDir(), "tiering.yaml")
			So(os.WriteFile(path, []byte("log_level: debug\ngeocoder_retries: 3\n"), 0o600), ShouldBeNil)
			t.Setenv("TIERING_CONFIG", path)
			t.Setenv("TIERING_LOG_LEVEL", "warn")

			cfg, err := config.Load()

			So(err, ShouldBeNil)
			So(cfg.GeocoderRetries, ShouldEqual, 3)
			// env wins over file
			So(cfg.LogLevel, ShouldEqual, "warn")
		})

		Convey("When validation fails", func() {
			t.Setenv("TIERING_GEOCODER_RETRIES", "0")
			_, err := config.Load()
			So(err, ShouldNotBeNil)
		})
	})
}
