package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/rally/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestLoad_Defaults(t *testing.T) {
	convey.Convey("Given no file and no overrides", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then it should load successfully with defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
		})
	})
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("RALLY_ADDR", ":8080")
	t.Setenv("RALLY_DB_DRIVER", "postgres")
	t.Setenv("RALLY_DATABASE_URL", "postgres://rally@localhost/rally?sslmode=disable")
	t.Setenv("RALLY_AUTOLINK_THRESHOLD", "0.95")
	t.Setenv("RALLY_MAX_SUGGESTIONS", "3")
	t.Setenv("RALLY_POINTS_TABLE", "10, 6,4")
	t.Setenv("RALLY_AUTOLINK_ON_SUBMIT", "true")
	t.Setenv("RALLY_METRICS_NAMESPACE", "wrc")
	t.Setenv("RALLY_METRICS_BUCKETS", "0.5,2,10")
	t.Setenv("RALLY_METRICS_LABELS", "env=prod")

	convey.Convey("Given RALLY_* environment variables", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then env vars override defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.DBDriver, convey.ShouldEqual, "postgres")
			convey.So(cfg.AutoLinkThreshold, convey.ShouldEqual, 0.95)
			convey.So(cfg.MaxSuggestions, convey.ShouldEqual, 3)
			convey.So(cfg.PointsTable, convey.ShouldResemble, []int{10, 6, 4})
			convey.So(cfg.AutoLinkOnSubmit, convey.ShouldBeTrue)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "wrc")
			convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "results")
			convey.So(cfg.MetricsBuckets, convey.ShouldResemble, []float64{0.5, 2, 10})
			convey.So(cfg.ConstLabels(), convey.ShouldResemble, map[string]string{"env": "prod"})
		})
	})
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rally.yaml")
	yamlContent := `
addr: ":9090"
log_format: json
suggest_threshold: 0.5
points_table: [30, 20, 10]
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvConfigPath, path)
	t.Setenv("RALLY_ADDR", ":7070")

	convey.Convey("Given a YAML file and an env override", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then the file is applied and env still wins", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			convey.So(cfg.SuggestThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.PointsTable, convey.ShouldResemble, []int{30, 20, 10})
		})
	})
}

func TestLoad_Errors(t *testing.T) {
	convey.Convey("Given a missing config file", t, func() {
		t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := config.Load(context.Background())

		convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
	})
}

func TestLoad_OutOfRange(t *testing.T) {
	t.Setenv("RALLY_SUGGEST_THRESHOLD", "1.5")

	convey.Convey("Given an out of range threshold", t, func() {
		_, err := config.Load(context.Background())

		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}
