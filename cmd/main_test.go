package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/config"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainWiring(t *testing.T) {
	t.Setenv("RALLY_DATABASE_URL", ":memory:")
	t.Setenv("RALLY_POINTS_TABLE", "10,5")
	t.Setenv("RALLY_METRICS_NAMESPACE", "wiring")
	t.Setenv("RALLY_METRICS_LABELS", "env=test")

	convey.Convey("Given configuration from the environment", t, func() {
		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		store, err := repository.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
		convey.So(err, convey.ShouldBeNil)

		configureMetrics(cfg)
		defer metrics.Configure()

		svc := newService(cfg, store, logger.Nop())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := newMux(ctx, svc, cfg, logger.Nop())

		get := func(target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", target, http.NoBody))
			return w
		}

		convey.Convey("Then the API, docs and landing page are routed", func() {
			convey.So(get("/readyz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/participants").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/nope").Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("Then metrics use the configured namespace and labels", func() {
			body := get("/healthz").Body.String()
			convey.So(body, convey.ShouldContainSubstring, "wiring_results_")
			convey.So(body, convey.ShouldContainSubstring, `env="test"`)
		})

		convey.Convey("Then the configured points table reaches the service", func() {
			body := get("/stats").Body.String()
			convey.So(strings.Contains(body, `"pointsTable":[10,5]`), convey.ShouldBeTrue)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
	})
}
