package metrics_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bracketlab/tiering/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		m := metrics.NewManager(metrics.WithNamespace("test"))

		Convey("When counters are moved", func() {
			m.TournamentScored(250 * time.Millisecond)
			m.TournamentFailed()
			m.SourceRequest()
			m.SourceError()
			m.GeocodeRetry()
			m.EventDiscovered()
			m.EventSkipped("weekly")

			Convey("Then the handler exposes them", func() {
				rec := httptest.NewRecorder()
				m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
				So(rec.Code, ShouldEqual, 200)
				So(rec.Body.String(), ShouldContainSubstring, "test_batch_tournaments_scored_total 1")
				So(rec.Body.String(), ShouldContainSubstring, `test_search_events_skipped_total{reason="weekly"} 1`)
			})
		})

		Convey("When metrics are disabled", func() {
			off := metrics.NewManager(metrics.WithMetricsEnabled(false))
			off.TournamentScored(time.Second)

			rec := httptest.NewRecorder()
			off.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			So(rec.Body.String(), ShouldNotContainSubstring, "tournaments_scored_total 1")
		})
	})
}
