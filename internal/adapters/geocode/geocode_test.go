package geocode_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bracketlab/tiering/internal/adapters/geocode"
	. "github.com/smartystreets/goconvey/convey"
)

type countingObserver struct {
	retries atomic.Int64
}

func (c *countingObserver) GeocodeRetry() { c.retries.Add(1) }

func TestReverse(t *testing.T) {
	ctx := context.Background()

	Convey("Given a server that resolves an address", t, func() {
		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			_, _ = w.Write([]byte(`{"address":{
				"country_code":"jp",
				"ISO3166-2-lvl4":"JP-13",
				"city":"Tokyo",
				"postcode":"150-0041"
			}}`))
		}))
		defer srv.Close()

		c := geocode.NewClient(geocode.WithEndpoint(srv.URL), geocode.WithUserAgent("tiering-test"))
		addr, err := c.Reverse(ctx, 35.66, 139.70)

		Convey("Then the address fields decode", func() {
			So(err, ShouldBeNil)
			So(addr.CountryCode, ShouldEqual, "jp")
			So(addr.ISOLevel4, ShouldEqual, "JP-13")
			So(addr.City, ShouldEqual, "Tokyo")
			So(addr.Postcode, ShouldEqual, "150-0041")
		})

		Convey("Then the configured user agent is sent", func() {
			So(gotUA, ShouldEqual, "tiering-test")
		})
	})

	Convey("Given a server that fails twice before succeeding", t, func() {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"address":{"country_code":"us","ISO3166-2-lvl4":"US-GA"}}`))
		}))
		defer srv.Close()

		obs := &countingObserver{}
		c := geocode.NewClient(geocode.WithEndpoint(srv.URL), geocode.WithObserver(obs))
		addr, err := c.Reverse(ctx, 33.7, -84.3)

		Convey("Then the lookup recovers and retries are observed", func() {
			So(err, ShouldBeNil)
			So(addr.CountryCode, ShouldEqual, "us")
			So(calls.Load(), ShouldEqual, 3)
			So(obs.retries.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given a server that always fails", t, func() {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := geocode.NewClient(geocode.WithEndpoint(srv.URL), geocode.WithRetries(3))
		_, err := c.Reverse(ctx, 0, 0)

		Convey("Then the error wraps the unavailable sentinel after the retry budget", func() {
			So(err, ShouldWrap, geocode.ErrUnavailable)
			So(calls.Load(), ShouldEqual, 3)
		})
	})
}
