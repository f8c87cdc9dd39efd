package app_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bracketlab/tiering/internal/adapters/startgg"
	"github.com/bracketlab/tiering/internal/app"
	"github.com/bracketlab/tiering/internal/domain/model"
	"github.com/bracketlab/tiering/internal/domain/region"
	"github.com/bracketlab/tiering/internal/domain/tiering"
	"github.com/bracketlab/tiering/internal/domain/values"
	"github.com/bracketlab/tiering/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
	os.Exit(m.Run())
}

// fakeSource serves canned event data for one slug.
type fakeSource struct {
	entrants []model.Entrant
	names    tiering.Names
	start    time.Time
	lat, lng float64

	namesErr error
}

func (f *fakeSource) Entrants(ctx context.Context, slug string) ([]model.Entrant, error) {
	return f.entrants, nil
}

func (f *fakeSource) Phases(ctx context.Context, slug string) ([]tiering.Phase, error) {
	return nil, nil
}

func (f *fakeSource) SetsInPhases(ctx context.Context, slug string, phaseIDs []int64) ([]tiering.SetResult, error) {
	return nil, nil
}

func (f *fakeSource) Coordinates(ctx context.Context, slug string) (float64, float64, error) {
	return f.lat, f.lng, nil
}

func (f *fakeSource) StartTime(ctx context.Context, slug string) (time.Time, error) {
	return f.start, nil
}

func (f *fakeSource) Names(ctx context.Context, slug string) (tiering.Names, error) {
	if f.namesErr != nil {
		return tiering.Names{}, f.namesErr
	}
	return f.names, nil
}

type fakeGeocoder struct {
	addr model.Address
}

func (f *fakeGeocoder) Reverse(ctx context.Context, lat, lng float64) (model.Address, error) {
	return f.addr, nil
}

func testRegions() *region.Set {
	return region.NewSet([]region.Rule{
		{Multiplier: 1, EntrantFloor: 64, ScoreFloor: 250, Note: "fallback"},
		{CountryCode: "us", Multiplier: 2, EntrantFloor: 64, ScoreFloor: 250, Note: "us"},
		{CountryCode: "jp", Multiplier: 3, EntrantFloor: 48, ScoreFloor: 200, Note: "jp"},
	})
}

func testRegistry() *values.Registry {
	r := values.NewRegistry()
	r.Ensure(model.NumericID(1), "PlayerA", nil).AddValue(100, "ranked", nil, nil)
	return r
}

func roster(n int) []model.Entrant {
	out := make([]model.Entrant, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Entrant{PlayerID: int64(i + 1), Tag: string(rune('A' + i))})
	}
	return out
}

func TestNewService(t *testing.T) {
	Convey("Given missing collaborators", t, func() {
		_, err := app.NewService()
		So(err, ShouldWrap, app.ErrNotConfigured)

		_, err = app.NewService(app.WithSource(&fakeSource{}))
		So(err, ShouldWrap, app.ErrNotConfigured)

		_, err = app.NewService(app.WithSource(&fakeSource{}), app.WithRegistry(testRegistry()))
		So(err, ShouldWrap, app.ErrNotConfigured)
	})
}

func TestScoreEvent(t *testing.T) {
	ctx := context.Background()

	src := &fakeSource{
		entrants: roster(10),
		names:    tiering.Names{Tournament: "Genesis", Event: "Singles"},
		start:    time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		lat:      35.66,
		lng:      139.70,
	}

	Convey("Given a service without location lookup", t, func() {
		svc, err := app.NewService(
			app.WithSource(src),
			app.WithRegistry(testRegistry()),
			app.WithRegions(testRegions()),
		)
		So(err, ShouldBeNil)

		result, err := svc.ScoreEvent(ctx, "https://start.gg/tournament/genesis/event/singles/overview", false, false)

		Convey("Then the fallback region applies and the slug is normalized", func() {
			So(err, ShouldBeNil)
			So(result.Slug, ShouldEqual, "tournament/genesis/event/singles")
			So(result.Region.Note, ShouldEqual, "us")
			So(result.Score, ShouldEqual, 10*2+100)
		})
	})

	Convey("Given a service with a geocoder", t, func() {
		svc, err := app.NewService(
			app.WithSource(src),
			app.WithGeocoder(&fakeGeocoder{addr: model.Address{CountryCode: "jp", ISOLevel4: "JP-13"}}),
			app.WithRegistry(testRegistry()),
			app.WithRegions(testRegions()),
		)
		So(err, ShouldBeNil)

		result, err := svc.ScoreEvent(ctx, "tournament/genesis/event/singles", false, true)

		Convey("Then the geocoded region applies", func() {
			So(err, ShouldBeNil)
			So(result.Region.Note, ShouldEqual, "jp")
			So(result.Score, ShouldEqual, 10*3+100)
		})
	})

	Convey("Given an invalid slug", t, func() {
		svc, err := app.NewService(
			app.WithSource(src),
			app.WithRegistry(testRegistry()),
			app.WithRegions(testRegions()),
		)
		So(err, ShouldBeNil)

		_, err = svc.ScoreEvent(ctx, "genesis singles", false, false)
		So(err, ShouldWrap, startgg.ErrInvalidSlug)
	})

	Convey("Given a source that fails", t, func() {
		failing := &fakeSource{namesErr: errors.New("boom")}
		svc, err := app.NewService(
			app.WithSource(failing),
			app.WithRegistry(testRegistry()),
			app.WithRegions(testRegions()),
		)
		So(err, ShouldBeNil)

		_, err = svc.ScoreEvent(ctx, "tournament/genesis/event/singles", false, false)
		So(err, ShouldNotBeNil)
	})
}
