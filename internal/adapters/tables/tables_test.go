package tables_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bracketlab/tiering/internal/adapters/tables"
	"github.com/bracketlab/tiering/internal/domain/model"
	"github.com/bracketlab/tiering/internal/domain/region"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPlayers(t *testing.T) {
	dir := t.TempDir()

	players := writeFile(t, dir, "players.csv",
		"Start.gg Num ID,Player,Points,Note,Start Date,End Date\n"+
			"1000,PlayerA,100,ranked,,\n"+
			"1000,PlayerA,60,older result,2023-01-01,2023-12-31\n"+
			",Mystery,40,regional,,\n"+
			",,999,blank tag row,,\n")

	invitational := writeFile(t, dir, "invitational.csv",
		"Num,Player,Additional Points\n"+
			"1000,PlayerA,50\n"+
			"424242,Unknown,10\n")

	aliases := writeFile(t, dir, "tags.csv",
		"PlayerA,SmasherA,TheA\n"+
			"OnlyCanonical\n")

	Convey("Given the three player sheets", t, func() {
		registry, err := tables.LoadPlayers(players, invitational, aliases)
		So(err, ShouldBeNil)

		Convey("Then numeric-id rows group under the numeric identity", func() {
			g, ok := registry.Group(model.NumericID(1000))
			So(ok, ShouldBeTrue)
			So(g.Tag(), ShouldEqual, "PlayerA")

			v, ok := g.ValueAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
			So(ok, ShouldBeTrue)
			So(v.Points, ShouldEqual, 100)

			Convey("And the invitational bonus is back-filled", func() {
				So(v.ScoreFor(true), ShouldEqual, 150)
				So(v.ScoreFor(false), ShouldEqual, 100)
			})
		})

		Convey("Then a dated row only applies inside its window", func() {
			g, _ := registry.Group(model.NumericID(1000))
			v, ok := g.ValueAt(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
			So(ok, ShouldBeTrue)
			So(v.Points, ShouldEqual, 100)
		})

		Convey("Then blank-id rows key by tag", func() {
			g, ok := registry.Group(model.TagID("Mystery"))
			So(ok, ShouldBeTrue)
			v, ok := g.ValueAt(time.Now())
			So(ok, ShouldBeTrue)
			So(v.Points, ShouldEqual, 40)
		})

		Convey("Then blank-tag rows are skipped", func() {
			So(registry.Len(), ShouldEqual, 2)
		})

		Convey("Then aliases are indexed for tag lookups", func() {
			So(registry.KnownTag("smashera"), ShouldBeTrue)
			So(registry.KnownTag("TheA"), ShouldBeTrue)
			So(registry.KnownTag("nobody"), ShouldBeFalse)
		})
	})

	Convey("Given a missing alias sheet", t, func() {
		registry, err := tables.LoadPlayers(players, invitational, filepath.Join(dir, "absent.csv"))
		So(err, ShouldBeNil)
		So(registry.Len(), ShouldEqual, 2)
	})

	Convey("Given a missing players sheet", t, func() {
		_, err := tables.LoadPlayers(filepath.Join(dir, "absent.csv"), invitational, aliases)
		So(err, ShouldWrap, tables.ErrOpenTable)
	})

	Convey("Given a players sheet with bad points", t, func() {
		bad := writeFile(t, dir, "bad.csv",
			"Start.gg Num ID,Player,Points,Note,Start Date,End Date\n"+
				"1,Someone,many,,,\n")
		_, err := tables.LoadPlayers(bad, invitational, aliases)
		So(err, ShouldWrap, tables.ErrBadRow)
	})
}

func TestLoadRegions(t *testing.T) {
	dir := t.TempDir()

	Convey("Given a regions sheet", t, func() {
		path := writeFile(t, dir, "regions.csv",
			"country_code,ISO3166-2,county,city,jp-postal-code,Multiplier,Entrant Floor,Score Floor,Note\n"+
				",,,,,1,64,250,fallback\n"+
				"us,US-GA,,Atlanta,,2,48,200,atl\n"+
				"us,US-GA,,Atlanta,,2,48,200,duplicate\n")

		set, err := tables.LoadRegions(path)
		So(err, ShouldBeNil)

		Convey("Then duplicates collapse and the best match wins", func() {
			So(len(set.Rules()), ShouldEqual, 2)

			best, err := set.Best(model.Address{CountryCode: "us", ISOLevel4: "US-GA", City: "Atlanta"})
			So(err, ShouldBeNil)
			So(best.Multiplier, ShouldEqual, 2)
			So(best.EntrantFloor, ShouldEqual, 48)
		})

		Convey("Then an unrelated address falls back", func() {
			best, err := set.Best(model.Address{CountryCode: "fr"})
			So(err, ShouldBeNil)
			So(best, ShouldResemble, region.Rule{Multiplier: 1, EntrantFloor: 64, ScoreFloor: 250, Note: "fallback"})
		})
	})

	Convey("Given a sheet with a bad multiplier", t, func() {
		path := writeFile(t, dir, "badregions.csv",
			"country_code,ISO3166-2,county,city,jp-postal-code,Multiplier,Entrant Floor,Score Floor,Note\n"+
				"us,,,,,x,64,250,\n")
		_, err := tables.LoadRegions(path)
		So(err, ShouldWrap, tables.ErrBadRow)
	})
}
