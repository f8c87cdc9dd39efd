package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bracketlab/tiering/internal/app"
	"github.com/bracketlab/tiering/internal/domain/tiering"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBulk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src := &fakeSource{
		entrants: roster(10),
		names:    tiering.Names{Tournament: "Genesis", Event: "Singles"},
		start:    time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
	}

	svc, err := app.NewService(
		app.WithSource(src),
		app.WithRegistry(testRegistry()),
		app.WithRegions(testRegions()),
		app.WithOutputDir(dir),
	)
	if err != nil {
		t.Fatal(err)
	}

	Convey("Given a batch with one good and one bad item", t, func() {
		outcomes := svc.Bulk(ctx, []app.BulkItem{
			{Slug: "tournament/genesis/event/singles"},
			{Slug: "not a slug"},
		})

		Convey("Then order is preserved and failures are isolated", func() {
			So(len(outcomes), ShouldEqual, 2)
			So(outcomes[0].Err, ShouldBeNil)
			So(outcomes[0].Result, ShouldNotBeNil)
			So(outcomes[1].Err, ShouldNotBeNil)
			So(outcomes[1].Result, ShouldBeNil)
		})

		Convey("When the results are written", func() {
			So(svc.WriteResults(outcomes), ShouldBeNil)

			Convey("Then the summary carries one row per item", func() {
				data, err := os.ReadFile(filepath.Join(dir, "summary.csv"))
				So(err, ShouldBeNil)

				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				So(len(lines), ShouldEqual, 3)
				So(lines[0], ShouldStartWith, "Tournament,Event,Slug,URL")
				So(lines[1], ShouldContainSubstring, "https://start.gg/tournament/genesis/event/singles")
				So(lines[2], ShouldContainSubstring, "not a slug")
			})

			Convey("Then the audit report is named after the slug", func() {
				data, err := os.ReadFile(filepath.Join(dir, "genesis_singles.txt"))
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "Genesis - Singles")
				So(string(data), ShouldContainSubstring, "Total Score:")
			})
		})
	})
}

func TestReadBulkFile(t *testing.T) {
	dir := t.TempDir()

	Convey("Given a CSV batch file", t, func() {
		path := filepath.Join(dir, "batch.csv")
		content := "startgg slug,Is Invitational?\n" +
			"tournament/a/event/s,true\n" +
			"tournament/b/event/s,0\n" +
			",\n"
		So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)

		items, err := app.ReadBulkFile(path)
		So(err, ShouldBeNil)
		So(items, ShouldResemble, []app.BulkItem{
			{Slug: "tournament/a/event/s", Invitational: true},
			{Slug: "tournament/b/event/s"},
		})
	})

	Convey("Given a plain text batch file", t, func() {
		path := filepath.Join(dir, "batch.txt")
		So(os.WriteFile(path, []byte("tournament/a/event/s\n\ntournament/b/event/s\n"), 0o644), ShouldBeNil)

		items, err := app.ReadBulkFile(path)
		So(err, ShouldBeNil)
		So(len(items), ShouldEqual, 2)
		So(items[0].Invitational, ShouldBeFalse)
	})

	Convey("Given a CSV without the slug column", t, func() {
		path := filepath.Join(dir, "bad.csv")
		So(os.WriteFile(path, []byte("foo,bar\n1,2\n"), 0o644), ShouldBeNil)

		_, err := app.ReadBulkFile(path)
		So(err, ShouldWrap, app.ErrBadBulkFile)
	})

	Convey("Given a missing file", t, func() {
		_, err := app.ReadBulkFile(filepath.Join(dir, "absent.txt"))
		So(err, ShouldWrap, app.ErrBadBulkFile)
	})
}
