package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bracketlab/tiering/internal/adapters/startgg"
	"github.com/bracketlab/tiering/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

type adminedAnswer struct {
	base   startgg.AdminedTournament
	others []startgg.AdminedTournament
}

type fakeDiscovery struct {
	listings     []startgg.TournamentListing
	admined      map[string]adminedAnswer
	adminedCalls map[string]int
}

func (f *fakeDiscovery) TournamentsBetween(ctx context.Context, start, end time.Time, videogameID int64) ([]startgg.TournamentListing, error) {
	return f.listings, nil
}

func (f *fakeDiscovery) AdminedTournaments(ctx context.Context, slug string, videogameID int64) (startgg.AdminedTournament, []startgg.AdminedTournament, error) {
	if f.adminedCalls == nil {
		f.adminedCalls = map[string]int{}
	}
	f.adminedCalls[slug]++
	a := f.admined[slug]
	return a.base, a.others, nil
}

func entrantCount(n int) *int { return &n }

func TestSearch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	mainStart := time.Date(2024, 3, 16, 18, 0, 0, 0, time.UTC)

	Convey("Given a window of discovered tournaments", t, func() {
		discovery := &fakeDiscovery{
			listings: []startgg.TournamentListing{
				{
					Slug: "tournament/quality-arena",
					Name: "Quality Arena",
					Events: []startgg.EventListing{
						{Name: "Redemption Bracket", Type: 1, VideogameID: 1386, Slug: "tournament/quality-arena/event/redemption-bracket", NumEntrants: entrantCount(50)},
						{Name: "Ultimate Singles", Type: 1, VideogameID: 1386, Slug: "tournament/quality-arena/event/ultimate-singles", NumEntrants: entrantCount(200)},
						{Name: "Pro Bracket", Type: 1, VideogameID: 1386, Slug: "tournament/quality-arena/event/pro-bracket", NumEntrants: entrantCount(100)},
						{Name: "Ultimate Doubles", Type: 5, VideogameID: 1386, Slug: "tournament/quality-arena/event/ultimate-doubles", NumEntrants: entrantCount(80)},
					},
				},
				{
					Slug: "tournament/smash-weekly-42",
					Name: "Smash Weekly #42",
					Events: []startgg.EventListing{
						{Name: "Singles", Type: 1, VideogameID: 1386, Slug: "tournament/smash-weekly-42/event/singles", NumEntrants: entrantCount(30)},
					},
				},
				{
					Slug: "tournament/city-monthly-3",
					Name: "City Monthly #3",
					Events: []startgg.EventListing{
						{Name: "Singles", Type: 1, VideogameID: 1386, Slug: "tournament/city-monthly-3/event/singles", NumEntrants: entrantCount(90)},
					},
				},
				{
					Slug: "tournament/friday-night-frames-8",
					Name: "Friday Night Frames #8",
					Events: []startgg.EventListing{
						{Name: "Singles", Type: 1, VideogameID: 1386, Slug: "tournament/friday-night-frames-8/event/singles", NumEntrants: entrantCount(40)},
					},
				},
			},
			admined: map[string]adminedAnswer{
				"tournament/quality-arena": {
					base: startgg.AdminedTournament{Name: "Quality Arena", Slug: "tournament/quality-arena", StartAt: mainStart, OwnerID: 7},
				},
				"tournament/friday-night-frames-8": {
					base: startgg.AdminedTournament{Name: "Friday Night Frames #8", Slug: "tournament/friday-night-frames-8", StartAt: mainStart, OwnerID: 9},
					others: []startgg.AdminedTournament{
						{Name: "Friday Night Frames #7", Slug: "tournament/friday-night-frames-7", StartAt: mainStart.Add(-7 * 24 * time.Hour), OwnerID: 9},
					},
				},
			},
		}

		src := &fakeSource{}
		svc, err := app.NewService(
			app.WithSource(src),
			app.WithDiscovery(discovery),
			app.WithRegistry(testRegistry()),
			app.WithRegions(testRegions()),
			app.WithOutputDir(dir),
		)
		if err != nil {
			t.Fatal(err)
		}

		items, err := svc.Search(ctx, mainStart.Add(-30*24*time.Hour), mainStart.Add(24*time.Hour))
		So(err, ShouldBeNil)

		Convey("Then only the main bracket of each fresh tournament is kept", func() {
			So(items, ShouldResemble, []app.BulkItem{
				{Slug: "tournament/quality-arena/event/ultimate-singles"},
				{Slug: "tournament/city-monthly-3/event/singles"},
			})
		})

		Convey("Then the owner check runs at most once per tournament", func() {
			So(discovery.adminedCalls["tournament/quality-arena"], ShouldEqual, 1)
			So(discovery.adminedCalls["tournament/friday-night-frames-8"], ShouldEqual, 1)
			So(discovery.adminedCalls["tournament/city-monthly-3"], ShouldEqual, 0)
		})

		Convey("Then every considered event is recorded with a verdict", func() {
			data, err := os.ReadFile(filepath.Join(dir, "events.csv"))
			So(err, ShouldBeNil)
			text := string(data)

			lines := strings.Split(strings.TrimSpace(text), "\n")
			// header + 3 quality-arena singles events + weekly + monthly + recurring
			So(len(lines), ShouldEqual, 7)

			So(text, ShouldContainSubstring, `Probable Side Event (contains string ""redemption"")`)
			So(text, ShouldContainSubstring, "Other Larger Event in Tournament")
			So(text, ShouldContainSubstring, `Probable Weekly (contains string ""weekly"")`)
			So(text, ShouldContainSubstring, "Friday Night Frames #7 [tournament/friday-night-frames-7] which precedes by 7 days")
			So(text, ShouldNotContainSubstring, "Ultimate Doubles")
		})
	})
}
