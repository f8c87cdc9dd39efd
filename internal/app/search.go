package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xrash/smetrics"

	"github.com/bracketlab/tiering/internal/adapters/startgg"
	"github.com/bracketlab/tiering/pkg/logger"
)

const (
	// minJaroSimilarity is the name similarity above which an owner's
	// earlier tournament marks this one as a recurring iteration.
	minJaroSimilarity = 0.8

	// weeklyLookback bounds how far back the recurring-event check looks.
	weeklyLookback = 15 * 24 * time.Hour

	singlesEventType = 1
)

// sideEventKeywords mark events that run beside the main bracket.
var sideEventKeywords = []string{"redemption", "buster", "amateur", "squad", "random", "cpu", "amiibo", "hdr"}

// Search discovers scoreable events in the time window. Every candidate
// is recorded in events.csv with its verdict; the returned items are
// the ones worth scoring, at most one event per tournament.
func (s *Service) Search(ctx context.Context, start, end time.Time) ([]BulkItem, error) {
	if s.discovery == nil {
		return nil, fmt.Errorf("%w: discovery source", ErrNotConfigured)
	}

	log := s.log.Named("search")

	listings, err := s.discovery.TournamentsBetween(ctx, start, end, s.videogameID)
	if err != nil {
		return nil, fmt.Errorf("discover tournaments: %w", err)
	}
	log.Info(ctx, "discovered tournaments", logger.Int("count", len(listings)))

	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(filepath.Join(s.outDir, "events.csv"))
	if err != nil {
		return nil, fmt.Errorf("create events file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"Tournament", "Event", "Slug", "Used", "Skip Reason"}); err != nil {
		return nil, fmt.Errorf("write events file: %w", err)
	}

	var items []BulkItem
	for _, listing := range listings {
		items = append(items, s.searchTournament(ctx, listing, writer)...)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("write events file: %w", err)
	}
	return items, nil
}

func (s *Service) searchTournament(ctx context.Context, listing startgg.TournamentListing, writer *csv.Writer) []BulkItem {
	events := make([]startgg.EventListing, 0, len(listing.Events))
	for _, ev := range listing.Events {
		if ev.Type == singlesEventType && ev.VideogameID == s.videogameID && ev.NumEntrants != nil {
			events = append(events, ev)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return *events[i].NumEntrants > *events[j].NumEntrants
	})

	record := func(ev startgg.EventListing, used bool, reason string) {
		_ = writer.Write([]string{listing.Name, ev.Name, ev.Slug, strconv.FormatBool(used), reason})
	}

	var items []BulkItem
	added := false
	priorChecked := false
	var prior *startgg.AdminedTournament
	var priorGap time.Duration

	for _, ev := range events {
		if reason, label, skip := keywordSkip(listing.Name, ev.Name); skip {
			record(ev, false, reason)
			s.metrics.EventSkipped(label)
			continue
		}

		if added {
			record(ev, false, "Other Larger Event in Tournament")
			s.metrics.EventSkipped("larger_event")
			continue
		}

		if containsFold(listing.Name, "monthly") || containsFold(ev.Name, "monthly") {
			record(ev, true, "")
			s.metrics.EventDiscovered()
			items = append(items, BulkItem{Slug: ev.Slug})
			added = true
			continue
		}

		if !priorChecked {
			priorChecked = true
			var err error
			prior, priorGap, err = s.priorIteration(ctx, listing.Slug)
			if err != nil {
				s.log.Warn(ctx, "recurring-event check failed",
					logger.String("tournament", listing.Slug),
					logger.Error(err))
			}
		}
		if prior != nil {
			days := int(math.Round(priorGap.Hours() / 24))
			record(ev, false, fmt.Sprintf("Probable Weekly (found tournament %s [%s] which precedes by %d days)", prior.Name, prior.Slug, days))
			s.metrics.EventSkipped("prior_iteration")
			added = true
			continue
		}

		record(ev, true, "")
		s.metrics.EventDiscovered()
		items = append(items, BulkItem{Slug: ev.Slug})
		added = true
	}
	return items
}

// keywordSkip applies the name heuristics that weed out weeklies,
// arcadians, side brackets and waitlists.
func keywordSkip(tournamentName, eventName string) (reason, label string, skip bool) {
	if containsFold(tournamentName, "weekly") || containsFold(eventName, "weekly") {
		return `Probable Weekly (contains string "weekly")`, "weekly", true
	}
	if containsFold(tournamentName, "arcadian") || containsFold(eventName, "arcadian") {
		return `Probable Arcadian (contains string "arcadian")`, "arcadian", true
	}
	for _, kw := range sideEventKeywords {
		if containsFold(eventName, kw) {
			return fmt.Sprintf("Probable Side Event (contains string %q)", kw), "side_event", true
		}
	}
	if containsFold(eventName, "wait") {
		return `Probable Waitlist (contains string "wait")`, "waitlist", true
	}
	return "", "", false
}

// priorIteration looks for an earlier tournament by the same owner with
// a similar name, which marks a recurring series rather than a one-off.
func (s *Service) priorIteration(ctx context.Context, tournamentSlug string) (*startgg.AdminedTournament, time.Duration, error) {
	base, others, err := s.discovery.AdminedTournaments(ctx, tournamentSlug, s.videogameID)
	if err != nil {
		return nil, 0, err
	}

	earliest := base.StartAt.Add(-weeklyLookback)
	for _, other := range others {
		if other.OwnerID != base.OwnerID || other.Slug == base.Slug {
			continue
		}
		if other.StartAt.After(base.StartAt) || other.StartAt.Before(earliest) {
			continue
		}
		if smetrics.JaroWinkler(base.Name, other.Name, 0.7, 4) >= minJaroSimilarity {
			o := other
			return &o, base.StartAt.Sub(other.StartAt), nil
		}
	}
	return nil, 0, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
