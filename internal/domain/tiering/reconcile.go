package tiering

import (
	"context"
	"fmt"
	"sort"

	"github.com/bracketlab/tiering/internal/domain/model"
)

// DQUnknown is the sentinel tally for events that have not progressed
// far enough to detect disqualifications.
const DQUnknown = -1

// DQRecord accumulates disqualification losses for one player. The
// entrant identity is kept from the first set the player was seen in.
type DQRecord struct {
	Entrant model.Entrant
	Count   int
}

// Reconciliation is the cleaned entrant picture for one event.
type Reconciliation struct {
	// Participants are entrants with at least one genuinely played set,
	// or the whole roster when the bracket has not progressed.
	Participants []model.Entrant

	// DQs maps player id to accumulated disqualification losses.
	DQs map[int64]DQRecord

	// Phases lists the non-exhibition phases that were scanned, for audit.
	Phases []Phase

	// Entrants is the reconciled total entrant count.
	Entrants int

	// DQCount is the number of entrants who only ever lost by DQ, or
	// DQUnknown when the bracket had no completed phase.
	DQCount int
}

// Reconcile derives the clean entrant set and DQ tally for one event.
//
// If no non-exhibition phase has completed, DQs cannot be told apart
// from real losses, so the raw roster is used and the tally reports
// DQUnknown. Otherwise every completed set in the non-exhibition phases
// is scanned: a loser with no recorded standing on either side, or with
// the DQ sentinel score, accumulates a disqualification; any other
// outcome records both players as genuine participants.
func Reconcile(ctx context.Context, src Source, slug string) (Reconciliation, error) {
	phases, err := src.Phases(ctx, slug)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("list phases for %s: %w", slug, err)
	}

	progressed := false
	for _, p := range phases {
		if p.State == PhaseCompleted && !p.Exhibition {
			progressed = true
			break
		}
	}

	if !progressed {
		roster, err := src.Entrants(ctx, slug)
		if err != nil {
			return Reconciliation{}, fmt.Errorf("list entrants for %s: %w", slug, err)
		}
		roster = dedupe(roster)
		return Reconciliation{
			Participants: roster,
			DQs:          map[int64]DQRecord{},
			Entrants:     len(roster),
			DQCount:      DQUnknown,
		}, nil
	}

	var used []Phase
	var ids []int64
	for _, p := range phases {
		if !p.Exhibition {
			used = append(used, p)
			ids = append(ids, p.ID)
		}
	}

	sets, err := src.SetsInPhases(ctx, slug, ids)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("list sets for %s: %w", slug, err)
	}

	seen := make(map[model.Entrant]struct{})
	var participants []model.Entrant
	dqs := make(map[int64]DQRecord)

	addDQ := func(loser model.Entrant) {
		rec, ok := dqs[loser.PlayerID]
		if !ok {
			rec = DQRecord{Entrant: loser}
		}
		rec.Count++
		dqs[loser.PlayerID] = rec
	}
	addParticipant := func(e model.Entrant) {
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		participants = append(participants, e)
	}

	for _, set := range sets {
		if !set.HasWinner {
			continue
		}
		loser := 1
		if set.WinnerEntrantID == set.Slots[1].EntrantID {
			loser = 0
		}

		if !set.Slots[0].HasStanding && !set.Slots[1].HasStanding {
			addDQ(set.Slots[loser].Player)
			continue
		}
		if set.Slots[loser].Score == DQScore {
			addDQ(set.Slots[loser].Player)
			continue
		}
		addParticipant(set.Slots[0].Player)
		addParticipant(set.Slots[1].Player)
	}

	// Entrants who only ever lost by DQ are counted on top of the
	// genuine participants.
	dqOnly := 0
	playing := make(map[int64]struct{}, len(participants))
	for _, p := range participants {
		playing[p.PlayerID] = struct{}{}
	}
	for id := range dqs {
		if _, ok := playing[id]; !ok {
			dqOnly++
		}
	}

	return Reconciliation{
		Participants: participants,
		DQs:          dqs,
		Phases:       used,
		Entrants:     len(participants) + dqOnly,
		DQCount:      dqOnly,
	}, nil
}

func dedupe(entrants []model.Entrant) []model.Entrant {
	seen := make(map[model.Entrant]struct{}, len(entrants))
	var out []model.Entrant
	for _, e := range entrants {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerID != out[j].PlayerID {
			return out[i].PlayerID < out[j].PlayerID
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
