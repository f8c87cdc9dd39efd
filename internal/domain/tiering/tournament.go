package tiering

import (
	"sort"
	"time"

	"github.com/bracketlab/tiering/internal/domain/model"
	"github.com/bracketlab/tiering/internal/domain/region"
	"github.com/bracketlab/tiering/internal/domain/values"
)

// Tournament is the scoring aggregate for one event. All collaborator
// data is fetched up front by the caller; the aggregate itself is pure
// and computes its result at most once.
type Tournament struct {
	slug         string
	invitational bool
	startDate    time.Time
	address      model.Address
	names        Names
	recon        Reconciliation

	result *Result
}

// NewTournament assembles a tournament from already-fetched event data.
func NewTournament(slug string, invitational bool, names Names, startDate time.Time, address model.Address, recon Reconciliation) *Tournament {
	return &Tournament{
		slug:         slug,
		invitational: invitational,
		startDate:    startDate,
		address:      address,
		names:        names,
		recon:        recon,
	}
}

// Slug returns the event identifier.
func (t *Tournament) Slug() string { return t.slug }

// StartDate returns the event start date used for value windows.
func (t *Tournament) StartDate() time.Time { return t.startDate }

// CalculateTier computes the tier result. The first call does the work;
// repeated calls return the same cached result.
func (t *Tournament) CalculateTier(registry *values.Registry, regions *region.Set) (*Result, error) {
	if t.result != nil {
		return t.result, nil
	}

	best, err := regions.Best(t.address)
	if err != nil {
		return nil, err
	}

	total := t.recon.Entrants * best.Multiplier

	var valued []CountedValue
	var potential []PotentialMatch

	for _, participant := range t.recon.Participants {
		if _, dq := t.recon.DQs[participant.PlayerID]; dq {
			// Only fully participating players count towards points.
			continue
		}
		if group, ok := registry.Group(model.NumericID(participant.PlayerID)); ok {
			if v, ok := group.ValueAt(t.startDate); ok {
				score := v.ScoreFor(t.invitational)
				total += score
				valued = append(valued, CountedValue{Value: v, Points: score, AltTag: participant.Tag})
			}
		} else if registry.KnownTag(participant.Tag) {
			potential = append(potential, t.potentialMatches(registry, participant, 0)...)
		}
	}

	var dqValued []DQValue
	for _, id := range sortedDQIDs(t.recon.DQs) {
		rec := t.recon.DQs[id]
		if group, ok := registry.Group(model.NumericID(rec.Entrant.PlayerID)); ok {
			if v, ok := group.ValueAt(t.startDate); ok {
				score := v.ScoreFor(t.invitational)
				dqValued = append(dqValued, DQValue{
					Value: CountedValue{Value: v, Points: score, AltTag: rec.Entrant.Tag},
					DQs:   rec.Count,
				})
			}
		} else if registry.KnownTag(rec.Entrant.Tag) {
			potential = append(potential, t.potentialMatches(registry, rec.Entrant, rec.Count)...)
		}
	}

	// Sort for deterministic, reviewable reporting.
	sort.SliceStable(valued, func(i, j int) bool {
		return valued[i].Points > valued[j].Points
	})
	sort.SliceStable(dqValued, func(i, j int) bool {
		if dqValued[i].DQs != dqValued[j].DQs {
			return dqValued[i].DQs > dqValued[j].DQs
		}
		return dqValued[i].Value.Points > dqValued[j].Value.Points
	})
	sort.SliceStable(potential, func(i, j int) bool {
		if potential[i].DQs != potential[j].DQs {
			return potential[i].DQs < potential[j].DQs
		}
		return potential[i].Tag < potential[j].Tag
	})

	var phaseNames []string
	for _, p := range t.recon.Phases {
		phaseNames = append(phaseNames, p.Name)
	}

	t.result = &Result{
		Slug:           t.slug,
		TournamentName: t.names.Tournament,
		EventName:      t.names.Event,
		Score:          total,
		Entrants:       t.recon.Entrants,
		Region:         best,
		Values:         valued,
		DQs:            dqValued,
		Potential:      potential,
		Invitational:   t.invitational,
		DQCount:        t.recon.DQCount,
		Phases:         phaseNames,
	}
	return t.result, nil
}

// potentialMatches records an ambiguous tag-only match against every
// registry group that claims the tag. Never added to the score.
func (t *Tournament) potentialMatches(registry *values.Registry, entrant model.Entrant, dqs int) []PotentialMatch {
	var out []PotentialMatch
	for _, group := range registry.GroupsMatchingTag(entrant.Tag) {
		v, ok := group.ValueAt(t.startDate)
		if !ok {
			continue
		}
		out = append(out, PotentialMatch{
			Tag:       entrant.Tag,
			PlayerID:  entrant.PlayerID,
			Points:    v.ScoreFor(t.invitational),
			Note:      v.Note,
			ActualTag: v.Tag,
			DQs:       dqs,
		})
	}
	return out
}

func sortedDQIDs(dqs map[int64]DQRecord) []int64 {
	ids := make([]int64, 0, len(dqs))
	for id := range dqs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
