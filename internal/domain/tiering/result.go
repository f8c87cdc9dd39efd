package tiering

import (
	"fmt"
	"io"

	"github.com/bracketlab/tiering/internal/domain/region"
	"github.com/bracketlab/tiering/internal/domain/values"
)

// NumPlayersFloor is the minimum number of qualifying identities needed
// for the score-floor eligibility path.
const NumPlayersFloor = 2

// CountedValue is one valued participant's contribution: the registry
// value, the realized points (bonus included when invitational), and
// the tag the player entered under.
type CountedValue struct {
	Value  values.Value
	Points int
	AltTag string
}

func (c CountedValue) String() string {
	fullTag := c.AltTag
	if c.AltTag != c.Value.Tag {
		fullTag += fmt.Sprintf(" (aka %s)", c.Value.Tag)
	}
	return fmt.Sprintf("%s - %d points [%s]", fullTag, c.Points, c.Value.Note)
}

// DQValue is a valued player who never completed the event; it carries
// the accumulated DQ count and contributes nothing to the score.
type DQValue struct {
	Value CountedValue
	DQs   int
}

func (d DQValue) String() string {
	plural := "s"
	if d.DQs == 1 {
		plural = ""
	}
	return fmt.Sprintf("%s - %d DQ%s", d.Value, d.DQs, plural)
}

// PotentialMatch is an ambiguous identity: the entrant's tag matched a
// registry group but the player id did not. Reported, never scored.
type PotentialMatch struct {
	Tag       string // tag the entrant displayed
	PlayerID  int64  // entrant's player id (the unmatched one)
	Points    int
	Note      string
	ActualTag string // canonical tag of the candidate group
	DQs       int
}

func (p PotentialMatch) String() string {
	actual := ""
	if p.ActualTag != "" && p.ActualTag != p.Tag {
		actual = p.ActualTag + ": "
	}
	dq := ""
	if p.DQs != 0 {
		plural := "s"
		if p.DQs == 1 {
			plural = ""
		}
		dq = fmt.Sprintf(" - %d DQ%s", p.DQs, plural)
	}
	return fmt.Sprintf("%s (id %d) - %s%d points [%s]%s", p.Tag, p.PlayerID, actual, p.Points, p.Note, dq)
}

// Result is the immutable tier outcome for one event.
type Result struct {
	Slug           string
	TournamentName string
	EventName      string

	Score    int
	Entrants int
	Region   region.Rule

	Values    []CountedValue
	DQs       []DQValue
	Potential []PotentialMatch

	Invitational bool
	DQCount      int // DQUnknown when the bracket had not progressed
	Phases       []string

	maxScore *int
}

// MaxPotentialScore is the realized score plus the best-case value of
// every ambiguous and disqualified identity: one best candidate per
// distinct player id, so a single unresolved identity cannot be counted
// twice. Memoized after the first call.
func (r *Result) MaxPotentialScore() int {
	if r.maxScore != nil {
		return *r.maxScore
	}

	potential := r.Score

	best := map[int64]int{}
	for _, p := range r.Potential {
		if p.Points > best[p.PlayerID] {
			best[p.PlayerID] = p.Points
		}
	}
	for _, v := range best {
		potential += v
	}

	bestDQ := map[string]int{}
	for _, d := range r.DQs {
		id := d.Value.Value.ID.String()
		if d.Value.Points > bestDQ[id] {
			bestDQ[id] = d.Value.Points
		}
	}
	for _, v := range bestDQ {
		potential += v
	}

	r.maxScore = &potential
	return potential
}

// ShouldCountStrict applies the hard eligibility criteria: the entrant
// floor, or the realized score floor with enough valued players.
func (r *Result) ShouldCountStrict() bool {
	return r.Entrants >= r.Region.EntrantFloor ||
		(r.Score >= r.Region.ScoreFloor && len(r.Values) >= NumPlayersFloor)
}

// ShouldCount applies the optimistic criteria: like the strict check,
// but granting every ambiguous and DQ'd identity its best case.
func (r *Result) ShouldCount() bool {
	return r.Entrants >= r.Region.EntrantFloor ||
		(r.MaxPotentialScore() >= r.Region.ScoreFloor &&
			len(r.Values)+len(r.Potential)+len(r.DQs) >= NumPlayersFloor)
}

// WriteReport renders the human-readable audit report.
func (r *Result) WriteReport(w io.Writer) error {
	invit := ""
	if r.Invitational {
		invit = " (invitational)"
	}
	if _, err := fmt.Fprintf(w, "%s - %s (%s)%s\n", r.TournamentName, r.EventName, r.Slug, invit); err != nil {
		return err
	}
	fmt.Fprintf(w, "Phases used: %v\n\n", r.Phases)

	if !r.ShouldCount() {
		fmt.Fprintf(w, "WARNING: This tournament does not meet the criteria of at least %d entrants or a score of at least %d with %d qualified players\n\n",
			r.Region.EntrantFloor, r.Region.ScoreFloor, NumPlayersFloor)
	} else if !r.ShouldCountStrict() {
		fmt.Fprintf(w, "WARNING: This tournament may not meet the criteria of at least %d entrants or a score of at least %d with %d qualified players\n\n",
			r.Region.EntrantFloor, r.Region.ScoreFloor, NumPlayersFloor)
	}

	participants := fmt.Sprint(r.Entrants)
	if r.DQCount != DQUnknown {
		// total entrants = genuinely played + DQ-only
		participants = fmt.Sprintf("%d + %d DQs = %d", r.Entrants-r.DQCount, r.DQCount, r.Entrants)
	}
	fmt.Fprintf(w, "Entrants: %s x %d [%s] = %d\n", participants, r.Region.Multiplier, r.Region.Note, r.Entrants*r.Region.Multiplier)

	fmt.Fprintf(w, "\nTop Player Points: \n")
	for _, v := range r.Values {
		fmt.Fprintf(w, "  %s\n", v)
	}

	fmt.Fprintf(w, "\nTotal Score: %d\n", r.Score)

	if len(r.DQs) > 0 {
		fmt.Fprintf(w, "\n-----\nDQs\n")
		for _, d := range r.DQs {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}

	if len(r.Potential) > 0 {
		fmt.Fprintf(w, "\n-----\nPotentially Mismatched Players\n")
		for _, p := range r.Potential {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}

	return nil
}
