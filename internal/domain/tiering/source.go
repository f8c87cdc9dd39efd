// Package tiering turns raw bracket data for one event into a scored,
// auditable tier result.
package tiering

import (
	"context"
	"time"

	"github.com/bracketlab/tiering/internal/domain/model"
)

// Phase is one bracket stage of an event.
type Phase struct {
	ID         int64
	Name       string
	State      string
	Exhibition bool
}

// PhaseCompleted is the data-source state of a finished phase.
const PhaseCompleted = "COMPLETED"

// DQScore is the recorded game score the data source uses to mark a
// disqualification loss.
const DQScore = -1

// Slot is one side of a completed set. EntrantID is the per-event
// entrant id the winner id refers to; Player identifies the human.
// HasStanding is false when no standing statistics were recorded.
type Slot struct {
	EntrantID   int64
	Player      model.Entrant
	HasStanding bool
	Score       int
}

// SetResult is one completed match. HasWinner is false for sets with no
// recorded winner; those carry no information for reconciliation.
type SetResult struct {
	WinnerEntrantID int64
	HasWinner       bool
	Slots           [2]Slot
}

// Names are the display names resolved for a slug.
type Names struct {
	Tournament string
	Event      string
}

// Source answers event data queries. Implementations must distinguish
// request failure from "no data".
type Source interface {
	Entrants(ctx context.Context, slug string) ([]model.Entrant, error)
	Phases(ctx context.Context, slug string) ([]Phase, error)
	SetsInPhases(ctx context.Context, slug string, phaseIDs []int64) ([]SetResult, error)
	Coordinates(ctx context.Context, slug string) (lat, lng float64, err error)
	StartTime(ctx context.Context, slug string) (time.Time, error)
	Names(ctx context.Context, slug string) (Names, error)
}

// Geocoder resolves coordinates into an address breakdown. Transient
// failure handling (retries) is the implementation's concern.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (model.Address, error)
}
