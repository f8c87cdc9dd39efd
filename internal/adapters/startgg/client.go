// Package startgg implements the tournament data source contract
// against the start.gg GraphQL API.
package startgg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/bracketlab/tiering/internal/domain/model"
	"github.com/bracketlab/tiering/internal/domain/tiering"
)

// Page sizes tuned to the API's complexity limits.
const (
	entrantsPerPage    = 200
	setsPerPage        = 50
	tournamentsPerPage = 75
	adminedPerPage     = 75
)

var slugPattern = regexp.MustCompile(`tournament/[a-z0-9_-]+/event/[a-z0-9_-]+`)

// NormalizeSlug extracts the canonical event slug from a slug or URL.
func NormalizeSlug(raw string) (string, error) {
	m := slugPattern.FindString(raw)
	if m == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, raw)
	}
	return m, nil
}

// Observer receives request outcome callbacks, typically a metrics
// manager. All methods must be cheap.
type Observer interface {
	SourceRequest()
	SourceError()
}

// Client is a rate-limited start.gg GraphQL client. It implements
// tiering.Source.
type Client struct {
	httpc    *http.Client
	endpoint string
	token    string
	limiter  *rate.Limiter
	obs      Observer
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpc = c
		}
	}
}

// WithEndpoint overrides the GraphQL endpoint.
func WithEndpoint(endpoint string) Option {
	return func(cl *Client) {
		if endpoint != "" {
			cl.endpoint = endpoint
		}
	}
}

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// WithRequestsPerMinute throttles outgoing requests.
func WithRequestsPerMinute(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), 1)
		}
	}
}

// WithObserver registers a request outcome observer.
func WithObserver(o Observer) Option {
	return func(cl *Client) {
		if o != nil {
			cl.obs = o
		}
	}
}

// NewClient creates a client with defaults suitable for the public API.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpc:    &http.Client{Timeout: 30 * time.Second},
		endpoint: "https://api.start.gg/gql/alpha",
		limiter:  rate.NewLimiter(rate.Limit(75.0/60.0), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// do runs one GraphQL request and unmarshals the data payload into out.
func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("%w: encode request: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.obs != nil {
		c.obs.SourceRequest()
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		if c.obs != nil {
			c.obs.SourceError()
		}
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if c.obs != nil {
			c.obs.SourceError()
		}
		return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var envelope gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if c.obs != nil {
			c.obs.SourceError()
		}
		return fmt.Errorf("%w: decode: %w", ErrMalformedResponse, err)
	}
	if len(envelope.Errors) > 0 {
		if c.obs != nil {
			c.obs.SourceError()
		}
		return fmt.Errorf("%w: %s", ErrRequestFailed, envelope.Errors[0].Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %w", ErrMalformedResponse, err)
	}
	return nil
}

type playerNode struct {
	GamerTag string `json:"gamerTag"`
	ID       int64  `json:"id"`
}

type participantNode struct {
	Player playerNode `json:"player"`
}

// Entrants pages through the event roster.
func (c *Client) Entrants(ctx context.Context, slug string) ([]model.Entrant, error) {
	var out []model.Entrant
	for page := 1; ; page++ {
		var data struct {
			Event *struct {
				Entrants struct {
					PageInfo struct {
						TotalPages int `json:"totalPages"`
					} `json:"pageInfo"`
					Nodes []struct {
						Participants []participantNode `json:"participants"`
					} `json:"nodes"`
				} `json:"entrants"`
			} `json:"event"`
		}
		vars := map[string]any{"eventSlug": slug, "pageNum": page, "perPage": entrantsPerPage}
		if err := c.do(ctx, entrantsQuery, vars, &data); err != nil {
			return nil, err
		}
		if data.Event == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
		}
		for _, node := range data.Event.Entrants.Nodes {
			if len(node.Participants) == 0 {
				continue
			}
			p := node.Participants[0].Player
			out = append(out, model.Entrant{PlayerID: p.ID, Tag: p.GamerTag})
		}
		if page >= data.Event.Entrants.PageInfo.TotalPages {
			break
		}
	}
	return out, nil
}

// Phases lists every bracket phase of the event.
func (c *Client) Phases(ctx context.Context, slug string) ([]tiering.Phase, error) {
	var data struct {
		Event *struct {
			Phases []struct {
				ID           int64  `json:"id"`
				Name         string `json:"name"`
				State        string `json:"state"`
				IsExhibition bool   `json:"isExhibition"`
			} `json:"phases"`
		} `json:"event"`
	}
	if err := c.do(ctx, phasesQuery, map[string]any{"eventSlug": slug}, &data); err != nil {
		return nil, err
	}
	if data.Event == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	var out []tiering.Phase
	for _, p := range data.Event.Phases {
		out = append(out, tiering.Phase{ID: p.ID, Name: p.Name, State: p.State, Exhibition: p.IsExhibition})
	}
	return out, nil
}

// SetsInPhases pages through the completed sets of the given phases.
func (c *Client) SetsInPhases(ctx context.Context, slug string, phaseIDs []int64) ([]tiering.SetResult, error) {
	var out []tiering.SetResult
	for page := 1; ; page++ {
		var data struct {
			Event *struct {
				Sets struct {
					PageInfo struct {
						TotalPages int `json:"totalPages"`
					} `json:"pageInfo"`
					Nodes []struct {
						WinnerID *int64 `json:"winnerId"`
						Slots    []struct {
							Entrant *struct {
								ID           int64             `json:"id"`
								Participants []participantNode `json:"participants"`
							} `json:"entrant"`
							Standing *struct {
								Stats struct {
									Score struct {
										Value *float64 `json:"value"`
									} `json:"score"`
								} `json:"stats"`
							} `json:"standing"`
						} `json:"slots"`
					} `json:"nodes"`
				} `json:"sets"`
			} `json:"event"`
		}
		vars := map[string]any{"eventSlug": slug, "pageNum": page, "perPage": setsPerPage, "phases": phaseIDs}
		if err := c.do(ctx, setsQuery, vars, &data); err != nil {
			return nil, err
		}
		if data.Event == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
		}
		for _, node := range data.Event.Sets.Nodes {
			if len(node.Slots) < 2 {
				continue
			}
			set := tiering.SetResult{}
			if node.WinnerID != nil {
				set.HasWinner = true
				set.WinnerEntrantID = *node.WinnerID
			}
			ok := true
			for i := 0; i < 2; i++ {
				slot := node.Slots[i]
				if slot.Entrant == nil || len(slot.Entrant.Participants) == 0 {
					ok = false
					break
				}
				p := slot.Entrant.Participants[0].Player
				set.Slots[i] = tiering.Slot{
					EntrantID: slot.Entrant.ID,
					Player:    model.Entrant{PlayerID: p.ID, Tag: p.GamerTag},
				}
				if slot.Standing != nil && slot.Standing.Stats.Score.Value != nil {
					set.Slots[i].HasStanding = true
					set.Slots[i].Score = int(*slot.Standing.Stats.Score.Value)
				}
			}
			if !ok {
				continue
			}
			out = append(out, set)
		}
		if page >= data.Event.Sets.PageInfo.TotalPages {
			break
		}
	}
	return out, nil
}

// Coordinates returns the hosting tournament's latitude and longitude.
func (c *Client) Coordinates(ctx context.Context, slug string) (float64, float64, error) {
	var data struct {
		Event *struct {
			Tournament *struct {
				Lat *float64 `json:"lat"`
				Lng *float64 `json:"lng"`
			} `json:"tournament"`
		} `json:"event"`
	}
	if err := c.do(ctx, locationQuery, map[string]any{"eventSlug": slug}, &data); err != nil {
		return 0, 0, err
	}
	if data.Event == nil || data.Event.Tournament == nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	t := data.Event.Tournament
	if t.Lat == nil || t.Lng == nil {
		return 0, 0, fmt.Errorf("%w: %s has no coordinates", ErrMalformedResponse, slug)
	}
	return *t.Lat, *t.Lng, nil
}

// StartTime returns the event start timestamp.
func (c *Client) StartTime(ctx context.Context, slug string) (time.Time, error) {
	var data struct {
		Event *struct {
			StartAt *int64 `json:"startAt"`
		} `json:"event"`
	}
	if err := c.do(ctx, startTimeQuery, map[string]any{"eventSlug": slug}, &data); err != nil {
		return time.Time{}, err
	}
	if data.Event == nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	if data.Event.StartAt == nil {
		return time.Time{}, fmt.Errorf("%w: %s has no start time", ErrMalformedResponse, slug)
	}
	return time.Unix(*data.Event.StartAt, 0).UTC(), nil
}

// Names resolves the tournament and event display names.
func (c *Client) Names(ctx context.Context, slug string) (tiering.Names, error) {
	var data struct {
		Event *struct {
			Name       string `json:"name"`
			Tournament *struct {
				Name string `json:"name"`
			} `json:"tournament"`
		} `json:"event"`
	}
	if err := c.do(ctx, namesQuery, map[string]any{"eventSlug": slug}, &data); err != nil {
		return tiering.Names{}, err
	}
	if data.Event == nil || data.Event.Tournament == nil {
		return tiering.Names{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return tiering.Names{Tournament: data.Event.Tournament.Name, Event: data.Event.Name}, nil
}

// EventListing is one event inside a discovered tournament.
type EventListing struct {
	Name        string
	Type        int
	VideogameID int64
	Slug        string
	NumEntrants *int
}

// TournamentListing is one tournament discovered in a time window.
type TournamentListing struct {
	Slug   string
	Name   string
	Events []EventListing
}

// TournamentsBetween pages through offline tournaments for one game in
// [start, end].
func (c *Client) TournamentsBetween(ctx context.Context, start, end time.Time, videogameID int64) ([]TournamentListing, error) {
	var out []TournamentListing
	for page := 1; ; page++ {
		var data struct {
			Tournaments *struct {
				PageInfo struct {
					TotalPages int `json:"totalPages"`
				} `json:"pageInfo"`
				Nodes []struct {
					Slug   string `json:"slug"`
					Name   string `json:"name"`
					Events []struct {
						Name      string `json:"name"`
						Type      int    `json:"type"`
						Videogame *struct {
							ID int64 `json:"id"`
						} `json:"videogame"`
						Slug        string `json:"slug"`
						NumEntrants *int   `json:"numEntrants"`
					} `json:"events"`
				} `json:"nodes"`
			} `json:"tournaments"`
		}
		vars := map[string]any{
			"pageNum":      page,
			"perPage":      tournamentsPerPage,
			"startTime":    start.Unix(),
			"endTime":      end.Unix(),
			"videogameIds": []int64{videogameID},
		}
		if err := c.do(ctx, tournamentsQuery, vars, &data); err != nil {
			return nil, err
		}
		if data.Tournaments == nil {
			return nil, fmt.Errorf("%w: tournaments window query", ErrMalformedResponse)
		}
		for _, node := range data.Tournaments.Nodes {
			listing := TournamentListing{Slug: node.Slug, Name: node.Name}
			for _, ev := range node.Events {
				e := EventListing{Name: ev.Name, Type: ev.Type, Slug: ev.Slug, NumEntrants: ev.NumEntrants}
				if ev.Videogame != nil {
					e.VideogameID = ev.Videogame.ID
				}
				listing.Events = append(listing.Events, e)
			}
			out = append(out, listing)
		}
		if page >= data.Tournaments.PageInfo.TotalPages {
			break
		}
	}
	return out, nil
}

// AdminedTournament is one tournament run by an owner.
type AdminedTournament struct {
	Name    string
	Slug    string
	StartAt time.Time
	OwnerID int64
}

// AdminedTournaments returns the requested tournament followed by the
// other tournaments its owner ran, newest first as the API returns them.
func (c *Client) AdminedTournaments(ctx context.Context, tournamentSlug string, videogameID int64) (AdminedTournament, []AdminedTournament, error) {
	var base AdminedTournament
	var others []AdminedTournament
	for page := 1; ; page++ {
		var data struct {
			Tournament *struct {
				Name    string `json:"name"`
				StartAt int64  `json:"startAt"`
				Owner   *struct {
					ID          int64 `json:"id"`
					Tournaments struct {
						PageInfo struct {
							TotalPages int `json:"totalPages"`
						} `json:"pageInfo"`
						Nodes []struct {
							Name    string `json:"name"`
							Slug    string `json:"slug"`
							StartAt int64  `json:"startAt"`
							Owner   *struct {
								ID int64 `json:"id"`
							} `json:"owner"`
						} `json:"nodes"`
					} `json:"tournaments"`
				} `json:"owner"`
			} `json:"tournament"`
		}
		vars := map[string]any{
			"tournamentSlug": tournamentSlug,
			"pageNum":        page,
			"perPage":        adminedPerPage,
			"videogameIds":   []int64{videogameID},
		}
		if err := c.do(ctx, adminedQuery, vars, &data); err != nil {
			return AdminedTournament{}, nil, err
		}
		if data.Tournament == nil || data.Tournament.Owner == nil {
			return AdminedTournament{}, nil, fmt.Errorf("%w: %s", ErrNotFound, tournamentSlug)
		}
		if base.Slug == "" {
			base = AdminedTournament{
				Name:    data.Tournament.Name,
				Slug:    tournamentSlug,
				StartAt: time.Unix(data.Tournament.StartAt, 0).UTC(),
				OwnerID: data.Tournament.Owner.ID,
			}
		}
		for _, node := range data.Tournament.Owner.Tournaments.Nodes {
			t := AdminedTournament{
				Name:    node.Name,
				Slug:    node.Slug,
				StartAt: time.Unix(node.StartAt, 0).UTC(),
			}
			if node.Owner != nil {
				t.OwnerID = node.Owner.ID
			}
			others = append(others, t)
		}
		if page >= data.Tournament.Owner.Tournaments.PageInfo.TotalPages {
			break
		}
	}
	return base, others, nil
}
