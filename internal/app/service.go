// Package app orchestrates scoring runs: it fetches event data through
// the adapters, hands it to the domain aggregate and renders the
// outputs.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bracketlab/tiering/internal/adapters/startgg"
	"github.com/bracketlab/tiering/internal/domain/model"
	"github.com/bracketlab/tiering/internal/domain/region"
	"github.com/bracketlab/tiering/internal/domain/tiering"
	"github.com/bracketlab/tiering/internal/domain/values"
	"github.com/bracketlab/tiering/pkg/logger"
	"github.com/bracketlab/tiering/pkg/metrics"
)

// Discovery finds events to score. Satisfied by *startgg.Client.
type Discovery interface {
	TournamentsBetween(ctx context.Context, start, end time.Time, videogameID int64) ([]startgg.TournamentListing, error)
	AdminedTournaments(ctx context.Context, tournamentSlug string, videogameID int64) (startgg.AdminedTournament, []startgg.AdminedTournament, error)
}

// Service wires the data source, reference tables and output rendering
// into the scoring operations the commands expose.
type Service struct {
	source    tiering.Source
	geocoder  tiering.Geocoder
	discovery Discovery
	registry  *values.Registry
	regions   *region.Set

	log     logger.Logger
	metrics *metrics.Manager

	outDir          string
	videogameID     int64
	fallbackAddress model.Address
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the tournament data source. Required.
func WithSource(src tiering.Source) Option {
	return func(s *Service) { s.source = src }
}

// WithGeocoder sets the reverse geocoder used for region lookups.
func WithGeocoder(g tiering.Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithDiscovery sets the event discovery source used by Search.
func WithDiscovery(d Discovery) Option {
	return func(s *Service) { s.discovery = d }
}

// WithRegistry sets the player value registry. Required.
func WithRegistry(r *values.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithRegions sets the region rule set. Required.
func WithRegions(r *region.Set) Option {
	return func(s *Service) { s.regions = r }
}

// WithLogger overrides the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics overrides the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithOutputDir sets where reports and summaries are written.
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.outDir = dir
		}
	}
}

// WithVideogameID sets the game filter used by Search.
func WithVideogameID(id int64) Option {
	return func(s *Service) {
		if id > 0 {
			s.videogameID = id
		}
	}
}

// WithFallbackAddress sets the address assumed when location lookup is
// disabled.
func WithFallbackAddress(addr model.Address) Option {
	return func(s *Service) { s.fallbackAddress = addr }
}

// NewService assembles a scoring service. A data source, registry and
// region set are required; everything else has a sensible default.
func NewService(opts ...Option) (*Service, error) {
	s := &Service{
		log:             logger.Named("app"),
		metrics:         metrics.NewManager(),
		outDir:          "tts_values",
		videogameID:     1386,
		fallbackAddress: model.Address{CountryCode: "us"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.source == nil {
		return nil, fmt.Errorf("%w: data source", ErrNotConfigured)
	}
	if s.registry == nil {
		return nil, fmt.Errorf("%w: player registry", ErrNotConfigured)
	}
	if s.regions == nil {
		return nil, fmt.Errorf("%w: region set", ErrNotConfigured)
	}
	return s, nil
}

// ScoreEvent scores one event end to end. withLocation controls whether
// the venue is reverse geocoded; when disabled the fallback address is
// used, which selects the default region multiplier.
func (s *Service) ScoreEvent(ctx context.Context, rawSlug string, invitational, withLocation bool) (*tiering.Result, error) {
	slug, err := startgg.NormalizeSlug(rawSlug)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := s.score(ctx, slug, invitational, withLocation)
	if err != nil {
		s.metrics.TournamentFailed()
		return nil, err
	}
	s.metrics.TournamentScored(time.Since(started))

	s.log.Info(ctx, "scored event",
		logger.String("slug", slug),
		logger.Int("score", result.Score),
		logger.Int("entrants", result.Entrants),
		logger.Bool("meets_reqs", result.ShouldCount()))
	return result, nil
}

func (s *Service) score(ctx context.Context, slug string, invitational, withLocation bool) (*tiering.Result, error) {
	names, err := s.source.Names(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("resolve names for %s: %w", slug, err)
	}

	startTime, err := s.source.StartTime(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("resolve start time for %s: %w", slug, err)
	}

	recon, err := tiering.Reconcile(ctx, s.source, slug)
	if err != nil {
		return nil, err
	}

	addr, err := s.resolveAddress(ctx, slug, withLocation)
	if err != nil {
		return nil, err
	}

	tournament := tiering.NewTournament(slug, invitational, names, startTime, addr, recon)
	return tournament.CalculateTier(s.registry, s.regions)
}

func (s *Service) resolveAddress(ctx context.Context, slug string, withLocation bool) (model.Address, error) {
	if !withLocation {
		return s.fallbackAddress, nil
	}
	if s.geocoder == nil {
		s.log.Warn(ctx, "no geocoder configured, using fallback address", logger.String("slug", slug))
		return s.fallbackAddress, nil
	}

	lat, lng, err := s.source.Coordinates(ctx, slug)
	if err != nil {
		return model.Address{}, fmt.Errorf("resolve coordinates for %s: %w", slug, err)
	}

	addr, err := s.geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		return model.Address{}, fmt.Errorf("reverse geocode %s: %w", slug, err)
	}
	return addr, nil
}
