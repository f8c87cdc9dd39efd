package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/urfave/cli/v2"

	"github.com/bracketlab/tiering/internal/adapters/geocode"
	"github.com/bracketlab/tiering/internal/adapters/startgg"
	"github.com/bracketlab/tiering/internal/adapters/tables"
	"github.com/bracketlab/tiering/internal/app"
	"github.com/bracketlab/tiering/internal/config"
	"github.com/bracketlab/tiering/pkg/logger"
	"github.com/bracketlab/tiering/pkg/metrics"
)

const metricsReadHeaderTimeout = 5 * time.Second

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "tiering",
		Usage: "score tournaments for tier placement",
		Commands: []*cli.Command{
			scoreCommand(),
			bulkCommand(),
			searchCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Get().Error(ctx, "command failed", logger.Error(err))
		os.Exit(1)
	}
}

// bootstrap loads configuration and assembles the scoring service with
// its adapters. outDir, when non-empty, overrides the configured
// output directory.
func bootstrap(ctx context.Context, outDir string) (*app.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	manager := metrics.NewManager(metrics.WithNamespace("tiering"))
	if cfg.MetricsAddr != "" {
		startMetricsServer(ctx, cfg.MetricsAddr, manager)
	}

	registry, err := tables.LoadPlayers(cfg.PlayersFile, cfg.InvitationalFile, cfg.TagsFile)
	if err != nil {
		return nil, fmt.Errorf("load player tables: %w", err)
	}
	regions, err := tables.LoadRegions(cfg.RegionsFile)
	if err != nil {
		return nil, fmt.Errorf("load region table: %w", err)
	}
	log.Info(ctx, "loaded reference tables",
		logger.Int("players", registry.Len()),
		logger.Int("regions", len(regions.Rules())))

	source := startgg.NewClient(
		startgg.WithEndpoint(cfg.StartggEndpoint),
		startgg.WithToken(cfg.StartggToken),
		startgg.WithRequestsPerMinute(cfg.StartggRequestsPerMinute),
		startgg.WithObserver(manager),
	)
	geocoder := geocode.NewClient(
		geocode.WithEndpoint(cfg.GeocoderEndpoint),
		geocode.WithUserAgent(cfg.GeocoderUserAgent),
		geocode.WithRetries(cfg.GeocoderRetries),
		geocode.WithObserver(manager),
	)

	if outDir == "" {
		outDir = cfg.OutputDir
	}

	return app.NewService(
		app.WithSource(source),
		app.WithGeocoder(geocoder),
		app.WithDiscovery(source),
		app.WithRegistry(registry),
		app.WithRegions(regions),
		app.WithLogger(log),
		app.WithMetrics(manager),
		app.WithOutputDir(outDir),
		app.WithVideogameID(cfg.SearchVideogameID),
	)
}

func startMetricsServer(ctx context.Context, addr string, manager *metrics.Manager) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", manager.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}
	go func() {
		logger.Get().Info(ctx, "serving metrics", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Get().Error(ctx, "metrics server failed", logger.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "score a single event and print its audit report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "slug", Usage: "event slug or start.gg URL", Required: true},
			&cli.BoolFlag{Name: "invitational", Usage: "apply invitational bonuses"},
			&cli.BoolFlag{Name: "no-location", Usage: "skip venue lookup and use the default region"},
		},
		Action: func(c *cli.Context) error {
			svc, err := bootstrap(c.Context, "")
			if err != nil {
				return err
			}
			result, err := svc.ScoreEvent(c.Context, c.String("slug"), c.Bool("invitational"), !c.Bool("no-location"))
			if err != nil {
				return err
			}
			return result.WriteReport(os.Stdout)
		},
	}
}

func bulkCommand() *cli.Command {
	return &cli.Command{
		Name:  "bulk",
		Usage: "score every event listed in a file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "CSV or line-per-slug input file", Required: true},
			&cli.StringFlag{Name: "out", Usage: "output directory override"},
		},
		Action: func(c *cli.Context) error {
			items, err := app.ReadBulkFile(c.String("file"))
			if err != nil {
				return err
			}
			svc, err := bootstrap(c.Context, c.String("out"))
			if err != nil {
				return err
			}
			return svc.WriteResults(svc.Bulk(c.Context, items))
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "discover and score events in a time window",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Usage: "window start, natural language or date", Required: true},
			&cli.StringFlag{Name: "end", Usage: "window end, natural language or date", Required: true},
			&cli.StringFlag{Name: "out", Usage: "output directory override"},
		},
		Action: func(c *cli.Context) error {
			start, err := parseTime(c.String("start"))
			if err != nil {
				return err
			}
			end, err := parseTime(c.String("end"))
			if err != nil {
				return err
			}

			svc, err := bootstrap(c.Context, c.String("out"))
			if err != nil {
				return err
			}
			items, err := svc.Search(c.Context, start, end)
			if err != nil {
				return err
			}
			logger.Get().Info(c.Context, "discovered events", logger.Int("count", len(items)))
			return svc.WriteResults(svc.Bulk(c.Context, items))
		},
	}
}

// parseTime accepts plain dates as well as phrases like "last monday".
func parseTime(text string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("parse time %q: unrecognized", text)
	}
	return r.Time, nil
}
