package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/bracketlab/tiering/internal/domain/tiering"
	"github.com/bracketlab/tiering/pkg/logger"
)

// BulkItem is one entry of a batch run.
type BulkItem struct {
	Slug         string
	Invitational bool
}

// BulkOutcome is the per-item result of a batch run. Exactly one of
// Result and Err is set.
type BulkOutcome struct {
	Item   BulkItem
	Result *tiering.Result
	Err    error
}

var reportNamePattern = regexp.MustCompile(`tournament/([a-z0-9_-]+)/event/([a-z0-9_-]+)`)

// Bulk scores every item in order. One failing item never aborts the
// run; its error is carried in the outcome instead.
func (s *Service) Bulk(ctx context.Context, items []BulkItem) []BulkOutcome {
	runID := uuid.NewString()
	log := s.log.Named("bulk")
	log.Info(ctx, "starting batch run",
		logger.String("run_id", runID),
		logger.Int("items", len(items)))

	outcomes := make([]BulkOutcome, 0, len(items))
	for _, item := range items {
		if ctx.Err() != nil {
			outcomes = append(outcomes, BulkOutcome{Item: item, Err: ctx.Err()})
			continue
		}

		result, err := s.ScoreEvent(ctx, item.Slug, item.Invitational, true)
		if err != nil {
			log.Error(ctx, "item failed",
				logger.String("run_id", runID),
				logger.String("slug", item.Slug),
				logger.Error(err))
			outcomes = append(outcomes, BulkOutcome{Item: item, Err: err})
			continue
		}
		outcomes = append(outcomes, BulkOutcome{Item: item, Result: result})
	}

	log.Info(ctx, "batch run finished", logger.String("run_id", runID))
	return outcomes
}

// WriteResults renders a batch run into the output directory: one
// summary.csv plus one audit report per scored event.
func (s *Service) WriteResults(outcomes []BulkOutcome) error {
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	summary, err := os.Create(filepath.Join(s.outDir, "summary.csv"))
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	defer summary.Close()

	writer := csv.NewWriter(summary)
	if err := writer.Write([]string{"Tournament", "Event", "Slug", "URL", "Invitational?", "Score", "Max Potential Score", "Num Entrants", "Meets Reqs"}); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	for _, outcome := range outcomes {
		row := []string{"", "", outcome.Item.Slug, "", "", "", "", "", ""}
		if r := outcome.Result; r != nil {
			row = []string{
				r.TournamentName,
				r.EventName,
				r.Slug,
				"https://start.gg/" + r.Slug,
				strconv.FormatBool(r.Invitational),
				strconv.Itoa(r.Score),
				strconv.Itoa(r.MaxPotentialScore()),
				strconv.Itoa(r.Entrants),
				strconv.FormatBool(r.ShouldCount()),
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	for _, outcome := range outcomes {
		if outcome.Result == nil {
			continue
		}
		if err := s.writeReport(outcome.Result); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writeReport(result *tiering.Result) error {
	name := reportNamePattern.ReplaceAllString(result.Slug, "${1}_${2}") + ".txt"
	f, err := os.Create(filepath.Join(s.outDir, name))
	if err != nil {
		return fmt.Errorf("create report for %s: %w", result.Slug, err)
	}
	defer f.Close()

	if err := result.WriteReport(f); err != nil {
		return fmt.Errorf("write report for %s: %w", result.Slug, err)
	}
	return nil
}

var bulkTrueValues = map[string]bool{"true": true, "t": true, "1": true}

// ReadBulkFile parses a batch input file. A .csv file must carry a
// "startgg slug" column and may carry an "Is Invitational?" column;
// any other file is read as one slug per line.
func ReadBulkFile(path string) ([]BulkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadBulkFile, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readBulkCSV(path, f)
	}

	var items []BulkItem
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadBulkFile, path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, BulkItem{Slug: line})
	}
	return items, nil
}

func readBulkCSV(path string, f io.Reader) ([]BulkItem, error) {
	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadBulkFile, path, err)
	}

	slugCol, invitCol := -1, -1
	for i, name := range header {
		switch name {
		case "startgg slug":
			slugCol = i
		case "Is Invitational?":
			invitCol = i
		}
	}
	if slugCol < 0 {
		return nil, fmt.Errorf("%w: %s: missing \"startgg slug\" column", ErrBadBulkFile, path)
	}

	var items []BulkItem
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadBulkFile, path, err)
		}
		item := BulkItem{Slug: strings.TrimSpace(record[slugCol])}
		if item.Slug == "" {
			continue
		}
		if invitCol >= 0 && invitCol < len(record) {
			item.Invitational = bulkTrueValues[strings.ToLower(record[invitCol])]
		}
		items = append(items, item)
	}
}
