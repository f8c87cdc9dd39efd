// Package tables loads the reference sheets that drive scoring: player
// values, invitational bonuses, tag aliases and region multipliers. All
// sheets are CSV, matching the format the spreadsheet exports use.
package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bracketlab/tiering/internal/domain/model"
	"github.com/bracketlab/tiering/internal/domain/region"
	"github.com/bracketlab/tiering/internal/domain/values"
)

// Player sheet headers.
const (
	colNumID     = "Start.gg Num ID"
	colPlayer    = "Player"
	colPoints    = "Points"
	colNote      = "Note"
	colStartDate = "Start Date"
	colEndDate   = "End Date"

	colInvitNum    = "Num"
	colInvitPoints = "Additional Points"
)

// Region sheet headers.
const (
	colCountry      = "country_code"
	colISO          = "ISO3166-2"
	colCounty       = "county"
	colCity         = "city"
	colJPPostal     = "jp-postal-code"
	colMultiplier   = "Multiplier"
	colEntrantFloor = "Entrant Floor"
	colScoreFloor   = "Score Floor"
	colRegionNote   = "Note"
)

// LoadPlayers builds the player value registry from the players sheet,
// the invitational bonus sheet and the tag alias sheet. The alias sheet
// is optional; the other two are required.
func LoadPlayers(playersPath, invitationalPath, tagsPath string) (*values.Registry, error) {
	aliases, err := loadAliases(tagsPath)
	if err != nil {
		return nil, err
	}

	registry := values.NewRegistry()

	if err := forEachRecord(playersPath, func(row map[string]string) error {
		tag := strings.TrimSpace(row[colPlayer])
		if tag == "" {
			return nil
		}

		id, err := identityFor(row[colNumID], tag)
		if err != nil {
			return err
		}

		points, err := strconv.Atoi(row[colPoints])
		if err != nil {
			return fmt.Errorf("%w: points %q: %w", ErrBadRow, row[colPoints], err)
		}

		from, err := optionalDate(row[colStartDate])
		if err != nil {
			return err
		}
		until, err := optionalDate(row[colEndDate])
		if err != nil {
			return err
		}

		group := registry.Ensure(id, tag, aliases[row[colPlayer]])
		group.AddValue(points, row[colNote], from, until)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := forEachRecord(invitationalPath, func(row map[string]string) error {
		id, err := identityFor(row[colInvitNum], row[colPlayer])
		if err != nil {
			return err
		}

		group, ok := registry.Group(id)
		if !ok {
			return nil
		}

		bonus, err := strconv.Atoi(row[colInvitPoints])
		if err != nil {
			return fmt.Errorf("%w: bonus %q: %w", ErrBadRow, row[colInvitPoints], err)
		}
		group.SetInvitationalBonus(bonus)
		return nil
	}); err != nil {
		return nil, err
	}

	return registry, nil
}

// LoadRegions builds the region rule set from the regions sheet.
func LoadRegions(path string) (*region.Set, error) {
	var rules []region.Rule

	if err := forEachRecord(path, func(row map[string]string) error {
		multiplier, err := strconv.Atoi(row[colMultiplier])
		if err != nil {
			return fmt.Errorf("%w: multiplier %q: %w", ErrBadRow, row[colMultiplier], err)
		}
		entrantFloor, err := strconv.Atoi(row[colEntrantFloor])
		if err != nil {
			return fmt.Errorf("%w: entrant floor %q: %w", ErrBadRow, row[colEntrantFloor], err)
		}
		scoreFloor, err := strconv.Atoi(row[colScoreFloor])
		if err != nil {
			return fmt.Errorf("%w: score floor %q: %w", ErrBadRow, row[colScoreFloor], err)
		}

		rules = append(rules, region.Rule{
			CountryCode:  row[colCountry],
			Subdivision:  row[colISO],
			County:       row[colCounty],
			City:         row[colCity],
			PostalPrefix: row[colJPPostal],
			Multiplier:   multiplier,
			EntrantFloor: entrantFloor,
			ScoreFloor:   scoreFloor,
			Note:         row[colRegionNote],
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return region.NewSet(rules), nil
}

// loadAliases reads the positional tag alias sheet: canonical tag first,
// alternates after. A missing file is not an error.
func loadAliases(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenTable, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	aliases := make(map[string][]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadRow, path, err)
		}
		if len(record) < 2 {
			continue
		}
		var alts []string
		for _, tag := range record[1:] {
			if tag != "" {
				alts = append(alts, tag)
			}
		}
		if len(alts) > 0 {
			aliases[record[0]] = alts
		}
	}
	return aliases, nil
}

// forEachRecord streams a header-keyed CSV, calling fn with one map per
// data row.
func forEachRecord(path string, fn func(row map[string]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenTable, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadRow, path, err)
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBadRow, path, err)
		}
		line++

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}

// identityFor builds the player identity: the numeric id when present,
// the tag itself otherwise.
func identityFor(rawID, tag string) (model.Identity, error) {
	if rawID == "" {
		return model.TagID(tag), nil
	}
	n, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: id %q: %w", ErrBadRow, rawID, err)
	}
	return model.NumericID(n), nil
}

// optionalDate parses an ISO date, or returns nil for the empty string.
func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q: %w", ErrBadRow, raw, err)
	}
	return &t, nil
}
