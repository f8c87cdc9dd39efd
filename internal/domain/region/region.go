// Package region matches geocoded addresses against hierarchical region
// rules. The winning rule supplies the entrant multiplier and the
// eligibility floors for a tournament.
package region

import (
	"fmt"
	"sort"

	"github.com/bracketlab/tiering/internal/domain/model"
)

// Rule is one geographic row from the regions sheet. A rule with an
// empty country code is the universal fallback: it matches every
// address with minimal specificity. Immutable once loaded.
type Rule struct {
	CountryCode  string
	Subdivision  string // ISO 3166-2 code, level 3 or 4
	County       string
	City         string
	PostalPrefix string // first two postcode characters; jp rules only

	Multiplier   int
	EntrantFloor int
	ScoreFloor   int
	Note         string
}

// Match scores how specifically the rule applies to the address.
// Zero means no match. The fallback rule always scores 1. Each matched
// level adds 2, each wildcarded level below a match adds 1, so a rule
// pinning more of the hierarchy always outscores a coarser one.
func (r Rule) Match(addr model.Address) int {
	if r.CountryCode == "" {
		return 1
	}
	if addr.CountryCode != r.CountryCode {
		return 0
	}
	match := 2

	if r.Subdivision == "" {
		match++
	} else if addr.ISOLevel4 == r.Subdivision || addr.ISOLevel3 == r.Subdivision {
		match += 2

		if r.County == "" && r.City == "" {
			match++
		} else if r.County != "" && addr.County == r.County {
			match += 2
		} else if r.City != "" && addr.City == r.City {
			match += 2
		}
	}

	// Japan refines on the first two postcode digits.
	if r.CountryCode == "jp" {
		postal := "XX"
		if len(addr.Postcode) >= 2 {
			postal = addr.Postcode[:2]
		}
		if r.PostalPrefix == "" {
			match++
		} else if postal == r.PostalPrefix {
			match += 2
		}
	}

	return match
}

// populated counts the constraint fields the rule pins down.
func (r Rule) populated() int {
	n := 0
	for _, f := range []string{r.CountryCode, r.Subdivision, r.County, r.City, r.PostalPrefix} {
		if f != "" {
			n++
		}
	}
	return n
}

// key identifies a rule for dedup purposes; the note is advisory only.
func (r Rule) key() [8]string {
	return [8]string{
		r.CountryCode, r.Subdivision, r.County, r.City, r.PostalPrefix,
		fmt.Sprint(r.Multiplier), fmt.Sprint(r.EntrantFloor), fmt.Sprint(r.ScoreFloor),
	}
}

func (r Rule) String() string {
	if r.CountryCode == "" {
		return fmt.Sprintf("All Other Regions [%s] - x%d", r.Note, r.Multiplier)
	}
	ret := r.CountryCode
	if r.Subdivision != "" {
		ret += "/" + r.Subdivision
		if r.County != "" {
			ret += "/" + r.County
		} else if r.City != "" {
			ret += "/" + r.City
		}
	}
	if r.PostalPrefix != "" {
		ret += "/JP Postal " + r.PostalPrefix
	}
	return fmt.Sprintf("%s [%s] - x%d", ret, r.Note, r.Multiplier)
}

// Set holds the loaded rules in a fixed evaluation order.
type Set struct {
	rules []Rule
}

// NewSet builds a rule set. Duplicate rules (same constraints and
// numbers, note ignored) collapse to one. Rules are ordered most
// specific first, then lexicographically, so tie-breaks between
// equal-specificity matches never depend on sheet row order.
func NewSet(rules []Rule) *Set {
	seen := make(map[[8]string]struct{}, len(rules))
	s := &Set{}
	for _, r := range rules {
		k := r.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		s.rules = append(s.rules, r)
	}
	sort.SliceStable(s.rules, func(i, j int) bool {
		a, b := s.rules[i], s.rules[j]
		if pa, pb := a.populated(), b.populated(); pa != pb {
			return pa > pb
		}
		ka, kb := a.key(), b.key()
		for n := range ka {
			if ka[n] != kb[n] {
				return ka[n] < kb[n]
			}
		}
		return false
	})
	return s
}

// Rules returns the evaluation-ordered rules.
func (s *Set) Rules() []Rule { return s.rules }

// Best returns the rule with the strictly highest specificity for the
// address. With the fallback rule loaded this cannot fail; a miss means
// the reference table is broken.
func (s *Set) Best(addr model.Address) (Rule, error) {
	best := 0
	var winner Rule
	for _, r := range s.rules {
		if m := r.Match(addr); m > best {
			best = m
			winner = r
		}
	}
	if best == 0 {
		return Rule{}, ErrNoApplicableRegion
	}
	return winner, nil
}
