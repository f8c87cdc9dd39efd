// Package values holds the player value registry: per-player scored
// achievements with validity windows, plus the tag aliases used to catch
// entrants whose numeric id is missing from the reference sheet.
package values

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bracketlab/tiering/internal/domain/model"
)

// Value is one scored achievement. It is valid over the half-open window
// [From, Until); a nil bound leaves that side open. Immutable once added
// to a group, except for the invitational bonus which the invitational
// sheet back-fills during loading.
type Value struct {
	ID                model.Identity
	Tag               string
	Points            int
	Note              string
	InvitationalBonus int
	From              *time.Time
	Until             *time.Time
}

// InWindow reports whether the value applies on the given event date.
func (v Value) InWindow(date time.Time) bool {
	if v.From != nil && date.Before(*v.From) {
		return false
	}
	if v.Until != nil && !date.Before(*v.Until) {
		return false
	}
	return true
}

// ScoreFor returns the realized points, adding the invitational bonus
// only for invitational events.
func (v Value) ScoreFor(invitational bool) int {
	if invitational {
		return v.Points + v.InvitationalBonus
	}
	return v.Points
}

func (v Value) String() string {
	return fmt.Sprintf("%s (id %s) - %d (+%d) points [%s]", v.Tag, v.ID, v.Points, v.InvitationalBonus, v.Note)
}

// Group owns every value recorded for one player identity, kept sorted
// descending by points so lookup prefers the highest applicable entry.
type Group struct {
	id                model.Identity
	tag               string
	invitationalBonus int
	values            []Value
	altTags           map[string]struct{}
}

// NewGroup creates a group for one player. altTags may be nil.
func NewGroup(id model.Identity, tag string, altTags []string) *Group {
	g := &Group{
		id:      id,
		tag:     tag,
		altTags: make(map[string]struct{}, len(altTags)),
	}
	for _, t := range altTags {
		g.altTags[strings.ToLower(t)] = struct{}{}
	}
	return g
}

// ID returns the player identity the group is keyed by.
func (g *Group) ID() model.Identity { return g.id }

// Tag returns the canonical tag.
func (g *Group) Tag() string { return g.tag }

// AddValue records one scored achievement and re-sorts descending by
// points. The sort is stable so equal-point rows keep sheet order.
func (g *Group) AddValue(points int, note string, from, until *time.Time) {
	g.values = append(g.values, Value{
		ID:                g.id,
		Tag:               g.tag,
		Points:            points,
		Note:              note,
		InvitationalBonus: g.invitationalBonus,
		From:              from,
		Until:             until,
	})
	sort.SliceStable(g.values, func(i, j int) bool {
		return g.values[i].Points > g.values[j].Points
	})
}

// SetInvitationalBonus sets the bonus for the group and back-fills every
// value already recorded.
func (g *Group) SetInvitationalBonus(bonus int) {
	g.invitationalBonus = bonus
	for i := range g.values {
		g.values[i].InvitationalBonus = bonus
	}
}

// ValueAt returns the highest-point value whose window contains the
// event date, or false if no window contains it.
func (g *Group) ValueAt(date time.Time) (Value, bool) {
	for _, v := range g.values {
		if v.InWindow(date) {
			return v, true
		}
	}
	return Value{}, false
}

// MatchesTag reports a case-insensitive match against the canonical tag
// or any alternate.
func (g *Group) MatchesTag(tag string) bool {
	lower := strings.ToLower(tag)
	if lower == strings.ToLower(g.tag) {
		return true
	}
	_, ok := g.altTags[lower]
	return ok
}

// Registry is the process-wide player value table, loaded once and then
// only read.
type Registry struct {
	groups map[model.Identity]*Group
	order  []model.Identity
	tags   map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[model.Identity]*Group),
		tags:   make(map[string]struct{}),
	}
}

// Ensure returns the group for id, creating it with the given canonical
// tag and alternates on first sight. The canonical tag and alternates
// are indexed for tag-only lookups.
func (r *Registry) Ensure(id model.Identity, tag string, altTags []string) *Group {
	if g, ok := r.groups[id]; ok {
		return g
	}
	g := NewGroup(id, tag, altTags)
	r.groups[id] = g
	r.order = append(r.order, id)
	r.tags[strings.ToLower(tag)] = struct{}{}
	for _, t := range altTags {
		r.tags[strings.ToLower(t)] = struct{}{}
	}
	return g
}

// Group looks up a player by identity.
func (r *Registry) Group(id model.Identity) (*Group, bool) {
	g, ok := r.groups[id]
	return g, ok
}

// KnownTag reports whether any group owns the tag (canonical or
// alternate, case-insensitive). Cheap pre-check before the fuzzy scan.
func (r *Registry) KnownTag(tag string) bool {
	_, ok := r.tags[strings.ToLower(tag)]
	return ok
}

// GroupsMatchingTag returns every group whose canonical or alternate
// tags match, in registration order so downstream output is stable.
func (r *Registry) GroupsMatchingTag(tag string) []*Group {
	var out []*Group
	for _, id := range r.order {
		if g := r.groups[id]; g.MatchesTag(tag) {
			out = append(out, g)
		}
	}
	return out
}

// Len returns the number of player groups.
func (r *Registry) Len() int { return len(r.groups) }
