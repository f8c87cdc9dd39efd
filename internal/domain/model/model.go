// Package model contains domain models passed between layers.
package model

import "strconv"

// Identity keys a player in the value registry. The reference sheets key
// players by their numeric data-source id when one is known, and by bare
// tag otherwise; the two kinds never compare equal.
type Identity struct {
	num     int64
	tag     string
	numeric bool
}

// NumericID builds an identity from a data-source player id.
func NumericID(n int64) Identity {
	return Identity{num: n, numeric: true}
}

// TagID builds a tag-only identity for rows without a numeric id.
func TagID(tag string) Identity {
	return Identity{tag: tag}
}

// Numeric returns the numeric id and whether this identity has one.
func (i Identity) Numeric() (int64, bool) {
	return i.num, i.numeric
}

func (i Identity) String() string {
	if i.numeric {
		return strconv.FormatInt(i.num, 10)
	}
	return i.tag
}

// Entrant is a player's participation record in one event. Two entrants
// are the same only if both the player id and the displayed tag agree;
// the same player can appear under different tags across events.
type Entrant struct {
	PlayerID int64
	Tag      string
}

// Address is the structured breakdown returned by reverse geocoding.
// ISO subdivision codes can surface at level 3 or 4 depending on the
// country; region rules accept either.
type Address struct {
	CountryCode string
	ISOLevel3   string
	ISOLevel4   string
	County      string
	City        string
	Postcode    string
}
