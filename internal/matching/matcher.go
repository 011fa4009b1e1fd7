// Package matching ranks available volunteers for a help request by
// proximity. The ranking is advisory: nothing here assigns anyone, a
// volunteer still has to claim the request.
package matching

import (
	"context"
	"sort"

	"helpmatch-service/internal/geo"
	"helpmatch-service/internal/users"
)

// DefaultRadiusKm is used when the caller passes no radius.
const DefaultRadiusKm = 50.0

// Directory supplies the volunteer pool to rank.
type Directory interface {
	AvailableVolunteers(ctx context.Context, city, category string) ([]users.User, error)
}

// Options narrow the candidate pool.
type Options struct {
	Category string
	City     string
	RadiusKm float64
}

// Candidate is one ranked volunteer. DistanceKm is nil when the
// volunteer has no known location; such candidates always sort last
// but are never dropped by the radius.
type Candidate struct {
	Volunteer  users.User `json:"volunteer"`
	DistanceKm *float64   `json:"distance_km"`
}

// Matcher ranks volunteers for a request location.
type Matcher struct {
	dir Directory
}

// NewMatcher creates a matcher over the given volunteer directory.
func NewMatcher(dir Directory) *Matcher {
	return &Matcher{dir: dir}
}

// Match returns candidates for the given origin, nearest first.
func (m *Matcher) Match(ctx context.Context, origin geo.Point, opts Options) ([]Candidate, error) {
	vols, err := m.dir.AvailableVolunteers(ctx, opts.City, opts.Category)
	if err != nil {
		return nil, err
	}
	return Rank(origin, vols, opts), nil
}

// Rank filters and orders volunteers: available skill-matching
// volunteers within the radius, ascending distance, ties broken by
// descending rating average then descending rating count. Volunteers
// without a location are kept at the end of the list regardless of the
// radius.
func Rank(origin geo.Point, vols []users.User, opts Options) []Candidate {
	radius := opts.RadiusKm
	if radius <= 0 {
		radius = DefaultRadiusKm
	}

	candidates := make([]Candidate, 0, len(vols))
	for _, v := range vols {
		if v.Role != users.RoleVolunteer || !v.IsAvailable {
			continue
		}
		if opts.Category != "" && !hasSkill(v.Skills, opts.Category) {
			continue
		}
		if opts.City != "" && v.City != opts.City {
			continue
		}

		c := Candidate{Volunteer: v}
		if v.Lat != nil && v.Lng != nil {
			d := geo.DistanceKm(origin, geo.Point{Lat: *v.Lat, Lng: *v.Lng})
			if d > radius {
				continue
			}
			c.DistanceKm = &d
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch {
		case a.DistanceKm == nil && b.DistanceKm == nil:
			// fall through to rating tiebreak
		case a.DistanceKm == nil:
			return false
		case b.DistanceKm == nil:
			return true
		case *a.DistanceKm != *b.DistanceKm:
			return *a.DistanceKm < *b.DistanceKm
		}
		if a.Volunteer.Rating.Average != b.Volunteer.Rating.Average {
			return a.Volunteer.Rating.Average > b.Volunteer.Rating.Average
		}
		return a.Volunteer.Rating.Count > b.Volunteer.Rating.Count
	})

	return candidates
}

func hasSkill(skills []string, category string) bool {
	for _, s := range skills {
		if s == category {
			return true
		}
	}
	return false
}
