package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpmatch-service/internal/geo"
	"helpmatch-service/internal/users"
)

func volunteer(id string, lat, lng float64, skills ...string) users.User {
	return users.User{
		ID:          id,
		Name:        "Volunteer " + id,
		Role:        users.RoleVolunteer,
		City:        "Bengaluru",
		Lat:         &lat,
		Lng:         &lng,
		Skills:      skills,
		IsAvailable: true,
	}
}

func ids(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Volunteer.ID
	}
	return out
}

var origin = geo.Point{Lat: 12.97, Lng: 77.59}

func TestRankOrdersByDistance(t *testing.T) {
	far := volunteer("far", 13.10, 77.70, "grocery")
	near := volunteer("near", 12.975, 77.595, "grocery")
	mid := volunteer("mid", 13.00, 77.62, "grocery")

	got := Rank(origin, []users.User{far, near, mid}, Options{Category: "grocery"})

	assert.Equal(t, []string{"near", "mid", "far"}, ids(got))
	for _, c := range got {
		require.NotNil(t, c.DistanceKm)
	}
	assert.Less(t, *got[0].DistanceKm, *got[1].DistanceKm)
}

func TestRankFiltersSkillMismatch(t *testing.T) {
	medic := volunteer("medic", 12.975, 77.595, "medical")
	shopper := volunteer("shopper", 13.00, 77.62, "grocery")

	got := Rank(origin, []users.User{medic, shopper}, Options{Category: "medical"})

	assert.Equal(t, []string{"medic"}, ids(got))
}

func TestRankSkipsUnavailable(t *testing.T) {
	v := volunteer("v1", 12.975, 77.595, "grocery")
	v.IsAvailable = false

	got := Rank(origin, []users.User{v}, Options{Category: "grocery"})

	assert.Empty(t, got)
}

func TestRankSkipsNonVolunteers(t *testing.T) {
	v := volunteer("v1", 12.975, 77.595, "grocery")
	v.Role = users.RoleRequester

	got := Rank(origin, []users.User{v}, Options{})

	assert.Empty(t, got)
}

func TestRankRadiusExcludesOnlyLocated(t *testing.T) {
	near := volunteer("near", 12.975, 77.595, "grocery")
	tooFar := volunteer("far", 15.00, 78.50, "grocery") // well outside 50km

	unlocated := volunteer("unlocated", 0, 0, "grocery")
	unlocated.Lat, unlocated.Lng = nil, nil

	got := Rank(origin, []users.User{tooFar, unlocated, near}, Options{Category: "grocery"})

	// the volunteer with no location survives the radius and sorts last
	require.Equal(t, []string{"near", "unlocated"}, ids(got))
	assert.Nil(t, got[1].DistanceKm)
}

func TestRankTiesBrokenByRating(t *testing.T) {
	a := volunteer("a", 12.975, 77.595, "grocery")
	a.Rating = users.Rating{Average: 4.2, Count: 10}
	b := volunteer("b", 12.975, 77.595, "grocery")
	b.Rating = users.Rating{Average: 4.8, Count: 3}
	c := volunteer("c", 12.975, 77.595, "grocery")
	c.Rating = users.Rating{Average: 4.8, Count: 20}

	got := Rank(origin, []users.User{a, b, c}, Options{Category: "grocery"})

	// same spot: higher average first, more ratings breaks the remaining tie
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))
}

func TestRankCityFilter(t *testing.T) {
	local := volunteer("local", 12.975, 77.595, "grocery")
	remote := volunteer("remote", 12.976, 77.596, "grocery")
	remote.City = "Chennai"

	got := Rank(origin, []users.User{local, remote}, Options{City: "Bengaluru"})

	assert.Equal(t, []string{"local"}, ids(got))
}

func TestRankCustomRadius(t *testing.T) {
	near := volunteer("near", 12.975, 77.595, "grocery")
	mid := volunteer("mid", 13.05, 77.65, "grocery") // ~11km out

	got := Rank(origin, []users.User{near, mid}, Options{RadiusKm: 5})

	assert.Equal(t, []string{"near"}, ids(got))
}
