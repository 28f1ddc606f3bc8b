package mapview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siteopt/internal/model"
)

func ptr(f float64) *float64 { return &f }

var (
	gym    = model.Site{Index: 0, Name: "Gym", Coordinates: model.LatLng{Lat: 14.60, Lon: 121.00}, Color: model.ColorBlue}
	school = model.Site{Index: 3, Name: "School", Coordinates: model.LatLng{Lat: 14.65, Lon: 121.05}, Color: model.ColorOrange}
)

func testUnits(n int) []model.Unit {
	units := make([]model.Unit, n)
	for i := range units {
		units[i] = model.Unit{
			Index:       i,
			Name:        string(rune('A' + i)),
			Coordinates: model.LatLng{Lat: 14.6 + float64(i)/100, Lon: 121.0},
			Population:  100 * (i + 1),
			Infected:    i,
		}
	}
	return units
}

func TestJoin_EmptyAssignments(t *testing.T) {
	units := []model.Unit{{Index: 0, Population: 100, Infected: 10}}

	got := Join(units, nil)

	require.Len(t, got, 1)
	assert.Equal(t, units[0], got[0].Unit)
	assert.Nil(t, got[0].Site)
	assert.Nil(t, got[0].Distance)
	assert.Equal(t, model.ColorUnknown, got[0].Color)
	assert.False(t, got[0].Assigned())
}

func TestJoin_PreservesUnitOrderAndCount(t *testing.T) {
	units := testUnits(5)
	assignments := []model.Assignment{
		{UnitIndex: 4, Site: &school, Distance: ptr(40)},
		{UnitIndex: 0, Site: &gym, Distance: ptr(10)},
		{UnitIndex: 2, Site: &gym, Distance: ptr(20)},
	}

	got := Join(units, assignments)

	require.Len(t, got, len(units))
	for i, ru := range got {
		assert.Equal(t, units[i], ru.Unit)
	}
	assert.Equal(t, "Gym", got[0].CenterLabel())
	assert.Equal(t, model.ColorBlue, got[0].Color)
	assert.False(t, got[1].Assigned())
	assert.Equal(t, model.ColorUnknown, got[1].Color)
	assert.Equal(t, "School", got[4].CenterLabel())
	assert.Equal(t, model.ColorOrange, got[4].Color)
	assert.InDelta(t, 40.0, *got[4].Distance, 1e-9)
}

func TestJoin_LastDuplicateWins(t *testing.T) {
	units := testUnits(2)
	assignments := []model.Assignment{
		{UnitIndex: 1, Site: &gym, Distance: ptr(5)},
		{UnitIndex: 1, Site: &school, Distance: ptr(9)},
	}

	got := Join(units, assignments)

	require.NotNil(t, got[1].Site)
	assert.Equal(t, "School", got[1].Site.Name)
	assert.InDelta(t, 9.0, *got[1].Distance, 1e-9)

	// Reversing the input flips the winner.
	got = Join(units, []model.Assignment{assignments[1], assignments[0]})
	assert.Equal(t, "Gym", got[1].Site.Name)
}

func TestJoin_DropsUnknownUnitsAndDegrades(t *testing.T) {
	units := testUnits(2)
	assignments := []model.Assignment{
		{UnitIndex: 7, Site: &gym, Distance: ptr(1)},
		{UnitIndex: -1, Site: &gym},
		{UnitIndex: 0, Site: nil, Distance: ptr(33.333)},
		{UnitIndex: 1, Site: &school, Distance: ptr(-4)},
	}

	got := Join(units, assignments)

	require.Len(t, got, 2)
	assert.Equal(t, NotAvailable, got[0].CenterLabel())
	assert.Equal(t, "33.33", got[0].DistanceLabel())
	assert.Equal(t, model.ColorUnknown, got[0].Color)

	assert.Equal(t, "School", got[1].CenterLabel())
	assert.Equal(t, NotAvailable, got[1].DistanceLabel())
}

func TestJoin_IdempotentAndDoesNotAlias(t *testing.T) {
	units := testUnits(3)
	site := gym
	assignments := []model.Assignment{{UnitIndex: 1, Site: &site, Distance: ptr(12)}}

	first := Join(units, assignments)
	second := Join(units, assignments)
	assert.Equal(t, first, second)

	first[1].Site.Name = "mutated"
	*first[1].Distance = 99
	assert.Equal(t, "Gym", site.Name)
	assert.InDelta(t, 12.0, *assignments[0].Distance, 1e-9)
	assert.Equal(t, "Gym", Join(units, assignments)[1].Site.Name)
}

func TestRenderedUnit_InfectedPercent(t *testing.T) {
	pct, ok := RenderedUnit{Unit: model.Unit{Population: 200, Infected: 5}}.InfectedPercent()
	assert.True(t, ok)
	assert.InDelta(t, 2.5, pct, 1e-9)

	_, ok = RenderedUnit{Unit: model.Unit{Population: 0}}.InfectedPercent()
	assert.False(t, ok)
}

func BenchmarkJoin(b *testing.B) {
	units := testUnits(20)
	for len(units) < 5000 {
		units = append(units, model.Unit{Index: len(units)})
	}
	assignments := make([]model.Assignment, len(units))
	for i := range assignments {
		assignments[i] = model.Assignment{UnitIndex: i, Site: &gym, Distance: ptr(float64(i))}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Join(units, assignments)
	}
}
