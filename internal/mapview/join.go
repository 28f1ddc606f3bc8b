package mapview

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/siteopt/internal/model"
)

// NotAvailable is shown for values an assignment did not provide.
const NotAvailable = "N/A"

// RenderedUnit is a unit joined with its assignment. Site and Distance are nil
// when the unit is unassigned or the service omitted them.
type RenderedUnit struct {
	Unit     model.Unit  `json:"unit"`
	Site     *model.Site `json:"assigned_site,omitempty"`
	Distance *float64    `json:"distance_meters,omitempty"`
	Color    model.Color `json:"display_color"`
}

// Assigned reports whether the unit has an assigned site.
func (r RenderedUnit) Assigned() bool { return r.Site != nil }

// CenterLabel is the assigned site's name or N/A.
func (r RenderedUnit) CenterLabel() string {
	if r.Site == nil {
		return NotAvailable
	}
	return r.Site.Name
}

// DistanceLabel is the distance in meters with two decimals or N/A.
func (r RenderedUnit) DistanceLabel() string {
	if r.Distance == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", *r.Distance)
}

// InfectedPercent returns infected/population as a percentage. It returns
// false when the population is zero.
func (r RenderedUnit) InfectedPercent() (float64, bool) {
	if r.Unit.Population <= 0 {
		return 0, false
	}
	return float64(r.Unit.Infected) / float64(r.Unit.Population) * 100, true
}

// Join attaches assignments to units. The result has one entry per unit, in
// unit order. When several assignments name the same unit the last one wins;
// assignments naming units that do not exist are dropped.
func Join(units []model.Unit, assignments []model.Assignment) []RenderedUnit {
	byUnit := make(map[int]model.Assignment, len(assignments))
	for _, a := range assignments {
		byUnit[a.UnitIndex] = a
	}

	out := make([]RenderedUnit, len(units))
	matched := 0
	for i, u := range units {
		ru := RenderedUnit{Unit: u}
		if a, ok := byUnit[u.Index]; ok {
			matched++
			if d, ok := a.DistanceMeters(); ok {
				ru.Distance = &d
			}
			if a.Site != nil {
				site := *a.Site
				ru.Site = &site
				ru.Color = site.Color
			}
		}
		out[i] = ru
	}

	if orphans := len(byUnit) - matched; orphans > 0 {
		zap.L().Debug("mapview: dropped assignments for unknown units",
			zap.Int("dropped", orphans),
			zap.Int("units", len(units)),
		)
	}
	return out
}
