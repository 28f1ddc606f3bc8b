package mapview

import (
	"fmt"

	"github.com/sells-group/siteopt/internal/model"
)

// MarkerKind distinguishes facility markers from barangay markers.
type MarkerKind string

const (
	MarkerSite MarkerKind = "site"
	MarkerUnit MarkerKind = "unit"
)

// Marker is a single map pin.
type Marker struct {
	Kind     MarkerKind   `json:"kind"`
	Index    int          `json:"index"`
	Name     string       `json:"name"`
	Position model.LatLng `json:"position"`
	Icon     Icon         `json:"icon"`
	Tooltip  string       `json:"tooltip,omitempty"`
	Popup    Popup        `json:"popup"`
}

// Popup is the click-through detail for a marker.
type Popup struct {
	Title string   `json:"title"`
	Lines []string `json:"lines,omitempty"`
}

// Row is one line of the assignment table.
type Row struct {
	Barangay string `json:"barangay"`
	Center   string `json:"nearest_center"`
	Distance string `json:"distance_m"`
}

// Scene is everything the map front end needs to draw one optimization result.
type Scene struct {
	Sites    []Marker     `json:"sites"`
	Units    []Marker     `json:"units"`
	Rows     []Row        `json:"rows"`
	Viewport *Viewport    `json:"viewport"`
	Center   model.LatLng `json:"center"`
	Zoom     int          `json:"zoom"`
}

// SceneOptions controls presentation details of Compose.
type SceneOptions struct {
	ShowTooltips bool
	Padding      Padding
}

// DefaultSceneOptions returns tooltips on with the default padding.
func DefaultSceneOptions() SceneOptions {
	return SceneOptions{ShowTooltips: true, Padding: DefaultPadding}
}

// Compose joins the result onto units and builds markers, table rows and the
// viewport. Viewport is nil when there is nothing to fit.
func Compose(units []model.Unit, result model.OptimizationResult, opts SceneOptions) Scene {
	rendered := Join(units, result.Assignments)

	scene := Scene{
		Sites:  make([]Marker, 0, len(result.SelectedSites)),
		Units:  make([]Marker, 0, len(rendered)),
		Rows:   make([]Row, 0, len(rendered)),
		Center: DefaultCenter,
		Zoom:   DefaultZoom,
	}

	for _, s := range result.SelectedSites {
		m := Marker{
			Kind:     MarkerSite,
			Index:    s.Index,
			Name:     s.Name,
			Position: s.Coordinates,
			Icon:     Resolve(s.Color, RoleSite),
			Popup:    Popup{Title: s.Name},
		}
		if opts.ShowTooltips {
			m.Tooltip = s.Name
		}
		scene.Sites = append(scene.Sites, m)
	}

	for _, ru := range rendered {
		m := Marker{
			Kind:     MarkerUnit,
			Index:    ru.Unit.Index,
			Name:     ru.Unit.Name,
			Position: ru.Unit.Coordinates,
			Icon:     Resolve(ru.Color, RoleUnit),
			Popup:    unitPopup(ru),
		}
		if opts.ShowTooltips {
			m.Tooltip = ru.Unit.Name
		}
		scene.Units = append(scene.Units, m)
		scene.Rows = append(scene.Rows, Row{
			Barangay: ru.Unit.Name,
			Center:   ru.CenterLabel(),
			Distance: ru.DistanceLabel(),
		})
	}

	if vp, ok := Compute(Points(result.SelectedSites, units), opts.Padding); ok {
		scene.Viewport = &vp
		scene.Center = vp.Bounds.Center()
	}
	return scene
}

func unitPopup(ru RenderedUnit) Popup {
	pct := NotAvailable
	if p, ok := ru.InfectedPercent(); ok {
		pct = fmt.Sprintf("%.2f%%", p)
	}
	lines := []string{
		fmt.Sprintf("Infected: %d", ru.Unit.Infected),
		fmt.Sprintf("Population: %d", ru.Unit.Population),
		"Percentage: " + pct,
	}
	if ru.Site != nil {
		lines = append(lines,
			"Closest Vaccination Center: "+ru.Site.Name,
			fmt.Sprintf("(Distance: %s m)", ru.DistanceLabel()),
		)
	}
	return Popup{Title: ru.Unit.Name, Lines: lines}
}
