// Package mapview turns optimization results into render-ready map data:
// unit/assignment joins, marker icons, viewport bounds and the assembled scene.
package mapview

import (
	"fmt"

	"github.com/sells-group/siteopt/internal/model"
)

// Role selects the icon family for a marker.
type Role uint8

const (
	// RoleSite renders selected facilities as stars.
	RoleSite Role = iota
	// RoleUnit renders barangays as pins.
	RoleUnit
)

func (r Role) String() string {
	switch r {
	case RoleSite:
		return "site"
	case RoleUnit:
		return "unit"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Icon describes a marker image in Leaflet terms.
type Icon struct {
	URL    string `json:"icon_url"`
	Size   [2]int `json:"icon_size"`
	Anchor [2]int `json:"icon_anchor"`
}

var (
	starSize     = [2]int{24, 24}
	starAnchor   = [2]int{16, 32}
	markerSize   = [2]int{23, 35}
	markerAnchor = [2]int{12, 41}
)

func star(c model.Color) Icon {
	return Icon{URL: "/icons/" + c.String() + "-star.png", Size: starSize, Anchor: starAnchor}
}

func marker(c model.Color) Icon {
	return Icon{URL: "/icons/" + c.String() + "-marker.png", Size: markerSize, Anchor: markerAnchor}
}

// Indexed by model.Color.Slot().
var (
	siteIcons = [model.PaletteSize]Icon{
		star(model.ColorRed), star(model.ColorBlue), star(model.ColorGreen), star(model.ColorOrange),
		star(model.ColorPurple), star(model.ColorYellow), star(model.ColorCyan), star(model.ColorBrown),
	}
	unitIcons = [model.PaletteSize]Icon{
		marker(model.ColorRed), marker(model.ColorBlue), marker(model.ColorGreen), marker(model.ColorOrange),
		marker(model.ColorPurple), marker(model.ColorYellow), marker(model.ColorCyan), marker(model.ColorBrown),
	}

	// DefaultSiteIcon is used for sites without a recognized color.
	DefaultSiteIcon = star(model.ColorRed)
	// DefaultUnitIcon is used for unassigned units and unrecognized colors.
	DefaultUnitIcon = marker(model.ColorRed)
)

// Resolve returns the icon for a color in the given role. It never fails:
// unknown colors get the role's default icon, unknown roles get unit icons.
func Resolve(c model.Color, r Role) Icon {
	table, fallback := &unitIcons, DefaultUnitIcon
	if r == RoleSite {
		table, fallback = &siteIcons, DefaultSiteIcon
	}
	slot := c.Slot()
	if slot < 0 {
		return fallback
	}
	return table[slot]
}
