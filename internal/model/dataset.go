package model

import "fmt"

// Dataset is the parsed upload: candidate sites and barangays as parallel arrays.
type Dataset struct {
	Sites     SiteColumns     `json:"sites" yaml:"sites"`
	Barangays BarangayColumns `json:"barangays" yaml:"barangays"`
}

// SiteColumns holds candidate site attributes indexed by site position.
type SiteColumns struct {
	Locations []LatLng `json:"locations" yaml:"locations"`
	Names     []string `json:"names" yaml:"names"`
}

// BarangayColumns holds barangay attributes indexed by unit position.
type BarangayColumns struct {
	Locations    []LatLng `json:"locations" yaml:"locations"`
	Names        []string `json:"names" yaml:"names"`
	Populations  []int    `json:"populations" yaml:"populations"`
	Infected     []int    `json:"infected" yaml:"infected"`
	Municipality []string `json:"Municipality,omitempty" yaml:"municipality,omitempty"`
}

// ValidationError reports a structurally invalid dataset.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: invalid dataset: %s: %s", e.Field, e.Reason)
}

func lengthMismatch(field string, want, got int) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("has %d entries, expected %d to match locations", got, want),
	}
}

// Validate checks that every parallel array has the same length as its
// locations array and that unit counts are consistent.
func (d Dataset) Validate() error {
	n := len(d.Sites.Locations)
	if len(d.Sites.Names) != n {
		return lengthMismatch("sites.names", n, len(d.Sites.Names))
	}

	b := d.Barangays
	n = len(b.Locations)
	if len(b.Names) != n {
		return lengthMismatch("barangays.names", n, len(b.Names))
	}
	if len(b.Populations) != n {
		return lengthMismatch("barangays.populations", n, len(b.Populations))
	}
	if len(b.Infected) != n {
		return lengthMismatch("barangays.infected", n, len(b.Infected))
	}

	for i := 0; i < n; i++ {
		if b.Populations[i] < 0 {
			return &ValidationError{Field: fmt.Sprintf("barangays.populations[%d]", i), Reason: "must be non-negative"}
		}
		if b.Infected[i] < 0 {
			return &ValidationError{Field: fmt.Sprintf("barangays.infected[%d]", i), Reason: "must be non-negative"}
		}
		if b.Infected[i] > b.Populations[i] {
			return &ValidationError{
				Field:  fmt.Sprintf("barangays.infected[%d]", i),
				Reason: fmt.Sprintf("%d exceeds population %d", b.Infected[i], b.Populations[i]),
			}
		}
	}
	return nil
}

// Units materializes the barangay columns as Units in dataset order.
func (d Dataset) Units() ([]Unit, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	b := d.Barangays
	units := make([]Unit, len(b.Locations))
	for i := range b.Locations {
		units[i] = Unit{
			Index:       i,
			Name:        b.Names[i],
			Coordinates: b.Locations[i],
			Population:  b.Populations[i],
			Infected:    b.Infected[i],
		}
	}
	return units, nil
}

// CandidateSites materializes the site columns as uncolored Sites.
func (d Dataset) CandidateSites() ([]Site, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	sites := make([]Site, len(d.Sites.Locations))
	for i, loc := range d.Sites.Locations {
		sites[i] = Site{Index: i, Name: d.Sites.Names[i], Coordinates: loc}
	}
	return sites, nil
}
