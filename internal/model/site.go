package model

import "math"

// Site is a candidate or selected facility location.
type Site struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Coordinates LatLng `json:"coordinates"`
	Color       Color  `json:"color,omitempty"`
}

// Unit is a population area (barangay). Index is its position in the uploaded dataset.
type Unit struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Coordinates LatLng `json:"coordinates"`
	Population  int    `json:"population"`
	Infected    int    `json:"infected"`
}

// Assignment is the nearest-facility relationship computed for one unit.
// Site and Distance are optional: the service may return a null center
// or omit the distance.
type Assignment struct {
	UnitIndex int      `json:"barangay_index"`
	UnitName  string   `json:"barangay_name,omitempty"`
	Site      *Site    `json:"closest_center"`
	Distance  *float64 `json:"distance"`
}

// DistanceMeters returns the assignment distance when it is present and usable.
func (a Assignment) DistanceMeters() (float64, bool) {
	if a.Distance == nil {
		return 0, false
	}
	d := *a.Distance
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, false
	}
	return d, true
}

// OptimizationResult is the response body of the optimization endpoint.
type OptimizationResult struct {
	ResultIndices []int        `json:"result_indices,omitempty"`
	SelectedSites []Site       `json:"selected_sites"`
	Assignments   []Assignment `json:"barangay_assignments"`
}
