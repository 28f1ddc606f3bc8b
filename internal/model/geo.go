package model

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
)

// LatLng is a WGS84 coordinate. On the wire it is a two-element [lat, lon] array.
type LatLng struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinate lies inside the WGS84 range.
func (p LatLng) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// MarshalJSON encodes the coordinate as [lat, lon].
func (p LatLng) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lon})
}

// UnmarshalJSON decodes a [lat, lon] array. Extra elements (altitude) are ignored.
func (p *LatLng) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return eris.Wrap(err, "model: decode coordinates")
	}
	if len(pair) < 2 {
		return eris.Errorf("model: coordinates need 2 elements, got %d", len(pair))
	}
	p.Lat, p.Lon = pair[0], pair[1]
	return nil
}

// MarshalYAML encodes the coordinate as a [lat, lon] sequence.
func (p LatLng) MarshalYAML() (any, error) {
	return []float64{p.Lat, p.Lon}, nil
}
