package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Hectares is a site area that may be missing or malformed in the source
// table. Raw keeps the original cell text for error reporting.
type Hectares struct {
	Value float64
	Valid bool
	Raw   string
}

// ParseHectares parses a source cell into a Hectares value. Empty,
// non-numeric, negative and non-finite values are kept as invalid.
func ParseHectares(raw string) Hectares {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Hectares{Raw: raw}
	}
	return Hectares{Value: v, Valid: true, Raw: raw}
}

// HectaresOf returns a valid area.
func HectaresOf(v float64) Hectares {
	return Hectares{Value: v, Valid: true, Raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// MarshalJSON renders an invalid area as null.
func (h Hectares) MarshalJSON() ([]byte, error) {
	if !h.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(h.Value)
}

// UnmarshalJSON accepts a number or null.
func (h *Hectares) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*h = Hectares{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*h = HectaresOf(v)
	return nil
}

// MarshalYAML renders an invalid area as null.
func (h Hectares) MarshalYAML() (any, error) {
	if !h.Valid {
		return nil, nil
	}
	return h.Value, nil
}

// Site is one heritage location loaded from the site table.
type Site struct {
	// ID is assigned 1..N in load order after filtering. It is the only join key.
	ID      int      `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Country string   `json:"country" yaml:"country"`
	Area    Hectares `json:"area_hectares" yaml:"area_hectares"`
	// Lon and Lat are the source position in EPSG:4326.
	Lon float64 `json:"lon" yaml:"lon"`
	Lat float64 `json:"lat" yaml:"lat"`
	// X and Y are the position in the run's reference CRS.
	X float64 `json:"-" yaml:"-"`
	Y float64 `json:"-" yaml:"-"`
}
