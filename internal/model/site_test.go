package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseHectares(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
		value float64
	}{
		{"150", true, 150},
		{"0", true, 0},
		{"12.75", true, 12.75},
		{"", false, 0},
		{"n/a", false, 0},
		{"-3", false, 0},
		{"NaN", false, 0},
		{"Inf", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			h := ParseHectares(tt.raw)
			assert.Equal(t, tt.valid, h.Valid)
			assert.InDelta(t, tt.value, h.Value, 1e-9)
			assert.Equal(t, tt.raw, h.Raw)
		})
	}
}

func TestHectares_JSON(t *testing.T) {
	s := Site{ID: 1, Name: "Valid", Area: HectaresOf(42.5)}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"area_hectares":42.5`)

	s.Area = ParseHectares("unknown")
	data, err = json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"area_hectares":null`)

	var back Site
	require.NoError(t, json.Unmarshal(data, &back))
	assert.False(t, back.Area.Valid)

	require.NoError(t, json.Unmarshal([]byte(`{"id":2,"area_hectares":7}`), &back))
	assert.True(t, back.Area.Valid)
	assert.InDelta(t, 7.0, back.Area.Value, 1e-9)
}

func TestSiteOverlap_EncodingFlattensSite(t *testing.T) {
	so := SiteOverlap{
		Site:      Site{ID: 3, Name: "Old Town", Country: "Testland", Area: HectaresOf(150)},
		Protected: false,
		Urban:     true,
	}

	data, err := json.Marshal(so)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":3`)
	assert.Contains(t, string(data), `"urban_flag":true`)
	assert.NotContains(t, string(data), `"X"`)

	out, err := yaml.Marshal(so)
	require.NoError(t, err)
	assert.Contains(t, string(out), "name: Old Town")
	assert.Contains(t, string(out), "area_hectares: 150")
	assert.Contains(t, string(out), "urban_flag: true")
}
