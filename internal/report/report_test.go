package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/heritage-cli/internal/model"
)

func sd(v float64) *float64 { return &v }

func testResult() *model.Result {
	rome := model.SiteOverlap{Site: model.Site{ID: 1, Name: "Historic Centre of Rome", Country: "Italy", Area: model.HectaresOf(1430.8)}}
	venice := model.SiteOverlap{Site: model.Site{ID: 2, Name: "Venice and its Lagoon", Country: "Italy", Area: model.HectaresOf(70176.2)}, Urban: true}
	wall := model.SiteOverlap{Site: model.Site{ID: 3, Name: "The Great Wall", Country: "China", Area: model.ParseHectares("")}, Protected: true}

	return &model.Result{
		RunID: "3f0c6c1e-8a52-4a5b-9d0e-1d6f4c1b2a77",
		Params: model.Params{
			Region:          "Italy",
			CRS:             "EPSG:4326",
			MinAreaHectares: 100,
			MinGroupSize:    0,
			CategoryFilter:  "Cultural",
		},
		Sites:    []model.SiteOverlap{rome, venice, wall},
		Retained: []model.SiteOverlap{rome},
		Summary: model.Summary{
			Overall: model.AreaStats{Count: 1, Mean: 1430.8, Median: 1430.8, Min: 1430.8, Max: 1430.8},
			Countries: []model.CountryStatistics{
				{Country: "Italy", AreaStats: model.AreaStats{Count: 1, Mean: 1430.8, Median: 1430.8, Min: 1430.8, Max: 1430.8}},
			},
		},
		LargeGroups: []model.CountryStatistics{
			{Country: "Italy", AreaStats: model.AreaStats{Count: 1, Mean: 1430.8, Median: 1430.8, Min: 1430.8, Max: 1430.8}},
		},
		StartedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":      FormatText,
		"text":  FormatText,
		"JSON":  FormatJSON,
		" yaml": FormatYAML,
		"yml":   FormatYAML,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "csv"`)
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testResult(), FormatText))
	out := buf.String()

	assert.Contains(t, out, "# Heritage overlap report: Italy")
	assert.Contains(t, out, "Run: 3f0c6c1e-8a52-4a5b-9d0e-1d6f4c1b2a77")
	assert.Contains(t, out, "min area: 100.00 ha")
	assert.Contains(t, out, "## Sites (3 loaded, 1 retained)")
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "## Countries with more than 0 sites")

	var romeLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "1 ") && strings.Contains(line, "Rome") {
			romeLine = line
		}
	}
	require.NotEmpty(t, romeLine)
	assert.Equal(t, []string{"1", "Historic", "Centre", "of", "Rome", "Italy", "1430.80", "false", "false", "true"}, strings.Fields(romeLine))

	// Single-member groups report an undefined deviation, not zero.
	assert.Contains(t, out, "undefined")
}

func TestWrite_TextEmptyGroups(t *testing.T) {
	res := testResult()
	res.Retained = nil
	res.Summary = model.Summary{}
	res.LargeGroups = nil

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, FormatText))
	assert.Contains(t, buf.String(), "(none)")
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testResult(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "3f0c6c1e-8a52-4a5b-9d0e-1d6f4c1b2a77", decoded["run_id"])

	sites := decoded["sites"].([]any)
	require.Len(t, sites, 3)
	venice := sites[1].(map[string]any)
	assert.Equal(t, true, venice["urban_flag"])
	assert.Equal(t, false, venice["wdpa_flag"])
	wall := sites[2].(map[string]any)
	assert.Nil(t, wall["area_hectares"])

	overall := decoded["summary"].(map[string]any)["overall"].(map[string]any)
	assert.Contains(t, overall, "std_dev")
	assert.Nil(t, overall["std_dev"])
}

func TestWrite_YAML(t *testing.T) {
	res := testResult()
	res.Summary.Countries[0].StdDev = sd(12.5)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, FormatYAML))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Italy", decoded["params"].(map[string]any)["region"])

	countries := decoded["summary"].(map[string]any)["countries"].([]any)
	italy := countries[0].(map[string]any)
	assert.Equal(t, "Italy", italy["country"])
	assert.Equal(t, 12.5, italy["std_dev"])

	sites := decoded["sites"].([]any)
	assert.Equal(t, "Historic Centre of Rome", sites[0].(map[string]any)["name"])
	assert.Nil(t, sites[2].(map[string]any)["area_hectares"])
}

func TestWriteSites(t *testing.T) {
	res := testResult()

	var buf bytes.Buffer
	require.NoError(t, WriteSites(&buf, res.Sites, FormatText))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"ID", "NAME", "COUNTRY", "AREA_HA", "WDPA", "URBAN"}, strings.Fields(lines[0]))

	buf.Reset()
	require.NoError(t, WriteSites(&buf, res.Sites, FormatJSON))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 3)

	assert.Error(t, WriteSites(&buf, res.Sites, Format("xml")))
}

func TestEncode(t *testing.T) {
	run := model.Run{ID: "run-1", Params: model.Params{Region: "Italy"}, SiteCount: 4}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, run, FormatYAML))
	assert.Contains(t, buf.String(), "site_count: 4")
	assert.Contains(t, buf.String(), "region: Italy")

	buf.Reset()
	require.NoError(t, Encode(&buf, run, FormatJSON))
	assert.Contains(t, buf.String(), `"id": "run-1"`)

	err := Encode(&buf, run, FormatText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot encode")
}
