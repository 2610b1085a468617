package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/heritage-cli/internal/model"
)

func overlapSite(id int, area model.Hectares, protected, urban bool) model.SiteOverlap {
	return model.SiteOverlap{
		Site:      model.Site{ID: id, Name: "s", Country: "Testland", Area: area},
		Protected: protected,
		Urban:     urban,
	}
}

func TestRetained(t *testing.T) {
	tests := []struct {
		name string
		site model.SiteOverlap
		want bool
	}{
		{"uncovered above threshold", overlapSite(1, model.HectaresOf(150), false, false), true},
		{"exactly at threshold", overlapSite(2, model.HectaresOf(100), false, false), true},
		{"below threshold", overlapSite(3, model.HectaresOf(99.99), false, false), false},
		{"protected", overlapSite(4, model.HectaresOf(5000), true, false), false},
		{"urban", overlapSite(5, model.HectaresOf(5000), false, true), false},
		{"both", overlapSite(6, model.HectaresOf(5000), true, true), false},
		{"invalid area uncovered", overlapSite(7, model.ParseHectares(""), false, false), true},
		{"invalid area covered", overlapSite(8, model.ParseHectares("n/a"), true, false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retained(tt.site, 100))
		})
	}
}

func TestFilter_SubsetWithPredicate(t *testing.T) {
	var in []model.SiteOverlap
	for i := range 40 {
		in = append(in, overlapSite(i+1, model.HectaresOf(float64(i*10)), i%3 == 0, i%5 == 0))
	}

	out := Filter(in, 100)
	assert.LessOrEqual(t, len(out), len(in))

	inIDs := make(map[int]bool)
	for _, s := range in {
		inIDs[s.ID] = true
	}
	seen := make(map[int]bool)
	for _, s := range out {
		assert.True(t, inIDs[s.ID])
		assert.False(t, seen[s.ID], "duplicate id %d", s.ID)
		seen[s.ID] = true

		assert.False(t, s.Protected)
		assert.False(t, s.Urban)
		assert.GreaterOrEqual(t, s.Area.Value, 100.0)
	}
	assert.NotEmpty(t, out)
}

func TestFilter_ZeroThresholdKeepsZeroArea(t *testing.T) {
	out := Filter([]model.SiteOverlap{overlapSite(1, model.HectaresOf(0), false, false)}, 0)
	assert.Len(t, out, 1)
}
