package model

// Layer names a coverage raster.
type Layer string

const (
	LayerProtected Layer = "wdpa"
	LayerUrban     Layer = "urban"
)

// OverlapRecord is the sampling result of one site against one layer.
type OverlapRecord struct {
	SiteID  int   `json:"site_id"`
	Layer   Layer `json:"layer"`
	Covered bool  `json:"covered"`
}

// JoinedSite is a site with its per-layer flags after the join. A nil flag
// means no sample was recorded for that layer.
type JoinedSite struct {
	Site      `yaml:",inline"`
	Protected *bool
	Urban     *bool
}

// SiteOverlap is a site with both coverage flags resolved.
type SiteOverlap struct {
	Site      `yaml:",inline"`
	Protected bool `json:"wdpa_flag" yaml:"wdpa_flag"`
	Urban     bool `json:"urban_flag" yaml:"urban_flag"`
}
