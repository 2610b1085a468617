package model

import "time"

// Params records the parameters a run was executed with.
type Params struct {
	Region          string  `json:"region" yaml:"region"`
	CRS             string  `json:"crs" yaml:"crs"`
	MinAreaHectares float64 `json:"min_area_hectares" yaml:"min_area_hectares"`
	MinGroupSize    int     `json:"min_group_size" yaml:"min_group_size"`
	CategoryFilter  string  `json:"category_filter" yaml:"category_filter"`
	Country         string  `json:"country,omitempty" yaml:"country,omitempty"`
}

// Result is the full output of one pipeline run.
type Result struct {
	RunID       string              `json:"run_id" yaml:"run_id"`
	Params      Params              `json:"params" yaml:"params"`
	Sites       []SiteOverlap       `json:"sites" yaml:"sites"`
	Retained    []SiteOverlap       `json:"retained" yaml:"retained"`
	Summary     Summary             `json:"summary" yaml:"summary"`
	LargeGroups []CountryStatistics `json:"large_groups" yaml:"large_groups"`
	StartedAt   time.Time           `json:"started_at" yaml:"started_at"`
	Duration    time.Duration       `json:"duration" yaml:"duration"`
}

// Run is a stored run-history entry.
type Run struct {
	ID            string    `json:"id" yaml:"id"`
	Params        Params    `json:"params" yaml:"params"`
	Summary       Summary   `json:"summary" yaml:"summary"`
	SiteCount     int       `json:"site_count" yaml:"site_count"`
	RetainedCount int       `json:"retained_count" yaml:"retained_count"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// StoredSite is one site row of a stored run.
type StoredSite struct {
	SiteOverlap `yaml:",inline"`
	Retained    bool `json:"retained" yaml:"retained"`
}
