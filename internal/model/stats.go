package model

// AreaStats are descriptive statistics over site areas, in hectares.
// StdDev is nil when it is undefined (fewer than two sites).
type AreaStats struct {
	Count  int      `json:"count" yaml:"count"`
	Mean   float64  `json:"mean" yaml:"mean"`
	Median float64  `json:"median" yaml:"median"`
	StdDev *float64 `json:"std_dev" yaml:"std_dev"`
	Min    float64  `json:"min" yaml:"min"`
	Max    float64  `json:"max" yaml:"max"`
}

// CountryStatistics are the area statistics of one country's retained sites.
type CountryStatistics struct {
	Country   string `json:"country" yaml:"country"`
	AreaStats `yaml:",inline"`
}

// Summary holds the overall and per-country statistics of a run.
type Summary struct {
	Overall   AreaStats           `json:"overall" yaml:"overall"`
	Countries []CountryStatistics `json:"countries" yaml:"countries"`
}
