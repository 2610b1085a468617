package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Masks    MasksConfig    `yaml:"masks" mapstructure:"masks"`
	Sites    SitesConfig    `yaml:"sites" mapstructure:"sites"`
	Region   RegionConfig   `yaml:"region" mapstructure:"region"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// AnalysisConfig holds the parameters of the overlap/filter/aggregate run.
type AnalysisConfig struct {
	// CRS overrides the reference coordinate system. Empty means "use the
	// protected-area mask's CRS".
	CRS             string  `yaml:"crs" mapstructure:"crs"`
	MinAreaHectares float64 `yaml:"min_area_hectares" mapstructure:"min_area_hectares" validate:"gte=0"`
	MinGroupSize    int     `yaml:"min_group_size" mapstructure:"min_group_size" validate:"gte=0"`
	CategoryFilter  string  `yaml:"category_filter" mapstructure:"category_filter" validate:"required"`
}

// MasksConfig configures the two coverage rasters.
type MasksConfig struct {
	Protected MaskConfig `yaml:"protected" mapstructure:"protected"`
	Urban     MaskConfig `yaml:"urban" mapstructure:"urban"`
}

// MaskConfig configures a single coverage raster.
type MaskConfig struct {
	Source string   `yaml:"source" mapstructure:"source" validate:"required"`
	CRS    string   `yaml:"crs" mapstructure:"crs" validate:"required"`
	NoData *float64 `yaml:"nodata" mapstructure:"nodata"`
	// TrueCodes lists the cell values that mean "covered". Empty means any
	// nonzero value is covered.
	TrueCodes []float64 `yaml:"true_codes" mapstructure:"true_codes"`
}

// SitesConfig configures the heritage-site point table.
type SitesConfig struct {
	Source    string        `yaml:"source" mapstructure:"source" validate:"required"`
	Encoding  string        `yaml:"encoding" mapstructure:"encoding" validate:"omitempty,oneof=utf-8 utf8 latin1 iso-8859-1 windows-1252"`
	Delimiter string        `yaml:"delimiter" mapstructure:"delimiter" validate:"omitempty,len=1"`
	Sheet     string        `yaml:"sheet" mapstructure:"sheet"`
	Columns   ColumnsConfig `yaml:"columns" mapstructure:"columns"`
}

// ColumnsConfig maps site attributes to source column headers.
type ColumnsConfig struct {
	Name      string `yaml:"name" mapstructure:"name" validate:"required"`
	Category  string `yaml:"category" mapstructure:"category" validate:"required"`
	Area      string `yaml:"area" mapstructure:"area" validate:"required"`
	Country   string `yaml:"country" mapstructure:"country" validate:"required"`
	Longitude string `yaml:"longitude" mapstructure:"longitude" validate:"required"`
	Latitude  string `yaml:"latitude" mapstructure:"latitude" validate:"required"`
}

// RegionConfig selects the geographic scope of a run. With no boundary and
// no bbox the run is global.
type RegionConfig struct {
	Name      string    `yaml:"name" mapstructure:"name"`
	Boundary  string    `yaml:"boundary" mapstructure:"boundary"`
	NameField string    `yaml:"name_field" mapstructure:"name_field"`
	BBox      []float64 `yaml:"bbox" mapstructure:"bbox" validate:"omitempty,len=4"`
	Country   string    `yaml:"country" mapstructure:"country"`
}

// FetchConfig configures remote source downloads.
type FetchConfig struct {
	TempDir     string  `yaml:"temp_dir" mapstructure:"temp_dir"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gte=0"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=none sqlite postgres"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns" validate:"gte=0"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var validate = validator.New()

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	if c.Region.Boundary != "" && c.Region.Name == "" {
		return eris.New("config: region.name is required when region.boundary is set")
	}
	if b := c.Region.BBox; len(b) == 4 && (b[0] >= b[2] || b[1] >= b[3]) {
		return eris.Errorf("config: region.bbox %v must be minLon,minLat,maxLon,maxLat", b)
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HERITAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("analysis.min_area_hectares", 100.0)
	v.SetDefault("analysis.min_group_size", 3)
	v.SetDefault("analysis.category_filter", "Cultural")
	v.SetDefault("masks.protected.source", "data/wdpa.tif")
	v.SetDefault("masks.protected.crs", "EPSG:4326")
	v.SetDefault("masks.urban.source", "data/landcover.tif")
	v.SetDefault("masks.urban.crs", "EPSG:4326")
	v.SetDefault("masks.urban.true_codes", []float64{19})
	v.SetDefault("sites.source", "data/whc-sites.csv")
	v.SetDefault("sites.columns.name", "name_en")
	v.SetDefault("sites.columns.category", "category")
	v.SetDefault("sites.columns.area", "area_hectares")
	v.SetDefault("sites.columns.country", "states_name_en")
	v.SetDefault("sites.columns.longitude", "longitude")
	v.SetDefault("sites.columns.latitude", "latitude")
	v.SetDefault("region.name_field", "ADMIN")
	v.SetDefault("fetch.temp_dir", "/tmp/heritage")
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "heritage-cli/1.0")
	v.SetDefault("fetch.rate_limit", 10.0)
	v.SetDefault("store.driver", "none")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
