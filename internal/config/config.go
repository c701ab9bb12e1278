package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"GZ_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"GZ_DB_MAX_CONNS" default:"8"`

	// Proximity threshold in degrees under the default metric.
	CoordinateThreshold float64 `envconfig:"GZ_COORDINATE_THRESHOLD" default:"0.05"`

	// Hub validation thresholds.
	MinNavLinks     int `envconfig:"GZ_MIN_NAV_LINKS" default:"12"`
	MinArticleLinks int `envconfig:"GZ_MIN_ARTICLE_LINKS" default:"0"`

	// NameLangDetect toggles language detection for incoming place
	// names that carry no explicit lang.
	NameLangDetect bool `envconfig:"GZ_NAME_LANG_DETECT" default:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("GZ_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("GZ_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("GZ_DB_MIN_CONNS (%d) cannot exceed GZ_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.CoordinateThreshold <= 0 {
		return fmt.Errorf("GZ_COORDINATE_THRESHOLD must be > 0")
	}
	if c.MinNavLinks < 0 {
		return fmt.Errorf("GZ_MIN_NAV_LINKS must be >= 0")
	}
	if c.MinArticleLinks < 0 {
		return fmt.Errorf("GZ_MIN_ARTICLE_LINKS must be >= 0")
	}
	return nil
}
