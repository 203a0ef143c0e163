package domain

import "time"

// Configuration Models

// Config represents the main application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// EngineConfig holds the tunables of the triage engine. FillPolicy and
// the scoring knobs are explicit here so tests can substitute them.
type EngineConfig struct {
	FillPolicy       string  `mapstructure:"fill_policy"`
	DeviationCeiling float64 `mapstructure:"deviation_ceiling"`
	CriticalBoost    float64 `mapstructure:"critical_boost"`
	EvidenceTopK     int     `mapstructure:"evidence_top_k"`
}

// CacheConfig represents the result cache configuration
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Size    int  `mapstructure:"size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
