// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Vocabulary VocabularyConfig `mapstructure:"vocabulary"`
	Spark      SparkConfig      `mapstructure:"spark"`
	History    HistoryConfig    `mapstructure:"history"`
	Results    ResultsConfig    `mapstructure:"results"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Neo4j Neo4jConfig `mapstructure:"neo4j"`
	Redis RedisConfig `mapstructure:"redis"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds, per query
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// VocabularyConfig points at the attraction-name dictionary and carries the
// hand-maintained alias table (alias -> canonical name).
type VocabularyConfig struct {
	Path    string            `mapstructure:"path"`
	Aliases map[string]string `mapstructure:"aliases"`
}

// SparkConfig holds Spark X1 WebSocket API credentials and endpoint.
type SparkConfig struct {
	AppID     string  `mapstructure:"app_id"`
	APIKey    string  `mapstructure:"api_key"`
	APISecret string  `mapstructure:"api_secret"`
	Host      string  `mapstructure:"host"`
	Path      string  `mapstructure:"path"`
	Domain    string  `mapstructure:"domain"`
	MaxTokens int     `mapstructure:"max_tokens"`
	Temp      float64 `mapstructure:"temperature"`
	Timeout   int     `mapstructure:"timeout"` // milliseconds, whole round trip
}

// HistoryConfig bounds per-user conversation history sent to the fallback.
type HistoryConfig struct {
	MaxChars int `mapstructure:"max_chars"`
}

// ResultsConfig selects the fallback result store backend.
type ResultsConfig struct {
	Backend string `mapstructure:"backend"` // "memory" or "redis"
	TTL     int    `mapstructure:"ttl"`     // seconds, redis backend only
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
