// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like SPARK_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored if not found.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from a few locations so tests and the binary behave
// the same regardless of working directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "tourist-kgqa"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Database.Neo4j.URI == "" {
		cfg.Database.Neo4j.URI = "bolt://localhost:7687"
	}
	if cfg.Database.Neo4j.User == "" {
		cfg.Database.Neo4j.User = "neo4j"
	}
	if cfg.Database.Neo4j.Timeout == 0 {
		cfg.Database.Neo4j.Timeout = 5000
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if cfg.Vocabulary.Path == "" {
		cfg.Vocabulary.Path = "dict/attraction_name.txt"
	}
	if cfg.Vocabulary.Aliases == nil {
		// Hand-maintained short-name table; extend alongside the dictionary.
		cfg.Vocabulary.Aliases = map[string]string{
			"熊猫基地": "成都大熊猫繁育研究基地",
			"锦里":   "锦里古街",
			"都江堰":  "都江堰景区",
		}
	}
	if cfg.Spark.Host == "" {
		cfg.Spark.Host = "spark-api.xf-yun.com"
	}
	if cfg.Spark.Path == "" {
		cfg.Spark.Path = "/v1/x1"
	}
	if cfg.Spark.Domain == "" {
		cfg.Spark.Domain = "x1"
	}
	if cfg.Spark.MaxTokens == 0 {
		cfg.Spark.MaxTokens = 4096
	}
	if cfg.Spark.Temp == 0 {
		cfg.Spark.Temp = 1.0
	}
	if cfg.Spark.Timeout == 0 {
		cfg.Spark.Timeout = 60000
	}
	if cfg.History.MaxChars == 0 {
		cfg.History.MaxChars = 11000
	}
	if cfg.Results.Backend == "" {
		cfg.Results.Backend = "memory"
	}
	if cfg.Results.TTL == 0 {
		cfg.Results.TTL = 3600
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", cfg.Server.Port)
	}
	if cfg.Results.Backend != "memory" && cfg.Results.Backend != "redis" {
		return fmt.Errorf("unknown results backend: %q", cfg.Results.Backend)
	}
	for alias, canonical := range cfg.Vocabulary.Aliases {
		if strings.TrimSpace(alias) == "" || strings.TrimSpace(canonical) == "" {
			return fmt.Errorf("empty alias mapping: %q -> %q", alias, canonical)
		}
	}
	return nil
}
