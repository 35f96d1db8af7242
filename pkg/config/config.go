// Package config defines the configuration surface of the library and its tools.
package config

import "time"

// Database type constants
const (
	// DatabaseTypeDynamoDB represents AWS DynamoDB.
	DatabaseTypeDynamoDB = "dynamodb"
)

// Config is the root configuration structure.
type Config struct {
	Service       ServiceConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig configures the backing key-value store and the table the
// database service operates on.
type DatabaseConfig struct {
	Type             string        `mapstructure:"type"`
	Region           string        `mapstructure:"region"`
	Endpoint         string        `mapstructure:"endpoint"`
	AccessKeyID      string        `mapstructure:"access_key_id"`
	SecretAccessKey  string        `mapstructure:"secret_access_key"`
	SessionToken     string        `mapstructure:"session_token"`
	Table            string        `mapstructure:"table"`
	HashKey          string        `mapstructure:"hash_key"`
	RangeKey         string        `mapstructure:"range_key"`
	CreateTable      bool          `mapstructure:"create_table"`
	ReadCapacity     int64         `mapstructure:"read_capacity"`
	WriteCapacity    int64         `mapstructure:"write_capacity"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	Indexes          []IndexConfig `mapstructure:"indexes"`
}

// IndexConfig describes a secondary index on the table. Index definitions are
// applied when table creation is enabled and stored for consumers otherwise.
type IndexConfig struct {
	Name     string `mapstructure:"name"`
	HashKey  string `mapstructure:"hash_key"`
	RangeKey string `mapstructure:"range_key"`
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "dynabridge",
			Environment: "development",
		},
		Database: DatabaseConfig{
			Type:             DatabaseTypeDynamoDB,
			HashKey:          "id",
			ReadCapacity:     5,
			WriteCapacity:    5,
			OperationTimeout: 5 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
		},
	}
}
