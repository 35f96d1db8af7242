package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Loader defines the interface for loading configuration.
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management.
type ViperLoader struct {
	configFile string
	envPrefix  string
}

// NewViperLoader creates a new ViperLoader.
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "APP")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// Load loads configuration with precedence: ENV > file > defaults.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	l.setDefaults(v, defaults)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// bindEnvVars explicitly binds environment variables for nested structs.
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	v.BindEnv("service.name", l.prefixedEnv("SERVICE_NAME"))
	v.BindEnv("service.environment", l.prefixedEnv("SERVICE_ENVIRONMENT"), l.prefixedEnv("ENVIRONMENT"))

	v.BindEnv("database.type", l.prefixedEnv("DB_TYPE"))
	v.BindEnv("database.region", l.prefixedEnv("DB_REGION"))
	v.BindEnv("database.endpoint", l.prefixedEnv("DB_ENDPOINT"))
	v.BindEnv("database.access_key_id", l.prefixedEnv("DB_ACCESS_KEY_ID"))
	v.BindEnv("database.secret_access_key", l.prefixedEnv("DB_SECRET_ACCESS_KEY"))
	v.BindEnv("database.session_token", l.prefixedEnv("DB_SESSION_TOKEN"))
	v.BindEnv("database.table", l.prefixedEnv("DB_TABLE"))
	v.BindEnv("database.hash_key", l.prefixedEnv("DB_HASH_KEY"))
	v.BindEnv("database.range_key", l.prefixedEnv("DB_RANGE_KEY"))
	v.BindEnv("database.create_table", l.prefixedEnv("DB_CREATE_TABLE"))
	v.BindEnv("database.read_capacity", l.prefixedEnv("DB_READ_CAPACITY"))
	v.BindEnv("database.write_capacity", l.prefixedEnv("DB_WRITE_CAPACITY"))
	v.BindEnv("database.operation_timeout", l.prefixedEnv("DB_OPERATION_TIMEOUT"))

	v.BindEnv("observability.log_level", l.prefixedEnv("OBSERVABILITY_LOG_LEVEL"))
	v.BindEnv("observability.log_format", l.prefixedEnv("OBSERVABILITY_LOG_FORMAT"))
	v.BindEnv("observability.metrics_enabled", l.prefixedEnv("OBSERVABILITY_METRICS_ENABLED"))
	v.BindEnv("observability.tracing_enabled", l.prefixedEnv("OBSERVABILITY_TRACING_ENABLED"))
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = "APP"
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), suffix)
}

// setDefaults sets default values in Viper from the default config.
func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("database.type", cfg.Database.Type)
	v.SetDefault("database.hash_key", cfg.Database.HashKey)
	v.SetDefault("database.read_capacity", cfg.Database.ReadCapacity)
	v.SetDefault("database.write_capacity", cfg.Database.WriteCapacity)
	v.SetDefault("database.operation_timeout", cfg.Database.OperationTimeout)

	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.metrics_enabled", cfg.Observability.MetricsEnabled)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
}

// Validate validates the configuration and returns aggregated errors.
func (l *ViperLoader) Validate(cfg *Config) error {
	var errs []error

	dbType := strings.ToLower(strings.TrimSpace(cfg.Database.Type))
	if dbType != DatabaseTypeDynamoDB {
		errs = append(errs, fmt.Errorf("unsupported database.type %q (supported: %s)", cfg.Database.Type, DatabaseTypeDynamoDB))
	}
	if strings.TrimSpace(cfg.Database.Region) == "" {
		errs = append(errs, errors.New("database.region is required"))
	}
	if strings.TrimSpace(cfg.Database.Table) == "" {
		errs = append(errs, errors.New("database.table is required"))
	}
	if cfg.Database.CreateTable {
		if cfg.Database.ReadCapacity <= 0 {
			errs = append(errs, errors.New("database.read_capacity must be positive when create_table is enabled"))
		}
		if cfg.Database.WriteCapacity <= 0 {
			errs = append(errs, errors.New("database.write_capacity must be positive when create_table is enabled"))
		}
	}
	for i, idx := range cfg.Database.Indexes {
		if strings.TrimSpace(idx.Name) == "" {
			errs = append(errs, fmt.Errorf("database.indexes[%d].name is required", i))
		}
		if strings.TrimSpace(idx.HashKey) == "" {
			errs = append(errs, fmt.Errorf("database.indexes[%d].hash_key is required", i))
		}
	}

	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !contains(validLevels, strings.ToLower(cfg.Observability.LogLevel)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_level: %s", cfg.Observability.LogLevel))
	}

	return errors.Join(errs...)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
