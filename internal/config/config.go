package config

import (
	"github.com/rentnest/service-rental/pkg/config"
)

// UploadConfig controls where property images are stored and served from.
type UploadConfig struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

// ServiceConfig holds all configuration for the rental service.
type ServiceConfig struct {
	Port            string
	AppEnv          string
	DBConfig        config.DatabaseConfig
	JWTConfig       config.JWTConfig
	KafkaConfig     config.KafkaConfig
	RedisConfig     config.RedisConfig
	Upload          UploadConfig
	CORSOrigins     []string
	DefaultCurrency string
	MigrationsDir   string
}

// Load reads configuration from environment variables prefixed with RENTAL_.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("RENTAL")
	if err != nil {
		return nil, err
	}

	v.SetDefault("DB_NAME", "rental")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_BASE_URL", "/uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	v.SetDefault("CORS_ORIGINS", "")
	v.SetDefault("DEFAULT_CURRENCY", "USD")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	return &ServiceConfig{
		Port:        config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:      config.GetAppEnv(v),
		DBConfig:    config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:   config.LoadJWTConfig(v),
		KafkaConfig: config.LoadKafkaConfig(v),
		RedisConfig: config.LoadRedisConfig(v),
		Upload: UploadConfig{
			Dir:      v.GetString("UPLOAD_DIR"),
			BaseURL:  v.GetString("UPLOAD_BASE_URL"),
			MaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		CORSOrigins:     config.GetStringSlice(v, "CORS_ORIGINS"),
		DefaultCurrency: v.GetString("DEFAULT_CURRENCY"),
		MigrationsDir:   v.GetString("MIGRATIONS_DIR"),
	}, nil
}
