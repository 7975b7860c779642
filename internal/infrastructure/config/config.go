package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/eslsoft/srsd/internal/scheduler"
)

// Config holds all configuration for our application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	SRS      SRSConfig      `mapstructure:"srs"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	HTTPPort int    `mapstructure:"http_port"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	LogSQL   bool   `mapstructure:"log_sql"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SRSConfig exposes the scheduling tunables. Zero values fall back to the
// shipped defaults; the algebra's clamping rules are not configurable.
type SRSConfig struct {
	LearningStepsMinutes   []int32 `mapstructure:"learning_steps_minutes"`
	RelearningStepsMinutes []int32 `mapstructure:"relearning_steps_minutes"`
	GraduatingIntervalDays int32   `mapstructure:"graduating_interval_days"`
	EasyIntervalDays       int32   `mapstructure:"easy_interval_days"`
	IntervalVariance       float64 `mapstructure:"interval_variance"`
	LeechThreshold         int32   `mapstructure:"leech_threshold"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.http_port", 8080)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "srsd")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.log_sql", false)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	// Scheduler defaults
	viper.SetDefault("srs.interval_variance", 0.1)
	viper.SetDefault("srs.leech_threshold", 8)
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SchedulerParams maps the SRS section onto the algebra's parameter block,
// keeping the shipped defaults for anything the config leaves at zero.
func (c *Config) SchedulerParams() scheduler.Params {
	p := scheduler.DefaultParams()
	if len(c.SRS.LearningStepsMinutes) > 0 {
		p.LearningStepsMinutes = c.SRS.LearningStepsMinutes
	}
	if len(c.SRS.RelearningStepsMinutes) > 0 {
		p.RelearningStepsMinutes = c.SRS.RelearningStepsMinutes
	}
	if c.SRS.GraduatingIntervalDays > 0 {
		p.GraduatingIntervalDays = c.SRS.GraduatingIntervalDays
	}
	if c.SRS.EasyIntervalDays > 0 {
		p.EasyIntervalDays = c.SRS.EasyIntervalDays
	}
	if c.SRS.IntervalVariance > 0 {
		p.IntervalVariance = c.SRS.IntervalVariance
	}
	if c.SRS.LeechThreshold > 0 {
		p.LeechThreshold = c.SRS.LeechThreshold
	}
	return p
}
