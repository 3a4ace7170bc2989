package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Transport kinds accepted in TRANSPORT
const (
	TransportSimulator = "simulator"
	TransportAMQP      = "amqp"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Session  SessionConfig
	Campaign CampaignConfig
	LogLevel string
	Env      string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds PostgreSQL configuration.
// An empty Host disables the database row source.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RabbitMQConfig holds RabbitMQ configuration
type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

// SessionConfig holds messaging session configuration
type SessionConfig struct {
	Transport            string
	AddressSuffix        string
	ReadyTimeout         time.Duration
	SendTimeout          time.Duration
	SimulatorSuccessRate float64
	SimulatorAutoScan    bool
}

// CampaignConfig holds campaign defaults
type CampaignConfig struct {
	DefaultDelaySeconds int
	MaxDelaySeconds     int
	DateLayout          string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", ""),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "bulksender"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "bulksender_db"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_DEFAULT_USER", "guest"),
			Password: getEnv("RABBITMQ_DEFAULT_PASS", "guest"),
		},
		Session: SessionConfig{
			Transport:            getEnv("TRANSPORT", TransportSimulator),
			AddressSuffix:        getEnv("ADDRESS_SUFFIX", "@c.us"),
			ReadyTimeout:         getEnvAsDuration("READY_TIMEOUT", 60*time.Second),
			SendTimeout:          getEnvAsDuration("SEND_TIMEOUT", 30*time.Second),
			SimulatorSuccessRate: getEnvAsFloat("SIMULATOR_SUCCESS_RATE", 0.95),
			SimulatorAutoScan:    getEnvAsBool("SIMULATOR_AUTO_SCAN", true),
		},
		Campaign: CampaignConfig{
			DefaultDelaySeconds: getEnvAsInt("DEFAULT_DELAY_SECONDS", 5),
			MaxDelaySeconds:     getEnvAsInt("MAX_DELAY_SECONDS", 60),
			DateLayout:          getEnv("DATE_LAYOUT", "1/2/2006"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("ENV", "development"),
	}

	// Validate required fields
	if config.Database.Enabled() && config.Database.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD is required when POSTGRES_HOST is set")
	}
	if config.Session.Transport != TransportSimulator && config.Session.Transport != TransportAMQP {
		return nil, fmt.Errorf("invalid TRANSPORT %q: must be %q or %q", config.Session.Transport, TransportSimulator, TransportAMQP)
	}
	if config.Session.ReadyTimeout <= 0 {
		return nil, fmt.Errorf("READY_TIMEOUT must be positive")
	}
	if config.Campaign.MaxDelaySeconds < 0 {
		return nil, fmt.Errorf("MAX_DELAY_SECONDS cannot be negative")
	}

	return config, nil
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// GetDatabaseDSN returns PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GetRabbitMQURL returns RabbitMQ connection URL
func (c *Config) GetRabbitMQURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		c.RabbitMQ.User,
		c.RabbitMQ.Password,
		c.RabbitMQ.Host,
		c.RabbitMQ.Port,
	)
}

// getEnv gets environment variable or returns default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer or returns default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
