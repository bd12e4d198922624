package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env"

	"github.com/dispatchsim/elevator-engine/internal/constants"
	"github.com/dispatchsim/elevator-engine/internal/domain"
)

// Config represents the application configuration with comprehensive options
type Config struct {
	// Environment and basic settings
	Environment string `env:"ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`

	// Server configuration
	Port            int           `env:"PORT" envDefault:"6660"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	ShutdownGrace   time.Duration `env:"SERVER_SHUTDOWN_GRACE" envDefault:"2s"`

	// Simulation configuration
	NumCars       int           `env:"SIM_NUM_CARS" envDefault:"3"`
	NumFloors     int           `env:"SIM_NUM_FLOORS" envDefault:"10"`
	CarCapacity   int           `env:"SIM_CAR_CAPACITY" envDefault:"8"`
	SimSpeed      float64       `env:"SIM_SPEED" envDefault:"1.0"`
	RequestRate   float64       `env:"SIM_REQUEST_RATE" envDefault:"4.0"`
	TickInterval  time.Duration `env:"SIM_TICK_INTERVAL" envDefault:"100ms"`
	AutoStart     bool          `env:"SIM_AUTO_START" envDefault:"false"`
	RandomSeed    int64         `env:"SIM_RANDOM_SEED" envDefault:"1"`

	// HTTP Configuration
	RateLimitRPM       int           `env:"RATE_LIMIT_RPM" envDefault:"100"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	MaxRequestSize     int64         `env:"MAX_REQUEST_SIZE" envDefault:"1048576"`
	RequestTimeoutHTTP time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSEnabled        bool          `env:"CORS_ENABLED" envDefault:"true"`
	CORSMaxAge         time.Duration `env:"CORS_MAX_AGE" envDefault:"12h"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Monitoring
	MetricsEnabled       bool          `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath          string        `env:"METRICS_PATH" envDefault:"/metrics"`
	StatusUpdateInterval time.Duration `env:"STATUS_UPDATE_INTERVAL" envDefault:"1s"`
	HealthEnabled        bool          `env:"HEALTH_ENABLED" envDefault:"true"`
	HealthPath           string        `env:"HEALTH_PATH" envDefault:"/health"`
	StructuredLogging    bool          `env:"STRUCTURED_LOGGING" envDefault:"true"`
	LogRequestDetails    bool          `env:"LOG_REQUEST_DETAILS" envDefault:"false"`
	CorrelationIDHeader  string        `env:"CORRELATION_ID_HEADER" envDefault:"X-Request-ID"`

	// Circuit Breaker
	CircuitBreakerEnabled          bool          `env:"CIRCUIT_BREAKER_ENABLED" envDefault:"true"`
	CircuitBreakerMaxFailures      int           `env:"CIRCUIT_BREAKER_MAX_FAILURES" envDefault:"5"`
	CircuitBreakerResetTimeout     time.Duration `env:"CIRCUIT_BREAKER_RESET_TIMEOUT" envDefault:"30s"`
	CircuitBreakerHalfOpenLimit    int           `env:"CIRCUIT_BREAKER_HALF_OPEN_LIMIT" envDefault:"3"`
	CircuitBreakerFailureThreshold float64       `env:"CIRCUIT_BREAKER_FAILURE_THRESHOLD" envDefault:"0.6"`

	// WebSocket
	WebSocketEnabled           bool          `env:"WEBSOCKET_ENABLED" envDefault:"true"`
	WebSocketPath              string        `env:"WEBSOCKET_PATH" envDefault:"/ws/stream"`
	WebSocketConnectionTimeout time.Duration `env:"WEBSOCKET_CONNECTION_TIMEOUT" envDefault:"10m"`
	WebSocketWriteTimeout      time.Duration `env:"WEBSOCKET_WRITE_TIMEOUT" envDefault:"5s"`
	WebSocketReadTimeout       time.Duration `env:"WEBSOCKET_READ_TIMEOUT" envDefault:"60s"`
	WebSocketPingInterval      time.Duration `env:"WEBSOCKET_PING_INTERVAL" envDefault:"30s"`
	WebSocketMaxConnections    int           `env:"WEBSOCKET_MAX_CONNECTIONS" envDefault:"1000"`
	WebSocketBufferSize        int           `env:"WEBSOCKET_BUFFER_SIZE" envDefault:"1024"`
}

// ServerConfig contains HTTP server specific configuration
type ServerConfig struct {
	Port         int           `env:"PORT" envDefault:"6660"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	ShutdownGrace   time.Duration `env:"SHUTDOWN_GRACE" envDefault:"2s"`
}

// SimulationConfig contains the engine's own tunables, mirrored from the
// top-level Config so it can be validated in isolation.
type SimulationConfig struct {
	NumCars     int     `env:"SIM_NUM_CARS" envDefault:"3"`
	NumFloors   int     `env:"SIM_NUM_FLOORS" envDefault:"10"`
	CarCapacity int     `env:"SIM_CAR_CAPACITY" envDefault:"8"`
	SimSpeed    float64 `env:"SIM_SPEED" envDefault:"1.0"`
	RequestRate float64 `env:"SIM_REQUEST_RATE" envDefault:"4.0"`
}

// HTTPConfig contains HTTP client and middleware configuration
type HTTPConfig struct {
	RateLimitRPM   int           `env:"RATE_LIMIT_RPM" envDefault:"100"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	MaxRequestSize int64         `env:"MAX_REQUEST_SIZE" envDefault:"1048576"` // 1MB
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`

	CORSEnabled        bool          `env:"CORS_ENABLED" envDefault:"true"`
	CORSMaxAge         time.Duration `env:"CORS_MAX_AGE" envDefault:"12h"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
}

// CircuitBreakerConfig contains circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `env:"CIRCUIT_BREAKER_ENABLED" envDefault:"true"`
	MaxFailures      int           `env:"CIRCUIT_BREAKER_MAX_FAILURES" envDefault:"5"`
	ResetTimeout     time.Duration `env:"CIRCUIT_BREAKER_RESET_TIMEOUT" envDefault:"30s"`
	HalfOpenLimit    int           `env:"CIRCUIT_BREAKER_HALF_OPEN_LIMIT" envDefault:"3"`
	FailureThreshold float64       `env:"CIRCUIT_BREAKER_FAILURE_THRESHOLD" envDefault:"0.6"`
}

// WebSocketConfig contains WebSocket specific configuration
type WebSocketConfig struct {
	Enabled           bool          `env:"WEBSOCKET_ENABLED" envDefault:"true"`
	Path              string        `env:"WEBSOCKET_PATH" envDefault:"/ws/stream"`
	ConnectionTimeout time.Duration `env:"WEBSOCKET_CONNECTION_TIMEOUT" envDefault:"10m"`
	WriteTimeout      time.Duration `env:"WEBSOCKET_WRITE_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"WEBSOCKET_READ_TIMEOUT" envDefault:"60s"`
	PingInterval      time.Duration `env:"WEBSOCKET_PING_INTERVAL" envDefault:"30s"`
	MaxConnections    int           `env:"WEBSOCKET_MAX_CONNECTIONS" envDefault:"1000"`
	BufferSize        int           `env:"WEBSOCKET_BUFFER_SIZE" envDefault:"1024"`
}

// InitConfig initializes the configuration from environment variables with comprehensive validation
func InitConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := applyEnvironmentDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment defaults: %w", err)
	}

	if err := validateConfiguration(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ToSimConfig converts the loaded configuration into the engine's clampable
// SimConfig. Clamp is applied by the engine itself on New/UpdateConfig.
func (c *Config) ToSimConfig() domain.SimConfig {
	return domain.SimConfig{
		NumCars:     c.NumCars,
		NumFloors:   c.NumFloors,
		CarCapacity: c.CarCapacity,
		SimSpeed:    c.SimSpeed,
		RequestRate: c.RequestRate,
	}
}

func applyEnvironmentDefaults(cfg *Config) error {
	switch cfg.Environment {
	case "development", "dev":
		applyDevelopmentDefaults(cfg)
	case "testing", "test":
		applyTestingDefaults(cfg)
	case "production", "prod":
		applyProductionDefaults(cfg)
	default:
		// keep current defaults for unknown environments
	}
	return nil
}

func applyDevelopmentDefaults(cfg *Config) {
	if cfg.LogLevel == "INFO" {
		cfg.LogLevel = "DEBUG"
	}
	cfg.LogRequestDetails = true
}

func applyTestingDefaults(cfg *Config) {
	cfg.LogLevel = "WARN"

	cfg.TickInterval = 10 * time.Millisecond
	cfg.NumCars = 2
	cfg.NumFloors = 5

	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	cfg.IdleTimeout = 10 * time.Second
	cfg.RequestTimeoutHTTP = 1 * time.Second

	cfg.MetricsEnabled = false
	cfg.WebSocketEnabled = false
	cfg.LogRequestDetails = false

	cfg.RateLimitRPM = 1000
	cfg.WebSocketMaxConnections = 5
	cfg.MaxRequestSize = 256 * 1024

	cfg.CircuitBreakerMaxFailures = 1
	cfg.CircuitBreakerFailureThreshold = 0.1
	cfg.CircuitBreakerResetTimeout = 5 * time.Second
}

func applyProductionDefaults(cfg *Config) {
	cfg.LogLevel = "WARN"
	cfg.LogRequestDetails = false

	cfg.RateLimitRPM = 30

	cfg.ReadTimeout = 15 * time.Second
	cfg.WriteTimeout = 15 * time.Second
	cfg.IdleTimeout = 60 * time.Second
	cfg.RequestTimeoutHTTP = 10 * time.Second

	cfg.WebSocketConnectionTimeout = 10 * time.Minute
	cfg.WebSocketMaxConnections = 5000
	cfg.WebSocketWriteTimeout = 2 * time.Second
	cfg.WebSocketReadTimeout = 30 * time.Second
	cfg.WebSocketPingInterval = 15 * time.Second

	cfg.CircuitBreakerMaxFailures = 2
	cfg.CircuitBreakerFailureThreshold = 0.3
	cfg.CircuitBreakerResetTimeout = 10 * time.Second

	cfg.CORSAllowedOrigins = "https://dashboard.example.com"
	cfg.MaxRequestSize = 512 * 1024
}

func validateConfiguration(cfg *Config) error {
	if cfg.NumFloors < constants.MinNumFloors {
		return domain.NewValidationError("num floors is below system minimum", nil).
			WithContext("num_floors", cfg.NumFloors).
			WithContext("system_minimum", constants.MinNumFloors)
	}
	if cfg.NumFloors > constants.MaxNumFloors {
		return domain.NewValidationError("num floors exceeds system maximum", nil).
			WithContext("num_floors", cfg.NumFloors).
			WithContext("system_maximum", constants.MaxNumFloors)
	}
	if cfg.NumCars < constants.MinNumCars || cfg.NumCars > constants.MaxNumCars {
		return domain.NewValidationError("num cars must be within the allowed fleet size range", nil).
			WithContext("num_cars", cfg.NumCars)
	}
	if cfg.CarCapacity < constants.MinCarCapacity || cfg.CarCapacity > constants.MaxCarCapacity {
		return domain.NewValidationError("car capacity must be within the allowed range", nil).
			WithContext("car_capacity", cfg.CarCapacity)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return domain.NewValidationError("port must be between 1 and 65535", nil).
			WithContext("port", cfg.Port)
	}

	if cfg.TickInterval <= 0 {
		return domain.NewValidationError("tick interval must be positive", nil).
			WithContext("duration", cfg.TickInterval)
	}

	if err := validateEnvironmentSpecificConfig(cfg); err != nil {
		return err
	}

	return nil
}

func validateEnvironmentSpecificConfig(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.CORSAllowedOrigins == "*" {
			return domain.NewValidationError("CORS wildcard not allowed in production", nil).
				WithContext("environment", cfg.Environment)
		}
		if cfg.LogRequestDetails {
			return domain.NewValidationError("request logging should be disabled in production for performance", nil).
				WithContext("environment", cfg.Environment)
		}
		if cfg.RateLimitRPM > 100 {
			return domain.NewValidationError("rate limit too high for production", nil).
				WithContext("environment", cfg.Environment).
				WithContext("rate_limit", cfg.RateLimitRPM)
		}
	}

	if cfg.IsTesting() {
		if cfg.WebSocketEnabled {
			return domain.NewValidationError("WebSocket should be disabled in testing environment", nil).
				WithContext("environment", cfg.Environment)
		}
		if cfg.MetricsEnabled {
			return domain.NewValidationError("Metrics should be disabled in testing environment", nil).
				WithContext("environment", cfg.Environment)
		}
	}

	return nil
}

// validateSimulationConfiguration validates simulation-specific configuration
func validateSimulationConfiguration(config SimulationConfig) error {
	if config.NumFloors < constants.MinNumFloors || config.NumFloors > constants.MaxNumFloors {
		return domain.NewValidationError("num floors is outside the allowed range", nil).
			WithContext("num_floors", config.NumFloors)
	}
	if config.NumCars < constants.MinNumCars || config.NumCars > constants.MaxNumCars {
		return domain.NewValidationError("num cars is outside the allowed range", nil).
			WithContext("num_cars", config.NumCars)
	}
	if config.CarCapacity < constants.MinCarCapacity || config.CarCapacity > constants.MaxCarCapacity {
		return domain.NewValidationError("car capacity is outside the allowed range", nil).
			WithContext("car_capacity", config.CarCapacity)
	}
	if config.SimSpeed < constants.MinSimSpeed || config.SimSpeed > constants.MaxSimSpeed {
		return domain.NewValidationError("sim speed is outside the allowed range", nil).
			WithContext("sim_speed", config.SimSpeed)
	}
	if config.RequestRate < 0 {
		return domain.NewValidationError("request rate must not be negative", nil).
			WithContext("request_rate", config.RequestRate)
	}
	return nil
}

// validateServerConfiguration validates server-specific configuration
func validateServerConfiguration(config ServerConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return domain.NewValidationError("port must be between 1 and 65535", nil).
			WithContext("port", config.Port)
	}
	if config.ReadTimeout <= 0 {
		return domain.NewValidationError("read timeout must be positive", nil).
			WithContext("timeout", config.ReadTimeout)
	}
	if config.WriteTimeout <= 0 {
		return domain.NewValidationError("write timeout must be positive", nil).
			WithContext("timeout", config.WriteTimeout)
	}
	if config.IdleTimeout <= 0 {
		return domain.NewValidationError("idle timeout must be positive", nil).
			WithContext("timeout", config.IdleTimeout)
	}
	return nil
}

// validateHTTPConfiguration validates HTTP-specific configuration
func validateHTTPConfiguration(config HTTPConfig) error {
	if config.RateLimitRPM <= 0 || config.RateLimitRPM > 100000 {
		return domain.NewValidationError("rate limit RPM must be between 1 and 100000", nil).
			WithContext("rpm", config.RateLimitRPM)
	}
	if config.MaxRequestSize <= 0 || config.MaxRequestSize > 100*1024*1024 {
		return domain.NewValidationError("max request size must be between 1 byte and 100MB", nil).
			WithContext("size", config.MaxRequestSize)
	}
	return nil
}

// validateCircuitBreakerConfiguration validates circuit breaker configuration
func validateCircuitBreakerConfiguration(config CircuitBreakerConfig) error {
	if config.MaxFailures <= 0 || config.MaxFailures > 100 {
		return domain.NewValidationError("max failures must be between 1 and 100", nil).
			WithContext("max_failures", config.MaxFailures)
	}
	if config.ResetTimeout <= 0 {
		return domain.NewValidationError("reset timeout must be positive", nil).
			WithContext("timeout", config.ResetTimeout)
	}
	if config.HalfOpenLimit <= 0 || config.HalfOpenLimit > 50 {
		return domain.NewValidationError("half open limit must be between 1 and 50", nil).
			WithContext("limit", config.HalfOpenLimit)
	}
	if config.FailureThreshold <= 0 || config.FailureThreshold > 1 {
		return domain.NewValidationError("failure threshold must be between 0 and 1", nil).
			WithContext("threshold", config.FailureThreshold)
	}
	return nil
}

// validateWebSocketConfiguration validates WebSocket configuration
func validateWebSocketConfiguration(config WebSocketConfig) error {
	if config.ConnectionTimeout <= 0 {
		return domain.NewValidationError("connection timeout must be positive", nil).
			WithContext("timeout", config.ConnectionTimeout)
	}
	if config.MaxConnections <= 0 || config.MaxConnections > 10000 {
		return domain.NewValidationError("max connections must be between 1 and 10000", nil).
			WithContext("max_connections", config.MaxConnections)
	}
	if config.BufferSize <= 0 || config.BufferSize > 65536 {
		return domain.NewValidationError("buffer size must be between 1 and 65536", nil).
			WithContext("buffer_size", config.BufferSize)
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsTesting returns true if running in testing environment
func (c *Config) IsTesting() bool {
	return c.Environment == "testing" || c.Environment == "test"
}

// GetEnvironmentInfo returns environment information for logging/debugging
func (c *Config) GetEnvironmentInfo() map[string]interface{} {
	return map[string]interface{}{
		"environment":             c.Environment,
		"log_level":               c.LogLevel,
		"port":                    c.Port,
		"metrics_enabled":         c.MetricsEnabled,
		"websocket_enabled":       c.WebSocketEnabled,
		"circuit_breaker_enabled": c.CircuitBreakerEnabled,
	}
}
