package config

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatchsim/elevator-engine/internal/domain"
)

func TestInitConfig_DefaultValues(t *testing.T) {
	cleanupEnv := clearEnvVars()
	defer cleanupEnv()

	cfg, err := InitConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 6660, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 3, cfg.NumCars)
	assert.Equal(t, 10, cfg.NumFloors)
	assert.Equal(t, 8, cfg.CarCapacity)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 100, cfg.RateLimitRPM)
	assert.True(t, cfg.LogRequestDetails)
}

func TestInitConfig_EnvironmentVariables(t *testing.T) {
	cleanupEnv := clearEnvVars()
	defer cleanupEnv()

	envVars := map[string]string{
		"ENV":                     "production",
		"LOG_LEVEL":               "ERROR",
		"PORT":                    "8080",
		"SIM_NUM_FLOORS":          "20",
		"SIM_NUM_CARS":            "5",
		"RATE_LIMIT_RPM":          "200",
		"WEBSOCKET_ENABLED":       "false",
		"CIRCUIT_BREAKER_ENABLED": "false",
	}
	for key, value := range envVars {
		require.NoError(t, os.Setenv(key, value))
	}

	cfg, err := InitConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 20, cfg.NumFloors)
	assert.Equal(t, 5, cfg.NumCars)
	assert.Equal(t, 30, cfg.RateLimitRPM) // overridden by production defaults
	assert.False(t, cfg.WebSocketEnabled)
	assert.False(t, cfg.CircuitBreakerEnabled)
}

func TestEnvironmentDefaults_Testing(t *testing.T) {
	cleanupEnv := clearEnvVars()
	defer cleanupEnv()

	require.NoError(t, os.Setenv("ENV", "testing"))

	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, "testing", cfg.Environment)
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, 10*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 2, cfg.NumCars)
	assert.Equal(t, 5, cfg.NumFloors)
	assert.False(t, cfg.MetricsEnabled)
	assert.False(t, cfg.WebSocketEnabled)
	assert.Equal(t, 1, cfg.CircuitBreakerMaxFailures)
}

func TestEnvironmentDefaults_Production(t *testing.T) {
	cleanupEnv := clearEnvVars()
	defer cleanupEnv()

	require.NoError(t, os.Setenv("ENV", "production"))

	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, 30, cfg.RateLimitRPM)
	assert.False(t, cfg.LogRequestDetails)
	assert.Equal(t, 5000, cfg.WebSocketMaxConnections)
	assert.Equal(t, 2, cfg.CircuitBreakerMaxFailures)
	assert.Equal(t, "https://dashboard.example.com", cfg.CORSAllowedOrigins)
}

func TestConfigValidation_InvalidNumFloors(t *testing.T) {
	tests := []struct {
		name      string
		numFloors string
		wantErr   string
	}{
		{"below system minimum", "1", "num floors is below system minimum"},
		{"above system maximum", "500", "num floors exceeds system maximum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanupEnv := clearEnvVars()
			defer cleanupEnv()

			require.NoError(t, os.Setenv("SIM_NUM_FLOORS", tt.numFloors))

			cfg, err := InitConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)

			var domainErr *domain.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domain.ErrTypeValidation, domainErr.Type)
		})
	}
}

func TestConfigValidation_InvalidPortConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		port    string
		wantErr string
	}{
		{"port zero", "0", "port must be between 1 and 65535"},
		{"negative port", "-1", "port must be between 1 and 65535"},
		{"port too high", "70000", "port must be between 1 and 65535"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanupEnv := clearEnvVars()
			defer cleanupEnv()

			require.NoError(t, os.Setenv("PORT", tt.port))

			cfg, err := InitConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidation_InvalidNumCars(t *testing.T) {
	tests := []struct {
		name    string
		numCars string
		wantErr string
	}{
		{"zero cars", "0", "num cars must be within the allowed fleet size range"},
		{"too many cars", "50", "num cars must be within the allowed fleet size range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanupEnv := clearEnvVars()
			defer cleanupEnv()

			require.NoError(t, os.Setenv("SIM_NUM_CARS", tt.numCars))

			cfg, err := InitConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSimulationConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		config  SimulationConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid configuration",
			config: SimulationConfig{
				NumCars: 3, NumFloors: 10, CarCapacity: 8, SimSpeed: 1.0, RequestRate: 4.0,
			},
			wantErr: false,
		},
		{
			name:    "floors out of range",
			config:  SimulationConfig{NumCars: 3, NumFloors: 1, CarCapacity: 8, SimSpeed: 1.0},
			wantErr: true,
			errMsg:  "num floors is outside the allowed range",
		},
		{
			name:    "negative request rate",
			config:  SimulationConfig{NumCars: 3, NumFloors: 10, CarCapacity: 8, SimSpeed: 1.0, RequestRate: -1},
			wantErr: true,
			errMsg:  "request rate must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSimulationConfiguration(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateServerConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		config  ServerConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid configuration",
			config:  ServerConfig{Port: 8080, ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second},
			wantErr: false,
		},
		{
			name:    "invalid port",
			config:  ServerConfig{Port: 0},
			wantErr: true,
			errMsg:  "port must be between 1 and 65535",
		},
		{
			name:    "negative timeout",
			config:  ServerConfig{Port: 8080, ReadTimeout: -1 * time.Second},
			wantErr: true,
			errMsg:  "read timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServerConfiguration(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateHTTPConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		config  HTTPConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid configuration",
			config:  HTTPConfig{RateLimitRPM: 100, MaxRequestSize: 1024 * 1024},
			wantErr: false,
		},
		{
			name:    "rate limit too high",
			config:  HTTPConfig{RateLimitRPM: 200000},
			wantErr: true,
			errMsg:  "rate limit RPM must be between 1 and 100000",
		},
		{
			name:    "request size too large",
			config:  HTTPConfig{RateLimitRPM: 100, MaxRequestSize: 200 * 1024 * 1024},
			wantErr: true,
			errMsg:  "max request size must be between 1 byte and 100MB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHTTPConfiguration(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateCircuitBreakerConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		config  CircuitBreakerConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid configuration",
			config:  CircuitBreakerConfig{MaxFailures: 5, ResetTimeout: 30 * time.Second, HalfOpenLimit: 3, FailureThreshold: 0.6},
			wantErr: false,
		},
		{
			name:    "invalid failure threshold",
			config:  CircuitBreakerConfig{MaxFailures: 5, ResetTimeout: 30 * time.Second, HalfOpenLimit: 3, FailureThreshold: 1.5},
			wantErr: true,
			errMsg:  "failure threshold must be between 0 and 1",
		},
		{
			name:    "too many max failures",
			config:  CircuitBreakerConfig{MaxFailures: 150},
			wantErr: true,
			errMsg:  "max failures must be between 1 and 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCircuitBreakerConfiguration(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateWebSocketConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		config  WebSocketConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid configuration",
			config:  WebSocketConfig{ConnectionTimeout: 10 * time.Minute, MaxConnections: 1000, BufferSize: 1024},
			wantErr: false,
		},
		{
			name:    "too many connections",
			config:  WebSocketConfig{ConnectionTimeout: 10 * time.Minute, MaxConnections: 15000, BufferSize: 1024},
			wantErr: true,
			errMsg:  "max connections must be between 1 and 10000",
		},
		{
			name:    "buffer size too large",
			config:  WebSocketConfig{ConnectionTimeout: 10 * time.Minute, MaxConnections: 1000, BufferSize: 100000},
			wantErr: true,
			errMsg:  "buffer size must be between 1 and 65536",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWebSocketConfiguration(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_EnvironmentMethods(t *testing.T) {
	tests := []struct {
		name          string
		environment   string
		isProduction  bool
		isDevelopment bool
		isTesting     bool
	}{
		{"production", "production", true, false, false},
		{"prod", "prod", true, false, false},
		{"development", "development", false, true, false},
		{"dev", "dev", false, true, false},
		{"testing", "testing", false, false, true},
		{"test", "test", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.isProduction, cfg.IsProduction())
			assert.Equal(t, tt.isDevelopment, cfg.IsDevelopment())
			assert.Equal(t, tt.isTesting, cfg.IsTesting())
		})
	}
}

func TestConfig_GetEnvironmentInfo(t *testing.T) {
	cfg := &Config{
		Environment:           "development",
		LogLevel:              "DEBUG",
		Port:                  8080,
		MetricsEnabled:        true,
		WebSocketEnabled:      true,
		CircuitBreakerEnabled: false,
	}

	info := cfg.GetEnvironmentInfo()

	expected := map[string]interface{}{
		"environment":             "development",
		"log_level":               "DEBUG",
		"port":                    8080,
		"metrics_enabled":         true,
		"websocket_enabled":       true,
		"circuit_breaker_enabled": false,
	}

	assert.Equal(t, expected, info)
}

func TestConfig_ToSimConfig(t *testing.T) {
	cfg := &Config{NumCars: 4, NumFloors: 12, CarCapacity: 10, SimSpeed: 2.0, RequestRate: 5.0}
	sc := cfg.ToSimConfig()
	assert.Equal(t, 4, sc.NumCars)
	assert.Equal(t, 12, sc.NumFloors)
	assert.Equal(t, 10, sc.CarCapacity)
	assert.Equal(t, 2.0, sc.SimSpeed)
	assert.Equal(t, 5.0, sc.RequestRate)
}

func TestConfigBoundaryValues(t *testing.T) {
	cleanupEnv := clearEnvVars()
	defer cleanupEnv()

	envVars := map[string]string{
		"SIM_NUM_FLOORS": "2",  // minimum allowed
		"SIM_NUM_CARS":   "10", // maximum allowed
		"PORT":           "1",  // minimum port
		"RATE_LIMIT_RPM": "1",  // minimum rate limit
	}
	for key, value := range envVars {
		require.NoError(t, os.Setenv(key, value))
	}

	cfg, err := InitConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 2, cfg.NumFloors)
	assert.Equal(t, 10, cfg.NumCars)
	assert.Equal(t, 1, cfg.Port)
	assert.Equal(t, 1, cfg.RateLimitRPM)
}

func TestConfigWithAlternativeEnvironmentNames(t *testing.T) {
	environments := []struct {
		envName      string
		expectedType string
	}{
		{"dev", "development"},
		{"development", "development"},
		{"test", "testing"},
		{"testing", "testing"},
		{"prod", "production"},
		{"production", "production"},
	}

	for _, env := range environments {
		t.Run(env.envName, func(t *testing.T) {
			cleanupEnv := clearEnvVars()
			defer cleanupEnv()

			require.NoError(t, os.Setenv("ENV", env.envName))

			cfg, err := InitConfig()
			require.NoError(t, err)

			switch env.expectedType {
			case "development":
				assert.True(t, cfg.IsDevelopment())
				assert.False(t, cfg.IsProduction())
				assert.False(t, cfg.IsTesting())
			case "testing":
				assert.False(t, cfg.IsDevelopment())
				assert.False(t, cfg.IsProduction())
				assert.True(t, cfg.IsTesting())
			case "production":
				assert.False(t, cfg.IsDevelopment())
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.IsTesting())
			}
		})
	}
}

func clearEnvVars() func() {
	envVars := []string{
		"ENV", "LOG_LEVEL", "PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT",
		"SERVER_IDLE_TIMEOUT", "SERVER_SHUTDOWN_TIMEOUT", "SERVER_SHUTDOWN_GRACE",
		"SIM_NUM_CARS", "SIM_NUM_FLOORS", "SIM_CAR_CAPACITY", "SIM_SPEED",
		"SIM_REQUEST_RATE", "SIM_TICK_INTERVAL", "SIM_AUTO_START", "SIM_RANDOM_SEED",
		"RATE_LIMIT_RPM", "RATE_LIMIT_WINDOW", "MAX_REQUEST_SIZE", "HTTP_REQUEST_TIMEOUT",
		"CORS_ENABLED", "CORS_MAX_AGE", "CORS_ALLOWED_ORIGINS", "METRICS_ENABLED",
		"METRICS_PATH", "STATUS_UPDATE_INTERVAL", "HEALTH_ENABLED", "HEALTH_PATH",
		"STRUCTURED_LOGGING", "LOG_REQUEST_DETAILS", "CORRELATION_ID_HEADER",
		"CIRCUIT_BREAKER_ENABLED", "CIRCUIT_BREAKER_MAX_FAILURES",
		"CIRCUIT_BREAKER_RESET_TIMEOUT", "CIRCUIT_BREAKER_HALF_OPEN_LIMIT",
		"CIRCUIT_BREAKER_FAILURE_THRESHOLD", "WEBSOCKET_ENABLED", "WEBSOCKET_PATH",
		"WEBSOCKET_CONNECTION_TIMEOUT", "WEBSOCKET_WRITE_TIMEOUT",
		"WEBSOCKET_READ_TIMEOUT", "WEBSOCKET_PING_INTERVAL",
		"WEBSOCKET_MAX_CONNECTIONS", "WEBSOCKET_BUFFER_SIZE",
	}

	originalValues := make(map[string]string)
	for _, envVar := range envVars {
		originalValues[envVar] = os.Getenv(envVar)
		if err := os.Unsetenv(envVar); err != nil {
			fmt.Printf("failed to unset environment variable %s: %v\n", envVar, err)
		}
	}

	return func() {
		for _, envVar := range envVars {
			if originalValue, exists := originalValues[envVar]; exists && originalValue != "" {
				os.Setenv(envVar, originalValue)
			} else {
				os.Unsetenv(envVar)
			}
		}
	}
}
