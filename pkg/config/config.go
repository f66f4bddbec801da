package config

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds the application's configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Sessions SessionsConfig `mapstructure:"sessions"`
}

// ServerConfig contains server-related settings
type ServerConfig struct {
	Host                 string          `mapstructure:"host"`
	Port                 int             `mapstructure:"port"`
	MaxConcurrentStreams int             `mapstructure:"max_concurrent_streams"`
	Keepalive            KeepaliveConfig `mapstructure:"keepalive"`
	RequestTimeout       time.Duration   `mapstructure:"request_timeout"`
	ShutdownTimeout      time.Duration   `mapstructure:"shutdown_timeout"`
}

// KeepaliveConfig contains keepalive settings
type KeepaliveConfig struct {
	Time    time.Duration `mapstructure:"time"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GRPCConfig contains gRPC-specific settings. Message sizes are
// human-readable byte sizes such as "4MB".
type GRPCConfig struct {
	ReflectionEnabled  bool   `mapstructure:"reflection_enabled"`
	HealthCheckEnabled bool   `mapstructure:"health_check_enabled"`
	MaxRecvMsgSize     string `mapstructure:"max_recv_msg_size"`
	MaxSendMsgSize     string `mapstructure:"max_send_msg_size"`
}

// RecvMsgBytes returns the parsed receive limit in bytes
func (g GRPCConfig) RecvMsgBytes() (int, error) {
	return parseByteSize("grpc.max_recv_msg_size", g.MaxRecvMsgSize)
}

// SendMsgBytes returns the parsed send limit in bytes
func (g GRPCConfig) SendMsgBytes() (int, error) {
	return parseByteSize("grpc.max_send_msg_size", g.MaxSendMsgSize)
}

func parseByteSize(key, value string) (int, error) {
	size, err := datasize.ParseString(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidConfig, key, value, err)
	}
	if size == 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, key)
	}
	return int(size.Bytes()), nil
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics collection settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// AgentConfig holds the hyperparameters of a tabular agent. The server uses
// it as the template for agents created without explicit overrides.
type AgentConfig struct {
	StateCount     int     `mapstructure:"state_count" json:"state_count"`
	ActionCount    int     `mapstructure:"action_count" json:"action_count"`
	LearningRate   float64 `mapstructure:"learning_rate" json:"learning_rate"`
	DecaySteps     int     `mapstructure:"decay_steps" json:"decay_steps"`
	DiscountFactor float64 `mapstructure:"discount_factor" json:"discount_factor"`
	Seed           uint64  `mapstructure:"seed" json:"seed"`
	TieBreak       string  `mapstructure:"tie_break" json:"tie_break"`
}

// SessionsConfig bounds how many agents one server hosts and how long an
// idle agent is kept around.
type SessionsConfig struct {
	MaxAgents       int           `mapstructure:"max_agents"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

var (
	AppConfig Config

	mu sync.RWMutex
	v  *viper.Viper
)

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	nv := viper.New()

	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath(".")
		nv.AddConfigPath("./config")
		nv.AddConfigPath("/etc/tabular/")
	}

	// TABULAR_AGENT_LEARNING_RATE, TABULAR_SERVER_PORT, ...
	nv.AutomaticEnv()
	nv.SetEnvPrefix("TABULAR")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(nv)

	if err := nv.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Printf("Using config file: %s", nv.ConfigFileUsed())
	}

	var cfg Config
	if err := nv.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	mu.Lock()
	AppConfig = cfg
	v = nv
	mu.Unlock()

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 40040)
	v.SetDefault("server.max_concurrent_streams", 1000)
	v.SetDefault("server.keepalive.time", "30s")
	v.SetDefault("server.keepalive.timeout", "5s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// gRPC defaults
	v.SetDefault("grpc.reflection_enabled", true)
	v.SetDefault("grpc.health_check_enabled", true)
	v.SetDefault("grpc.max_recv_msg_size", "4MB")
	v.SetDefault("grpc.max_send_msg_size", "4MB")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	// Agent defaults
	v.SetDefault("agent.state_count", 16)
	v.SetDefault("agent.action_count", 4)
	v.SetDefault("agent.learning_rate", 0.5)
	v.SetDefault("agent.decay_steps", 100)
	v.SetDefault("agent.discount_factor", 0.9)
	v.SetDefault("agent.seed", 0)
	v.SetDefault("agent.tie_break", TieBreakFirst)

	// Session defaults
	v.SetDefault("sessions.max_agents", 64)
	v.SetDefault("sessions.idle_timeout", "30m")
	v.SetDefault("sessions.cleanup_interval", "1m")
}

// GetConfig returns the current configuration
func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return AppConfig
}

// ReloadConfig reloads configuration from the file used by the last load
func ReloadConfig() (*Config, error) {
	mu.RLock()
	current := v
	mu.RUnlock()

	if current == nil || current.ConfigFileUsed() == "" {
		return nil, fmt.Errorf("no config file to reload")
	}
	return LoadConfig(current.ConfigFileUsed())
}

// WatchConfig watches the loaded configuration file for changes. The
// callback only sees configurations that passed validation.
func WatchConfig(callback func(*Config)) error {
	mu.RLock()
	current := v
	mu.RUnlock()

	if current == nil || current.ConfigFileUsed() == "" {
		return fmt.Errorf("no config file to watch")
	}

	current.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed: %s", e.Name)

		var cfg Config
		if err := current.Unmarshal(&cfg); err != nil {
			log.Printf("Failed to reload config: %v", err)
			return
		}
		if err := Validate(&cfg); err != nil {
			log.Printf("Config validation failed after reload: %v", err)
			return
		}

		mu.Lock()
		AppConfig = cfg
		mu.Unlock()

		log.Println("Configuration reloaded successfully")
		if callback != nil {
			callback(&cfg)
		}
	})
	current.WatchConfig()
	return nil
}
