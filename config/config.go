package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Strategy selects how connection workers are executed
type Strategy string

const (
	// Pool runs each connection on a goroutine, bounded by the worker count
	Pool Strategy = "pool"
	// Process hands each connection to a child process, bounded by the worker count
	Process Strategy = "process"
)

const (
	DefaultWorkers       = 10
	DefaultListenAddress = "0.0.0.0:13337"
)

// NetworkConfig holds network-related configuration
type NetworkConfig struct {
	// ListenAddress is the address to listen on (e.g., ":13337")
	ListenAddress string `mapstructure:"listen_address"`
	// Timeouts
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Framing limits
	MaxFrameSize   int `mapstructure:"max_frame_size"`
	ReadChunkSize  int `mapstructure:"read_chunk_size"`
	WriteChunkSize int `mapstructure:"write_chunk_size"`
}

// StorageConfig holds storage-related configuration
type StorageConfig struct {
	// Root directory for file storage
	StorageRoot string `mapstructure:"storage_root"`
	// File permissions for new files
	DefaultFileMode uint32 `mapstructure:"default_file_mode"`
	// Maximum decoded upload size, 0 for no limit
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// SchedulerConfig holds concurrency configuration
type SchedulerConfig struct {
	Strategy Strategy `mapstructure:"strategy"`
	// Workers is the number of connections served at the same time
	Workers int `mapstructure:"workers"`
}

// StatusConfig holds the HTTP status endpoint configuration
type StatusConfig struct {
	// ListenAddress for the status server, empty disables it
	ListenAddress string `mapstructure:"listen_address"`
}

// WatchConfig holds the storage watcher configuration
type WatchConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config holds the complete configuration for a server
type Config struct {
	Network   NetworkConfig   `mapstructure:"network"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Status    StatusConfig    `mapstructure:"status"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	// Validate network configuration
	if c.Network.ListenAddress == "" {
		return fmt.Errorf("listen_address is required")
	}
	if c.Network.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive")
	}
	if c.Network.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}
	if c.Network.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative")
	}
	if c.Network.MaxFrameSize < 16 {
		return fmt.Errorf("max_frame_size must be at least 16 bytes")
	}
	if c.Network.ReadChunkSize <= 0 || c.Network.WriteChunkSize <= 0 {
		return fmt.Errorf("read_chunk_size and write_chunk_size must be positive")
	}

	// Validate storage configuration
	if c.Storage.StorageRoot == "" {
		return fmt.Errorf("storage_root is required")
	}
	if c.Storage.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must not be negative")
	}

	// Validate scheduler
	switch c.Scheduler.Strategy {
	case Pool, Process:
	default:
		return fmt.Errorf("invalid scheduler strategy: %s", c.Scheduler.Strategy)
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	return nil
}

// Flags returns the command line flags understood by LoadConfig.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("filexfer", pflag.ContinueOnError)
	fs.String("config", "", "path to a config file")
	fs.String("listen", DefaultListenAddress, "address to listen on")
	fs.String("root", "files", "directory to serve files from")
	fs.Int("workers", DefaultWorkers, "number of connections served concurrently")
	fs.String("strategy", string(Pool), "worker strategy: pool or process")
	fs.String("status-listen", "", "address of the HTTP status server (disabled when empty)")
	fs.Bool("watch", false, "log changes made to the storage root by other processes")
	return fs
}

var flagKeys = map[string]string{
	"listen":        "network.listen_address",
	"root":          "storage.storage_root",
	"workers":       "scheduler.workers",
	"strategy":      "scheduler.strategy",
	"status-listen": "status.listen_address",
	"watch":         "watch.enabled",
}

// LoadConfig loads the configuration from file, environment variables
// and flags. flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("network.listen_address", DefaultListenAddress)
	v.SetDefault("network.idle_timeout", "300s")
	v.SetDefault("network.write_timeout", "300s")
	v.SetDefault("network.shutdown_timeout", "10s")
	v.SetDefault("network.max_frame_size", 128<<20) // 128MiB
	v.SetDefault("network.read_chunk_size", 1<<20)
	v.SetDefault("network.write_chunk_size", 1<<16)
	v.SetDefault("storage.storage_root", "files")
	v.SetDefault("storage.default_file_mode", 0644)
	v.SetDefault("storage.max_file_size", int64(0))
	v.SetDefault("scheduler.strategy", Pool)
	v.SetDefault("scheduler.workers", DefaultWorkers)
	v.SetDefault("status.listen_address", "")
	v.SetDefault("watch.enabled", false)

	// Set up environment variable support
	v.SetEnvPrefix("FILEXFER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Flags only override when set explicitly
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	// Read config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
