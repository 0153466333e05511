package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Ingest    IngestConfig    `yaml:"ingest" envconfig:"INGEST"`
	Jobs      JobsConfig      `yaml:"jobs" envconfig:"JOBS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// IngestConfig drives the ingestion coordinator and fetcher.
type IngestConfig struct {
	// AssetBaseURL is the well-known static location preset files are
	// fetched from, by bare filename.
	AssetBaseURL string `yaml:"asset_base_url" envconfig:"ASSET_BASE_URL" default:"http://localhost:8081"`

	// PresetFiles is the fixed list of canonical filenames auto-loaded at
	// startup, in order.
	PresetFiles []string `yaml:"preset_files" envconfig:"PRESET_FILES" default:"process_data.xlsx,quality_data.xlsx"`

	// PresetDelay is the pause after each successful preset ingest before
	// the next name is attempted.
	PresetDelay time.Duration `yaml:"preset_delay" envconfig:"PRESET_DELAY" default:"500ms"`

	FetchTimeout  time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" default:"30s"`
	FetchRPS      float64       `yaml:"fetch_rps" envconfig:"FETCH_RPS" default:"4"`
	FetchBurst    int           `yaml:"fetch_burst" envconfig:"FETCH_BURST" default:"2"`
	MaxUploadSize int64         `yaml:"max_upload_size" envconfig:"MAX_UPLOAD_SIZE" default:"52428800"`
}

// JobsConfig drives the analysis-job runner.
type JobsConfig struct {
	// TickInterval is the period of the progress scheduler.
	TickInterval time.Duration `yaml:"tick_interval" envconfig:"TICK_INTERVAL" default:"500ms"`

	// ProgressIncrement is added to job progress on every tick.
	ProgressIncrement int `yaml:"progress_increment" envconfig:"PROGRESS_INCREMENT" default:"12"`
}

// Load loads configuration from environment variables and an optional
// config file. Environment values win over file values.
func Load() (*Config, error) {
	return LoadFrom(configFilePath())
}

// LoadFrom loads configuration, overlaying the given YAML file if present.
// Environment variables (and their defaults) are processed first; non-zero
// file values are then merged on top.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DATALENS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			var fileCfg Config
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			mergeConfig(&cfg, &fileCfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// mergeConfig copies non-zero file values over the env-derived config.
func mergeConfig(dst, file *Config) {
	if file.Server.Port != 0 {
		dst.Server.Port = file.Server.Port
	}
	if file.Server.ReadTimeout != 0 {
		dst.Server.ReadTimeout = file.Server.ReadTimeout
	}
	if file.Server.WriteTimeout != 0 {
		dst.Server.WriteTimeout = file.Server.WriteTimeout
	}
	if file.Server.IdleTimeout != 0 {
		dst.Server.IdleTimeout = file.Server.IdleTimeout
	}
	if file.Server.ShutdownTimeout != 0 {
		dst.Server.ShutdownTimeout = file.Server.ShutdownTimeout
	}
	if file.Logging.Level != "" {
		dst.Logging.Level = file.Logging.Level
	}
	if file.Logging.Output != "" {
		dst.Logging.Output = file.Logging.Output
	}
	if file.Logging.FilePath != "" {
		dst.Logging.FilePath = file.Logging.FilePath
	}
	if file.WebSocket.ReadBufferSize != 0 {
		dst.WebSocket.ReadBufferSize = file.WebSocket.ReadBufferSize
	}
	if file.WebSocket.WriteBufferSize != 0 {
		dst.WebSocket.WriteBufferSize = file.WebSocket.WriteBufferSize
	}
	if file.WebSocket.PingPeriod != 0 {
		dst.WebSocket.PingPeriod = file.WebSocket.PingPeriod
	}
	if file.WebSocket.PongWait != 0 {
		dst.WebSocket.PongWait = file.WebSocket.PongWait
	}
	if file.Ingest.AssetBaseURL != "" {
		dst.Ingest.AssetBaseURL = file.Ingest.AssetBaseURL
	}
	if len(file.Ingest.PresetFiles) > 0 {
		dst.Ingest.PresetFiles = file.Ingest.PresetFiles
	}
	if file.Ingest.PresetDelay != 0 {
		dst.Ingest.PresetDelay = file.Ingest.PresetDelay
	}
	if file.Ingest.FetchTimeout != 0 {
		dst.Ingest.FetchTimeout = file.Ingest.FetchTimeout
	}
	if file.Ingest.FetchRPS != 0 {
		dst.Ingest.FetchRPS = file.Ingest.FetchRPS
	}
	if file.Ingest.FetchBurst != 0 {
		dst.Ingest.FetchBurst = file.Ingest.FetchBurst
	}
	if file.Ingest.MaxUploadSize != 0 {
		dst.Ingest.MaxUploadSize = file.Ingest.MaxUploadSize
	}
	if file.Jobs.TickInterval != 0 {
		dst.Jobs.TickInterval = file.Jobs.TickInterval
	}
	if file.Jobs.ProgressIncrement != 0 {
		dst.Jobs.ProgressIncrement = file.Jobs.ProgressIncrement
	}
}

func configFilePath() string {
	if path := os.Getenv("DATALENS_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Ingest.AssetBaseURL == "" {
		return fmt.Errorf("ingest asset_base_url must not be empty")
	}
	if c.Jobs.TickInterval <= 0 {
		return fmt.Errorf("jobs tick_interval must be positive")
	}
	if c.Jobs.ProgressIncrement < 1 || c.Jobs.ProgressIncrement > 100 {
		return fmt.Errorf("jobs progress_increment must be in [1,100]")
	}
	return nil
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
