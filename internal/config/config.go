package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Sink     SinkConfig     `mapstructure:"sink"`
}

type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or text
	Output     string `mapstructure:"output"` // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CameraConfig describes the synthetic camera source used by the demo
// binary and integration tests. Real deployments replace the source with
// a platform adapter supplying frames via Processor.Submit.
type CameraConfig struct {
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
	FPS        int    `mapstructure:"fps"`
	RowPadding int    `mapstructure:"row_padding"` // extra stride bytes per row
	Format     string `mapstructure:"format"`      // yuv420 or nv21
}

type PipelineConfig struct {
	// LiveViewport skips preview materialization when the display surface
	// composites camera frames itself.
	LiveViewport bool `mapstructure:"live_viewport"`
	// DetectorTimeout bounds a single detector call. Zero means unbounded.
	DetectorTimeout time.Duration `mapstructure:"detector_timeout"`
}

type SinkConfig struct {
	Kind  string      `mapstructure:"kind"` // log or redis
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Channel      string        `mapstructure:"channel"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(configPath)

	// Environment variable override
	viper.SetEnvPrefix("VISPIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.listen_addr", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.shutdown_timeout", "5s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 5)
	viper.SetDefault("logging.max_age", 30)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// Camera defaults
	viper.SetDefault("camera.width", 640)
	viper.SetDefault("camera.height", 480)
	viper.SetDefault("camera.fps", 30)
	viper.SetDefault("camera.row_padding", 0)
	viper.SetDefault("camera.format", "yuv420")

	// Pipeline defaults
	viper.SetDefault("pipeline.live_viewport", false)
	viper.SetDefault("pipeline.detector_timeout", "0s")

	// Sink defaults
	viper.SetDefault("sink.kind", "log")
	viper.SetDefault("sink.redis.addr", "localhost:6379")
	viper.SetDefault("sink.redis.db", 0)
	viper.SetDefault("sink.redis.channel", "vispipe:annotations")
	viper.SetDefault("sink.redis.dial_timeout", "5s")
	viper.SetDefault("sink.redis.read_timeout", "3s")
	viper.SetDefault("sink.redis.write_timeout", "3s")
}
