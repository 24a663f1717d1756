package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Camera.Validate(); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Sink.Validate(); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid level %q", l.Level)
	}
	switch l.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid format %q (want json or text)", l.Format)
	}
	if l.Output == "" {
		return fmt.Errorf("output must not be empty")
	}
	return nil
}

func (c *CameraConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("dimensions must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("fps must be in (0, 240], got %d", c.FPS)
	}
	if c.RowPadding < 0 {
		return fmt.Errorf("row_padding must not be negative")
	}
	switch c.Format {
	case "yuv420", "nv21":
	default:
		return fmt.Errorf("invalid format %q (want yuv420 or nv21)", c.Format)
	}
	return nil
}

func (p *PipelineConfig) Validate() error {
	if p.DetectorTimeout < 0 {
		return fmt.Errorf("detector_timeout must not be negative")
	}
	return nil
}

func (s *SinkConfig) Validate() error {
	switch s.Kind {
	case "log":
		return nil
	case "redis":
		if s.Redis.Addr == "" {
			return fmt.Errorf("redis addr must not be empty")
		}
		if s.Redis.Channel == "" {
			return fmt.Errorf("redis channel must not be empty")
		}
		return nil
	default:
		return fmt.Errorf("invalid kind %q (want log or redis)", s.Kind)
	}
}
