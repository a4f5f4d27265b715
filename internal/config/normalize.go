package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoding()
	c.normalizeBenchmark()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	// Bare command names stay as-is so they resolve through PATH.
	c.Paths.FFmpegBinary = strings.TrimSpace(c.Paths.FFmpegBinary)
	if strings.ContainsRune(c.Paths.FFmpegBinary, '/') || strings.HasPrefix(c.Paths.FFmpegBinary, "~") {
		if c.Paths.FFmpegBinary, err = expandPath(c.Paths.FFmpegBinary); err != nil {
			return fmt.Errorf("paths.ffmpeg_binary: %w", err)
		}
	}
	c.Paths.FFprobeBinary = strings.TrimSpace(c.Paths.FFprobeBinary)
	if strings.ContainsRune(c.Paths.FFprobeBinary, '/') || strings.HasPrefix(c.Paths.FFprobeBinary, "~") {
		if c.Paths.FFprobeBinary, err = expandPath(c.Paths.FFprobeBinary); err != nil {
			return fmt.Errorf("paths.ffprobe_binary: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeEncoding() {
	encoders := make([]string, 0, len(c.Encoding.Encoders))
	seen := make(map[string]struct{}, len(c.Encoding.Encoders))
	for _, name := range c.Encoding.Encoders {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		encoders = append(encoders, name)
	}
	c.Encoding.Encoders = encoders

	if len(c.Encoding.Extensions) == 0 {
		c.Encoding.Extensions = append([]string(nil), defaultExtensions...)
		return
	}
	extensions := make([]string, 0, len(c.Encoding.Extensions))
	for _, ext := range c.Encoding.Extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			extensions = append(extensions, ext)
		}
	}
	c.Encoding.Extensions = extensions
}

func (c *Config) normalizeBenchmark() {
	c.Benchmark.Resolution = strings.ToLower(strings.TrimSpace(c.Benchmark.Resolution))
	if c.Benchmark.Resolution == "" {
		c.Benchmark.Resolution = defaultBenchmarkResolution
	}
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("RECODER_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if strings.TrimSpace(c.Notifications.TaskTemplate) == "" {
		c.Notifications.TaskTemplate = defaultTaskNotifyTemplate
	}
	if strings.TrimSpace(c.Notifications.RunTemplate) == "" {
		c.Notifications.RunTemplate = defaultRunNotifyTemplate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
