package config

import (
	"errors"
	"fmt"
	"regexp"

	"recoder/internal/encoders"
)

var resolutionPattern = regexp.MustCompile(`^\d{2,5}x\d{2,5}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateBenchmark(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.Quality < minQuality || c.Encoding.Quality > maxQuality {
		return fmt.Errorf("encoding.quality must be between %d and %d", minQuality, maxQuality)
	}
	if c.Encoding.Preset < 0 {
		return errors.New("encoding.preset must not be negative")
	}
	profiles, err := encoders.Select(c.Encoding.Encoders)
	if err != nil {
		return fmt.Errorf("encoding.encoders: %w", err)
	}
	for _, p := range profiles {
		if _, ok := p.PresetLabel(c.Encoding.Preset); !ok {
			return fmt.Errorf("encoding.preset %d is out of range for %s (0-%d)", c.Encoding.Preset, p.Name, len(p.PresetLabels)-1)
		}
	}
	if len(c.Encoding.Extensions) == 0 {
		return errors.New("encoding.extensions must list at least one extension")
	}
	return nil
}

func (c *Config) validateBenchmark() error {
	if c.Benchmark.MaxAgeHours <= 0 {
		return errors.New("benchmark.max_age_hours must be positive")
	}
	if c.Benchmark.ProbeSeconds <= 0 {
		return errors.New("benchmark.probe_seconds must be positive")
	}
	if !resolutionPattern.MatchString(c.Benchmark.Resolution) {
		return fmt.Errorf("benchmark.resolution %q must look like 1920x1080", c.Benchmark.Resolution)
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if err := ensurePositiveMap(map[string]int{
		"scheduler.tick_millis": c.Scheduler.TickMillis,
		"scheduler.drain_ticks": c.Scheduler.DrainTicks,
	}); err != nil {
		return err
	}
	if c.Scheduler.SettleSeconds < 0 {
		return errors.New("scheduler.settle_seconds must not be negative")
	}
	if c.Scheduler.KillGraceSeconds < 0 {
		return errors.New("scheduler.kill_grace_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
