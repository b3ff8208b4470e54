package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration without changing it.
func Validate(cfg *Config) error {
	if cfg.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if cfg.Server.RetryInterval < 0 {
		return fmt.Errorf("server.retry_interval %v is negative", cfg.Server.RetryInterval)
	}

	p := cfg.Surfaces.Panorama
	if p.PixelsPerDegree <= 0 {
		return fmt.Errorf("surfaces.panorama.pixels_per_degree must be positive, got %v", p.PixelsPerDegree)
	}
	if p.Width <= 0 {
		return fmt.Errorf("surfaces.panorama.width must be positive, got %v", p.Width)
	}

	names := make(map[string]bool)
	for i, k := range cfg.Knobs {
		if k.Name == "" {
			return fmt.Errorf("knob %d: name is required", i)
		}
		if names[k.Name] {
			return fmt.Errorf("knob %q: duplicate name", k.Name)
		}
		names[k.Name] = true

		if k.Writable && !KnobCommands[k.Command] {
			return fmt.Errorf("knob %q: unsupported command %q", k.Name, k.Command)
		}
		if k.Decimals < 0 || k.Decimals > 9 {
			return fmt.Errorf("knob %q: decimals %d out of range [0, 9]", k.Name, k.Decimals)
		}
		if k.Digits < 0 || k.Digits > 12 {
			return fmt.Errorf("knob %q: digits %d out of range [0, 12]", k.Name, k.Digits)
		}
		// A zero bound is open unless the knob wraps.
		bounded := k.Wrap || (k.Min != 0 && k.Max != 0)
		if bounded && k.Min > k.Max {
			return fmt.Errorf("knob %q: min %v exceeds max %v", k.Name, k.Min, k.Max)
		}
		if k.Wrap && k.Min == k.Max {
			return fmt.Errorf("knob %q: wrap needs a non-empty range", k.Name)
		}
	}
	return nil
}
