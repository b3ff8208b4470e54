// Package config loads the console's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/w1xm/rci_console/geometry"
	"github.com/w1xm/rci_console/knob"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Listen   string         `yaml:"listen"`
	Surfaces SurfacesConfig `yaml:"surfaces"`
	Knobs    []KnobConfig   `yaml:"knobs"`
	Influx   InfluxConfig   `yaml:"influx"`
}

// ---- SERVER ----

type ServerConfig struct {
	Host       string `yaml:"host"`
	TLS        bool   `yaml:"tls"`
	ClientName string `yaml:"client_name"`
	// PasswordFile holds the credential offered on connect. Empty means an
	// anonymous, read-only session.
	PasswordFile  string        `yaml:"password_file"`
	Throttle      bool          `yaml:"throttle"`
	HighRes       bool          `yaml:"highres"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// ---- SURFACES ----

type SurfacesConfig struct {
	MapDial        geometry.Point `yaml:"map_dial"`
	CompactDial    geometry.Point `yaml:"compact_dial"`
	ElevationGauge geometry.Point `yaml:"elevation_gauge"`
	Panorama       PanoramaConfig `yaml:"panorama"`
}

type PanoramaConfig struct {
	PixelsPerDegree float64 `yaml:"pixels_per_degree"`
	HorizonOffset   float64 `yaml:"horizon_offset"`
	Width           float64 `yaml:"width"`
}

// ---- KNOBS ----

// KnobConfig binds a digit-entry knob to a telemetry field and the command
// its edits send. An empty Field leaves the knob showing its own last value.
type KnobConfig struct {
	Name        string `yaml:"name"`
	Field       string `yaml:"field"`
	Command     string `yaml:"command"`
	knob.Config `yaml:",inline"`
}

// KnobCommands are the commands a knob may drive.
var KnobCommands = map[string]bool{
	"set_azimuth_position":   true,
	"set_elevation_position": true,
	"set_azimuth_velocity":   true,
	"set_elevation_velocity": true,
	"set_azimuth_offset":     true,
	"set_elevation_offset":   true,
}

// ---- INFLUX ----

type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "localhost:8502",
			ClientName:    "rci_console",
			RetryInterval: time.Second,
		},
		Listen: ":8080",
		Surfaces: SurfacesConfig{
			MapDial:        geometry.MapDial.Origin,
			CompactDial:    geometry.CompactDial.Origin,
			ElevationGauge: geometry.ElevationGauge.Origin,
			Panorama: PanoramaConfig{
				PixelsPerDegree: geometry.DefaultPixelsPerDegree,
				HorizonOffset:   geometry.DefaultHorizonOffset,
				Width:           geometry.DefaultPanoramaWidth,
			},
		},
		Knobs: []KnobConfig{
			{Name: "az_position", Field: "CommandAzPos", Command: "set_azimuth_position",
				Config: knob.Config{Min: 0, Max: 360, Wrap: true, Decimals: 2, Digits: 3, Writable: true, Unit: "°"}},
			{Name: "el_position", Field: "CommandElPos", Command: "set_elevation_position",
				Config: knob.Config{Min: -10, Max: 90, Decimals: 2, Digits: 3, Writable: true, Unit: "°"}},
			{Name: "az_velocity", Field: "CommandAzVel", Command: "set_azimuth_velocity",
				Config: knob.Config{Min: -20, Max: 20, Decimals: 2, Digits: 2, Writable: true, Unit: "°/s"}},
			{Name: "el_velocity", Field: "CommandElVel", Command: "set_elevation_velocity",
				Config: knob.Config{Min: -20, Max: 20, Decimals: 2, Digits: 2, Writable: true, Unit: "°/s"}},
			{Name: "az_offset", Command: "set_azimuth_offset",
				Config: knob.Config{Min: -180, Max: 180, Decimals: 2, Digits: 3, Writable: true, Unit: "°"}},
			{Name: "el_offset", Command: "set_elevation_offset",
				Config: knob.Config{Min: -90, Max: 90, Decimals: 2, Digits: 2, Writable: true, Unit: "°"}},
		},
		Influx: InfluxConfig{
			URL:    "http://localhost:9999",
			Org:    "w1xm",
			Bucket: "radar.raw",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values; a knobs list in the file replaces the default table.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Password reads the credential from PasswordFile. Surrounding whitespace is
// ignored.
func (s ServerConfig) Password() (string, error) {
	if s.PasswordFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(s.PasswordFile)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Knob returns the knob named name.
func (c *Config) Knob(name string) (KnobConfig, bool) {
	for _, k := range c.Knobs {
		if k.Name == name {
			return k, true
		}
	}
	return KnobConfig{}, false
}
