// Package config holds the per-agent exploration tunables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config collects every tunable of the exploration core. Durations are in
// seconds because the simulation ticks in float seconds.
type Config struct {
	// Grid
	Width           int     `yaml:"width" json:"width"`                       // cells (default: 64)
	Height          int     `yaml:"height" json:"height"`                     // cells (default: 64)
	CellSize        float64 `yaml:"cell_size" json:"cell_size"`               // world units per cell (default: 1.0)
	OriginX         float64 `yaml:"origin_x" json:"origin_x"`                 // world X of cell (0,0) corner
	OriginY         float64 `yaml:"origin_y" json:"origin_y"`                 // world Y of cell (0,0) corner
	InflationRadius int     `yaml:"inflation_radius" json:"inflation_radius"` // cells (default: 1)

	// Sensing
	RayCount int     `yaml:"ray_count" json:"ray_count"` // rays per sweep (default: 32)
	MaxRange float64 `yaml:"max_range" json:"max_range"` // world units (default: 6)

	// Planning
	ReplanInterval float64 `yaml:"replan_interval" json:"replan_interval"`   // seconds (default: 0.5)
	AStarNodeLimit int     `yaml:"astar_node_limit" json:"astar_node_limit"` // expansions (default: 20000)

	// Frontier
	FrontierCandidateCap int     `yaml:"frontier_candidate_cap" json:"frontier_candidate_cap"` // default: 256
	FrontierExpansionCap int     `yaml:"frontier_expansion_cap" json:"frontier_expansion_cap"` // default: 20000
	FrontierCooldown     float64 `yaml:"frontier_cooldown" json:"frontier_cooldown"`           // seconds (default: 3)
	CooldownCapacity     int     `yaml:"cooldown_capacity" json:"cooldown_capacity"`           // tracked cells (default: 256)

	// Following
	ArrivalDistance float64 `yaml:"arrival_distance" json:"arrival_distance"` // world units (default: 0.3)

	// Reactive fallback
	WallDistance float64 `yaml:"wall_distance" json:"wall_distance"` // world units (default: 1.0)

	// Simulated motion
	Speed     float64 `yaml:"speed" json:"speed"`         // world units per second (default: 1.0)
	Clearance float64 `yaml:"clearance" json:"clearance"` // world units kept from obstacles (default: 0.2)
}

// MaxCells bounds Width*Height so a single grid stays within a few megabytes.
const MaxCells = 1 << 22

// Default returns the canonical defaults.
func Default() *Config {
	return &Config{
		Width:                64,
		Height:               64,
		CellSize:             1.0,
		InflationRadius:      1,
		RayCount:             32,
		MaxRange:             6,
		ReplanInterval:       0.5,
		AStarNodeLimit:       20000,
		FrontierCandidateCap: 256,
		FrontierExpansionCap: 20000,
		FrontierCooldown:     3,
		CooldownCapacity:     256,
		ArrivalDistance:      0.3,
		WallDistance:         1.0,
		Speed:                1.0,
		Clearance:            0.2,
	}
}

// Load reads a YAML file over the defaults, so partial files are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("grid size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Width > MaxCells/c.Height {
		return fmt.Errorf("grid size %dx%d exceeds %d cells", c.Width, c.Height, MaxCells)
	}
	if c.CellSize <= 0 {
		return fmt.Errorf("CellSize must be positive, got %f", c.CellSize)
	}
	if c.InflationRadius < 0 {
		return fmt.Errorf("InflationRadius must be non-negative, got %d", c.InflationRadius)
	}
	if c.RayCount <= 0 {
		return fmt.Errorf("RayCount must be positive, got %d", c.RayCount)
	}
	if c.MaxRange <= 0 {
		return fmt.Errorf("MaxRange must be positive, got %f", c.MaxRange)
	}
	if c.ReplanInterval < 0 {
		return fmt.Errorf("ReplanInterval must be non-negative, got %f", c.ReplanInterval)
	}
	if c.AStarNodeLimit <= 0 {
		return fmt.Errorf("AStarNodeLimit must be positive, got %d", c.AStarNodeLimit)
	}
	if c.FrontierCandidateCap <= 0 {
		return fmt.Errorf("FrontierCandidateCap must be positive, got %d", c.FrontierCandidateCap)
	}
	if c.FrontierExpansionCap <= 0 {
		return fmt.Errorf("FrontierExpansionCap must be positive, got %d", c.FrontierExpansionCap)
	}
	if c.FrontierCooldown < 0 {
		return fmt.Errorf("FrontierCooldown must be non-negative, got %f", c.FrontierCooldown)
	}
	if c.CooldownCapacity <= 0 {
		return fmt.Errorf("CooldownCapacity must be positive, got %d", c.CooldownCapacity)
	}
	// At most one frontier is selected per ReplanInterval, so this many
	// cooldowns can be live at once.
	if c.ReplanInterval > 0 {
		if live := math.Ceil(c.FrontierCooldown / c.ReplanInterval); float64(c.CooldownCapacity) < live {
			return fmt.Errorf("CooldownCapacity %d is below the %.0f cooldowns live within FrontierCooldown", c.CooldownCapacity, live)
		}
	}
	if c.ArrivalDistance <= 0 {
		return fmt.Errorf("ArrivalDistance must be positive, got %f", c.ArrivalDistance)
	}
	if c.WallDistance <= 0 {
		return fmt.Errorf("WallDistance must be positive, got %f", c.WallDistance)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("Speed must be positive, got %f", c.Speed)
	}
	if c.Clearance < 0 {
		return fmt.Errorf("Clearance must be non-negative, got %f", c.Clearance)
	}
	return nil
}

// WithGrid sets the grid dimensions and cell size.
func (c *Config) WithGrid(width, height int, cellSize float64) *Config {
	c.Width = width
	c.Height = height
	c.CellSize = cellSize
	return c
}

// WithOrigin sets the world position of the grid's (0,0) corner.
func (c *Config) WithOrigin(x, y float64) *Config {
	c.OriginX = x
	c.OriginY = y
	return c
}

// WithInflationRadius sets the obstacle padding in cells.
func (c *Config) WithInflationRadius(r int) *Config {
	c.InflationRadius = r
	return c
}

// WithSensor sets the ray count and maximum sensing range.
func (c *Config) WithSensor(rays int, maxRange float64) *Config {
	c.RayCount = rays
	c.MaxRange = maxRange
	return c
}

// WithReplanInterval sets the replan cooldown in seconds.
func (c *Config) WithReplanInterval(seconds float64) *Config {
	c.ReplanInterval = seconds
	return c
}

// WithFrontierCooldown sets how long a selected frontier stays ineligible.
func (c *Config) WithFrontierCooldown(seconds float64) *Config {
	c.FrontierCooldown = seconds
	return c
}

// WithMotion sets the simulated speed and obstacle clearance.
func (c *Config) WithMotion(speed, clearance float64) *Config {
	c.Speed = speed
	c.Clearance = clearance
	return c
}

// WithArrivalDistance sets the waypoint arrival threshold.
func (c *Config) WithArrivalDistance(d float64) *Config {
	c.ArrivalDistance = d
	return c
}
