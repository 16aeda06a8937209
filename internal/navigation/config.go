package navigation

import (
	"fmt"
	"io"
	"math"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"github.com/signalsfoundry/globeview/core"
)

// Config holds the tunable navigation settings. Zero MaximumZoomDistance
// means unbounded.
type Config struct {
	EnableTranslate bool `yaml:"enableTranslate"`
	EnableZoom      bool `yaml:"enableZoom"`
	EnableRotate    bool `yaml:"enableRotate"`
	EnableTilt      bool `yaml:"enableTilt"`

	MaximumMovementRatio float64 `yaml:"maximumMovementRatio"`
	MinimumZoomDistance  float64 `yaml:"minimumZoomDistance"`
	MaximumZoomDistance  float64 `yaml:"maximumZoomDistance"`
	ZoomFactor           float64 `yaml:"zoomFactor"`

	// Ellipsoid is "wgs84" or "unitSphere".
	Ellipsoid string `yaml:"ellipsoid"`
}

// DefaultConfig returns the settings a new ViewModel starts with.
func DefaultConfig() Config {
	return Config{
		EnableTranslate:      true,
		EnableZoom:           true,
		EnableRotate:         true,
		EnableTilt:           true,
		MaximumMovementRatio: 0.1,
		MinimumZoomDistance:  20,
		ZoomFactor:           1,
		Ellipsoid:            "wgs84",
	}
}

// LoadConfiguration reads a yaml document over DefaultConfig. Keys missing
// from the document keep their defaults.
func LoadConfiguration(data io.Reader) (Config, error) {
	cfg := DefaultConfig()
	buf, err := io.ReadAll(data)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("navigation config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the view-model cannot work with.
func (c Config) Validate() error {
	if c.MaximumMovementRatio <= 0 {
		return fmt.Errorf("navigation config: maximumMovementRatio must be positive, got %v", c.MaximumMovementRatio)
	}
	if c.MinimumZoomDistance < 0 {
		return fmt.Errorf("navigation config: minimumZoomDistance must not be negative, got %v", c.MinimumZoomDistance)
	}
	if c.MaximumZoomDistance != 0 && c.MaximumZoomDistance < c.MinimumZoomDistance {
		return fmt.Errorf("navigation config: maximumZoomDistance %v is below minimumZoomDistance %v", c.MaximumZoomDistance, c.MinimumZoomDistance)
	}
	if c.ZoomFactor <= 0 {
		return fmt.Errorf("navigation config: zoomFactor must be positive, got %v", c.ZoomFactor)
	}
	if _, err := c.ellipsoid(); err != nil {
		return err
	}
	return nil
}

func (c Config) ellipsoid() (*core.Ellipsoid, error) {
	switch strings.ToLower(c.Ellipsoid) {
	case "", "wgs84":
		return core.WGS84, nil
	case "unitsphere", "unit_sphere":
		return core.UnitSphere, nil
	}
	return nil, fmt.Errorf("navigation config: unknown ellipsoid %q", c.Ellipsoid)
}

// Apply copies the settings onto vm.
func (c Config) Apply(vm *ViewModel) {
	vm.EnableTranslate = c.EnableTranslate
	vm.EnableZoom = c.EnableZoom
	vm.EnableRotate = c.EnableRotate
	vm.EnableTilt = c.EnableTilt
	vm.MaximumMovementRatio = c.MaximumMovementRatio
	vm.MinimumZoomDistance = c.MinimumZoomDistance
	vm.MaximumZoomDistance = c.MaximumZoomDistance
	if vm.MaximumZoomDistance == 0 {
		vm.MaximumZoomDistance = math.Inf(1)
	}
	vm.ZoomFactor = c.ZoomFactor
	if e, err := c.ellipsoid(); err == nil {
		vm.SetEllipsoid(e)
	}
}
