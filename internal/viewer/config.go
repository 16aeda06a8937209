package viewer

import (
	"fmt"
	"io"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/signalsfoundry/globeview/internal/navigation"
	"github.com/signalsfoundry/globeview/model"
	"github.com/signalsfoundry/globeview/timectrl"
)

// Config describes a viewer. Zero Multiplier keeps the multiplier chosen
// when the clock is fitted to the scene; an empty ClockRange keeps the
// fitted range.
type Config struct {
	Mode          string        `yaml:"mode"`
	FrameInterval time.Duration `yaml:"frameInterval"`
	Multiplier    float64       `yaml:"multiplier"`
	ClockRange    string        `yaml:"clockRange"`
	CanvasWidth   float64       `yaml:"canvasWidth"`
	CanvasHeight  float64       `yaml:"canvasHeight"`

	// IntervalCacheSize bounds the parsed-interval cache of the packet
	// processor.
	IntervalCacheSize int `yaml:"intervalCacheSize"`

	Navigation navigation.Config `yaml:"navigation"`
}

// DefaultConfig returns a 3D viewer on a 1024x768 canvas at 60 frames per
// second.
func DefaultConfig() Config {
	return Config{
		Mode:          model.Scene3D.String(),
		FrameInterval: time.Second / 60,
		CanvasWidth:   1024,
		CanvasHeight:  768,
		Navigation:    navigation.DefaultConfig(),
	}
}

// LoadConfig reads a yaml document over DefaultConfig.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	buf, err := io.ReadAll(r)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("viewer config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadConfigFile reads the yaml document at path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return DefaultConfig(), err
	}
	defer f.Close()
	return LoadConfig(f)
}

// Validate rejects settings the viewer cannot run with.
func (c Config) Validate() error {
	if _, err := model.ParseSceneMode(c.Mode); err != nil {
		return fmt.Errorf("viewer config: %w", err)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("viewer config: frameInterval must be positive, got %v", c.FrameInterval)
	}
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		return fmt.Errorf("viewer config: canvas %vx%v must be positive", c.CanvasWidth, c.CanvasHeight)
	}
	if c.ClockRange != "" {
		if _, err := timectrl.ParseClockRange(c.ClockRange); err != nil {
			return fmt.Errorf("viewer config: %w", err)
		}
	}
	if c.IntervalCacheSize < 0 {
		return fmt.Errorf("viewer config: intervalCacheSize must not be negative, got %d", c.IntervalCacheSize)
	}
	return c.Navigation.Validate()
}
