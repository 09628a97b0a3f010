// Package config loads the optional TOML settings file and turns it into builder options
// for the window, renderer and engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Carmen-Shannon/shimmer/common"
	"github.com/Carmen-Shannon/shimmer/engine"
	"github.com/Carmen-Shannon/shimmer/engine/renderer"
	"github.com/Carmen-Shannon/shimmer/engine/window"
)

// DefaultTitle is the window title used when none is configured.
const DefaultTitle = "shimmer"

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("invalid config")

// Config is the full settings file.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Engine   EngineConfig   `toml:"engine"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// WindowConfig configures the window.
type WindowConfig struct {
	Title      string `toml:"title"`
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	MinWidth   int    `toml:"min_width"`
	MinHeight  int    `toml:"min_height"`
	Fullscreen bool   `toml:"fullscreen"`
}

// RendererConfig configures the GPU renderer.
type RendererConfig struct {
	// PresentMode is "vsync" or "uncapped".
	PresentMode     string `toml:"present_mode"`
	SoftwareAdapter bool   `toml:"software_adapter"`
	// ShaderPath replaces the built-in WGSL program. A relative path is resolved against the
	// directory of the config file.
	ShaderPath string `toml:"shader_path"`
}

// EngineConfig configures the frame loop.
type EngineConfig struct {
	// FrameLimit caps frames per second; 0 leaves pacing to the present mode.
	FrameLimit float64 `toml:"frame_limit"`
	Profile    bool    `toml:"profile"`
}

// SnapshotConfig configures the CPU rasterizer used for PNG snapshots.
type SnapshotConfig struct {
	Width     int `toml:"width"`
	Height    int `toml:"height"`
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// Default returns the settings used when no file is given.
//
// Returns:
//   - Config: a valid configuration
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:     DefaultTitle,
			Width:     1280,
			Height:    720,
			MinWidth:  200,
			MinHeight: 150,
		},
		Renderer: RendererConfig{
			PresentMode: renderer.PresentModeVSync.String(),
		},
		Snapshot: SnapshotConfig{
			Width:     1280,
			Height:    720,
			Workers:   4,
			QueueSize: 64,
		},
	}
}

// Load reads a TOML file over the defaults. Keys the file omits keep their default values and
// unknown keys are an error. An empty path returns Default().
//
// Parameters:
//   - path: the file to read, or ""
//
// Returns:
//   - Config: the validated configuration
//   - error: a read, decode or validation error
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, 0, len(strict.Errors))
			for _, e := range strict.Errors {
				keys = append(keys, strings.Join(e.Key(), "."))
			}
			return Config{}, fmt.Errorf("decode %s: unknown keys [%s]\n%s", path, strings.Join(keys, ", "), strict.String())
		}
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.Window.Title = common.Coalesce(cfg.Window.Title, DefaultTitle)
	if cfg.Renderer.ShaderPath != "" && !filepath.IsAbs(cfg.Renderer.ShaderPath) {
		cfg.Renderer.ShaderPath = filepath.Join(filepath.Dir(path), cfg.Renderer.ShaderPath)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
//
// Returns:
//   - error: an ErrInvalid wrapped error naming the first bad key, nil if valid
func (c Config) Validate() error {
	if !c.Window.Fullscreen && (c.Window.Width <= 0 || c.Window.Height <= 0) {
		return fmt.Errorf("%w: window size %dx%d must be positive", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if c.Window.MinWidth < 0 || c.Window.MinHeight < 0 {
		return fmt.Errorf("%w: window minimum size must not be negative", ErrInvalid)
	}
	if _, err := ParsePresentMode(c.Renderer.PresentMode); err != nil {
		return err
	}
	if c.Engine.FrameLimit < 0 {
		return fmt.Errorf("%w: engine.frame_limit %v must not be negative", ErrInvalid, c.Engine.FrameLimit)
	}
	if c.Snapshot.Width <= 0 || c.Snapshot.Height <= 0 {
		return fmt.Errorf("%w: snapshot size %dx%d must be positive", ErrInvalid, c.Snapshot.Width, c.Snapshot.Height)
	}
	if c.Snapshot.Workers < 1 {
		return fmt.Errorf("%w: snapshot.workers must be at least 1", ErrInvalid)
	}
	if c.Snapshot.QueueSize < 1 {
		return fmt.Errorf("%w: snapshot.queue_size must be at least 1", ErrInvalid)
	}
	return nil
}

// ParsePresentMode converts the config spelling of a present mode. Matching is case-insensitive
// and the empty string means vsync.
//
// Parameters:
//   - s: "vsync", "uncapped" or ""
//
// Returns:
//   - renderer.PresentMode: the mode
//   - error: an ErrInvalid wrapped error for any other value
func ParsePresentMode(s string) (renderer.PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", renderer.PresentModeVSync.String():
		return renderer.PresentModeVSync, nil
	case renderer.PresentModeUncapped.String():
		return renderer.PresentModeUncapped, nil
	default:
		return renderer.PresentModeVSync, fmt.Errorf("%w: renderer.present_mode %q is not vsync or uncapped", ErrInvalid, s)
	}
}

// WindowOptions converts the window section into window builder options.
func (c Config) WindowOptions() []window.WindowBuilderOption {
	return []window.WindowBuilderOption{
		window.WithTitle(c.Window.Title),
		window.WithWidth(c.Window.Width),
		window.WithHeight(c.Window.Height),
		window.WithMinSize(c.Window.MinWidth, c.Window.MinHeight),
		window.WithFullscreen(c.Window.Fullscreen),
	}
}

// RendererOptions converts the renderer section into renderer builder options.
// The config must have passed Validate.
func (c Config) RendererOptions() []renderer.RendererBuilderOption {
	mode, _ := ParsePresentMode(c.Renderer.PresentMode)
	opts := []renderer.RendererBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithForceSoftwareRenderer(c.Renderer.SoftwareAdapter),
	}
	if c.Renderer.ShaderPath != "" {
		opts = append(opts, renderer.WithShaderPath(c.Renderer.ShaderPath))
	}
	return opts
}

// EngineOptions converts the engine section into engine builder options.
func (c Config) EngineOptions() []engine.EngineBuilderOption {
	return []engine.EngineBuilderOption{
		engine.WithRenderFrameLimit(c.Engine.FrameLimit),
		engine.WithProfiling(c.Engine.Profile),
	}
}
