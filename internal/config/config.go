// Package config loads the viewer configuration.
//
// Sources, highest precedence first:
//  1. Environment variables (PEEK_*, e.g. PEEK_CACHE_BUDGET_MB=256)
//  2. Configuration file (YAML)
//  3. Default values
//
// A missing file is not an error. Unset or zero fields are filled by
// ApplyDefaults before Validate runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete viewer configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Window     WindowConfig     `mapstructure:"window"`
	Gallery    GalleryConfig    `mapstructure:"gallery"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Navigation NavigationConfig `mapstructure:"navigation"`
	View       ViewConfig       `mapstructure:"view"`
	Decoder    DecoderConfig    `mapstructure:"decoder"`
	Mouse      MouseConfig      `mapstructure:"mouse"`

	// Keybindings maps an action name to its key strings, e.g. "Shift+KeyS".
	// Actions left out keep their default keys.
	Keybindings map[string][]string `mapstructure:"keybindings"`

	// Mousebindings maps an action name to mouse strings, e.g. "Ctrl+WheelUp".
	Mousebindings map[string][]string `mapstructure:"mousebindings"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is DEBUG, INFO, WARN or ERROR, normalized to uppercase
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`

	// Format is text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output is stdout, stderr or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// WindowConfig is the initial window geometry.
type WindowConfig struct {
	Width      int  `mapstructure:"width" validate:"gte=400"`
	Height     int  `mapstructure:"height" validate:"gte=300"`
	Fullscreen bool `mapstructure:"fullscreen"`
	FontSize   int  `mapstructure:"font_size" validate:"gte=8,lte=72"`
}

// GalleryConfig controls which files form a gallery and in what order.
type GalleryConfig struct {
	// Patterns are case-insensitive globs matched against file names
	Patterns []string `mapstructure:"patterns" validate:"min=1,dive,required"`

	// Sort is natural, simple, mtime, entry or random
	Sort string `mapstructure:"sort" validate:"oneof=natural simple mtime entry random"`

	// Archives enables zip, rar and 7z galleries
	Archives *bool `mapstructure:"archives"`

	// CopyDirs maps a slot "1".."9" to the directory the matching
	// copy_N action puts the current image in.
	CopyDirs map[string]string `mapstructure:"copy_dirs"`
}

// ArchivesEnabled reports the effective archives setting.
func (g GalleryConfig) ArchivesEnabled() bool {
	return g.Archives == nil || *g.Archives
}

// CacheConfig sizes the prefetch cache.
type CacheConfig struct {
	BudgetMB   int `mapstructure:"budget_mb" validate:"gte=16"`
	Workers    int `mapstructure:"workers" validate:"gte=1,lte=16"`
	MaxEntries int `mapstructure:"max_entries" validate:"gte=1"`
}

// NavigationConfig controls stepping through a gallery.
type NavigationConfig struct {
	PrefetchRadius int  `mapstructure:"prefetch_radius" validate:"gte=0,lte=16"`
	Wrap           bool `mapstructure:"wrap"`
}

// ViewConfig controls zoom, pan and rotation behaviour.
type ViewConfig struct {
	MinZoom      float64 `mapstructure:"min_zoom" validate:"gt=0"`
	MaxZoom      float64 `mapstructure:"max_zoom" validate:"gt=0"`
	ZoomStep     float64 `mapstructure:"zoom_step" validate:"gt=1"`
	PanStep      float64 `mapstructure:"pan_step" validate:"gt=0"`
	AlwaysFill   bool    `mapstructure:"always_fill"`
	KeepRotation bool    `mapstructure:"keep_rotation"`

	// Rounding is nearest, floor or none
	Rounding string `mapstructure:"rounding" validate:"oneof=nearest floor none"`
}

// DecoderConfig guards the decoder.
type DecoderConfig struct {
	// MaxPixels rejects larger images; 0 means unlimited
	MaxPixels int64 `mapstructure:"max_pixels" validate:"gte=0"`
}

// MouseConfig carries pointer settings.
type MouseConfig struct {
	Enabled          *bool   `mapstructure:"enabled"`
	WheelSensitivity float64 `mapstructure:"wheel_sensitivity" validate:"gt=0"`
	WheelInverted    bool    `mapstructure:"wheel_inverted"`
	DoubleClickMs    int     `mapstructure:"double_click_ms" validate:"gte=50,lte=2000"`
	DragPan          *bool   `mapstructure:"drag_pan"`
}

// MouseEnabled reports the effective enabled setting.
func (m MouseConfig) MouseEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// DragPanEnabled reports the effective drag_pan setting.
func (m MouseConfig) DragPanEnabled() bool {
	return m.DragPan == nil || *m.DragPan
}

// Load reads configuration from configPath (or the default location when
// empty), the environment and defaults, then validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// PEEK_VIEW_ZOOM_STEP=1.5 overrides view.zoom_step
	v.SetEnvPrefix("PEEK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only reaches keys viper already knows about
	registerKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// registerKeys seeds every scalar key with its default value.
func registerKeys(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("window.width", d.Window.Width)
	v.SetDefault("window.height", d.Window.Height)
	v.SetDefault("window.fullscreen", d.Window.Fullscreen)
	v.SetDefault("window.font_size", d.Window.FontSize)

	v.SetDefault("gallery.sort", d.Gallery.Sort)
	v.SetDefault("gallery.archives", true)

	v.SetDefault("cache.budget_mb", d.Cache.BudgetMB)
	v.SetDefault("cache.workers", d.Cache.Workers)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)

	v.SetDefault("navigation.prefetch_radius", d.Navigation.PrefetchRadius)
	v.SetDefault("navigation.wrap", d.Navigation.Wrap)

	v.SetDefault("view.min_zoom", d.View.MinZoom)
	v.SetDefault("view.max_zoom", d.View.MaxZoom)
	v.SetDefault("view.zoom_step", d.View.ZoomStep)
	v.SetDefault("view.pan_step", d.View.PanStep)
	v.SetDefault("view.always_fill", d.View.AlwaysFill)
	v.SetDefault("view.keep_rotation", d.View.KeepRotation)
	v.SetDefault("view.rounding", d.View.Rounding)

	v.SetDefault("decoder.max_pixels", d.Decoder.MaxPixels)

	v.SetDefault("mouse.enabled", true)
	v.SetDefault("mouse.wheel_sensitivity", d.Mouse.WheelSensitivity)
	v.SetDefault("mouse.wheel_inverted", d.Mouse.WheelInverted)
	v.SetDefault("mouse.double_click_ms", d.Mouse.DoubleClickMs)
	v.SetDefault("mouse.drag_pan", true)
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir uses XDG_CONFIG_HOME if set, otherwise ~/.config, or the
// current directory when the home directory is unknown.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "peek")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "peek")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
