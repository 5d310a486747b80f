package config

import (
	"runtime"
	"strings"

	"peek/internal/decoder"
)

// Window size limits
const (
	DefaultWidth  = 800
	DefaultHeight = 600
	MinWidth      = 400
	MinHeight     = 300
)

// DefaultPatterns are the file names a gallery picks up out of the box:
// every extension a built-in decoder claims.
var DefaultPatterns = decoder.Extensions(decoder.DefaultFormats())

// DefaultMaxPixels is the decode guard: 200 megapixels
const DefaultMaxPixels = 200_000_000

// DefaultPrefetchRadius is how many neighbours on each side get prefetched
const DefaultPrefetchRadius = 2

// GetDefaultConfig returns a fully populated default configuration.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Navigation: NavigationConfig{PrefetchRadius: DefaultPrefetchRadius},
		Decoder:    DecoderConfig{MaxPixels: DefaultMaxPixels},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults and normalizes
// case-insensitive values. Explicit values are preserved. Fields where zero
// is meaningful (prefetch_radius, max_pixels) are seeded by the loader
// instead.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyWindowDefaults(&cfg.Window)
	applyGalleryDefaults(&cfg.Gallery)
	applyCacheDefaults(&cfg.Cache)
	applyViewDefaults(&cfg.View)
	applyMouseDefaults(&cfg.Mouse)

	cfg.Keybindings = mergeBindings(cfg.Keybindings, DefaultKeybindings())
	cfg.Mousebindings = mergeBindings(cfg.Mousebindings, DefaultMousebindings())
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Level == "WARNING" {
		cfg.Level = "WARN"
	}

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	cfg.Format = strings.ToLower(cfg.Format)

	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyWindowDefaults(cfg *WindowConfig) {
	if cfg.Width == 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height == 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.FontSize == 0 {
		cfg.FontSize = 16
	}
}

func applyGalleryDefaults(cfg *GalleryConfig) {
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = append([]string(nil), DefaultPatterns...)
	}
	if cfg.Sort == "" {
		cfg.Sort = "natural"
	}
	cfg.Sort = strings.ToLower(cfg.Sort)
	if cfg.Archives == nil {
		on := true
		cfg.Archives = &on
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.BudgetMB == 0 {
		cfg.BudgetMB = 512
	}
	if cfg.Workers == 0 {
		cfg.Workers = min(4, runtime.NumCPU())
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 256
	}
}

func applyViewDefaults(cfg *ViewConfig) {
	if cfg.MinZoom == 0 {
		cfg.MinZoom = 0.05
	}
	if cfg.MaxZoom == 0 {
		cfg.MaxZoom = 16
	}
	if cfg.ZoomStep == 0 {
		cfg.ZoomStep = 1.25
	}
	if cfg.PanStep == 0 {
		cfg.PanStep = 64
	}
	if cfg.Rounding == "" {
		cfg.Rounding = "nearest"
	}
	cfg.Rounding = strings.ToLower(cfg.Rounding)
}

func applyMouseDefaults(cfg *MouseConfig) {
	if cfg.Enabled == nil {
		on := true
		cfg.Enabled = &on
	}
	if cfg.WheelSensitivity == 0 {
		cfg.WheelSensitivity = 1.0
	}
	if cfg.DoubleClickMs == 0 {
		cfg.DoubleClickMs = 300
	}
	if cfg.DragPan == nil {
		on := true
		cfg.DragPan = &on
	}
}

// mergeBindings keeps user bindings and fills actions they leave out.
func mergeBindings(user, defaults map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(defaults))
	for action, keys := range defaults {
		merged[action] = keys
	}
	for action, keys := range user {
		merged[strings.ToLower(action)] = keys
	}
	return merged
}
