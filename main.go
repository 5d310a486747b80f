package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"peek/internal/cache"
	"peek/internal/config"
	"peek/internal/decoder"
	"peek/internal/gallery"
	"peek/internal/logger"
	"peek/internal/navigator"
	"peek/internal/view"
)

var version = "dev"

// cliOptions are the command-line overrides
type cliOptions struct {
	configPath string
	debug      bool
	wrap       bool
	sort       string
}

// viewer is the assembled core: everything the front end talks to
type viewer struct {
	indexer *gallery.Indexer
	cache   *cache.Cache
	ctrl    *navigator.Controller
}

func (v *viewer) Close() {
	v.cache.Close()
}

// loadConfig reads the configuration, falling back to defaults with a
// warning when the file is unusable.
func loadConfig(path string) (*config.Config, ConfigLoadResult) {
	status := ConfigLoadResult{Status: "OK"}
	if path == "" {
		if _, err := os.Stat(config.GetDefaultConfigPath()); err != nil {
			status.Status = "Default"
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Warn("Invalid configuration, using defaults: %v", err)
		return config.GetDefaultConfig(), ConfigLoadResult{
			Status:   "Error",
			Warnings: []string{err.Error()},
		}
	}
	return cfg, status
}

// applyFlags lets flags that were set on the command line win over the file
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts cliOptions) error {
	if opts.debug {
		cfg.Logging.Level = "DEBUG"
	}
	if cmd.Flags().Changed("wrap") {
		cfg.Navigation.Wrap = opts.wrap
	}
	if cmd.Flags().Changed("sort") {
		if _, err := gallery.ParseSortMethod(opts.sort); err != nil {
			return err
		}
		cfg.Gallery.Sort = opts.sort
	}
	return nil
}

// buildViewer wires indexer, decoder, cache and controller over fs.
func buildViewer(fs afero.Fs, cfg *config.Config) (*viewer, error) {
	sortMethod, err := gallery.ParseSortMethod(cfg.Gallery.Sort)
	if err != nil {
		return nil, err
	}
	ix, err := gallery.NewIndexer(fs, cfg.Gallery.Patterns,
		gallery.WithSortMethod(sortMethod),
		gallery.WithArchives(cfg.Gallery.ArchivesEnabled()))
	if err != nil {
		return nil, fmt.Errorf("gallery patterns: %w", err)
	}

	dec := decoder.New(fs,
		decoder.WithReader(ix.ReadFile),
		decoder.WithMaxPixels(cfg.Decoder.MaxPixels))

	c, err := cache.New(dec, cache.Options{
		BudgetBytes: int64(cfg.Cache.BudgetMB) << 20,
		Workers:     cfg.Cache.Workers,
		MaxEntries:  cfg.Cache.MaxEntries,
	})
	if err != nil {
		return nil, err
	}

	rounding, err := view.ParseRounding(cfg.View.Rounding)
	if err != nil {
		c.Close()
		return nil, err
	}
	tr := view.New(view.Options{
		MinZoom:      cfg.View.MinZoom,
		MaxZoom:      cfg.View.MaxZoom,
		AlwaysFill:   cfg.View.AlwaysFill,
		KeepRotation: cfg.View.KeepRotation,
		Rounding:     rounding,
	})

	ctrl := navigator.New(ix, c, tr, navigator.Options{
		PrefetchRadius: cfg.Navigation.PrefetchRadius,
		Wrap:           cfg.Navigation.Wrap,
		ZoomStep:       cfg.View.ZoomStep,
	})
	ctrl.SetViewport(cfg.Window.Width, cfg.Window.Height)

	return &viewer{indexer: ix, cache: c, ctrl: ctrl}, nil
}

func run(cmd *cobra.Command, path string, opts cliOptions) error {
	cfg, status := loadConfig(opts.configPath)
	if err := applyFlags(cmd, cfg, opts); err != nil {
		return err
	}

	closer, err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := InitGraphics(); err != nil {
		return fmt.Errorf("loading font: %w", err)
	}

	v, err := buildViewer(afero.NewOsFs(), cfg)
	if err != nil {
		return err
	}
	defer v.Close()

	g, err := NewGame(cfg, status, v.ctrl)
	if err != nil {
		return err
	}
	defer g.Close()

	ebiten.SetWindowTitle("peek - " + filepath.Base(path))
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowSizeLimits(config.MinWidth, config.MinHeight, -1, -1)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(cfg.Window.Fullscreen)

	logger.WithFields(logger.Fields{"path": path, "sort": cfg.Gallery.Sort, "budget_mb": cfg.Cache.BudgetMB}).Info("Starting viewer")
	g.Start(path)

	return ebiten.RunGame(g)
}

func newRootCmd() *cobra.Command {
	var opts cliOptions

	cmd := &cobra.Command{
		Use:   "peek [path]",
		Short: "A minimal image viewer",
		Long: `peek shows the images of a directory or archive one at a time.

The path may be an image file, a directory, or a zip/rar/7z archive.
Without a path the current directory is opened.`,
		Version:      version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd, path, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/peek/config.yaml)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&opts.wrap, "wrap", false, "wrap around at the ends of the gallery")
	cmd.Flags().StringVar(&opts.sort, "sort", "natural", "sort order: natural, simple, mtime, entry or random")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
