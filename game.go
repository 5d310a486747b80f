package main

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"peek/internal/config"
	"peek/internal/logger"
	"peek/internal/navigator"
	"peek/internal/view"
)

// ConfigLoadResult records how the configuration was obtained, for the help
// screen
type ConfigLoadResult struct {
	Status   string // "OK", "Default", "Error"
	Warnings []string
}

// Game is the ebiten front end. Navigation runs on the command loop; Game
// only queues commands and draws the published snapshot.
type Game struct {
	cfg          *config.Config
	configStatus ConfigLoadResult
	loop         *commandLoop
	renderer     *Renderer
	input        *InputHandler
	keys         *KeybindingManager
	mouse        *MousebindingManager

	fullscreen bool
	savedWinW  int
	savedWinH  int
	viewportW  int
	viewportH  int

	showHelp        bool
	showInfo        bool
	pageInputMode   bool
	pageInputBuffer string
	exitRequested   bool

	// written by the command loop too
	msgMu              sync.Mutex
	overlayMessage     string
	overlayMessageTime time.Time
}

// NewGame wires input, rendering and the command loop around ctrl.
func NewGame(cfg *config.Config, status ConfigLoadResult, ctrl *navigator.Controller) (*Game, error) {
	g := &Game{
		cfg:          cfg,
		configStatus: status,
		fullscreen:   cfg.Window.Fullscreen,
	}
	g.loop = newCommandLoop(ctrl, g.ShowOverlayMessage)

	renderer, err := NewRenderer(g)
	if err != nil {
		return nil, err
	}
	g.renderer = renderer

	g.keys = NewKeybindingManager(cfg.Keybindings)
	g.mouse = NewMousebindingManager(cfg.Mousebindings, mouseSettingsFromConfig(cfg.Mouse))
	g.input = NewInputHandler(g, g, g.keys, g.mouse)
	return g, nil
}

// Start begins processing commands and opens path.
func (g *Game) Start(path string) {
	g.loop.start()
	g.submit("open", func(c *navigator.Controller) string {
		if err := c.Open(path); err != nil {
			return fmt.Sprintf("Cannot open %s", path)
		}
		return ""
	})
}

// Close stops the command loop and frees textures.
func (g *Game) Close() {
	g.loop.stop()
	g.renderer.Release()
}

func (g *Game) submit(name string, run func(*navigator.Controller) string) {
	g.loop.submit(name, run)
}

// submitView queues a command that reports nothing
func (g *Game) submitView(name string, run func(*navigator.Controller)) {
	g.loop.submit(name, func(c *navigator.Controller) string {
		run(c)
		return ""
	})
}

// Update implements ebiten.Game
func (g *Game) Update() error {
	if g.exitRequested {
		return ebiten.Termination
	}
	g.input.HandleInput()
	return nil
}

// Draw implements ebiten.Game
func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Draw(screen)
}

// Layout implements ebiten.Game and forwards size changes to the navigator
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.viewportW || outsideHeight != g.viewportH {
		g.viewportW, g.viewportH = outsideWidth, outsideHeight
		w, h := outsideWidth, outsideHeight
		g.submitView("viewport", func(c *navigator.Controller) { c.SetViewport(w, h) })
	}
	return outsideWidth, outsideHeight
}

// RenderState

func (g *Game) Snapshot() navigator.Snapshot { return g.loop.Snapshot() }
func (g *Game) IsFullscreen() bool { return g.fullscreen }
func (g *Game) IsShowingHelp() bool { return g.showHelp }
func (g *Game) IsShowingInfo() bool { return g.showInfo }
func (g *Game) IsInPageInputMode() bool { return g.pageInputMode }
func (g *Game) GetPageInputBuffer() string { return g.pageInputBuffer }
func (g *Game) GetFontSize() float64 { return float64(g.cfg.Window.FontSize) }
func (g *Game) GetConfigStatus() ConfigLoadResult {
	return g.configStatus
}
func (g *Game) GetKeybindings() map[string][]string { return g.keys.GetKeybindings() }
func (g *Game) GetMousebindings() map[string][]string { return g.mouse.GetMousebindings() }

func (g *Game) GetOverlayMessage() string {
	g.msgMu.Lock()
	defer g.msgMu.Unlock()
	return g.overlayMessage
}

func (g *Game) GetOverlayMessageTime() time.Time {
	g.msgMu.Lock()
	defer g.msgMu.Unlock()
	return g.overlayMessageTime
}

// InputState

func (g *Game) IsViewing() bool {
	return g.loop.Snapshot().Phase == navigator.Viewing
}

// InputActions

func (g *Game) Exit() {
	g.exitRequested = true
}

func (g *Game) ToggleHelp() { g.showHelp = !g.showHelp }
func (g *Game) ToggleInfo() { g.showInfo = !g.showInfo }

func (g *Game) ToggleFullscreen() {
	g.fullscreen = !g.fullscreen
	if g.fullscreen {
		g.savedWinW, g.savedWinH = ebiten.WindowSize()
		ebiten.SetFullscreen(true)
		return
	}
	ebiten.SetFullscreen(false)
	if g.savedWinW > 0 && g.savedWinH > 0 {
		ebiten.SetWindowSize(g.savedWinW, g.savedWinH)
	}
}

func (g *Game) EnterPageInputMode() {
	if !g.loop.Snapshot().HasGallery() {
		return
	}
	g.pageInputMode = true
	g.pageInputBuffer = ""
}

func (g *Game) ExitPageInputMode() {
	g.pageInputMode = false
	g.pageInputBuffer = ""
}

func (g *Game) UpdatePageInputBuffer(buffer string) {
	// digits only, and no more than the page count could need
	if len(buffer) > 9 {
		return
	}
	g.pageInputBuffer = buffer
}

func (g *Game) ProcessPageInput() {
	if g.pageInputBuffer == "" {
		return
	}
	page, err := strconv.Atoi(g.pageInputBuffer)
	total := g.loop.Snapshot().Total
	if err != nil || page < 1 || page > total {
		g.ShowOverlayMessage(fmt.Sprintf("Invalid image number: %s (1-%d)", g.pageInputBuffer, total))
		return
	}
	g.JumpToPage(page)
}

func (g *Game) CycleSortMethod() {
	g.submit("cycle_sort", func(c *navigator.Controller) string {
		if err := c.CycleSort(); err != nil {
			logger.Warn("Cannot re-sort: %v", err)
			return "Cannot re-sort gallery"
		}
		return "Sort: " + c.CurrentView().Sort.String()
	})
}

func (g *Game) ToggleWrap() {
	g.submit("toggle_wrap", func(c *navigator.Controller) string {
		wrap := !c.Options().Wrap
		c.SetWrap(wrap)
		if wrap {
			return "Wraparound: on"
		}
		return "Wraparound: off"
	})
}

// CopyCurrent copies the current image into the directory of a copy slot.
func (g *Game) CopyCurrent(slot int) {
	dir := g.cfg.Gallery.CopyDirs[strconv.Itoa(slot)]
	if dir == "" {
		g.ShowOverlayMessage(fmt.Sprintf("Copy slot %d is not configured (gallery.copy_dirs)", slot))
		return
	}
	g.submit(fmt.Sprintf("copy_%d", slot), func(c *navigator.Controller) string {
		dst, err := c.CopyCurrentTo(dir)
		if err != nil {
			logger.Warn("Copy failed: %v", err)
			return "Copy failed"
		}
		logger.Info("Copied to %s", dst)
		return "Copied to " + dst
	})
}

func (g *Game) NavigateNext() { g.submitView("next", (*navigator.Controller).Next) }
func (g *Game) NavigatePrevious() { g.submitView("previous", (*navigator.Controller).Previous) }
func (g *Game) JumpToFirst() { g.submitView("jump_first", (*navigator.Controller).JumpToFirst) }
func (g *Game) JumpToLast() { g.submitView("jump_last", (*navigator.Controller).JumpToLast) }

// JumpToPage shows the 1-based page
func (g *Game) JumpToPage(page int) {
	g.submitView("jump", func(c *navigator.Controller) { c.JumpTo(page - 1) })
}

func (g *Game) RotateLeft() {
	g.submitView("rotate_left", func(c *navigator.Controller) { c.Rotate(-1) })
}

func (g *Game) RotateRight() {
	g.submitView("rotate_right", func(c *navigator.Controller) { c.Rotate(1) })
}

func (g *Game) ZoomIn() { g.submitView("zoom_in", (*navigator.Controller).ZoomIn) }
func (g *Game) ZoomOut() { g.submitView("zoom_out", (*navigator.Controller).ZoomOut) }
func (g *Game) ZoomActual() { g.submitView("zoom_actual", (*navigator.Controller).ZoomActual) }
func (g *Game) ZoomFit() { g.submitView("zoom_fit", (*navigator.Controller).ZoomFit) }

func (g *Game) ZoomAt(in bool, x, y float64) {
	factor := g.cfg.View.ZoomStep
	if !in {
		factor = 1 / factor
	}
	g.submitView("zoom_at", func(c *navigator.Controller) {
		c.Zoom(factor, view.Point{X: x, Y: y})
	})
}

// pan moves the image by (dx, dy) screen pixels
func (g *Game) pan(dx, dy float64) {
	g.submitView("pan", func(c *navigator.Controller) {
		c.Pan(view.Point{X: dx, Y: dy})
	})
}

// Arrow keys move the view over the image, so the image goes the other way
func (g *Game) PanUp() { g.pan(0, g.cfg.View.PanStep) }
func (g *Game) PanDown() { g.pan(0, -g.cfg.View.PanStep) }
func (g *Game) PanLeft() { g.pan(g.cfg.View.PanStep, 0) }
func (g *Game) PanRight() { g.pan(-g.cfg.View.PanStep, 0) }

func (g *Game) PanByDelta(deltaX, deltaY float64) {
	g.pan(deltaX, deltaY)
}

func (g *Game) ShowOverlayMessage(message string) {
	g.msgMu.Lock()
	defer g.msgMu.Unlock()
	g.overlayMessage = message
	g.overlayMessageTime = time.Now()
}
