package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peek/internal/cache"
	"peek/internal/config"
	"peek/internal/decoder"
	"peek/internal/gallery"
	"peek/internal/navigator"
	"peek/internal/view"
)

// recorder implements InputActions and InputState by logging calls
type recorder struct {
	calls     []string
	pageInput bool
	viewing   bool
	zoomIn    bool
	anchor    [2]float64
	panDelta  [2]float64
}

func (r *recorder) record(name string) { r.calls = append(r.calls, name) }

func (r *recorder) Exit() { r.record("Exit") }
func (r *recorder) ToggleHelp() { r.record("ToggleHelp") }
func (r *recorder) ToggleInfo() { r.record("ToggleInfo") }
func (r *recorder) ToggleFullscreen() { r.record("ToggleFullscreen") }
func (r *recorder) EnterPageInputMode() { r.record("EnterPageInputMode") }
func (r *recorder) ExitPageInputMode() { r.record("ExitPageInputMode") }
func (r *recorder) ProcessPageInput() { r.record("ProcessPageInput") }
func (r *recorder) UpdatePageInputBuffer(string) { r.record("UpdatePageInputBuffer") }
func (r *recorder) CycleSortMethod() { r.record("CycleSortMethod") }
func (r *recorder) ToggleWrap() { r.record("ToggleWrap") }
func (r *recorder) CopyCurrent(slot int) { r.record(fmt.Sprintf("CopyCurrent(%d)", slot)) }
func (r *recorder) NavigateNext() { r.record("NavigateNext") }
func (r *recorder) NavigatePrevious() { r.record("NavigatePrevious") }
func (r *recorder) JumpToFirst() { r.record("JumpToFirst") }
func (r *recorder) JumpToLast() { r.record("JumpToLast") }
func (r *recorder) JumpToPage(int) { r.record("JumpToPage") }
func (r *recorder) RotateLeft() { r.record("RotateLeft") }
func (r *recorder) RotateRight() { r.record("RotateRight") }
func (r *recorder) ZoomIn() { r.record("ZoomIn") }
func (r *recorder) ZoomOut() { r.record("ZoomOut") }
func (r *recorder) ZoomActual() { r.record("ZoomActual") }
func (r *recorder) ZoomFit() { r.record("ZoomFit") }
func (r *recorder) PanUp() { r.record("PanUp") }
func (r *recorder) PanDown() { r.record("PanDown") }
func (r *recorder) PanLeft() { r.record("PanLeft") }
func (r *recorder) PanRight() { r.record("PanRight") }
func (r *recorder) ShowOverlayMessage(string) { r.record("ShowOverlayMessage") }
func (r *recorder) IsInPageInputMode() bool { return r.pageInput }
func (r *recorder) GetPageInputBuffer() string { return "" }
func (r *recorder) IsViewing() bool { return r.viewing }

func (r *recorder) ZoomAt(in bool, x, y float64) {
	r.record("ZoomAt")
	r.zoomIn = in
	r.anchor = [2]float64{x, y}
}

func (r *recorder) PanByDelta(dx, dy float64) {
	r.record("PanByDelta")
	r.panDelta = [2]float64{dx, dy}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func galleryFs(t *testing.T, names ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, name := range names {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("/g", name), pngBytes(t, 40, 30), 0644))
	}
	return fs
}

func newTestController(t *testing.T, fs afero.Fs) *navigator.Controller {
	t.Helper()
	ix, err := gallery.NewIndexer(fs, []string{"*.png"})
	require.NoError(t, err)
	c, err := cache.New(decoder.New(fs, decoder.WithReader(ix.ReadFile)), cache.Options{BudgetBytes: 16 << 20, Workers: 1})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	ctrl := navigator.New(ix, c, view.New(view.DefaultOptions()), navigator.DefaultOptions())
	ctrl.SetViewport(800, 600)
	return ctrl
}

func TestExecuteAction(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{"exit", "Exit"},
		{"help", "ToggleHelp"},
		{"info", "ToggleInfo"},
		{"next", "NavigateNext"},
		{"previous", "NavigatePrevious"},
		{"jump_first", "JumpToFirst"},
		{"jump_last", "JumpToLast"},
		{"page_input", "EnterPageInputMode"},
		{"fullscreen", "ToggleFullscreen"},
		{"rotate_left", "RotateLeft"},
		{"rotate_right", "RotateRight"},
		{"cycle_sort", "CycleSortMethod"},
		{"toggle_wrap", "ToggleWrap"},
		{"copy_1", "CopyCurrent(1)"},
		{"copy_9", "CopyCurrent(9)"},
		{"zoom_in", "ZoomIn"},
		{"zoom_out", "ZoomOut"},
		{"zoom_actual", "ZoomActual"},
		{"zoom_fit", "ZoomFit"},
		{"pan_up", "PanUp"},
		{"pan_down", "PanDown"},
		{"pan_left", "PanLeft"},
		{"pan_right", "PanRight"},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			r := &recorder{}
			assert.True(t, executeAction(tt.action, r, r))
			assert.Equal(t, []string{tt.want}, r.calls)
		})
	}
}

func TestExecuteActionCoversEveryAction(t *testing.T) {
	for _, action := range config.Actions {
		r := &recorder{}
		assert.True(t, executeAction(action.Name, r, r), "action %s has no handler", action.Name)
	}
}

func TestExecuteActionUnknown(t *testing.T) {
	r := &recorder{}
	assert.False(t, executeAction("launch_rockets", r, r))
	assert.False(t, executeAction("copy_0", r, r))
	assert.False(t, executeAction("copy_10", r, r))
	assert.Empty(t, r.calls)
}

func TestPageInputNotReentered(t *testing.T) {
	r := &recorder{pageInput: true}
	assert.True(t, executeAction("page_input", r, r))
	assert.Empty(t, r.calls)
}

func TestKeyMappingCoversKeyNames(t *testing.T) {
	mapping := getKeyMapping()
	for name := range config.KeyNames {
		_, ok := mapping[name]
		assert.True(t, ok, "key %s is accepted by config but not mapped", name)
	}
	assert.Equal(t, ebiten.KeyZ, mapping["KeyZ"])
	assert.Equal(t, ebiten.Key7, mapping["Key7"])
	assert.Equal(t, ebiten.KeyNumpad3, mapping["Numpad3"])
}

func TestParseKeyString(t *testing.T) {
	km := NewKeybindingManager(nil)

	c, ok := km.parseKeyString("Shift+Ctrl+KeyB")
	require.True(t, ok)
	assert.Equal(t, KeyCombination{Key: ebiten.KeyB, Shift: true, Ctrl: true}, c)

	c, ok = km.parseKeyString("Space")
	require.True(t, ok)
	assert.Equal(t, KeyCombination{Key: ebiten.KeySpace}, c)

	_, ok = km.parseKeyString("Hyper+KeyB")
	assert.False(t, ok)
	_, ok = km.parseKeyString("KeyBB")
	assert.False(t, ok)
}

func TestUpdateKeybindingsSkipsInvalid(t *testing.T) {
	km := NewKeybindingManager(map[string][]string{
		"next": {"Space", "Bogus"},
	})
	assert.Len(t, km.combinations["next"], 1)
	assert.Equal(t, []string{"Space", "Bogus"}, km.GetKeybindings()["next"])
}

func TestParseMouseString(t *testing.T) {
	mm := NewMousebindingManager(nil, MouseSettings{EnableMouse: true})

	for name := range config.MouseNames {
		_, ok := mm.parseMouseString(name)
		assert.True(t, ok, "mouse action %s is accepted by config but not parsed", name)
	}

	c, ok := mm.parseMouseString("Ctrl+WheelUp")
	require.True(t, ok)
	assert.True(t, c.IsWheel)
	assert.True(t, c.Ctrl)
	assert.Equal(t, 1.0, c.WheelDeltaY)

	c, ok = mm.parseMouseString("DoubleLeftClick")
	require.True(t, ok)
	assert.True(t, c.IsDoubleClick)
	assert.Equal(t, ebiten.MouseButtonLeft, c.Button)

	_, ok = mm.parseMouseString("WheelSideways")
	assert.False(t, ok)
	_, ok = mm.parseMouseString("DoubleNothing")
	assert.False(t, ok)
}

func TestRegisterClick(t *testing.T) {
	mm := NewMousebindingManager(nil, MouseSettings{DoubleClickTime: 300 * time.Millisecond})
	start := time.Now().Add(time.Hour)

	assert.False(t, mm.registerClick(ebiten.MouseButtonLeft, start))
	assert.True(t, mm.registerClick(ebiten.MouseButtonLeft, start.Add(100*time.Millisecond)))

	// the pair is consumed, the next click starts over
	assert.False(t, mm.registerClick(ebiten.MouseButtonLeft, start.Add(200*time.Millisecond)))

	// too slow
	assert.False(t, mm.registerClick(ebiten.MouseButtonLeft, start.Add(time.Second)))

	// different button
	assert.False(t, mm.registerClick(ebiten.MouseButtonRight, start.Add(1100*time.Millisecond)))
}

func TestMouseSettingsFromConfig(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Mouse.DoubleClickMs = 250
	cfg.Mouse.WheelInverted = true

	s := mouseSettingsFromConfig(cfg.Mouse)
	assert.Equal(t, 250*time.Millisecond, s.DoubleClickTime)
	assert.True(t, s.EnableMouse)
	assert.True(t, s.EnableDragPan)
	assert.True(t, s.WheelInverted)
}

func TestImageGeoM(t *testing.T) {
	// every case maps a point of a 40x30 bitmap
	tests := []struct {
		name         string
		rect         view.Rect
		x, y         float64
		wantX, wantY float64
	}{
		{"identity", view.Rect{X: 380, Y: 285, W: 40, H: 30, Scale: 1}, 0, 0, 380, 285},
		{"scaled bottom right", view.Rect{X: 100, Y: 50, W: 80, H: 60, Scale: 2}, 40, 30, 180, 110},
		{"quarter turn moves top left to top right", view.Rect{X: 100, Y: 100, W: 60, H: 80, Scale: 2, Rotation: 90}, 0, 0, 160, 100},
		{"half turn moves top left to bottom right", view.Rect{W: 40, H: 30, Scale: 1, Rotation: 180}, 0, 0, 40, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := imageGeoM(40, 30, tt.rect)
			x, y := m.Apply(tt.x, tt.y)
			assert.InDelta(t, tt.wantX, x, 1e-9)
			assert.InDelta(t, tt.wantY, y, 1e-9)
		})
	}
}

func TestBuildInfoString(t *testing.T) {
	assert.Equal(t, "0 / 0", buildInfoString(navigator.Snapshot{}))

	s := navigator.Snapshot{
		Phase:  navigator.Viewing,
		Index:  2,
		Total:  5,
		Entry:  gallery.Entry{Name: "p3.png"},
		Bitmap: &decoder.Bitmap{Width: 40, Height: 30},
		View:   view.State{Rotation: 90},
		Rect:   view.Rect{Scale: 1.5, Rotation: 90},
		Sort:   gallery.SortModTime,
		Wrap:   true,
		Cache:  cache.Stats{Entries: 3, Resident: 2 << 20, Budget: 512 << 20, Hits: 4, Misses: 1},
	}
	info := buildInfoString(s)
	assert.Contains(t, info, "3 / 5")
	assert.Contains(t, info, "p3.png")
	assert.Contains(t, info, "40x30")
	assert.Contains(t, info, "150%")
	assert.Contains(t, info, "90°")
	assert.Contains(t, info, "sort: mtime, wrap")
	assert.Contains(t, info, "cache: 3, 2/512 MiB, hit 4 miss 1")

	s.Phase = navigator.Loading
	info = buildInfoString(s)
	assert.NotContains(t, info, "40x30")
	assert.Contains(t, info, "p3.png")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "日本語...", truncate("日本語のファイル名", 6))
	assert.Equal(t, "abcdef", truncate("abcdef", 3))
}

func TestCommandLoop(t *testing.T) {
	ctrl := newTestController(t, galleryFs(t, "a.png", "b.png", "c.png"))

	var mu sync.Mutex
	var messages []string
	loop := newCommandLoop(ctrl, func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, msg)
	})
	assert.Equal(t, navigator.Idle, loop.Snapshot().Phase)

	loop.start()
	require.True(t, loop.submit("open", func(c *navigator.Controller) string {
		assert.NoError(t, c.Open("/g"))
		return ""
	}))
	require.True(t, loop.submit("next", func(c *navigator.Controller) string {
		c.Next()
		return "moved"
	}))

	assert.Eventually(t, func() bool {
		s := loop.Snapshot()
		return s.Phase == navigator.Viewing && s.Index == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(messages) == 1 && messages[0] == "moved"
	}, 5*time.Second, 10*time.Millisecond)

	loop.stop()
	assert.False(t, loop.submit("next", func(c *navigator.Controller) string { return "" }))
}

func TestCommandLoopDropsWhenFull(t *testing.T) {
	ctrl := newTestController(t, galleryFs(t, "a.png"))
	loop := newCommandLoop(ctrl, nil)

	// not started, so nothing drains the queue
	for i := 0; i < commandQueueSize; i++ {
		require.True(t, loop.submit("noop", func(*navigator.Controller) string { return "" }))
	}
	assert.False(t, loop.submit("noop", func(*navigator.Controller) string { return "" }))
	loop.stop()
}

func TestBuildViewer(t *testing.T) {
	fs := galleryFs(t, "img10.png", "img2.png", "img1.png", "notes.txt")
	cfg := config.GetDefaultConfig()
	cfg.Cache.BudgetMB = 32
	cfg.Navigation.Wrap = true

	v, err := buildViewer(fs, cfg)
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.ctrl.Open("/g"))
	s := v.ctrl.CurrentView()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, "img1.png", s.Entry.Name)
	assert.Equal(t, navigator.Viewing, s.Phase)
	assert.Equal(t, gallery.SortNatural, s.Sort)
	assert.Equal(t, int64(32<<20), s.Cache.Budget)

	v.ctrl.Previous()
	assert.Equal(t, "img10.png", v.ctrl.CurrentView().Entry.Name)
}

func TestBuildViewerRejectsBadSort(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Gallery.Sort = "chaos"
	_, err := buildViewer(afero.NewMemMapFs(), cfg)
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--wrap", "--sort", "mtime", "--debug"}))

	cfg := config.GetDefaultConfig()
	opts := cliOptions{debug: true, wrap: true, sort: "mtime"}
	require.NoError(t, applyFlags(cmd, cfg, opts))
	assert.True(t, cfg.Navigation.Wrap)
	assert.Equal(t, "mtime", cfg.Gallery.Sort)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)

	cmd = newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--sort", "shuffle"}))
	assert.Error(t, applyFlags(cmd, config.GetDefaultConfig(), cliOptions{sort: "shuffle"}))
}

func TestApplyFlagsLeavesConfigWhenUnset(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg := config.GetDefaultConfig()
	cfg.Navigation.Wrap = true
	cfg.Gallery.Sort = "simple"
	require.NoError(t, applyFlags(cmd, cfg, cliOptions{sort: "natural"}))
	assert.True(t, cfg.Navigation.Wrap)
	assert.Equal(t, "simple", cfg.Gallery.Sort)
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), path, []byte("cache:\n  budget_mb: 1\n"), 0644))

	cfg, status := loadConfig(path)
	assert.Equal(t, "Error", status.Status)
	require.Len(t, status.Warnings, 1)
	assert.Equal(t, config.GetDefaultConfig().Cache.BudgetMB, cfg.Cache.BudgetMB)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), path, []byte("cache:\n  budget_mb: 64\n"), 0644))

	cfg, status := loadConfig(path)
	assert.Equal(t, "OK", status.Status)
	assert.Equal(t, 64, cfg.Cache.BudgetMB)
}
