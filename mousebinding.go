package main

import (
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"peek/internal/config"
)

// dragThreshold is how far (in pixels) the pointer moves before a press
// becomes a drag instead of a click
const dragThreshold = 5

// MouseSettings contains mouse-specific configuration
type MouseSettings struct {
	WheelSensitivity float64
	DoubleClickTime  time.Duration
	EnableMouse      bool
	WheelInverted    bool
	EnableDragPan    bool
}

// mouseSettingsFromConfig converts the mouse config section
func mouseSettingsFromConfig(cfg config.MouseConfig) MouseSettings {
	return MouseSettings{
		WheelSensitivity: cfg.WheelSensitivity,
		DoubleClickTime:  time.Duration(cfg.DoubleClickMs) * time.Millisecond,
		EnableMouse:      cfg.MouseEnabled(),
		WheelInverted:    cfg.WheelInverted,
		EnableDragPan:    cfg.DragPanEnabled(),
	}
}

// DoubleClickTracker tracks double-click state
type DoubleClickTracker struct {
	lastClickTime   time.Time
	lastClickButton ebiten.MouseButton
	clickCount      int
}

// dragTracker follows a left-button press that may turn into a drag
type dragTracker struct {
	pressed  bool
	dragging bool
	startX   int
	startY   int
	lastX    int
	lastY    int
}

// MouseCombination represents a mouse action with optional modifiers
type MouseCombination struct {
	Button        ebiten.MouseButton
	IsWheel       bool
	WheelDeltaX   float64
	WheelDeltaY   float64
	IsDoubleClick bool
	Shift         bool
	Ctrl          bool
	Alt           bool
}

// MousebindingManager handles dynamic mouse binding processing
type MousebindingManager struct {
	mousebindings      map[string][]string
	mouseMapping       map[string]ebiten.MouseButton
	settings           MouseSettings
	doubleClickTracker DoubleClickTracker
	drag               dragTracker

	// per-frame results
	doubleClicked map[ebiten.MouseButton]bool
	clickCanceled bool
}

// NewMousebindingManager creates a new MousebindingManager
func NewMousebindingManager(mousebindings map[string][]string, settings MouseSettings) *MousebindingManager {
	return &MousebindingManager{
		mousebindings: mousebindings,
		mouseMapping:  getMouseMapping(),
		settings:      settings,
		doubleClickTracker: DoubleClickTracker{
			lastClickTime: time.Now(),
		},
		doubleClicked: make(map[ebiten.MouseButton]bool),
	}
}

// getMouseMapping returns a mapping from string mouse actions to Ebiten mouse buttons
func getMouseMapping() map[string]ebiten.MouseButton {
	return map[string]ebiten.MouseButton{
		"LeftClick":   ebiten.MouseButtonLeft,
		"RightClick":  ebiten.MouseButtonRight,
		"MiddleClick": ebiten.MouseButtonMiddle,
		"Back":        ebiten.MouseButton3, // Back button (side button)
		"Forward":     ebiten.MouseButton4, // Forward button (side button)
	}
}

// parseMouseString parses a mouse string like "Shift+LeftClick" or "WheelUp" into a MouseCombination
func (mm *MousebindingManager) parseMouseString(mouseStr string) (MouseCombination, bool) {
	parts := strings.Split(mouseStr, "+")

	var combination MouseCombination

	// Last part should be the actual mouse action
	actionName := parts[len(parts)-1]

	switch {
	case strings.HasPrefix(actionName, "Wheel"):
		combination.IsWheel = true
		switch actionName {
		case "WheelUp":
			combination.WheelDeltaY = 1.0
		case "WheelDown":
			combination.WheelDeltaY = -1.0
		case "WheelLeft":
			combination.WheelDeltaX = -1.0
		case "WheelRight":
			combination.WheelDeltaX = 1.0
		default:
			return combination, false
		}
	case strings.HasPrefix(actionName, "Double"):
		combination.IsDoubleClick = true
		button, exists := mm.mouseMapping[strings.TrimPrefix(actionName, "Double")]
		if !exists {
			return combination, false
		}
		combination.Button = button
	default:
		button, exists := mm.mouseMapping[actionName]
		if !exists {
			return combination, false
		}
		combination.Button = button
	}

	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(mod) {
		case "shift":
			combination.Shift = true
		case "ctrl":
			combination.Ctrl = true
		case "alt":
			combination.Alt = true
		default:
			return combination, false
		}
	}

	return combination, true
}

// wheel returns this frame's wheel movement after sensitivity and inversion
func (mm *MousebindingManager) wheel() (float64, float64) {
	wheelX, wheelY := ebiten.Wheel()
	if mm.settings.WheelInverted {
		wheelY = -wheelY
	}
	return wheelX * mm.settings.WheelSensitivity, wheelY * mm.settings.WheelSensitivity
}

// isMouseActionTriggered checks if a mouse combination fired this frame.
// Buttons fire on release so a drag never counts as a click.
func (mm *MousebindingManager) isMouseActionTriggered(combination MouseCombination) bool {
	if !modifiersMatch(combination.Shift, combination.Ctrl, combination.Alt) {
		return false
	}

	if combination.IsWheel {
		wheelX, wheelY := mm.wheel()
		if combination.WheelDeltaX != 0 {
			return (combination.WheelDeltaX > 0 && wheelX > 0) || (combination.WheelDeltaX < 0 && wheelX < 0)
		}
		return (combination.WheelDeltaY > 0 && wheelY > 0) || (combination.WheelDeltaY < 0 && wheelY < 0)
	}

	if combination.IsDoubleClick {
		return mm.doubleClicked[combination.Button]
	}

	if !inpututil.IsMouseButtonJustReleased(combination.Button) {
		return false
	}
	return !(combination.Button == ebiten.MouseButtonLeft && mm.clickCanceled)
}

// trackClicks records double clicks for this frame
func (mm *MousebindingManager) trackClicks(now time.Time) {
	for button := range mm.doubleClicked {
		delete(mm.doubleClicked, button)
	}

	for _, button := range mm.mouseMapping {
		if !inpututil.IsMouseButtonJustReleased(button) {
			continue
		}
		if button == ebiten.MouseButtonLeft && mm.clickCanceled {
			continue
		}
		mm.doubleClicked[button] = mm.registerClick(button, now)
	}
}

// registerClick counts a click and reports whether it completed a double click
func (mm *MousebindingManager) registerClick(button ebiten.MouseButton, now time.Time) bool {
	t := &mm.doubleClickTracker
	if t.lastClickButton == button && now.Sub(t.lastClickTime) <= mm.settings.DoubleClickTime {
		t.clickCount++
	} else {
		t.clickCount = 1
		t.lastClickButton = button
	}
	t.lastClickTime = now

	if t.clickCount == 2 {
		t.clickCount = 0
		return true
	}
	return false
}

// trackDrag turns left-button movement into pan deltas
func (mm *MousebindingManager) trackDrag(inputActions InputActions, inputState InputState) {
	mm.clickCanceled = false
	x, y := ebiten.CursorPosition()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		mm.drag = dragTracker{pressed: true, startX: x, startY: y, lastX: x, lastY: y}
		return
	}

	if !mm.drag.pressed {
		return
	}

	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		mm.clickCanceled = mm.drag.dragging
		mm.drag = dragTracker{}
		return
	}

	if !mm.drag.dragging {
		dx, dy := x-mm.drag.startX, y-mm.drag.startY
		if dx*dx+dy*dy < dragThreshold*dragThreshold {
			return
		}
		mm.drag.dragging = true
	}

	if mm.settings.EnableDragPan && inputState.IsViewing() && (x != mm.drag.lastX || y != mm.drag.lastY) {
		inputActions.PanByDelta(float64(x-mm.drag.lastX), float64(y-mm.drag.lastY))
	}
	mm.drag.lastX, mm.drag.lastY = x, y
}

// HandleInput processes drags, then every bound mouse action.
func (mm *MousebindingManager) HandleInput(inputActions InputActions, inputState InputState) bool {
	if !mm.settings.EnableMouse {
		return false
	}

	mm.trackDrag(inputActions, inputState)
	mm.trackClicks(time.Now())

	processed := false
	for _, action := range config.Actions {
		if mm.ExecuteAction(action.Name, inputActions, inputState) {
			processed = true
		}
	}
	return processed
}

// CheckAction checks if any mouse binding for the given action is triggered
func (mm *MousebindingManager) CheckAction(action string) (MouseCombination, bool) {
	for _, mouseStr := range mm.mousebindings[action] {
		combination, valid := mm.parseMouseString(mouseStr)
		if valid && mm.isMouseActionTriggered(combination) {
			return combination, true
		}
	}
	return MouseCombination{}, false
}

// ExecuteAction executes the given action if one of its mouse bindings fired.
// Wheel zoom is anchored at the cursor.
func (mm *MousebindingManager) ExecuteAction(action string, inputActions InputActions, inputState InputState) bool {
	combination, ok := mm.CheckAction(action)
	if !ok {
		return false
	}

	if combination.IsWheel && (action == "zoom_in" || action == "zoom_out") {
		x, y := ebiten.CursorPosition()
		inputActions.ZoomAt(action == "zoom_in", float64(x), float64(y))
		return true
	}

	return executeAction(action, inputActions, inputState)
}

// GetMousebindings returns the current mouse bindings map (for display purposes)
func (mm *MousebindingManager) GetMousebindings() map[string][]string {
	return mm.mousebindings
}

// GetSettings returns the current mouse settings
func (mm *MousebindingManager) GetSettings() MouseSettings {
	return mm.settings
}
