package main

import (
	"time"

	"peek/internal/navigator"
)

const (
	// Overlay message display duration
	overlayMessageDuration = 2 * time.Second
)

// RenderState provides read-only access to game state for the renderer
type RenderState interface {
	// Navigator output, published by the command loop
	Snapshot() navigator.Snapshot

	// Display modes
	IsFullscreen() bool

	// UI state
	IsShowingHelp() bool
	IsShowingInfo() bool
	IsInPageInputMode() bool
	GetPageInputBuffer() string
	GetOverlayMessage() string
	GetOverlayMessageTime() time.Time

	// Display data
	GetFontSize() float64
	GetConfigStatus() ConfigLoadResult
	GetKeybindings() map[string][]string
	GetMousebindings() map[string][]string
}

// InputActions provides action methods for the input handlers
type InputActions interface {
	// Application control
	Exit()

	// Display toggles
	ToggleHelp()
	ToggleInfo()
	ToggleFullscreen()

	// Page input
	EnterPageInputMode()
	ExitPageInputMode()
	ProcessPageInput()
	UpdatePageInputBuffer(buffer string)

	// Settings
	CycleSortMethod()
	ToggleWrap()
	CopyCurrent(slot int)

	// Navigation
	NavigateNext()
	NavigatePrevious()
	JumpToFirst()
	JumpToLast()
	JumpToPage(page int)

	// View
	RotateLeft()
	RotateRight()
	ZoomIn()
	ZoomOut()
	ZoomActual()
	ZoomFit()
	ZoomAt(in bool, x, y float64) // Mouse wheel zoom around the cursor
	PanUp()
	PanDown()
	PanLeft()
	PanRight()
	PanByDelta(deltaX, deltaY float64) // Mouse drag pan

	// Messages
	ShowOverlayMessage(message string)
}

// InputState provides read-only access to input-related state
type InputState interface {
	IsInPageInputMode() bool
	GetPageInputBuffer() string
	IsViewing() bool // For drag permission checking
}
