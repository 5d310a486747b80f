package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"peek/internal/config"
)

// InputHandler handles all keyboard and mouse input processing
type InputHandler struct {
	inputActions        InputActions
	inputState          InputState
	keybindingManager   *KeybindingManager
	mousebindingManager *MousebindingManager
}

// NewInputHandler creates a new InputHandler
func NewInputHandler(inputActions InputActions, inputState InputState, km *KeybindingManager, mm *MousebindingManager) *InputHandler {
	return &InputHandler{
		inputActions:        inputActions,
		inputState:          inputState,
		keybindingManager:   km,
		mousebindingManager: mm,
	}
}

// HandleInput processes all input for the current frame
// Returns true if any input was processed, false otherwise
func (h *InputHandler) HandleInput() bool {
	// page input owns the keyboard until it is confirmed or canceled
	if h.inputState.IsInPageInputMode() {
		return h.handlePageInputMode()
	}

	inputProcessed := false
	for _, action := range config.Actions {
		if h.keybindingManager.ExecuteAction(action.Name, h.inputActions, h.inputState) {
			inputProcessed = true
		}
	}

	if h.mousebindingManager != nil {
		inputProcessed = h.mousebindingManager.HandleInput(h.inputActions, h.inputState) || inputProcessed
	}

	return inputProcessed
}

func (h *InputHandler) handlePageInputMode() bool {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		// Cancel page input
		h.inputActions.ExitPageInputMode()
		return true
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
		// Confirm page input
		h.inputActions.ProcessPageInput()
		h.inputActions.ExitPageInputMode()
		return true
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		currentBuffer := h.inputState.GetPageInputBuffer()
		if len(currentBuffer) > 0 {
			h.inputActions.UpdatePageInputBuffer(currentBuffer[:len(currentBuffer)-1])
		}
		return true
	}

	// Handle digit input (both regular and numpad)
	digit := checkDigitKeys(ebiten.Key0, ebiten.Key9, '0')
	if digit == "" {
		digit = checkDigitKeys(ebiten.KeyNumpad0, ebiten.KeyNumpad9, '0')
	}
	if digit != "" {
		h.inputActions.UpdatePageInputBuffer(h.inputState.GetPageInputBuffer() + digit)
		return true
	}

	return false
}

func checkDigitKeys(startKey, endKey ebiten.Key, baseChar rune) string {
	for key := startKey; key <= endKey; key++ {
		if inpututil.IsKeyJustPressed(key) {
			return string(baseChar + rune(key-startKey))
		}
	}
	return ""
}
