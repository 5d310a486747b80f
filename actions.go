package main

import "peek/internal/config"

// executeAction runs the named action. It is the single dispatch point
// shared by the key and mouse binding managers and reports whether the
// action name was known.
func executeAction(action string, inputActions InputActions, inputState InputState) bool {
	switch action {
	case "exit":
		inputActions.Exit()
	case "help":
		inputActions.ToggleHelp()
	case "info":
		inputActions.ToggleInfo()
	case "next":
		inputActions.NavigateNext()
	case "previous":
		inputActions.NavigatePrevious()
	case "jump_first":
		inputActions.JumpToFirst()
	case "jump_last":
		inputActions.JumpToLast()
	case "page_input":
		if !inputState.IsInPageInputMode() {
			inputActions.EnterPageInputMode()
		}
	case "fullscreen":
		inputActions.ToggleFullscreen()
	case "rotate_left":
		inputActions.RotateLeft()
	case "rotate_right":
		inputActions.RotateRight()
	case "cycle_sort":
		inputActions.CycleSortMethod()
	case "toggle_wrap":
		inputActions.ToggleWrap()

	// Zoom and pan actions
	case "zoom_in":
		inputActions.ZoomIn()
	case "zoom_out":
		inputActions.ZoomOut()
	case "zoom_actual":
		inputActions.ZoomActual()
	case "zoom_fit":
		inputActions.ZoomFit()
	case "pan_up":
		inputActions.PanUp()
	case "pan_down":
		inputActions.PanDown()
	case "pan_left":
		inputActions.PanLeft()
	case "pan_right":
		inputActions.PanRight()

	default:
		slot, ok := config.CopySlot(action)
		if !ok {
			return false
		}
		inputActions.CopyCurrent(slot)
	}

	return true
}
