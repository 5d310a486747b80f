package config

import (
	"fmt"
	"strings"
)

// Action is one bindable command with its default key and mouse bindings.
type Action struct {
	Name         string
	Keys         []string
	MouseActions []string
	Description  string
}

// Actions lists every bindable command in help-screen order.
var Actions = []Action{
	{"exit", []string{"Escape", "KeyQ"}, []string{}, "Quit"},
	{"help", []string{"Shift+Slash"}, []string{"Alt+RightClick"}, "Show/hide help"},
	{"info", []string{"KeyI"}, []string{}, "Show/hide info display"},
	{"next", []string{"Space", "KeyN", "PageDown"}, []string{"LeftClick", "WheelDown"}, "Next image"},
	{"previous", []string{"Backspace", "KeyP", "PageUp"}, []string{"RightClick", "WheelUp"}, "Previous image"},
	{"jump_first", []string{"Home", "Shift+Comma"}, []string{}, "Jump to first image"},
	{"jump_last", []string{"End", "Shift+Period"}, []string{}, "Jump to last image"},
	{"page_input", []string{"KeyG"}, []string{"Ctrl+LeftClick"}, "Go to image (enter number)"},
	{"fullscreen", []string{"Enter"}, []string{"DoubleLeftClick"}, "Toggle fullscreen"},
	{"rotate_left", []string{"KeyL"}, []string{}, "Rotate left 90 degrees"},
	{"rotate_right", []string{"KeyR"}, []string{}, "Rotate right 90 degrees"},
	{"cycle_sort", []string{"Shift+KeyS"}, []string{"Alt+MiddleClick"}, "Cycle sort method"},
	{"toggle_wrap", []string{"KeyW"}, []string{}, "Toggle wraparound at the ends"},

	{"zoom_in", []string{"Equal", "Shift+Equal"}, []string{"Ctrl+WheelUp"}, "Zoom in"},
	{"zoom_out", []string{"Minus"}, []string{"Ctrl+WheelDown"}, "Zoom out"},
	{"zoom_actual", []string{"Key0"}, []string{"Shift+MiddleClick"}, "Actual size (100%)"},
	{"zoom_fit", []string{"KeyF"}, []string{"MiddleClick"}, "Fit to window"},

	{"pan_up", []string{"ArrowUp"}, []string{}, "Pan up"},
	{"pan_down", []string{"ArrowDown"}, []string{}, "Pan down"},
	{"pan_left", []string{"ArrowLeft"}, []string{}, "Pan left"},
	{"pan_right", []string{"ArrowRight"}, []string{}, "Pan right"},

	{"copy_1", []string{"Ctrl+Key1"}, []string{}, "Copy current image to copy slot 1"},
	{"copy_2", []string{"Ctrl+Key2"}, []string{}, "Copy current image to copy slot 2"},
	{"copy_3", []string{"Ctrl+Key3"}, []string{}, "Copy current image to copy slot 3"},
	{"copy_4", []string{"Ctrl+Key4"}, []string{}, "Copy current image to copy slot 4"},
	{"copy_5", []string{"Ctrl+Key5"}, []string{}, "Copy current image to copy slot 5"},
	{"copy_6", []string{"Ctrl+Key6"}, []string{}, "Copy current image to copy slot 6"},
	{"copy_7", []string{"Ctrl+Key7"}, []string{}, "Copy current image to copy slot 7"},
	{"copy_8", []string{"Ctrl+Key8"}, []string{}, "Copy current image to copy slot 8"},
	{"copy_9", []string{"Ctrl+Key9"}, []string{}, "Copy current image to copy slot 9"},
}

// CopySlot returns the slot of a copy_N action name.
func CopySlot(action string) (int, bool) {
	slot, ok := strings.CutPrefix(action, "copy_")
	if !ok || len(slot) != 1 || slot[0] < '1' || slot[0] > '9' {
		return 0, false
	}
	return int(slot[0] - '0'), true
}

// ActionDescriptions maps action names to their help text.
func ActionDescriptions() map[string]string {
	descriptions := make(map[string]string, len(Actions))
	for _, a := range Actions {
		descriptions[a.Name] = a.Description
	}
	return descriptions
}

// DefaultKeybindings maps action names to their default key strings.
func DefaultKeybindings() map[string][]string {
	bindings := make(map[string][]string, len(Actions))
	for _, a := range Actions {
		bindings[a.Name] = append([]string(nil), a.Keys...)
	}
	return bindings
}

// DefaultMousebindings maps action names to their default mouse strings.
func DefaultMousebindings() map[string][]string {
	bindings := make(map[string][]string, len(Actions))
	for _, a := range Actions {
		bindings[a.Name] = append([]string(nil), a.MouseActions...)
	}
	return bindings
}

func isAction(name string) bool {
	for _, a := range Actions {
		if a.Name == name {
			return true
		}
	}
	return false
}

// KeyNames is the set of key names a binding may end in.
var KeyNames = buildKeyNames()

func buildKeyNames() map[string]bool {
	names := map[string]bool{
		"Space": true, "Backspace": true, "Enter": true, "Escape": true,
		"Tab": true, "Home": true, "End": true, "PageUp": true, "PageDown": true,
		"ArrowUp": true, "ArrowDown": true, "ArrowLeft": true, "ArrowRight": true,

		"Comma": true, "Period": true, "Slash": true, "Semicolon": true,
		"Quote": true, "Minus": true, "Equal": true,

		"NumpadEnter": true, "NumpadAdd": true, "NumpadSubtract": true,
	}
	for c := 'A'; c <= 'Z'; c++ {
		names["Key"+string(c)] = true
	}
	for c := '0'; c <= '9'; c++ {
		names["Key"+string(c)] = true
		names["Numpad"+string(c)] = true
	}
	return names
}

// MouseNames is the set of mouse action names a binding may end in.
var MouseNames = map[string]bool{
	"LeftClick": true, "RightClick": true, "MiddleClick": true,
	"Back": true, "Forward": true,
	"DoubleLeftClick": true, "DoubleRightClick": true, "DoubleMiddleClick": true,
	"WheelUp": true, "WheelDown": true, "WheelLeft": true, "WheelRight": true,
}

// ValidateBindingString checks "Mod+Mod+Name" against the given name set.
func ValidateBindingString(s string, names map[string]bool) error {
	if s == "" {
		return fmt.Errorf("empty binding")
	}
	parts := strings.Split(s, "+")

	name := parts[len(parts)-1]
	if !names[name] {
		return fmt.Errorf("unknown key: %s", name)
	}

	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(mod) {
		case "shift", "ctrl", "alt":
		default:
			return fmt.Errorf("unknown modifier: %s", mod)
		}
	}
	return nil
}

// validateBindings rejects unknown actions, unknown names and a binding
// shared by two actions.
func validateBindings(kind string, bindings map[string][]string, names map[string]bool) error {
	owner := make(map[string]string)

	for action, list := range bindings {
		if !isAction(action) {
			return fmt.Errorf("%s: unknown action %q", kind, action)
		}
		for _, s := range list {
			if err := ValidateBindingString(s, names); err != nil {
				return fmt.Errorf("%s: invalid binding '%s' for action '%s': %v", kind, s, action, err)
			}
			norm := normalizeBinding(s)
			if prev, exists := owner[norm]; exists && prev != action {
				return fmt.Errorf("%s: conflict: '%s' is bound to both '%s' and '%s'", kind, s, prev, action)
			}
			owner[norm] = action
		}
	}
	return nil
}

// normalizeBinding makes modifier order and case irrelevant for conflicts.
func normalizeBinding(s string) string {
	parts := strings.Split(s, "+")
	name := parts[len(parts)-1]

	var shift, ctrl, alt bool
	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(mod) {
		case "shift":
			shift = true
		case "ctrl":
			ctrl = true
		case "alt":
			alt = true
		}
	}

	var b strings.Builder
	if ctrl {
		b.WriteString("ctrl+")
	}
	if alt {
		b.WriteString("alt+")
	}
	if shift {
		b.WriteString("shift+")
	}
	b.WriteString(name)
	return b.String()
}
