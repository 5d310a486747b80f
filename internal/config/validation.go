package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags first, then the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

func validateCustomRules(cfg *Config) error {
	if cfg.View.MinZoom > cfg.View.MaxZoom {
		return fmt.Errorf("view: min_zoom %g is above max_zoom %g", cfg.View.MinZoom, cfg.View.MaxZoom)
	}
	if cfg.View.MinZoom > 1 || cfg.View.MaxZoom < 1 {
		return fmt.Errorf("view: zoom range [%g, %g] must include 1", cfg.View.MinZoom, cfg.View.MaxZoom)
	}

	for slot, dir := range cfg.Gallery.CopyDirs {
		if _, ok := CopySlot("copy_" + slot); !ok {
			return fmt.Errorf("gallery: copy_dirs slot %q is not 1-9", slot)
		}
		if dir == "" {
			return fmt.Errorf("gallery: copy_dirs slot %s has an empty directory", slot)
		}
	}

	if err := validateBindings("keybindings", cfg.Keybindings, KeyNames); err != nil {
		return err
	}
	if err := validateBindings("mousebindings", cfg.Mousebindings, MouseNames); err != nil {
		return err
	}

	return nil
}

// formatValidationError reports the first failing field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
