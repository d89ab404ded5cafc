// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Besides the built-in rules, one custom tag is registered: `ident`, the
// same identifier grammar the engine applies to controller and action
// names.  It guards the default destination and the fallback parts, so a
// typo in YAML fails at boot instead of on the first unmatched request.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
//   • Section dividers use the simple comment style requested.

package config

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var (
	v       = newValidator()
	identRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identRe.MatchString(fl.Field().String())
	})
	return val
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	for _, name := range []string{c.App.DefaultController, c.App.DefaultAction} {
		if err := v.Var(name, "ident"); err != nil {
			return fmt.Errorf("default destination %q: %w", name, err)
		}
	}
	if n := len(c.App.CallController); n > 3 {
		return fmt.Errorf("call_controller has %d parts, want at most 3", n)
	}
	for _, part := range c.App.CallController {
		if part == "" {
			continue // empty part falls back to the default
		}
		if err := v.Var(part, "ident"); err != nil {
			return fmt.Errorf("call_controller part %q: %w", part, err)
		}
	}
	return nil
}
