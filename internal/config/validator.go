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
// Struct tags carry the per-field rules.  Cross-field rules that tags
// cannot express (pool sizes) live in `crossCheck`.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
//   • Section dividers use the simple comment style requested.

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	return crossCheck(c)
}

func crossCheck(c *Config) error {
	if c.Database.MaxOpen > 0 && c.Database.MaxIdle > c.Database.MaxOpen {
		return fmt.Errorf("database.max_idle (%d) exceeds database.max_open (%d)",
			c.Database.MaxIdle, c.Database.MaxOpen)
	}
	return nil
}
