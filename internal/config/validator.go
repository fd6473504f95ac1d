// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load` calls `validateStruct` once the merged Koanf tree, the platform
// bindings, and any Vault references have been folded into a `Config`.  A
// validation error aborts startup so the binary never serves with a
// malformed listen address or an unusable CMS project.
//
// Missing session secrets and read tokens are deliberately NOT validated
// here.  Those surface per request (500) on the routes that need them.

package config

import "github.com/go-playground/validator/v10"

var v = validator.New()

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
