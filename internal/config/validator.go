// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load` calls `validateStruct` immediately after it unmarshals the merged
// Koanf tree into a `Config` instance.  Any validation error aborts startup,
// so the binary never runs with partial or malformed configuration.
//
// Field rules live on the model tags.  Rules that span sections are
// registered here as struct-level validations.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(crossSection, Config{})
	return val
}

// crossSection enforces rules that involve more than one section.
func crossSection(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.Session.Store == "mysql" && c.Database.DSN == "" {
		sl.ReportError(c.Database.DSN, "Database.DSN", "DSN", "required_with_mysql_store", "")
	}
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
