// Package validation checks flow definitions and API input.
//
// Struct tag validation goes through go-playground/validator and reports
// fields by their yaml or json name, including the path into nested slices:
//
//	type NodeDef struct {
//	    Name      string `yaml:"name" validate:"required"`
//	    Component string `yaml:"component" validate:"required"`
//	}
//	err := validation.Validate(def) // "nodes[1].component: is required"
//
// Checks that do not fit a tag are collected with a Validator:
//
//	v := validation.New()
//	v.Custom(startExists, "start", "must name a defined node")
//	err := v.Validate()
//
// Both forms return *errors.AppError with code INVALID_INPUT and the failing
// fields under Details["fields"].
package validation
