// Package models defines the contact book domain types.
package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Contact is a single entry of the contact book.
//
// Name is the lookup key. Phone is kept exactly as given.
type Contact struct {
	Name  string `json:"name" yaml:"name" validate:"required" jsonschema:"description=Contact name; unique lookup key"`
	Phone string `json:"phone" yaml:"phone" validate:"required" jsonschema:"description=Phone number stored as given"`
}

// Clone returns a copy of the contact.
func (c *Contact) Clone() *Contact {
	n := *c
	return &n
}

// Validate checks that both fields are set.
func (c *Contact) Validate() error {
	if c == nil {
		return errors.New("contact is required")
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return fmt.Errorf("%s is required", strings.Join(fields, " and "))
	}
	return nil
}
