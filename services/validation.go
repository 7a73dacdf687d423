package services

import (
	"chatrooms/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateCommand runs the struct tags of a command and classifies any
// failure as a validation error.
func validateCommand(cmd any) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}
