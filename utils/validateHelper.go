package utils

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// "dateonly" accepts strict YYYY-MM-DD values, the only date format the
	// Rindegastos API understands.
	_ = v.RegisterValidation("dateonly", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := time.Parse(time.DateOnly, s)
		return err == nil
	})
	return v
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
