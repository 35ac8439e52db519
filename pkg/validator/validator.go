package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/aproko/clinic-api/pkg/timeofday"
)

// RegisterCustomValidations installs domain validation tags on gin's binding
// engine. Must run before the router starts accepting requests.
func RegisterCustomValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("timeofday", validTimeOfDay)
}

// validTimeOfDay accepts "HH:MM" or "HH:MM:SS" clock times.
func validTimeOfDay(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := timeofday.Parse(s)
	return err == nil
}
