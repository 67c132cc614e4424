package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"checkout-service/internal/models"

	"github.com/go-playground/validator/v10"
)

// customerValidator reads the same binding tags gin uses, so direct callers get the
// checks the HTTP layer applies
var customerValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCustomer trims the contact details and checks them
func ValidateCustomer(c *models.Customer) error {
	if c == nil {
		return models.NewValidationError("customer", "contact details are required")
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)

	err := customerValidator.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return models.NewValidationError("customer."+fe.Field(), describeFieldError(fe))
	}
	return models.NewValidationError("customer", err.Error())
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}
