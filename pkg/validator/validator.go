package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"reward-core/pkg/address"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the shared validator with the custom "wallet" tag registered.
// Gin's binding engine is also go-playground/validator; the sandbox registers the same tag there.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = Register(validate)
	})
	return validate
}

// Register installs the custom tags on v.
func Register(v *validator.Validate) error {
	return v.RegisterValidation("wallet", func(fl validator.FieldLevel) bool {
		return address.IsValid(fl.Field().String())
	})
}

// Struct validates s with the shared instance.
func Struct(s interface{}) error {
	return Get().Struct(s)
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var errMsgs []string
		for _, e := range validationErrors {
			field := e.Namespace()
			tag := e.Tag()
			param := e.Param()

			switch tag {
			case "required":
				errMsgs = append(errMsgs, fmt.Sprintf("%s is required", field))
			case "wallet":
				errMsgs = append(errMsgs, fmt.Sprintf("%s is not a valid wallet address", field))
			case "min":
				errMsgs = append(errMsgs, fmt.Sprintf("%s must be at least %s", field, param))
			case "max":
				errMsgs = append(errMsgs, fmt.Sprintf("%s must be at most %s", field, param))
			case "oneof":
				errMsgs = append(errMsgs, fmt.Sprintf("%s must be one of [%s]", field, param))
			default:
				errMsgs = append(errMsgs, fmt.Sprintf("%s failed validation (%s)", field, tag))
			}
		}
		return strings.Join(errMsgs, "; ")
	}
	if err != nil {
		return err.Error()
	}
	return "invalid payload"
}
