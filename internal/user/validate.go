// AngelaMos | 2026
// validate.go

package user

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/usergate/internal/core"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so both transports produce the same
	// messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Validate checks a request DTO and returns a core validation AppError
// describing every failed field.
func Validate(req any) error {
	if err := validate.Struct(req); err != nil {
		return core.ValidationError(core.FormatValidationError(err))
	}
	return nil
}
