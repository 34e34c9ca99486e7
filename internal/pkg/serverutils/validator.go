package serverutils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest validates a request struct and converts failures into a
// 400 so the error middleware can surface them directly.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("invalid field %s (%s)", first.Field(), first.Tag()))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
