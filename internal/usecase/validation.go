package usecase

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("saudi_phone", func(fl validator.FieldLevel) bool {
		return model.ValidSaudiPhone(fl.Field().String())
	})
	return v
}

// validationError maps the first failed rule onto a domain error.
// A missing field is reported before any format problem.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return domain.ErrInvalidArgument
	}
	for _, fe := range ve {
		if fe.Tag() == "required" {
			return domain.ErrMissingFields
		}
	}
	switch ve[0].Tag() {
	case "email":
		return domain.ErrInvalidEmail
	case "saudi_phone":
		return domain.ErrInvalidPhone
	}
	return domain.ErrInvalidArgument
}
