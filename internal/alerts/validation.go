package alerts

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/monadswap/signals-bot/internal/models"
)

// ErrInvalidInput wraps every validation failure
var ErrInvalidInput = errors.New("invalid alert input")

// ValidationError carries a message safe to show to the caller
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes every ValidationError match ErrInvalidInput
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks a new alert before it reaches the store
func Validate(input models.AlertInput) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return &ValidationError{Message: err.Error()}
	}

	first := vErrs[0]
	switch {
	case first.Tag() == "required":
		return &ValidationError{Message: "Missing required fields: userId, tokenAddress, tokenSymbol, targetPrice, condition"}
	case first.Field() == "condition":
		return &ValidationError{Message: `Condition must be either "above" or "below"`}
	case first.Field() == "targetPrice":
		return &ValidationError{Message: "Target price must be a positive number"}
	case first.Field() == "userId":
		return &ValidationError{Message: "userId must be a numeric FID"}
	default:
		return &ValidationError{Message: fmt.Sprintf("field [%s] failed rule [%s]", first.Field(), first.Tag())}
	}
}
