package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

// ValidationBehavior checks `validate` struct tags on the payload, then an optional
// Validate() error method.
type ValidationBehavior struct {
	validate *validator.Validate
}

// NewValidationBehavior creates a validator reporting fields by their JSON names.
func NewValidationBehavior() *ValidationBehavior {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &ValidationBehavior{validate: v}
}

func (b *ValidationBehavior) Name() string                 { return "validation" }
func (b *ValidationBehavior) Priority() int                { return PriorityValidation }
func (b *ValidationBehavior) AppliesTo(d *Descriptor) bool { return !d.SkipValidation }

func (b *ValidationBehavior) Handle(ctx context.Context, call *Call, next Next) Result {
	payload := call.Command.Payload
	if payload == nil {
		return FromError(fmt.Errorf("%w: payload is required", apperrors.ErrValidation))
	}
	if err := b.validate.Struct(payload); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return FromError(describeValidationError(err))
		}
	}
	if v, ok := payload.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			if !errors.Is(err, apperrors.ErrValidation) {
				err = fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
			}
			return FromError(err)
		}
	}
	return next(ctx)
}

func describeValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(msgs, "; "))
}
