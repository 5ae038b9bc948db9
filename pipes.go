package whttp

import (
	"context"
	"reflect"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// stringArg asserts that a pipe input is a string, the shape every path,
// query, header and env argument starts out as.
func stringArg(value any, meta ArgumentMeta) (string, error) {
	str, ok := value.(string)
	if !ok {
		return "", NewError(CodeBadRequest,
			errors.Newf("argument %q must be a string, got %T", meta.Name, value))
	}

	return str, nil
}

type parseIntPipe struct{}

// ParseInt inits a pipe that converts a string argument to an int64,
// failing the request with a bad-request error when it does not parse.
func ParseInt() Pipe { return parseIntPipe{} }

func (parseIntPipe) Transform(_ context.Context, value any, meta ArgumentMeta) (any, error) {
	str, err := stringArg(value, meta)
	if err != nil {
		return nil, err
	}

	num, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return nil, NewError(CodeBadRequest, errors.Newf("argument %q must be an integer, got %q", meta.Name, str))
	}

	return num, nil
}

type parseFloatPipe struct{}

// ParseFloat inits a pipe that converts a string argument to a float64.
func ParseFloat() Pipe { return parseFloatPipe{} }

func (parseFloatPipe) Transform(_ context.Context, value any, meta ArgumentMeta) (any, error) {
	str, err := stringArg(value, meta)
	if err != nil {
		return nil, err
	}

	num, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil, NewError(CodeBadRequest, errors.Newf("argument %q must be a number, got %q", meta.Name, str))
	}

	return num, nil
}

type parseBoolPipe struct{}

// ParseBool inits a pipe that converts a string argument to a bool.
func ParseBool() Pipe { return parseBoolPipe{} }

func (parseBoolPipe) Transform(_ context.Context, value any, meta ArgumentMeta) (any, error) {
	str, err := stringArg(value, meta)
	if err != nil {
		return nil, err
	}

	b, err := strconv.ParseBool(str)
	if err != nil {
		return nil, NewError(CodeBadRequest, errors.Newf("argument %q must be a boolean, got %q", meta.Name, str))
	}

	return b, nil
}

type parseUUIDPipe struct{}

// ParseUUID inits a pipe that parses a string argument into a uuid.UUID.
func ParseUUID() Pipe { return parseUUIDPipe{} }

func (parseUUIDPipe) Transform(_ context.Context, value any, meta ArgumentMeta) (any, error) {
	str, err := stringArg(value, meta)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(str)
	if err != nil {
		return nil, NewError(CodeBadRequest, errors.Newf("argument %q must be a uuid, got %q", meta.Name, str))
	}

	return id, nil
}

type defaultValuePipe struct{ value any }

// Default inits a pipe that substitutes the given value when the argument is
// nil or an empty string.
func Default(value any) Pipe { return defaultValuePipe{value: value} }

func (p defaultValuePipe) Transform(_ context.Context, value any, _ ArgumentMeta) (any, error) {
	if value == nil {
		return p.value, nil
	}

	if str, ok := value.(string); ok && str == "" {
		return p.value, nil
	}

	return value, nil
}

type validationPipe struct{ validate *validator.Validate }

// Validation inits a pipe that runs go-playground struct validation on the
// argument, turning rule failures into a structured bad-request error. Non
// struct arguments pass through untouched.
func Validation() Pipe {
	return &validationPipe{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (p *validationPipe) Transform(ctx context.Context, value any, _ ArgumentMeta) (any, error) {
	if value == nil {
		return value, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return value, nil
		}

		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return value, nil
	}

	err := p.validate.StructCtx(ctx, value)
	if err == nil {
		return value, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, NewError(CodeBadRequest, err)
	}

	violations := make([]FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, FieldViolation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: fe.Error(),
		})
	}

	return nil, NewValidationError(violations...)
}
