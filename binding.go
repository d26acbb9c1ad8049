package stratus

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/stratushq/stratus/codec"
)

// Kind selects the conversion applied to a path parameter. Kinds
// outside the known set fall back to passing the raw string through.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindInt64
	KindFloat64
	KindBool
)

type bindSource uint8

const (
	bindNone bindSource = iota
	bindPath
	bindBody
	bindContext
)

// Binding declares how one handler argument is resolved. Bindings are
// fixed per route at registration time; the zero Binding always
// resolves to nil.
type Binding struct {
	source    bindSource
	name      string
	kind      Kind
	prototype func() any
}

// FromPath binds a captured path value converted to the given kind.
// A parameter missing from the matched pattern binds nil.
func FromPath(name string, kind Kind) Binding {
	return Binding{source: bindPath, name: name, kind: kind}
}

// FromBody binds the deserialized request body. The prototype function
// supplies a fresh target for each request, e.g.
//
//	FromBody(func() any { return new(User) })
func FromBody(prototype func() any) Binding {
	return Binding{source: bindBody, prototype: prototype}
}

// FromContext binds the *Context itself.
func FromContext() Binding {
	return Binding{source: bindContext}
}

// Binder resolves a route's bindings against a request context. One
// Binder is shared by all routes of an engine and is safe for
// concurrent use.
type Binder struct {
	codec    codec.Codec
	validate *validator.Validate
}

func NewBinder(c codec.Codec) *Binder {
	return &Binder{
		codec:    c,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Bind produces the handler argument slice in binding declaration
// order. Any conversion, decode or validation failure aborts the whole
// request; the dispatcher reports it as a server failure.
func (b *Binder) Bind(route *Route, ctx *Context) ([]any, error) {
	args := make([]any, len(route.Bindings))
	params := ctx.PathParams()

	for i, binding := range route.Bindings {
		switch binding.source {
		case bindPath:
			raw, ok := params[binding.name]
			if !ok {
				args[i] = nil
				continue
			}
			value, err := convertParam(raw, binding.kind)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", binding.name, err)
			}
			args[i] = value

		case bindBody:
			body, err := ctx.Body()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBodyDecode, err)
			}
			target := binding.prototype()
			if err := b.codec.Unmarshal(body, target); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBodyDecode, err)
			}
			if err := b.validateBody(target); err != nil {
				return nil, err
			}
			args[i] = target

		case bindContext:
			args[i] = ctx

		default:
			args[i] = nil
		}
	}

	return args, nil
}

// validateBody runs struct-tag validation on decoded bodies. Non-struct
// targets and tag-free structs pass trivially.
func (b *Binder) validateBody(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	if err := b.validate.Struct(rv.Interface()); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func convertParam(raw string, kind Kind) (any, error) {
	switch kind {
	case KindString:
		return raw, nil
	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an int", ErrParamConversion, raw)
		}
		return n, nil
	case KindInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an int64", ErrParamConversion, raw)
		}
		return n, nil
	case KindFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a float64", ErrParamConversion, raw)
		}
		return f, nil
	case KindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a bool", ErrParamConversion, raw)
		}
		return v, nil
	default:
		// Unknown kinds pass the raw value through.
		return raw, nil
	}
}
