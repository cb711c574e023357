package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	// Use JSON tag names for errors instead of Go struct names.
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// Struct validates s and flattens field errors into one message,
// e.g. "enrolenddate: gtefield; url: required".
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return err
	}
	parts := make([]string, 0, len(fes))
	for _, fe := range fes {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return &Error{Fields: fes, msg: strings.Join(parts, "; ")}
}

type Error struct {
	Fields validator.ValidationErrors
	msg    string
}

func (e *Error) Error() string { return e.msg }

// Var validates a single value against tag, e.g. Var(addr, "email").
func Var(field any, tag string) error { return v.Var(field, tag) }
