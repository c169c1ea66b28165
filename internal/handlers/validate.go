package handlers

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/crucial707/book-catalog/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their json names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	must(v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}))
	must(v.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
		return models.Genre(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("pubyear", func(fl validator.FieldLevel) bool {
		y := int(fl.Field().Int())
		return y >= models.MinPublishedYear && y <= time.Now().Year()
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// validateBook returns field name -> failed tag, or nil when in is valid.
func validateBook(in models.BookInput) map[string]string {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

// fieldsSummary renders validation fields as "genre: genre, title: required".
func fieldsSummary(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, k+": "+v)
	}
	sort.Strings(parts)
	return "validation failed (" + strings.Join(parts, ", ") + ")"
}
