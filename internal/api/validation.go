package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report query parameter names instead of Go field names
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("query"); name != "" {
				return name
			}
			return f.Name
		})
	})
	return validate
}

// nearbyQuery is the raw query string of a nearby search. Exactly one of
// zip or the lat/lon pair locates the origin.
type nearbyQuery struct {
	Zip    string `query:"zip" validate:"required_without_all=Lat Lon,excluded_with=Lat Lon"`
	Lat    string `query:"lat" validate:"required_without=Zip,required_with=Lon,omitempty,latitude"`
	Lon    string `query:"lon" validate:"required_without=Zip,required_with=Lat,omitempty,longitude"`
	Radius string `query:"radius" validate:"required,numeric"`
}

// validateStruct returns nil or an INVALID_ARGUMENT APIError describing
// every failing field.
func validateStruct(s any) *APIError {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &APIError{Code: CodeInvalidArgument, Message: err.Error()}
	}

	messages := make([]string, 0, len(fieldErrs))
	fields := make([]map[string]any, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := fieldMessage(fe)
		messages = append(messages, msg)
		fields = append(fields, map[string]any{
			"field": fe.Field(),
			"tag":   fe.Tag(),
		})
	}
	return &APIError{
		Code:    CodeInvalidArgument,
		Message: strings.Join(messages, "; "),
		Details: map[string]any{"fields": fields},
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_without_all", "required_without":
		return "either zip or lat and lon are required"
	case "required_with":
		return "lat and lon must be given together"
	case "excluded_with":
		return "zip cannot be combined with lat and lon"
	case "latitude":
		return fmt.Sprintf("lat must be between -90 and 90, got %q", fe.Value())
	case "longitude":
		return fmt.Sprintf("lon must be between -180 and 180, got %q", fe.Value())
	case "numeric":
		return fmt.Sprintf("%s must be a number, got %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
