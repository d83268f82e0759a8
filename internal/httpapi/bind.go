package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"production-tracker/internal/apperr"
	"production-tracker/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	msgValidationFailed = "Validation failed"
	bodyKey             = "httpapi.body"
)

var registerTagNames sync.Once

// useWireNames makes validator report fields by their json/form names so
// details match what the client sent. It also registers maxbytes, which
// bounds a string's encoded length where max counts runes.
func useWireNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
		_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			return err == nil && len(fl.Field().String()) <= n
		})
	})
}

// BindJSON decodes and validates the request body into a T, which handlers
// read back with Body.
func BindJSON[T any]() pipeline.Stage {
	useWireNames()
	return func(c *gin.Context) pipeline.Result {
		var req T
		if err := c.ShouldBindJSON(&req); err != nil {
			return pipeline.Reject(validationError(err))
		}
		c.Set(bodyKey, req)
		return pipeline.Continue()
	}
}

// BindQuery is BindJSON for the query string.
func BindQuery[T any]() pipeline.Stage {
	useWireNames()
	return func(c *gin.Context) pipeline.Result {
		var req T
		if err := c.ShouldBindQuery(&req); err != nil {
			return pipeline.Reject(validationError(err))
		}
		c.Set(bodyKey, req)
		return pipeline.Continue()
	}
}

// Body returns the value bound by BindJSON or BindQuery.
func Body[T any](c *gin.Context) T {
	v, _ := c.Get(bodyKey)
	req, _ := v.(T)
	return req
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		return apperr.Validation(msgValidationFailed, fields)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperr.Validation(msgValidationFailed, []apperr.FieldError{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Expected %s", typeErr.Type.Kind()),
		}})
	}

	return apperr.Validation(msgValidationFailed, []apperr.FieldError{{Field: "body", Message: "Malformed request"}})
}

func fieldMessage(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid " + fe.Field()
	case "min":
		return fmt.Sprintf("Must be at least %s%s", fe.Param(), unit)
	case "max":
		return fmt.Sprintf("Must be at most %s%s", fe.Param(), unit)
	case "maxbytes":
		return fmt.Sprintf("Must be at most %s bytes", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s%s", fe.Param(), unit)
	case "gt":
		return "Must be greater than " + fe.Param()
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "Invalid date"
	}
	return "Invalid value"
}
