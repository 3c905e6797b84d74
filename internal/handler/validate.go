package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/shinyyama/inventory-backend/internal/apperr"
)

// Validator adapts validator/v10 to echo and reports fields by their JSON names.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindBadRequest, "リクエストが不正です", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return apperr.Validation(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必須項目です"
	case "max":
		if fe.Kind() == reflect.String {
			return fe.Param() + "文字以内で入力してください"
		}
		return fe.Param() + "以下で入力してください"
	case "min":
		if fe.Kind() == reflect.String {
			return fe.Param() + "文字以上で入力してください"
		}
		return fe.Param() + "以上で入力してください"
	case "oneof":
		return "次のいずれかを指定してください: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return fe.Param() + "より大きい値を指定してください"
	}
	return "値が不正です"
}

// bind decodes the request and runs struct validation.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Wrap(apperr.KindBadRequest, "リクエストの形式が不正です", err)
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
