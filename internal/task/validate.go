package task

import (
	stdErrors "errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	xerrors "TaskHub/internal/errors"
)

// MaxTagLength 是单个标签允许的最大字符数。
const MaxTagLength = 64

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", notBlank)
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}

type tagSet struct {
	Tags []string `json:"tags" validate:"dive,notblank,max=64"`
}

// Validate 校验创建请求：标题去除空白后不能为空。
func (c TaskCreate) Validate() error {
	return validationError(validate.Struct(c))
}

// Validate 校验部分更新：若提供了标题，则同样不能为空。
func (u TaskUpdate) Validate() error {
	return validationError(validate.Struct(u))
}

// ValidateTags 在规范化之前校验原始标签，任何一项不合法则整体拒绝。
func ValidateTags(tags []string) error {
	return validationError(validate.Struct(tagSet{Tags: tags}))
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stdErrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return xerrors.Wrap(CodeTaskValidation, err, "validation failed")
	}
	return xerrors.New(CodeTaskValidation, fieldMessage(fieldErrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	if strings.HasPrefix(strings.ToLower(field), "tags[") {
		switch fe.Tag() {
		case "notblank":
			return "tags must not contain empty entries"
		case "max":
			return "tag too long (max 64 chars)"
		}
		return "tags contain invalid values"
	}
	switch fe.Tag() {
	case "notblank":
		return field + " must not be empty"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	}
	return field + " is invalid"
}
