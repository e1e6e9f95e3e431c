// Package validation holds the declarative request rules and turns rule
// failures into aggregated field errors.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"inkwell/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	engine     *validator.Validate
	engineOnce sync.Once
)

// messages maps "<json path>.<tag>" to the message shown to clients.
var messages = map[string]string{
	"title.required_text":        "Title is required",
	"description.required_text":  "Description is required",
	"blogContents.required_text": "Blog contents are required",
	"topics.topics_array":        "Topics must be an array",
	"topics.topics_strings":      "All topics must be strings",
	"topics.topics_max":          "Maximum 5 topics",
	"isPublished.boolean_value":  "isPublished must be a boolean",
	"text.required_text":         "Comment text is required",
	"text.max":                   "Comment must be at most 1500 characters",
	"name.min":                   "Name must be between 1 and 50 characters",
	"name.max":                   "Name must be between 1 and 50 characters",
	"email.required":             "Invalid email",
	"email.email":                "Invalid email",
	"password.required":          "Password is required",
	"password.min":               "Password must be at least 6 characters",
	"displayName.required_text":  "Display name is required",
	"newPassword.min":            "Password must be at least 6 characters",
	"oldPassword.required_with":  "Old password is required to set a new password",
}

// Values of these paths are never echoed back.
var sensitivePaths = map[string]struct{}{
	"password":    {},
	"newPassword": {},
	"oldPassword": {},
}

func validate() *validator.Validate {
	engineOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "required_text", requiredText)
		mustRegister(v, "topics_array", topicsArray)
		mustRegister(v, "topics_strings", topicsStrings)
		mustRegister(v, "topics_max", topicsMax)
		mustRegister(v, "boolean_value", booleanValue)
		engine = v
	})
	return engine
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Struct runs every rule on in and returns all failures, or nil.
func Struct(in any) models.FieldErrors {
	err := validate().Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.FieldErrors{{Location: "body", Path: "", Msg: err.Error()}}
	}

	out := make(models.FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Field()
		msg, ok := messages[path+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		var value any
		if _, secret := sensitivePaths[path]; !secret {
			value = fe.Value()
		}
		out = append(out, models.FieldError{Location: "body", Path: path, Msg: msg, Value: value})
	}
	return out
}

// Merge concatenates field error lists, returning nil when all are empty.
func Merge(lists ...models.FieldErrors) models.FieldErrors {
	var out models.FieldErrors
	for _, l := range lists {
		out = append(out, l...)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func requiredText(fl validator.FieldLevel) bool {
	f := fl.Field()
	return f.Kind() == reflect.String && strings.TrimSpace(f.String()) != ""
}

func topicsArray(fl validator.FieldLevel) bool {
	k := fl.Field().Kind()
	return k == reflect.Slice || k == reflect.Array
}

func topicsStrings(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.Slice && f.Kind() != reflect.Array {
		return true
	}
	for i := 0; i < f.Len(); i++ {
		elem := f.Index(i)
		if elem.Kind() == reflect.Interface {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.String {
			return false
		}
	}
	return true
}

func topicsMax(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.Slice && f.Kind() != reflect.Array {
		return true
	}
	return f.Len() <= models.MaxTopics
}

func booleanValue(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Bool:
		return true
	case reflect.String:
		s := strings.ToLower(strings.TrimSpace(f.String()))
		return s == "true" || s == "false"
	default:
		return false
	}
}
