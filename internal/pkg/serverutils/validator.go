package serverutils

import (
	"errors"
	"reflect"
	"strings"

	"support-chat-be/pkg/chat/chaterr"
	"support-chat-be/pkg/chat/form"

	"github.com/go-playground/validator/v10"
)

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// ValidateRequest checks a request DTO against its validate tags. Failures
// come back as a *chaterr.ValidationError keyed by JSON field name.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &chaterr.ValidationError{Fields: map[string]string{"_": err.Error()}}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = form.Message(fe)
	}
	return &chaterr.ValidationError{Fields: fields}
}
