package repository

import (
	"errors"
	"fmt"
	"strings"

	"food-delivery/client/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateStruct turns validator failures into a Validation error naming the
// offending fields.
func validateStruct(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(op, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return apperr.Validation(op, strings.Join(msgs, "; "))
}
