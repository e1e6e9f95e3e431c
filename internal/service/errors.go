package service

import (
	"errors"

	"inkwell/internal/models"
)

func asFieldErrors(err error) (models.FieldErrors, bool) {
	var fe models.FieldErrors
	if err != nil && errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

func hasPath(errs models.FieldErrors, path string) bool {
	for _, e := range errs {
		if e.Path == path {
			return true
		}
	}
	return false
}
