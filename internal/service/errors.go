package service

import (
	"errors"
	"strconv"

	aierr "Scribeline/pkg/errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// categoryStatus maps failure categories to HTTP status codes.
var categoryStatus = map[aierr.Category]int{
	aierr.CategoryRateLimit:      429,
	aierr.CategoryAuth:           502,
	aierr.CategoryTimeout:        504,
	aierr.CategoryInvalidRequest: 400,
	aierr.CategoryCircuitOpen:    503,
	aierr.CategoryParseFailure:   502,
	aierr.CategoryConfiguration:  500,
	aierr.CategoryUnknown:        502,
}

// toStatus converts an orchestrator error into a kratos error. The reason is
// the category name; operation and attempts travel as metadata.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if se := new(kerrors.Error); errors.As(err, &se) {
		return se
	}

	var ae *aierr.AIError
	if !errors.As(err, &ae) {
		return kerrors.New(502, aierr.CategoryUnknown.String(), err.Error()).WithCause(err)
	}

	code, ok := categoryStatus[ae.Category]
	if !ok {
		code = 502
	}
	return kerrors.New(code, ae.Category.String(), ae.Error()).
		WithMetadata(map[string]string{
			"operation": ae.Operation,
			"attempts":  strconv.Itoa(ae.Attempts),
		}).
		WithCause(err)
}
