package store

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to store errors.
const (
	TextCodeNotFound = "NOT_FOUND"
	TextCodeFailure  = "STORE_FAILURE"
)

// NotFound returns a not found error naming the entity.
func NotFound(entity string) error {
	return goerrors.New(entity+" not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNotFound)
}

// Failure wraps a driver error with the operation that failed.
func Failure(err error, op string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "store: "+op).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeFailure)
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	return err != nil && goerrors.IsCategory(err, goerrors.CategoryNotFound)
}
