package accounts

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to errors returned by the Service.
const (
	TextCodeNotFound         = "NOT_FOUND"
	TextCodeInvalidOperation = "INVALID_OPERATION"
	TextCodeConflict         = "CONFLICT"
	TextCodeValidation       = "VALIDATION_FAILED"
	TextCodeUnauthenticated  = "UNAUTHENTICATED"
)

// NotFound reports a missing account.
func NotFound(id int64) error {
	return goerrors.New(fmt.Sprintf("account %d not found", id), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNotFound)
}

// InvalidOperation reports a request that is well formed but not allowed,
// such as deleting the administrator or referencing a missing department.
func InvalidOperation(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeInvalidOperation)
}

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(TextCodeConflict)
}

// Unauthenticated reports bad credentials. The message never says which
// half was wrong.
func Unauthenticated() error {
	return goerrors.New("invalid username or password", goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(TextCodeUnauthenticated)
}

func validationFailed(err error) error {
	return goerrors.FromOzzoValidation(err, "invalid request").
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeValidation)
}

// IsInvalidOperation reports whether err was produced by InvalidOperation.
func IsInvalidOperation(err error) bool {
	return err != nil && goerrors.IsCategory(err, goerrors.CategoryBadInput)
}
