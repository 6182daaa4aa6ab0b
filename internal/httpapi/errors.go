package httpapi

import (
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Path      string            `json:"path"`
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func forbidden(msg string) error {
	return goerrors.New(msg, goerrors.CategoryAuthz).
		WithCode(http.StatusForbidden).
		WithTextCode("FORBIDDEN")
}

func unauthenticated() error {
	return goerrors.New("authentication required", goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode("UNAUTHENTICATED")
}

func badRequest(msg string) error {
	return goerrors.New(msg, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode("BAD_REQUEST")
}

func statusFor(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status by its category and writes the error body.
// Internal details of 5xx errors are logged, never returned.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	mapped := goerrors.MapToError(err, nil)

	status := statusFor(mapped.Category)
	if mapped.Code >= 400 && mapped.Code < 600 && mapped.Category != goerrors.CategoryInternal {
		status = mapped.Code
	}

	body := errorBody{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   mapped.Message,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
	}
	if len(mapped.ValidationErrors) > 0 {
		body.Fields = mapped.ValidationMap()
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err),
		)
		body.Message = "internal server error"
	}

	s.metrics.HTTPError(string(mapped.Category))
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+s.realm+`"`)
	}
	writeJSON(w, status, body)
}

func notFound(msg string) error {
	return goerrors.New(msg, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode("NOT_FOUND")
}
