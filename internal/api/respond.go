package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/promoter-service/internal/resilience"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: msg,
	})
}

// writeServiceError renders an operation failure with the status chosen by
// statusFor.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
	}
	var se *resilience.ServiceError
	if errors.As(err, &se) {
		resp.Code = se.Code
		resp.Retryable = se.Retryable
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: operation failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, resp)
}

// statusFor maps an operation error to an HTTP status: invalid input is the
// caller's fault, not found is 404, a transient backend failure is 502 and
// anything else is 500.
func statusFor(err error) int {
	var se *resilience.ServiceError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	if se.Retryable {
		return http.StatusBadGateway
	}
	msg := strings.ToLower(se.Message)
	switch {
	case strings.Contains(msg, "invalid input"):
		return http.StatusBadRequest
	case strings.HasSuffix(msg, "not found") && se.Code == resilience.DefaultErrorCode:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
