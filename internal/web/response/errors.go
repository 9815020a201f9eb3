package response

import (
	"net/http"
)

// Failure is the JSON body of a failure that carries a status code
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// RenderText renders message as a plain-text body with statusCode
func RenderText(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	if message != "" {
		_, _ = w.Write([]byte(message))
	}
}

// RenderFailure renders a coded failure as JSON
func RenderFailure(w http.ResponseWriter, statusCode int, message string) {
	_ = RenderJSON(w, statusCode, &Failure{
		Code:    statusCode,
		Message: message,
		Error:   ErrorCodeFromStatus(statusCode),
	})
}

// RenderInternalError renders a 500 with an empty body. Internal details
// never reach the client.
func RenderInternalError(w http.ResponseWriter) {
	RenderEmpty(w, http.StatusInternalServerError)
}

// ErrorCodeFromStatus maps HTTP status codes to error codes
func ErrorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestTimeout:
		return "request_timeout"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	case http.StatusGatewayTimeout:
		return "gateway_timeout"
	default:
		return "error"
	}
}
