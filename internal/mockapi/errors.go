package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sumandas0/entropic-model/pkg/utils"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
}

// DataResponse wraps every successful payload.
type DataResponse struct {
	Data any `json:"data"`
}

// ErrorHandler turns panics into an internal error envelope.
func ErrorHandler(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error().
						Str("method", r.Method).
						Str("path", r.RequestURI).
						Str("panic", fmt.Sprint(err)).
						Bytes("stack", debug.Stack()).
						Msg("handler panicked")
					SendInternalError(w, r, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func SendData(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, DataResponse{Data: data})
}

func SendError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := HTTPErrorFromAppError(err)

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		sendErrorDetail(w, r, statusCode, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	sendErrorDetail(w, r, statusCode, utils.CodeInternal, err.Error(), nil)
}

func SendValidationError(w http.ResponseWriter, r *http.Request, message string, details map[string]any) {
	sendErrorDetail(w, r, http.StatusBadRequest, utils.CodeValidation, message, details)
}

func SendNotFoundError(w http.ResponseWriter, r *http.Request, resource string) {
	sendErrorDetail(w, r, http.StatusNotFound, utils.CodeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

func SendInternalError(w http.ResponseWriter, r *http.Request, message string) {
	sendErrorDetail(w, r, http.StatusInternalServerError, utils.CodeInternal, message, nil)
}

func sendErrorDetail(w http.ResponseWriter, r *http.Request, statusCode int, code, message string, details map[string]any) {
	if len(details) == 0 {
		details = nil
	}
	writeJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC(),
			RequestID: getRequestID(r),
		},
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func getRequestID(r *http.Request) string {
	if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
		return requestID
	}
	return chiMiddleware.GetReqID(r.Context())
}

func HTTPErrorFromAppError(err error) int {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case utils.CodeNotFound:
			return http.StatusNotFound
		case utils.CodeAlreadyExists:
			return http.StatusConflict
		case utils.CodeInvalidInput, utils.CodeValidation:
			return http.StatusBadRequest
		case utils.CodeRateLimited:
			return http.StatusTooManyRequests
		case utils.CodeTransport:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}

	if utils.IsNotFound(err) {
		return http.StatusNotFound
	}
	if utils.IsAlreadyExists(err) {
		return http.StatusConflict
	}
	if utils.IsValidation(err) {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
