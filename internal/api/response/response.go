// Package response writes the JSON envelope every endpoint returns and is the
// single place errors are turned into status codes.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/media"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func OK(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func Created(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

func Fail(w http.ResponseWriter, status int, message string, fields ...domain.FieldError) {
	JSON(w, status, Envelope{Success: false, Message: message, Errors: fields})
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation: http.StatusBadRequest,
	domain.KindAuth:       http.StatusUnauthorized,
	domain.KindForbidden:  http.StatusForbidden,
	domain.KindNotFound:   http.StatusNotFound,
	domain.KindConflict:   http.StatusConflict,
}

// Error translates err into a response. Unknown errors are logged and
// reported as a generic 500 without detail.
func Error(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		status, ok := kindStatus[appErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		Fail(w, status, appErr.Message, appErr.Fields...)
		return
	}

	if errors.Is(err, media.ErrUnavailable) || errors.Is(err, media.ErrNotConfigured) {
		log.WarnContext(r.Context(), "Media host unavailable", map[string]interface{}{"path": r.URL.Path, "error": err.Error()})
		Fail(w, http.StatusServiceUnavailable, "Media service temporarily unavailable")
		return
	}

	log.ErrorContext(r.Context(), "Request failed", map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"error":  err.Error(),
	})
	Fail(w, http.StatusInternalServerError, "Internal server error")
}
