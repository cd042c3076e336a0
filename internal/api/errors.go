package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/skillsprint/internal/parser"
	"github.com/dgallion1/skillsprint/internal/pipeline"
	"github.com/dgallion1/skillsprint/internal/review"
	"github.com/dgallion1/skillsprint/internal/store"
	"github.com/dgallion1/skillsprint/internal/validate"
)

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps a domain error onto an HTTP status and the message shown
// to the caller.
func statusFor(err error) (int, string) {
	var (
		ve *validate.Error
		de *parser.DecodeError
	)
	switch {
	case errors.As(err, &ve):
		if ve.TooLarge() {
			return http.StatusRequestEntityTooLarge, ve.Reason
		}
		return http.StatusBadRequest, ve.Reason
	case errors.As(err, &de):
		return http.StatusUnprocessableEntity, de.UserMessage()
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, validate.ReasonUnsupported
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "lesson not found"
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, review.ErrClosed):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timed out"
	}
	return http.StatusInternalServerError, "internal error"
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, msg := statusFor(err)
	if code >= 500 {
		s.log.Error("request failed", "status", code, "error", err)
	}
	jsonError(w, msg, code)
}
