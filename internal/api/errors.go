package api

import (
	"errors"
	"net/http"

	"github.com/Eblazecode/Agrolinkernew/internal/auth"
	"github.com/Eblazecode/Agrolinkernew/internal/state"
	"github.com/Eblazecode/Agrolinkernew/internal/store"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
)

var kindStatus = map[error]int{
	state.ErrInvalidCredentials: http.StatusUnauthorized,
	state.ErrNotAuthenticated:   http.StatusUnauthorized,
	state.ErrValidationFailed:   http.StatusUnprocessableEntity,
	state.ErrBelowMinimum:       http.StatusUnprocessableEntity,
	state.ErrAboveMaximum:       http.StatusUnprocessableEntity,
	state.ErrInsufficientFunds:  http.StatusPaymentRequired,
	state.ErrNotFound:           http.StatusNotFound,
	state.ErrEmptyCart:          http.StatusConflict,
	state.ErrUnavailable:        http.StatusConflict,
	state.ErrInvalidTransition:  http.StatusConflict,
	state.ErrBusy:               http.StatusConflict,
}

// writeError maps err onto the error envelope. Domain rejections carry their
// kind code, offending fields and context.
func writeError(w http.ResponseWriter, err error) {
	var se *state.Error
	if errors.As(err, &se) {
		status, ok := kindStatus[se.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		twincore.JSON(w, status, twincore.ErrorBody{Error: twincore.ErrorDetail{
			Message: se.Error(),
			Type:    http.StatusText(status),
			Code:    status,
			Kind:    se.Code(),
			Fields:  se.Fields,
			Context: se.Context,
		}})
		return
	}
	if errors.Is(err, store.ErrSessionNotFound) {
		writeKind(w, http.StatusUnauthorized, "session_not_found", "session not found; open a new one")
		return
	}
	twincore.Error(w, http.StatusInternalServerError, err.Error())
}

func writeKind(w http.ResponseWriter, status int, kind, message string) {
	twincore.JSON(w, status, twincore.ErrorBody{Error: twincore.ErrorDetail{
		Message: message,
		Type:    http.StatusText(status),
		Code:    status,
		Kind:    kind,
	}})
}

func badRequest(w http.ResponseWriter, message string) {
	writeKind(w, http.StatusBadRequest, "bad_request", message)
}

func (h *Handler) authError(w http.ResponseWriter, r *http.Request, err error) {
	kind := "invalid_token"
	if errors.Is(err, auth.ErrMissingToken) {
		kind = "missing_token"
	}
	h.logger.Debug("rejected token", "path", r.URL.Path, "err", err)
	writeKind(w, http.StatusUnauthorized, kind, err.Error())
}
