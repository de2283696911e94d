package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Eblazecode/Agrolinkernew/internal/auth"
	"github.com/Eblazecode/Agrolinkernew/internal/state"
)

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func sessionID(r *http.Request) string {
	sid, _ := auth.SessionFrom(r.Context())
	return sid
}

// current loads the caller's committed state, writing the error response
// when the session is gone.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (state.State, bool) {
	st, err := h.store.State(sessionID(r))
	if err != nil {
		writeError(w, err)
		return state.State{}, false
	}
	return st, true
}

// apply dispatches in for the caller's session and writes the error
// response on rejection.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request, in state.Intent) (state.State, bool) {
	st, _, err := h.store.Dispatch(r.Context(), sessionID(r), in)
	if err != nil {
		writeError(w, err)
		return state.State{}, false
	}
	return st, true
}

// decodeAndApply decodes the body into in and dispatches it.
func decodeAndApply[T state.Intent](h *Handler, w http.ResponseWriter, r *http.Request) (state.State, T, bool) {
	var in T
	if err := decode(r, &in); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return state.State{}, in, false
	}
	st, ok := h.apply(w, r, in)
	return st, in, ok
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func last[T any](s []T) T {
	return s[len(s)-1]
}
