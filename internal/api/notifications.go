package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Eblazecode/Agrolinkernew/internal/state"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
)

type feedView struct {
	Notifications []state.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unread_count"`
}

func viewFeed(st state.State) feedView {
	return feedView{Notifications: orEmpty(st.Notifications), UnreadCount: st.UnreadCount()}
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewFeed(st))
}

func (h *Handler) PushNotification(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.PushNotification](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusCreated, viewFeed(st))
}

// MarkNotificationRead is a no-op for unknown ids.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	st, ok := h.apply(w, r, state.MarkNotificationRead{ID: chi.URLParam(r, "id")})
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewFeed(st))
}

func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	st, ok := h.apply(w, r, state.ClearNotifications{})
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewFeed(st))
}
