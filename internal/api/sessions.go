package api

import (
	"net/http"
	"time"

	"github.com/Eblazecode/Agrolinkernew/internal/state"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
)

type sessionView struct {
	SessionID     string      `json:"session_id"`
	Authenticated bool        `json:"authenticated"`
	User          *state.User `json:"user"`
	WalletBalance int64       `json:"wallet_balance"`
	CartTotal     int64       `json:"cart_total"`
	CartItemCount int         `json:"cart_item_count"`
	UnreadCount   int         `json:"unread_count"`
}

func viewSession(id string, st state.State) sessionView {
	return sessionView{
		SessionID:     id,
		Authenticated: st.IsAuthenticated(),
		User:          st.User,
		WalletBalance: st.Wallet,
		CartTotal:     st.CartTotal(),
		CartItemCount: st.CartItemCount(),
		UnreadCount:   st.UnreadCount(),
	}
}

type createSessionResponse struct {
	SessionID string      `json:"session_id"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Session   sessionView `json:"session"`
}

// CreateSession handles POST /v1/sessions: an anonymous session and the
// bearer token that addresses it.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.store.Create()
	token, exp, err := h.issuer.Issue(sess.ID)
	if err != nil {
		h.store.Delete(sess.ID)
		writeError(w, err)
		return
	}
	twincore.JSON(w, http.StatusCreated, createSessionResponse{
		SessionID: sess.ID,
		Token:     token,
		ExpiresAt: exp,
		Session:   viewSession(sess.ID, sess.State()),
	})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewSession(sessionID(r), st))
}

// EndSession handles DELETE /v1/session. The token stops working.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if !h.store.Delete(sessionID(r)) {
		writeKind(w, http.StatusUnauthorized, "session_not_found", "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.Login](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewSession(sessionID(r), st))
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.Register](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusCreated, viewSession(sessionID(r), st))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	st, ok := h.apply(w, r, state.Logout{})
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewSession(sessionID(r), st))
}
