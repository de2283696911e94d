package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Eblazecode/Agrolinkernew/internal/state"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
)

type cartView struct {
	Items     []state.CartItem `json:"items"`
	Total     int64            `json:"total"`
	ItemCount int              `json:"item_count"`
}

func viewCart(st state.State) cartView {
	return cartView{Items: orEmpty(st.Cart), Total: st.CartTotal(), ItemCount: st.CartItemCount()}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewCart(st))
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.AddToCart](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewCart(st))
}

// UpdateCartItem handles PATCH /v1/cart/items/{productID}. A quantity of
// zero or less removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	st, ok := h.apply(w, r, state.UpdateCartQuantity{ProductID: chi.URLParam(r, "productID"), Quantity: req.Quantity})
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewCart(st))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	st, ok := h.apply(w, r, state.RemoveFromCart{ProductID: chi.URLParam(r, "productID")})
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewCart(st))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	st, ok := h.apply(w, r, state.ClearCart{})
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewCart(st))
}

// Checkout handles POST /v1/cart/checkout. It waits out the simulated
// payment delay before answering; a repeated Idempotency-Key replays the
// first successful answer.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.Checkout](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusCreated, last(st.Orders))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"orders": orEmpty(st.Orders)})
}
