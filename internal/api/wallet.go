package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Eblazecode/Agrolinkernew/internal/state"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
)

type walletView struct {
	Balance   int64  `json:"balance"`
	Formatted string `json:"formatted"`
}

func viewWallet(st state.State) walletView {
	return walletView{Balance: st.Wallet, Formatted: state.FormatNaira(st.Wallet)}
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewWallet(st))
}

func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.Credit](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewWallet(st))
}

func (h *Handler) Debit(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.Debit](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewWallet(st))
}

type investmentResponse struct {
	Investment state.Investment `json:"investment"`
	Wallet     walletView       `json:"wallet"`
}

func (h *Handler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"investments": orEmpty(st.Investments)})
}

type createInvestmentRequest struct {
	Kind      state.InvestmentKind `json:"kind"`
	ProjectID string               `json:"project_id"`
	TreeID    string               `json:"tree_id"`
	Amount    int64                `json:"amount"`
}

// CreateInvestment handles POST /v1/investments for both farm projects and
// tree products. kind defaults to farm_project.
func (h *Handler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req createInvestmentRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	var in state.Intent
	switch req.Kind {
	case "", state.KindFarmProject:
		in = state.InvestInProject{ProjectID: req.ProjectID, Amount: req.Amount}
	case state.KindTree:
		in = state.InvestInTree{TreeID: req.TreeID, Amount: req.Amount}
	default:
		writeError(w, state.Reject(state.ErrValidationFailed, map[string]any{"kind": string(req.Kind)}))
		return
	}
	st, ok := h.apply(w, r, in)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusCreated, investmentResponse{Investment: last(st.Investments), Wallet: viewWallet(st)})
}

func (h *Handler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	inv, found := st.Investment(chi.URLParam(r, "id"))
	if !found {
		writeError(w, state.Reject(state.ErrNotFound, map[string]any{"investment_id": chi.URLParam(r, "id")}))
		return
	}
	twincore.JSON(w, http.StatusOK, inv)
}

func (h *Handler) MatureInvestment(w http.ResponseWriter, r *http.Request) {
	h.investmentTransition(w, r, state.MatureInvestment{ID: chi.URLParam(r, "id")})
}

func (h *Handler) WithdrawInvestment(w http.ResponseWriter, r *http.Request) {
	h.investmentTransition(w, r, state.WithdrawInvestment{ID: chi.URLParam(r, "id")})
}

func (h *Handler) investmentTransition(w http.ResponseWriter, r *http.Request, in state.Intent) {
	st, ok := h.apply(w, r, in)
	if !ok {
		return
	}
	inv, _ := st.Investment(chi.URLParam(r, "id"))
	twincore.JSON(w, http.StatusOK, investmentResponse{Investment: inv, Wallet: viewWallet(st)})
}

func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, st.Portfolio())
}
