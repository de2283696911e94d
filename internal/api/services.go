package api

import (
	"net/http"

	"github.com/Eblazecode/Agrolinkernew/internal/state"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
)

// Bookings, logistics, the farm-for-me wizard and funding requests. Each
// successful write answers with the record it created.

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	kind := state.BookingKind(r.URL.Query().Get("kind"))
	bookings := make([]state.Booking, 0, len(st.Bookings))
	for _, b := range st.Bookings {
		if kind == "" || b.Kind == kind {
			bookings = append(bookings, b)
		}
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (h *Handler) BookEquipment(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.BookEquipment](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusCreated, bookingResponse(st))
}

func (h *Handler) BookStorage(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.BookStorage](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusCreated, bookingResponse(st))
}

func bookingResponse(st state.State) map[string]any {
	return map[string]any{"booking": last(st.Bookings), "wallet": viewWallet(st)}
}

func (h *Handler) ListShipments(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"logistics_requests": orEmpty(st.Shipments)})
}

func (h *Handler) RequestLogistics(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.RequestLogistics](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusCreated, last(st.Shipments))
}

type wizardView struct {
	state.Wizard
	CurrentStep int    `json:"current_step"`
	Awaiting    string `json:"awaiting,omitempty"`
}

func viewWizard(wz state.Wizard) wizardView {
	v := wizardView{Wizard: wz, CurrentStep: wz.CurrentStep()}
	if !wz.Completed && v.CurrentStep <= len(state.WizardSteps) {
		v.Awaiting = state.WizardSteps[v.CurrentStep-1]
	}
	return v
}

func (h *Handler) GetWizard(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewWizard(st.Wizard))
}

func (h *Handler) SubmitWizardStep(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.SubmitWizardStep](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewWizard(st.Wizard))
}

func (h *Handler) WizardBack(w http.ResponseWriter, r *http.Request) {
	st, ok := h.apply(w, r, state.WizardBack{})
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewWizard(st.Wizard))
}

func (h *Handler) ResetWizard(w http.ResponseWriter, r *http.Request) {
	st, ok := h.apply(w, r, state.ResetWizard{})
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, viewWizard(st.Wizard))
}

// ConfirmContract signs with one of the wizard's matched farmers and resets
// the wizard.
func (h *Handler) ConfirmContract(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.ConfirmFarmContract](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusCreated, last(st.Contracts))
}

func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"contracts": orEmpty(st.Contracts)})
}

func (h *Handler) ListFundingRequests(w http.ResponseWriter, r *http.Request) {
	st, ok := h.current(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"funding_requests": orEmpty(st.FundingRequests)})
}

func (h *Handler) SubmitFundingRequest(w http.ResponseWriter, r *http.Request) {
	st, _, ok := decodeAndApply[state.SubmitFundingRequest](h, w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusCreated, last(st.FundingRequests))
}
