package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
	"github.com/Eblazecode/Agrolinkernew/internal/state"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
)

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, map[string]any{"projects": orEmpty(h.catalog.Projects())})
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.catalog.Project(id)
	if !ok {
		notFound(w, "project_id", id)
		return
	}
	twincore.JSON(w, http.StatusOK, p)
}

// ProjectProject quotes ?amount= invested in a farm project for ?years=
// (default 1) at the project's ROI.
func (h *Handler) ProjectProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.catalog.Project(id)
	if !ok {
		notFound(w, "project_id", id)
		return
	}
	amount, ok := queryInt(w, r, "amount", 0)
	if !ok {
		return
	}
	years, ok := queryInt(w, r, "years", 1)
	if !ok {
		return
	}
	if amount <= 0 || years <= 0 {
		badRequest(w, "amount and years must be positive")
		return
	}
	value := state.Project(amount, p.ROI, int(years))
	twincore.JSON(w, http.StatusOK, map[string]any{
		"project_id": p.ID,
		"amount":     amount,
		"roi":        p.ROI,
		"years":      years,
		"value":      value,
		"formatted":  state.FormatNaira(value.Round(0).IntPart()),
	})
}

func (h *Handler) ListTrees(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, map[string]any{"trees": orEmpty(h.catalog.Trees())})
}

func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := h.catalog.Tree(id)
	if !ok {
		notFound(w, "tree_id", id)
		return
	}
	twincore.JSON(w, http.StatusOK, t)
}

// ProjectTree quotes ?amount= at the tree average return over the standard
// horizons. Defaults to the tree's minimum investment.
func (h *Handler) ProjectTree(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := h.catalog.Tree(id)
	if !ok {
		notFound(w, "tree_id", id)
		return
	}
	amount, ok := queryInt(w, r, "amount", t.MinInvestment)
	if !ok {
		return
	}
	if amount <= 0 {
		badRequest(w, "amount must be positive")
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{
		"tree_id":     t.ID,
		"amount":      amount,
		"roi":         state.TreeAverageROI,
		"projections": state.TreeProjections(amount),
	})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.Products()
	if c, ok := h.catalog.(*catalog.Catalog); ok {
		products = c.ProductsByCategory(r.URL.Query().Get("category"))
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"products": orEmpty(products)})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.catalog.Product(id)
	if !ok {
		notFound(w, "product_id", id)
		return
	}
	twincore.JSON(w, http.StatusOK, p)
}

// ListEquipment supports ?available=true.
func (h *Handler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	equipment := h.catalog.Equipment()
	if r.URL.Query().Get("available") == "true" {
		equipment = availableEquipment(h.catalog)
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"equipment": orEmpty(equipment)})
}

func availableEquipment(repo catalog.Repository) []catalog.Equipment {
	if c, ok := repo.(*catalog.Catalog); ok {
		return c.AvailableEquipment()
	}
	var out []catalog.Equipment
	for _, e := range repo.Equipment() {
		if e.Available {
			out = append(out, e)
		}
	}
	return out
}

func (h *Handler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, map[string]any{"facilities": orEmpty(h.catalog.Facilities())})
}

// ListFarmers ranks vetted farmers by ?crop= and ?location= when either is
// given.
func (h *Handler) ListFarmers(w http.ResponseWriter, r *http.Request) {
	farmers := h.catalog.Farmers()
	q := r.URL.Query()
	if crop, loc := q.Get("crop"), q.Get("location"); crop != "" || loc != "" {
		farmers = catalog.MatchFarmers(farmers, crop, loc)
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"farmers": orEmpty(farmers)})
}

func (h *Handler) GetLogisticsOptions(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.catalog.Logistics())
}

func notFound(w http.ResponseWriter, field, id string) {
	writeError(w, state.Reject(state.ErrNotFound, map[string]any{field: id}))
}

// queryInt reads an integer query parameter, writing a 400 when it is
// malformed.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int64) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(w, name+" must be an integer")
		return 0, false
	}
	return n, true
}
