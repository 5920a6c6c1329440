package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tess/backoffice/inventory"
	"github.com/tess/backoffice/records"
	"github.com/tess/backoffice/reports"
	"github.com/tess/backoffice/sales"
)

// maxImportSize bounds an uploaded inventory workbook.
const maxImportSize = 10 << 20

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// ListInventory returns items filtered by ?q=, ?category= and ?status=.
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Inventory.List(r.Context(), inventory.Filter{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Status:   records.StockStatus(q.Get("status")),
	})
	if err != nil {
		writeServiceError(w, "Failed to list inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req inventory.ItemInput
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.Inventory.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Failed to create item", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Inventory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "Failed to get item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req inventory.ItemInput
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.Inventory.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, "Failed to update item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "Failed to delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RestockItem(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.Inventory.Restock(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeServiceError(w, "Failed to restock item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Inventory.Categories(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(categories))
}

// ListCritical returns low-stock and out-of-stock items.
func (h *Handler) ListCritical(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.Critical(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list critical items", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// ListExpiring returns items expiring within ?days= (default 30).
func (h *Handler) ListExpiring(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", int(inventory.DefaultExpiryWindow/(24*time.Hour)))
	if err != nil {
		writeServiceError(w, "Invalid query", err)
		return
	}
	items, err := h.Inventory.Expiring(r.Context(), h.now(), time.Duration(days)*24*time.Hour)
	if err != nil {
		writeServiceError(w, "Failed to list expiring items", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// ImportInventory upserts items from an XLSX workbook, sent either as the
// raw body or as the "file" field of a multipart form.
// POST /api/admin/inventory/import
func (h *Handler) ImportInventory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Missing file", err)
			return
		}
		defer file.Close()
		body = file
	}

	inputs, err := reports.ReadInventorySheet(body)
	if err != nil {
		writeServiceError(w, "Failed to read workbook", err)
		return
	}

	res, err := h.Inventory.Import(r.Context(), inputs)
	if err != nil {
		writeServiceError(w, "Failed to import inventory", err)
		return
	}

	resp := ImportResponse{Created: res.Created, Updated: res.Updated, Errors: []ImportRowError{}}
	for _, e := range res.Errors {
		// row 1 is the header
		resp.Errors = append(resp.Errors, ImportRowError{Row: e.Index + 2, SKU: e.SKU, Error: e.Err.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// SALES HANDLERS
// =============================================================================

// Checkout sells a cart.
// POST /api/admin/sales
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req sales.CheckoutInput
	if !decodeJSON(w, r, &req) {
		return
	}
	sale, err := h.Sales.Checkout(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Checkout failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

// ListSales returns sales newest first, optionally within ?from=&to= days
// (both inclusive).
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		all, err := h.Sales.List(r.Context())
		if err != nil {
			writeServiceError(w, "Failed to list sales", err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(all))
		return
	}

	from, to, err := h.queryRange(r)
	if err != nil {
		writeServiceError(w, "Invalid query", err)
		return
	}
	found, err := h.Sales.Between(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, "Failed to list sales", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(found))
}

func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Sales.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "Failed to get sale", err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// queryRange turns ?from= and ?to= days into a half-open [from, to+1day)
// range. A missing bound defaults to today.
func (h *Handler) queryRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := h.queryDate(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := h.queryDate(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from = startOfDay(from)
	to = startOfDay(to).AddDate(0, 0, 1)
	if !to.After(from) {
		return time.Time{}, time.Time{}, records.Invalid("to", "must not be before from")
	}
	return from, to, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
