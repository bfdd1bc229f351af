package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/customer-import/internal/domain"
	"github.com/ignite/customer-import/internal/ingest"
	"github.com/ignite/customer-import/internal/pkg/httputil"
)

// customerRequest is the POST/PATCH body for the CRUD surface.
type customerRequest struct {
	CustomerID    string `json:"customer_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Company       string `json:"company"`
	City          string `json:"city"`
	Country       string `json:"country"`
	Phone1        string `json:"phone1"`
	Phone2        string `json:"phone2"`
	Website       string `json:"website"`
	AboutCustomer string `json:"about_customer"`
}

func (req *customerRequest) toCustomer() domain.Customer {
	return domain.Customer{
		CustomerID:    strings.TrimSpace(req.CustomerID),
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Company:       strings.TrimSpace(req.Company),
		City:          strings.TrimSpace(req.City),
		Country:       strings.TrimSpace(req.Country),
		Phone1:        strings.TrimSpace(req.Phone1),
		Phone2:        strings.TrimSpace(req.Phone2),
		Website:       strings.TrimSpace(req.Website),
		AboutCustomer: strings.TrimSpace(req.AboutCustomer),
	}
}

// HandleListCustomers returns a page of customers.
// GET /api/v1/customers?page&limit
func (h *Handlers) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	params := ParsePagination(r, 50, 200)
	customers, total, err := h.customers.List(r.Context(), params.Limit, params.Offset)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err)
		return
	}
	if customers == nil {
		customers = []domain.Customer{}
	}
	httputil.OK(w, NewPaginatedResponse(customers, params, total))
}

// HandleCreateCustomer inserts a single customer.
// POST /api/v1/customers
func (h *Handlers) HandleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	customer := req.toCustomer()
	if err := customer.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := h.customers.Create(r.Context(), &customer); err != nil {
		if errors.Is(err, ingest.ErrDuplicateCustomer) {
			httputil.Error(w, http.StatusConflict, err.Error())
			return
		}
		respondSafeError(w, http.StatusInternalServerError, err)
		return
	}
	httputil.Created(w, customer)
}

// HandleGetCustomer fetches one customer by source id.
// GET /api/v1/customers/{id}
func (h *Handlers) HandleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	customer, err := h.customers.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ingest.ErrCustomerNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		respondSafeError(w, http.StatusInternalServerError, err)
		return
	}
	httputil.OK(w, customer)
}

// HandlePatchCustomer updates fields of an existing customer. Only fields
// present in the body replace stored values; the customer id itself is
// immutable.
// PATCH /api/v1/customers/{id}
func (h *Handlers) HandlePatchCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.customers.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ingest.ErrCustomerNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		respondSafeError(w, http.StatusInternalServerError, err)
		return
	}

	var patch map[string]any
	if !httputil.Decode(w, r, &patch) {
		return
	}
	applyPatch(existing, patch)

	if err := h.customers.Update(r.Context(), id, existing); err != nil {
		if errors.Is(err, ingest.ErrCustomerNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		respondSafeError(w, http.StatusInternalServerError, err)
		return
	}
	httputil.OK(w, existing)
}

// HandleDeleteCustomer removes a customer row.
// DELETE /api/v1/customers/{id}
func (h *Handlers) HandleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.customers.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ingest.ErrCustomerNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		respondSafeError(w, http.StatusInternalServerError, err)
		return
	}
	httputil.NoContent(w)
}

func applyPatch(c *domain.Customer, patch map[string]any) {
	set := func(key string, dst *string) {
		if v, ok := patch[key].(string); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	set("first_name", &c.FirstName)
	set("last_name", &c.LastName)
	set("company", &c.Company)
	set("city", &c.City)
	set("country", &c.Country)
	set("phone1", &c.Phone1)
	set("phone2", &c.Phone2)
	set("website", &c.Website)
	set("about_customer", &c.AboutCustomer)
	if v, ok := patch["email"].(string); ok {
		c.Email = strings.ToLower(strings.TrimSpace(v))
	}
}
