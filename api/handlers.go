/*
handlers.go - HTTP API handlers for the back office

PURPOSE:
  Exposes inventory, point of sale, the production log and payroll over a
  REST API. Handles HTTP request/response and JSON serialization, and
  delegates to the domain services.

ENDPOINTS:
  Auth:
    POST   /api/auth/login                 Login to the admin or employee portal
    POST   /api/auth/signup                Employee self-registration
    GET    /api/auth/me                    Current user
    POST   /api/auth/password              Change own password
    GET    /api/events                     Server-sent collection change events

  Admin portal (/api/admin):
    users, employees, inventory, sales, production, payroll, salaries,
    reports, exports, scheduler, scenarios (see server.go)

  Employee portal (/api/employee):
    dashboard, own production, own salaries, inventory (read only)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: document store (reset for scenarios)
  - One service per domain package, all sharing the Store and clock
  - Tokens: session token issuer
  - Scheduler: payroll generation and its run log
  - Events: in-process change notifications for /api/events

REQUEST FLOW:
  1. Parse HTTP request
  2. Call the domain service (which validates)
  3. Serialize response
  4. Map errors to a status

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, illegal state changes, insufficient stock
  - 401: Missing or bad credentials
  - 403: Wrong portal
  - 404: Record not found
  - 409: Duplicate SKU or username, concurrent modification
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Tokens and portal middleware
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tess/backoffice/accounts"
	"github.com/tess/backoffice/inventory"
	"github.com/tess/backoffice/notify"
	"github.com/tess/backoffice/payroll"
	"github.com/tess/backoffice/records"
	"github.com/tess/backoffice/reports"
	"github.com/tess/backoffice/sales"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the document store the handler serves from.
type Store interface {
	records.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     Store
	Accounts  *accounts.Service
	Inventory *inventory.Service
	Sales     *sales.Service
	Payroll   *payroll.Service
	Reports   *reports.Service
	Scheduler *PayrollScheduler
	Tokens    *Tokens
	Events    *notify.Local

	// Location is the business timezone for periods, days and months.
	Location *time.Location
	Now      func() time.Time
	// AdminPassword re-seeds the default admins after a reset.
	AdminPassword string

	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires every service to store and to the handler's clock.
func NewHandler(store Store, tokens *Tokens, runs payroll.RunLog) *Handler {
	h := &Handler{
		Store:    store,
		Tokens:   tokens,
		Location: time.Local,
		Now:      time.Now,
	}

	h.Accounts = accounts.NewService(store)
	h.Accounts.Now = h.now
	h.Inventory = inventory.NewService(store)
	h.Inventory.Now = h.now
	h.Sales = sales.NewService(store)
	h.Sales.Now = h.now
	h.Payroll = payroll.NewService(store)
	h.Payroll.Now = h.now
	h.Reports = reports.NewService(store)
	h.Scheduler = NewPayrollScheduler(h.Payroll, h.Accounts, runs)
	h.Scheduler.Now = h.now

	return h
}

// now is the current time in the business timezone.
func (h *Handler) now() time.Time {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	if h.Location != nil {
		return now().In(h.Location)
	}
	return now()
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login checks credentials for a portal and returns a session token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = records.RoleEmployee
	}

	user, err := h.Accounts.Authenticate(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		writeServiceError(w, "Login failed", err)
		return
	}
	h.writeSession(w, http.StatusOK, user)
}

// SignUp registers an employee and logs them in.
// POST /api/auth/signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req accounts.SignUpInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Accounts.SignUp(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Sign-up failed", err)
		return
	}
	h.writeSession(w, http.StatusCreated, user)
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, user records.User) {
	token, expires, err := h.Tokens.Issue(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, ExpiresAt: expires, User: toUserDTO(user)})
}

// Me returns the logged-in user.
// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	user, err := h.Accounts.User(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// ChangePassword replaces the logged-in user's password.
// POST /api/auth/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	claims, _ := ClaimsFrom(r.Context())
	if err := h.Accounts.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, "Failed to change password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// USER & EMPLOYEE HANDLERS (admin)
// =============================================================================

// ListUsers returns every account without credentials.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Accounts.Users(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAdmin adds an admin account.
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req accounts.AdminInput
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.Accounts.CreateAdmin(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Failed to create admin", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// DeleteUser removes an account.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if claims, _ := ClaimsFrom(r.Context()); claims != nil && claims.UserID == id {
		writeError(w, http.StatusBadRequest, "Cannot delete your own account", nil)
		return
	}
	if err := h.Accounts.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, "Failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEmployees returns every employee's payroll settings.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Accounts.Employees(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list employees", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(employees))
}

// UpdateEmployee changes an employee's payroll settings.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req accounts.EmployeeUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	emp, err := h.Accounts.UpdateEmployee(r.Context(), records.EmployeeID(chi.URLParam(r, "id")), req)
	if err != nil {
		writeServiceError(w, "Failed to update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// currentEmployee resolves the employee behind an employee-portal token.
func (h *Handler) currentEmployee(r *http.Request) (records.Employee, error) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		return records.Employee{}, records.ErrUnknownUser
	}
	return h.Accounts.Employee(r.Context(), records.EmployeeID(claims.UserID))
}

// MyProfile returns the logged-in employee's payroll settings.
// GET /api/employee/profile
func (h *Handler) MyProfile(w http.ResponseWriter, r *http.Request) {
	emp, err := h.currentEmployee(r)
	if err != nil {
		writeServiceError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// =============================================================================
// CHANGE EVENTS
// =============================================================================

// StreamEvents sends every committed collection change as a server-sent
// event until the client disconnects.
// GET /api/events
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok || h.Events == nil {
		writeError(w, http.StatusNotImplemented, "Event streaming unavailable", nil)
		return
	}

	events, cancel := h.Events.Subscribe()
	defer cancel()

	// The server's write timeout would cut the stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps a domain error to its HTTP status.
func writeServiceError(w http.ResponseWriter, message string, err error) {
	var fields records.ValidationErrors
	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Details: err.Error(), Fields: fields})
	case errors.Is(err, records.ErrUnknownUser), errors.Is(err, records.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, message, err)
	case records.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case records.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case records.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		log.Printf("[API] %s: %v", message, err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// queryDate parses ?key=YYYY-MM-DD in the business timezone, defaulting to
// now.
func (h *Handler) queryDate(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	now := h.now()
	if raw == "" {
		return now, nil
	}
	t, ok := payroll.ParseDate(raw, now.Location())
	if !ok {
		return time.Time{}, records.Invalid(key, "must be a date (YYYY-MM-DD)")
	}
	return t, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, records.Invalid(key, "must be a non-negative integer")
	}
	return n, nil
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
