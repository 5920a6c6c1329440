/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication that are not already
  domain inputs. Domain input types (inventory.ItemInput, sales.CheckoutInput,
  payroll.ProductionInput, payroll.Adjustments, accounts.SignUpInput, ...)
  are decoded directly and validated by their services.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/tess/backoffice/payroll"
	"github.com/tess/backoffice/records"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Username string       `json:"username"`
	Password string       `json:"password"`
	Role     records.Role `json:"role"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UserDTO is a user without credentials.
type UserDTO struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	Name      string       `json:"name"`
	Role      records.Role `json:"role"`
	CreatedAt time.Time    `json:"createdAt"`
}

func toUserDTO(u records.User) UserDTO {
	return UserDTO{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserDTO   `json:"user"`
}

// =============================================================================
// INVENTORY
// =============================================================================

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

// ImportRowError reports one spreadsheet row that could not be imported.
type ImportRowError struct {
	Row   int    `json:"row"`
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

type ImportResponse struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Errors  []ImportRowError `json:"errors"`
}

// =============================================================================
// PAYROLL
// =============================================================================

// GenerateRequest asks for salary generation. Empty EmployeeIDs means every
// employee.
type GenerateRequest struct {
	Period      payroll.Selector `json:"period"`
	EmployeeIDs []string         `json:"employeeIds"`
}

type GenerateResponse struct {
	Run      payroll.Run            `json:"run"`
	Salaries []records.SalaryRecord `json:"salaries"`
}

type AdvancePaymentRequest struct {
	Status records.SalaryStatus `json:"status"`
	Notes  string               `json:"notes"`
}

type SalaryListResponse struct {
	Salaries []records.SalaryRecord `json:"salaries"`
	Totals   payroll.Totals         `json:"totals"`
}

type SchedulerDTO struct {
	Enabled bool          `json:"enabled"`
	Spec    string        `json:"spec"`
	NextRun *time.Time    `json:"nextRun,omitempty"`
	Runs    []payroll.Run `json:"runs"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Details string               `json:"details,omitempty"`
	Fields  []records.FieldError `json:"fields,omitempty"`
}
