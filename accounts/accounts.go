/*
Package accounts manages login accounts and the employees derived from them.

PURPOSE:
  Two kinds of people use the back office: admins, who run inventory, the
  till and payroll, and employees, who log production and view their pay.
  Every account is a User; every employee-role user also has an Employee
  record carrying payroll settings (base salary, payment method, rate).

KEY RULES:
  - Passwords are stored as bcrypt hashes only
  - Usernames are unique (case-insensitive)
  - Sign-up always creates an employee account; admins are created by admins
  - When no employee records exist yet they are derived from the users with
    the employee role

SEE ALSO:
  - api/auth.go: token issuing and role checks
*/
package accounts

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tess/backoffice/records"
	"golang.org/x/crypto/bcrypt"
)

// Defaults for employee records created at sign-up or derived from users.
const (
	DefaultPosition       = "Production Staff"
	DefaultProductionRate = 15
	MinPasswordLength     = 8
)

// DefaultAdmins are seeded into an empty user collection.
var DefaultAdmins = []string{"admin", "admin1"}

type Service struct {
	Store records.TxStore
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost  int
	Now   func() time.Time
	NewID func(prefix string) string
}

func NewService(store records.TxStore) *Service {
	return &Service{Store: store, Cost: bcrypt.DefaultCost, Now: time.Now, NewID: records.NewID}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) newID(prefix string) string {
	if s.NewID == nil {
		return records.NewID(prefix)
	}
	return s.NewID(prefix)
}

func (s *Service) hash(password string) (string, error) {
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// =============================================================================
// SEED
// =============================================================================

// Seed creates the default admin accounts when no user exists yet. An
// empty password gives each admin its username as password.
func (s *Service) Seed(ctx context.Context, password string) error {
	return records.Users.Update(ctx, s.Store, func(users []records.User) ([]records.User, error) {
		if len(users) > 0 {
			return users, nil
		}
		for _, name := range DefaultAdmins {
			pw := password
			if pw == "" {
				pw = name
			}
			h, err := s.hash(pw)
			if err != nil {
				return nil, err
			}
			users = append(users, records.User{
				ID:           s.newID("user"),
				Username:     name,
				PasswordHash: h,
				Role:         records.RoleAdmin,
				Name:         "Administrator",
				CreatedAt:    s.now(),
			})
		}
		log.Printf("[Accounts] seeded %d default admin account(s)", len(DefaultAdmins))
		return users, nil
	})
}

// =============================================================================
// SIGN-UP & ADMIN CREATION
// =============================================================================

// SignUpInput is a self-registration request.
type SignUpInput struct {
	Username        string `json:"username" validate:"required"`
	Name            string `json:"name"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// SignUp creates an employee account and its employee record together.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (records.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := records.Validate(in); err != nil {
		return records.User{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = in.Username
	}

	user, err := s.newUser(in.Username, name, in.Password, records.RoleEmployee)
	if err != nil {
		return records.User{}, err
	}
	emp := records.Employee{
		ID:             records.EmployeeID(user.ID),
		Name:           name,
		Position:       DefaultPosition,
		BaseSalary:     decimal.Zero,
		PaymentMethod:  records.PaymentCash,
		ProductionRate: decimal.NewFromInt(DefaultProductionRate),
	}

	err = s.Store.WithTx(ctx, func(tx records.Store) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		employees, version, err := records.Employees.Load(ctx, tx)
		if err != nil {
			return err
		}
		if len(employees) == 0 {
			// materialise derived employees before the collection stops being empty
			users, err := records.Users.All(ctx, tx)
			if err != nil {
				return err
			}
			employees = derive(users)
			employees = removeEmployee(employees, emp.ID)
		}
		_, err = records.Employees.Save(ctx, tx, append(employees, emp), version)
		return err
	})
	if err != nil {
		return records.User{}, err
	}

	log.Printf("[Accounts] employee %s signed up", user.Username)
	return user, nil
}

// AdminInput is an admin-created admin account.
type AdminInput struct {
	Username        string `json:"username" validate:"required"`
	Name            string `json:"name"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func (s *Service) CreateAdmin(ctx context.Context, in AdminInput) (records.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := records.Validate(in); err != nil {
		return records.User{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = in.Username
	}

	user, err := s.newUser(in.Username, name, in.Password, records.RoleAdmin)
	if err != nil {
		return records.User{}, err
	}
	if err := insertUser(ctx, s.Store, user); err != nil {
		return records.User{}, err
	}

	log.Printf("[Accounts] admin %s created", user.Username)
	return user, nil
}

func (s *Service) newUser(username, name, password string, role records.Role) (records.User, error) {
	h, err := s.hash(password)
	if err != nil {
		return records.User{}, err
	}
	return records.User{
		ID:           s.newID("user"),
		Username:     username,
		PasswordHash: h,
		Role:         role,
		Name:         name,
		CreatedAt:    s.now(),
	}, nil
}

func insertUser(ctx context.Context, st records.Store, user records.User) error {
	return records.Users.Update(ctx, st, func(users []records.User) ([]records.User, error) {
		for _, u := range users {
			if strings.EqualFold(u.Username, user.Username) {
				return nil, fmt.Errorf("username %q: %w", user.Username, records.ErrConflict)
			}
		}
		return append(users, user), nil
	})
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Authenticate checks a username and password for the given portal role.
// An account with another role is reported as unknown.
func (s *Service) Authenticate(ctx context.Context, username, password string, role records.Role) (records.User, error) {
	users, err := records.Users.All(ctx, s.Store)
	if err != nil {
		return records.User{}, err
	}
	user, _, ok := records.Find(users, func(u records.User) bool {
		return strings.EqualFold(u.Username, strings.TrimSpace(username))
	})
	if !ok || user.Role != role {
		return records.User{}, records.ErrUnknownUser
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return records.User{}, records.ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword replaces a user's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	if len(next) < MinPasswordLength || len(next) > 72 {
		return records.Invalid("password", fmt.Sprintf("must be %d to 72 characters", MinPasswordLength))
	}
	h, err := s.hash(next)
	if err != nil {
		return err
	}
	return records.Users.Update(ctx, s.Store, func(users []records.User) ([]records.User, error) {
		user, i, ok := records.Find(users, func(u records.User) bool { return u.ID == id })
		if !ok {
			return nil, &records.NotFoundError{Kind: "user", ID: id}
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
			return nil, records.ErrInvalidCredentials
		}
		users[i].PasswordHash = h
		return users, nil
	})
}

// =============================================================================
// USERS
// =============================================================================

// Users returns every account ordered by username.
func (s *Service) Users(ctx context.Context) ([]records.User, error) {
	users, err := records.Users.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Service) User(ctx context.Context, id string) (records.User, error) {
	users, err := records.Users.All(ctx, s.Store)
	if err != nil {
		return records.User{}, err
	}
	user, _, ok := records.Find(users, func(u records.User) bool { return u.ID == id })
	if !ok {
		return records.User{}, &records.NotFoundError{Kind: "user", ID: id}
	}
	return user, nil
}

// DeleteUser removes an account and, for employees, its employee record.
// The last admin cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(tx records.Store) error {
		users, version, err := records.Users.Load(ctx, tx)
		if err != nil {
			return err
		}
		user, i, ok := records.Find(users, func(u records.User) bool { return u.ID == id })
		if !ok {
			return &records.NotFoundError{Kind: "user", ID: id}
		}
		if user.Role == records.RoleAdmin && countRole(users, records.RoleAdmin) == 1 {
			return records.Invalid("id", "cannot delete the last admin account")
		}
		users = append(users[:i], users[i+1:]...)
		if _, err := records.Users.Save(ctx, tx, users, version); err != nil {
			return err
		}

		employees, empVersion, err := records.Employees.Load(ctx, tx)
		if err != nil {
			return err
		}
		kept := removeEmployee(employees, records.EmployeeID(id))
		if len(kept) == len(employees) {
			return nil
		}
		_, err = records.Employees.Save(ctx, tx, kept, empVersion)
		return err
	})
}

func countRole(users []records.User, role records.Role) int {
	n := 0
	for _, u := range users {
		if u.Role == role {
			n++
		}
	}
	return n
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// Employees returns the stored employee records, or the records derived
// from employee-role users while none are stored.
func (s *Service) Employees(ctx context.Context) ([]records.Employee, error) {
	employees, err := records.Employees.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	if len(employees) > 0 {
		return employees, nil
	}
	users, err := records.Users.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	return derive(users), nil
}

func (s *Service) Employee(ctx context.Context, id records.EmployeeID) (records.Employee, error) {
	employees, err := s.Employees(ctx)
	if err != nil {
		return records.Employee{}, err
	}
	emp, _, ok := records.Find(employees, func(e records.Employee) bool { return e.ID == id })
	if !ok {
		return records.Employee{}, &records.NotFoundError{Kind: "employee", ID: string(id)}
	}
	return emp, nil
}

// EmployeeUpdate carries the payroll settings an admin may change. Absent
// fields keep their current value.
type EmployeeUpdate struct {
	Name           string                `json:"name"`
	Position       string                `json:"position"`
	BaseSalary     *records.Money        `json:"baseSalary,omitempty" validate:"omitempty,gte=0"`
	PaymentMethod  records.PaymentMethod `json:"paymentMethod" validate:"omitempty,oneof=Cash OnlinePayment"`
	ProductionRate *decimal.Decimal      `json:"productionRate,omitempty" validate:"omitempty,gte=0"`
}

// UpdateEmployee changes an employee's payroll settings. Empty strings and
// nil amounts keep the current value.
func (s *Service) UpdateEmployee(ctx context.Context, id records.EmployeeID, in EmployeeUpdate) (records.Employee, error) {
	if err := records.Validate(in); err != nil {
		return records.Employee{}, err
	}

	var updated records.Employee
	err := s.Store.WithTx(ctx, func(tx records.Store) error {
		employees, version, err := records.Employees.Load(ctx, tx)
		if err != nil {
			return err
		}
		if len(employees) == 0 {
			users, err := records.Users.All(ctx, tx)
			if err != nil {
				return err
			}
			employees = derive(users)
		}

		emp, i, ok := records.Find(employees, func(e records.Employee) bool { return e.ID == id })
		if !ok {
			return &records.NotFoundError{Kind: "employee", ID: string(id)}
		}
		if name := strings.TrimSpace(in.Name); name != "" {
			emp.Name = name
		}
		if pos := strings.TrimSpace(in.Position); pos != "" {
			emp.Position = pos
		}
		if in.PaymentMethod != "" {
			emp.PaymentMethod = in.PaymentMethod
		}
		if in.BaseSalary != nil {
			emp.BaseSalary = *in.BaseSalary
		}
		if in.ProductionRate != nil {
			emp.ProductionRate = *in.ProductionRate
		}
		employees[i] = emp

		if _, err := records.Employees.Save(ctx, tx, employees, version); err != nil {
			return err
		}
		updated = emp
		return nil
	})
	return updated, err
}

func derive(users []records.User) []records.Employee {
	var out []records.Employee
	for _, u := range users {
		if u.Role != records.RoleEmployee {
			continue
		}
		name := u.Name
		if name == "" {
			name = u.Username
		}
		out = append(out, records.Employee{
			ID:             records.EmployeeID(u.ID),
			Name:           name,
			Position:       DefaultPosition,
			BaseSalary:     decimal.Zero,
			PaymentMethod:  records.PaymentCash,
			ProductionRate: decimal.NewFromInt(DefaultProductionRate),
		})
	}
	return out
}

func removeEmployee(employees []records.Employee, id records.EmployeeID) []records.Employee {
	out := employees[:0:0]
	for _, e := range employees {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}
