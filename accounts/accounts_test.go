package accounts_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tess/backoffice/accounts"
	"github.com/tess/backoffice/records"
	"github.com/tess/backoffice/records/memory"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) (*accounts.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	seq := 0
	svc := &accounts.Service{
		Store: store,
		Cost:  bcrypt.MinCost,
		Now:   func() time.Time { return time.Date(2026, time.October, 18, 8, 0, 0, 0, time.UTC) },
		NewID: func(prefix string) string {
			seq++
			return fmt.Sprintf("%s-%d", prefix, seq)
		},
	}
	return svc, store
}

func signUp(t *testing.T, svc *accounts.Service, username string) records.User {
	t.Helper()
	u, err := svc.SignUp(context.Background(), accounts.SignUpInput{
		Username:        username,
		Password:        "frozen-goods",
		ConfirmPassword: "frozen-goods",
	})
	require.NoError(t, err)
	return u
}

func TestSeed_CreatesDefaultAdminsOnce(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, ""))
	require.NoError(t, svc.Seed(ctx, ""))

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	admin, err := svc.Authenticate(ctx, "admin", "admin", records.RoleAdmin)
	require.NoError(t, err)
	assert.NotEqual(t, "admin", admin.PasswordHash, "password must be hashed")
}

func TestSeed_ConfiguredPassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Seed(ctx, "s3cret-pass"))

	_, err := svc.Authenticate(ctx, "admin1", "admin1", records.RoleAdmin)
	assert.ErrorIs(t, err, records.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "admin1", "s3cret-pass", records.RoleAdmin)
	assert.NoError(t, err)
}

func TestSignUp_CreatesUserAndEmployee(t *testing.T) {
	// GIVEN: an empty system
	// WHEN: someone signs up
	// THEN: an employee account and a matching employee record exist
	svc, _ := newService(t)
	ctx := context.Background()

	user := signUp(t, svc, "maria")

	assert.Equal(t, records.RoleEmployee, user.Role)
	assert.Equal(t, "maria", user.Name)
	emp, err := svc.Employee(ctx, records.EmployeeID(user.ID))
	require.NoError(t, err)
	assert.Equal(t, accounts.DefaultPosition, emp.Position)
	assert.Equal(t, records.PaymentCash, emp.PaymentMethod)
	assert.True(t, emp.BaseSalary.IsZero())

	_, err = svc.Authenticate(ctx, "maria", "frozen-goods", records.RoleEmployee)
	assert.NoError(t, err)
}

func TestSignUp_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input accounts.SignUpInput
		field string
	}{
		{"missing username", accounts.SignUpInput{Password: "longenough", ConfirmPassword: "longenough"}, "username"},
		{"short password", accounts.SignUpInput{Username: "jose", Password: "short", ConfirmPassword: "short"}, "password"},
		{"mismatch", accounts.SignUpInput{Username: "jose", Password: "longenough", ConfirmPassword: "longenougH"}, "confirmPassword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tt.input)

			var verrs records.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestSignUp_DuplicateUsername(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	signUp(t, svc, "maria")

	_, err := svc.SignUp(ctx, accounts.SignUpInput{Username: "Maria", Password: "another-one", ConfirmPassword: "another-one"})

	assert.ErrorIs(t, err, records.ErrConflict)
	employees, err := svc.Employees(ctx)
	require.NoError(t, err)
	assert.Len(t, employees, 1)
}

func TestCreateAdmin_DuplicateRejected(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Seed(ctx, ""))

	_, err := svc.CreateAdmin(ctx, accounts.AdminInput{Username: "admin", Password: "password1", ConfirmPassword: "password1"})
	assert.ErrorIs(t, err, records.ErrConflict)

	created, err := svc.CreateAdmin(ctx, accounts.AdminInput{Username: "tess", Name: "Tess", Password: "password1", ConfirmPassword: "password1"})
	require.NoError(t, err)
	assert.Equal(t, records.RoleAdmin, created.Role)

	employees, err := svc.Employees(ctx)
	require.NoError(t, err)
	assert.Empty(t, employees, "admins are not employees")
}

func TestAuthenticate_Errors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	signUp(t, svc, "maria")

	_, err := svc.Authenticate(ctx, "nobody", "whatever", records.RoleEmployee)
	assert.ErrorIs(t, err, records.ErrUnknownUser)

	_, err = svc.Authenticate(ctx, "maria", "wrong-password", records.RoleEmployee)
	assert.ErrorIs(t, err, records.ErrInvalidCredentials)

	// right password, wrong portal
	_, err = svc.Authenticate(ctx, "maria", "frozen-goods", records.RoleAdmin)
	assert.ErrorIs(t, err, records.ErrUnknownUser)
}

func TestEmployees_DerivedFromUsers(t *testing.T) {
	// GIVEN: employee users stored without any employee records
	// WHEN: employees are listed
	// THEN: one employee per employee-role user is derived with the defaults
	svc, store := newService(t)
	ctx := context.Background()
	_, err := records.Users.Save(ctx, store, []records.User{
		{ID: "u1", Username: "maria", PasswordHash: "x", Role: records.RoleEmployee, Name: "Maria Santos"},
		{ID: "u2", Username: "jose", PasswordHash: "x", Role: records.RoleEmployee},
		{ID: "u3", Username: "admin", PasswordHash: "x", Role: records.RoleAdmin},
	}, 0)
	require.NoError(t, err)

	employees, err := svc.Employees(ctx)

	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "Maria Santos", employees[0].Name)
	assert.Equal(t, "jose", employees[1].Name)
	assert.True(t, employees[1].ProductionRate.Equal(records.Pesos(accounts.DefaultProductionRate)))

	// a later sign-up keeps the derived employees
	signUp(t, svc, "ana")
	employees, err = svc.Employees(ctx)
	require.NoError(t, err)
	assert.Len(t, employees, 3)
}

func TestUpdateEmployee(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user := signUp(t, svc, "maria")

	base, rate := records.Pesos(3000), records.Pesos(18)
	emp, err := svc.UpdateEmployee(ctx, records.EmployeeID(user.ID), accounts.EmployeeUpdate{
		Position:       "Line Lead",
		BaseSalary:     &base,
		PaymentMethod:  records.PaymentOnline,
		ProductionRate: &rate,
	})

	require.NoError(t, err)
	assert.Equal(t, "Line Lead", emp.Position)
	assert.Equal(t, "maria", emp.Name)
	stored, err := svc.Employee(ctx, emp.ID)
	require.NoError(t, err)
	assert.True(t, stored.BaseSalary.Equal(records.Pesos(3000)))
	assert.Equal(t, records.PaymentOnline, stored.PaymentMethod)

	_, err = svc.UpdateEmployee(ctx, "missing", accounts.EmployeeUpdate{})
	assert.True(t, records.IsNotFound(err))

	negative := records.Pesos(-1)
	_, err = svc.UpdateEmployee(ctx, emp.ID, accounts.EmployeeUpdate{BaseSalary: &negative})
	assert.ErrorIs(t, err, records.ErrValidation)
}

func TestUpdateEmployee_PartialKeepsPay(t *testing.T) {
	// GIVEN: an employee with a base salary and production rate
	// WHEN: only the name and payment method are updated
	// THEN: base salary and production rate are unchanged
	svc, _ := newService(t)
	ctx := context.Background()
	user := signUp(t, svc, "maria")
	base, rate := records.Pesos(3000), records.MustMoney("17.5")
	_, err := svc.UpdateEmployee(ctx, records.EmployeeID(user.ID), accounts.EmployeeUpdate{BaseSalary: &base, ProductionRate: &rate})
	require.NoError(t, err)

	emp, err := svc.UpdateEmployee(ctx, records.EmployeeID(user.ID), accounts.EmployeeUpdate{
		Name:          "Maria Santos",
		PaymentMethod: records.PaymentOnline,
	})

	require.NoError(t, err)
	assert.Equal(t, "Maria Santos", emp.Name)
	assert.True(t, emp.BaseSalary.Equal(base))
	assert.True(t, emp.ProductionRate.Equal(rate))
	stored, err := svc.Employee(ctx, emp.ID)
	require.NoError(t, err)
	assert.True(t, stored.BaseSalary.Equal(base))
	assert.True(t, stored.ProductionRate.Equal(rate))
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Seed(ctx, ""))
	maria := signUp(t, svc, "maria")

	require.NoError(t, svc.DeleteUser(ctx, maria.ID))
	_, err := svc.Employee(ctx, records.EmployeeID(maria.ID))
	assert.True(t, records.IsNotFound(err))

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.NoError(t, svc.DeleteUser(ctx, users[0].ID))

	err = svc.DeleteUser(ctx, users[1].ID)
	assert.ErrorIs(t, err, records.ErrValidation, "last admin stays")
}

func TestChangePassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	maria := signUp(t, svc, "maria")

	err := svc.ChangePassword(ctx, maria.ID, "not-it", "brand-new-pass")
	assert.ErrorIs(t, err, records.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, maria.ID, "frozen-goods", "brand-new-pass"))
	_, err = svc.Authenticate(ctx, "maria", "brand-new-pass", records.RoleEmployee)
	assert.NoError(t, err)
}
