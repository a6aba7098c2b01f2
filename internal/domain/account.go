package domain

import (
	"errors"
	"time"
)

// Role determines what an account may see and do.
type Role string

const (
	RoleAdmin                Role = "admin"
	RoleUser                 Role = "user"
	RoleFinanceOfficer       Role = "finance_officer"
	RoleAccountManager       Role = "account_manager"
	RoleNetworkEngineer      Role = "network_engineer"
	RoleHardwareTechnician   Role = "hardware_technician"
	RoleSoftwareEngineer     Role = "software_engineer"
	RoleCybersecurityAnalyst Role = "cybersecurity_analyst"
	RoleProductManager       Role = "product_manager"
	RoleCustomerSupport      Role = "customer_support"
	RoleOperationsManager    Role = "operations_manager"
)

// StaffRoles lists the specialized roles tickets can be routed to.
var StaffRoles = []Role{
	RoleFinanceOfficer,
	RoleAccountManager,
	RoleNetworkEngineer,
	RoleHardwareTechnician,
	RoleSoftwareEngineer,
	RoleCybersecurityAnalyst,
	RoleProductManager,
	RoleCustomerSupport,
	RoleOperationsManager,
}

// IsStaff reports whether r is one of the specialized staff roles.
func (r Role) IsStaff() bool {
	for _, staff := range StaffRoles {
		if r == staff {
			return true
		}
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser || r.IsStaff()
}

// Account is an authenticated identity: end user, admin or staff.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the required field set of a stored account.
func (a *Account) Validate() error {
	var errs []error
	if a.ID == "" {
		errs = append(errs, errors.New("id required"))
	}
	if a.Email == "" {
		errs = append(errs, errors.New("email required"))
	}
	if !a.Role.Valid() {
		errs = append(errs, errors.New("unknown role "+string(a.Role)))
	}
	return errors.Join(errs...)
}
