package routing

import "github.com/spec-kit/helpdesk-service/internal/domain"

var defaultCategories = []Category{
	{Key: "technical", Name: "Technical Issue", Color: "red"},
	{Key: "billing", Name: "Billing Issue", Color: "yellow"},
	{Key: "account", Name: "Account Issue", Color: "blue"},
	{Key: "network", Name: "Network Issue", Color: "green"},
	{Key: "hardware", Name: "Hardware Issue", Color: "orange"},
	{Key: "software", Name: "Software Issue", Color: "purple"},
	{Key: "security", Name: "Security Concern", Color: "black"},
	{Key: "feature", Name: "Feature Request", Color: "brown"},
	{Key: "service", Name: "Customer Service", Color: "pink"},
	{Key: "other", Name: "Other", Color: "gray"},
}

// "Technical Issue" and "Other" have no owner role.
var defaultRoles = map[string]domain.Role{
	"Billing Issue":    domain.RoleFinanceOfficer,
	"Account Issue":    domain.RoleAccountManager,
	"Network Issue":    domain.RoleNetworkEngineer,
	"Hardware Issue":   domain.RoleHardwareTechnician,
	"Software Issue":   domain.RoleSoftwareEngineer,
	"Security Concern": domain.RoleCybersecurityAnalyst,
	"Feature Request":  domain.RoleProductManager,
	"Customer Service": domain.RoleCustomerSupport,
	"Operations":       domain.RoleOperationsManager,
}

var defaultPriorities = map[domain.Color]domain.Priority{
	"black":  domain.PriorityCritical,
	"red":    domain.PriorityHigh,
	"yellow": domain.PriorityMedium,
	"orange": domain.PriorityMedium,
	"green":  domain.PriorityMedium,
	"purple": domain.PriorityMedium,
	"blue":   domain.PriorityLow,
	"pink":   domain.PriorityLow,
	"brown":  domain.PriorityLow,
	"gray":   domain.PriorityLow,
}

// Default returns the built-in tables.
func Default() *Tables {
	t := &Tables{
		categories: make(map[string]Category, len(defaultCategories)),
		roles:      make(map[string]domain.Role, len(defaultRoles)),
		priorities: make(map[domain.Color]domain.Priority, len(defaultPriorities)),
	}
	for _, c := range defaultCategories {
		t.categories[c.Key] = c
		t.order = append(t.order, c.Key)
	}
	for name, role := range defaultRoles {
		t.roles[name] = role
	}
	for color, p := range defaultPriorities {
		t.priorities[color] = p
	}
	return t
}
