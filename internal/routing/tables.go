// Package routing holds the static rule tables that classify tickets: the
// category registry, the category-to-role router and the color-to-priority
// severity mapping.
package routing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// FallbackKey is the registry key unknown categories resolve to.
const FallbackKey = "other"

// ErrRoutingGap reports a category with no staff role mapped to it.
var ErrRoutingGap = errors.New("no role mapped for category")

// Category is a registry entry.
type Category struct {
	Key   string
	Name  string
	Color domain.Color
}

// Tables bundles the three lookup tables. A zero Tables is not usable; build
// one with Default or Load.
type Tables struct {
	categories map[string]Category
	order      []string
	roles      map[string]domain.Role
	priorities map[domain.Color]domain.Priority
}

// Category resolves a category key. Unknown keys resolve to the fallback entry.
func (t *Tables) Category(key string) Category {
	if c, ok := t.categories[key]; ok {
		return c
	}
	return t.categories[FallbackKey]
}

// Categories returns the registry in declaration order.
func (t *Tables) Categories() []Category {
	out := make([]Category, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.categories[key])
	}
	return out
}

// RoleFor returns the staff role that owns tickets of the given category
// display name. There is no fallback: an unmapped category is an error.
func (t *Tables) RoleFor(categoryName string) (domain.Role, error) {
	role, ok := t.roles[categoryName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrRoutingGap, categoryName)
	}
	return role, nil
}

// PriorityFor maps a severity color to its priority label, or Unknown.
func (t *Tables) PriorityFor(color domain.Color) domain.Priority {
	if p, ok := t.priorities[color]; ok {
		return p
	}
	return domain.PriorityUnknown
}

func (t *Tables) validate() error {
	fallback, ok := t.categories[FallbackKey]
	if !ok {
		return fmt.Errorf("category registry must define %q", FallbackKey)
	}
	if fallback.Name == "" || fallback.Color == "" {
		return fmt.Errorf("category %q must have a name and color", FallbackKey)
	}
	for key, c := range t.categories {
		if c.Name == "" || c.Color == "" {
			return fmt.Errorf("category %q must have a name and color", key)
		}
	}
	for name, role := range t.roles {
		if !role.IsStaff() {
			return fmt.Errorf("category %q routes to %q which is not a staff role", name, role)
		}
	}
	for color, p := range t.priorities {
		switch p {
		case domain.PriorityCritical, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		default:
			return fmt.Errorf("color %q maps to unknown priority %q", color, p)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
