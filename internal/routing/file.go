package routing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// tablesFile is the on-disk override format. Entries are merged over the
// built-in tables; a role of "" removes a route.
type tablesFile struct {
	Categories []struct {
		Key   string `yaml:"key"`
		Name  string `yaml:"name"`
		Color string `yaml:"color"`
	} `yaml:"categories"`
	Roles      map[string]string `yaml:"roles"`
	Priorities map[string]string `yaml:"priorities"`
}

// Load returns the built-in tables with overrides from path applied. An
// empty path returns Default().
func Load(path string) (*Tables, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing tables: %w", err)
	}
	return Parse(raw)
}

// Parse applies YAML overrides to the built-in tables.
func Parse(raw []byte) (*Tables, error) {
	var file tablesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse routing tables: %w", err)
	}

	t := Default()
	for _, c := range file.Categories {
		if c.Key == "" {
			return nil, fmt.Errorf("routing tables: category without key")
		}
		if _, exists := t.categories[c.Key]; !exists {
			t.order = append(t.order, c.Key)
		}
		t.categories[c.Key] = Category{Key: c.Key, Name: c.Name, Color: domain.Color(c.Color)}
	}
	for _, name := range sortedKeys(file.Roles) {
		role := file.Roles[name]
		if role == "" {
			delete(t.roles, name)
			continue
		}
		t.roles[name] = domain.Role(role)
	}
	for _, color := range sortedKeys(file.Priorities) {
		t.priorities[domain.Color(color)] = domain.Priority(file.Priorities[color])
	}

	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("routing tables: %w", err)
	}
	return t, nil
}
