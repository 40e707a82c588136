package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

func LoadRegistry(path string) (*ActionRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActionRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes the registry as indented JSON, creating parent directories.
func (r *ActionRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func (r *ActionRegistry) Entity(name string) (*Entity, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Entities {
		if r.Entities[i].Name == name {
			return &r.Entities[i], true
		}
	}
	return nil, false
}

func (r *ActionRegistry) HasEntity(name string) bool {
	_, ok := r.Entity(name)
	return ok
}

// HasMethod reports whether method is registered for entity. Unknown
// entities have no methods.
func (r *ActionRegistry) HasMethod(entity, method string) bool {
	e, ok := r.Entity(entity)
	if !ok {
		return false
	}
	for _, m := range e.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// CreateSchema returns the create payload schema for entity, or nil.
func (r *ActionRegistry) CreateSchema(entity string) map[string]interface{} {
	e, ok := r.Entity(entity)
	if !ok {
		return nil
	}
	return e.CreateSchema
}

// AddMethod registers method on entity, adding the entity when missing.
func (r *ActionRegistry) AddMethod(entity, method string) error {
	if entity == "" || method == "" {
		return fmt.Errorf("entity and method are required")
	}
	if isReserved(method) {
		return fmt.Errorf("method %q is reserved", method)
	}
	if r.HasMethod(entity, method) {
		return fmt.Errorf("method %s already registered on %s", method, entity)
	}

	e, ok := r.Entity(entity)
	if !ok {
		r.Entities = append(r.Entities, Entity{Name: entity})
		e = &r.Entities[len(r.Entities)-1]
	}
	e.Methods = append(e.Methods, method)
	sort.Strings(e.Methods)
	r.Touch()
	return nil
}

func (r *ActionRegistry) Touch() {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
}

// Validate checks names are present and unique, that no reserved method is
// registered and that every create schema compiles.
func (r *ActionRegistry) Validate() error {
	if len(r.Entities) == 0 {
		return fmt.Errorf("registry contains no entities")
	}

	names := make(map[string]bool)
	for _, e := range r.Entities {
		if e.Name == "" {
			return fmt.Errorf("entity missing required field: name")
		}
		if names[e.Name] {
			return fmt.Errorf("duplicate entity: %s", e.Name)
		}
		names[e.Name] = true

		methods := make(map[string]bool)
		for _, m := range e.Methods {
			if m == "" {
				return fmt.Errorf("entity %s has an empty method name", e.Name)
			}
			if isReserved(m) {
				return fmt.Errorf("entity %s registers reserved method %q", e.Name, m)
			}
			if methods[m] {
				return fmt.Errorf("entity %s has duplicate method %s", e.Name, m)
			}
			methods[m] = true
		}

		if e.CreateSchema != nil {
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(e.CreateSchema)); err != nil {
				return fmt.Errorf("entity %s has an invalid create schema: %w", e.Name, err)
			}
		}
	}
	return nil
}

func isReserved(method string) bool {
	for _, m := range ReservedMethods {
		if m == method {
			return true
		}
	}
	return false
}

// DefaultRegistry describes the PagerDuty REST entities the worker ships with.
func DefaultRegistry() *ActionRegistry {
	reg := &ActionRegistry{
		Version: "1.0.0",
		Entities: []Entity{
			{
				Name:        "incidents",
				Description: "Incidents raised on services",
				Methods: []string{
					"acknowledge", "alerts", "create_note", "log_entries", "merge",
					"notes", "reassign", "resolve", "snooze", "update",
				},
				CreateSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"type", "title", "service"},
					"properties": map[string]interface{}{
						"type":  map[string]interface{}{"type": "string", "enum": []interface{}{"incident"}},
						"title": map[string]interface{}{"type": "string", "minLength": 1},
						"service": map[string]interface{}{
							"type":     "object",
							"required": []interface{}{"id", "type"},
							"properties": map[string]interface{}{
								"id":   map[string]interface{}{"type": "string"},
								"type": map[string]interface{}{"type": "string", "enum": []interface{}{"service_reference"}},
							},
						},
						"urgency": map[string]interface{}{"type": "string", "enum": []interface{}{"high", "low"}},
					},
				},
			},
			{
				Name:    "services",
				Methods: []string{"integrations", "update"},
				CreateSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"name", "escalation_policy"},
					"properties": map[string]interface{}{
						"name": map[string]interface{}{"type": "string", "minLength": 1},
						"escalation_policy": map[string]interface{}{
							"type":     "object",
							"required": []interface{}{"id", "type"},
						},
					},
				},
			},
			{Name: "users", Methods: []string{"contact_methods", "notification_rules", "update"}},
			{Name: "schedules", Methods: []string{"overrides", "update", "users"}},
			{Name: "teams", Methods: []string{"add_user", "remove_user", "update"}},
			{Name: "escalation_policies", Methods: []string{"update"}},
			{Name: "maintenance_windows", Methods: []string{"update"}},
			{Name: "priorities", Methods: []string{}},
			{Name: "log_entries", Methods: []string{}},
			{Name: "oncalls", Methods: []string{}},
		},
	}
	reg.Touch()
	return reg
}
