// internal/common/pagerduty/methods.go
package pagerduty

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

type methodRequest struct {
	httpMethod string
	path       string
	body       map[string]interface{}
	resultKey  string
	needsFrom  bool
}

// methodBuilder turns (entity, id, params) into a request. It pops the
// params it consumes; whatever is left is forwarded as query or body.
type methodBuilder func(entity, id string, params Params) (*methodRequest, error)

// anyEntity holds methods every collection supports.
const anyEntity = "*"

var methodTable = map[string]map[string]methodBuilder{
	anyEntity: {
		"update": updateObject,
	},
	"incidents": {
		"acknowledge": incidentStatus("acknowledged"),
		"resolve":     incidentStatus("resolved"),
		"snooze":      snoozeIncident,
		"reassign":    reassignIncident,
		"merge":       mergeIncidents,
		"notes":       listChild("notes"),
		"create_note": createNote,
		"log_entries": listChild("log_entries"),
		"alerts":      listChild("alerts"),
	},
	"users": {
		"contact_methods":    listChild("contact_methods"),
		"notification_rules": listChild("notification_rules"),
	},
	"schedules": {
		"overrides": listChild("overrides"),
		"users":     listChild("users"),
	},
	"services": {
		"integrations": listChild("integrations"),
	},
	"teams": {
		"add_user":    teamMember(http.MethodPut),
		"remove_user": teamMember(http.MethodDelete),
	},
}

// collections is the set of REST collections PagerDuty exposes.
var collections = map[string]bool{
	"abilities":             true,
	"addons":                true,
	"analytics":             true,
	"audit":                 true,
	"business_services":     true,
	"change_events":         true,
	"escalation_policies":   true,
	"event_orchestrations":  true,
	"extension_schemas":     true,
	"extensions":            true,
	"incident_workflows":    true,
	"incidents":             true,
	"log_entries":           true,
	"maintenance_windows":   true,
	"notifications":         true,
	"oncalls":               true,
	"priorities":            true,
	"response_plays":        true,
	"rulesets":              true,
	"schedules":             true,
	"service_dependencies":  true,
	"services":              true,
	"standards":             true,
	"status_dashboards":     true,
	"status_pages":          true,
	"tags":                  true,
	"teams":                 true,
	"templates":             true,
	"users":                 true,
	"vendors":               true,
	"webhook_subscriptions": true,
}

// KnownCollection reports whether entity is a PagerDuty REST collection.
func KnownCollection(entity string) bool {
	return collections[entity]
}

func lookupMethod(entity, method string) (methodBuilder, bool) {
	if m, ok := methodTable[entity][method]; ok {
		return m, true
	}
	m, ok := methodTable[anyEntity][method]
	return m, ok
}

// Methods lists the per-object methods Call supports for entity.
func Methods(entity string) []string {
	seen := map[string]bool{}
	for name := range methodTable[entity] {
		seen[name] = true
	}
	for name := range methodTable[anyEntity] {
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func updateObject(entity, id string, params Params) (*methodRequest, error) {
	data, ok := params.Pop("data")
	if !ok || data == nil {
		return nil, &ArgumentError{Method: "update", Argument: "data"}
	}
	obj, ok := data.(map[string]interface{})
	if !ok {
		return nil, &ArgumentError{Method: "update", Argument: "data", Reason: "must be an object"}
	}
	singular := Singular(entity)
	return &methodRequest{
		httpMethod: http.MethodPut,
		path:       objectPath(entity, id),
		body:       map[string]interface{}{singular: obj},
		resultKey:  singular,
	}, nil
}

func incidentStatus(status string) methodBuilder {
	return func(entity, id string, params Params) (*methodRequest, error) {
		incident := map[string]interface{}{
			"type":   "incident_reference",
			"status": status,
		}
		if status == "resolved" {
			if res, ok := params.PopString("resolution"); ok {
				incident["resolution"] = res
			}
		}
		return &methodRequest{
			httpMethod: http.MethodPut,
			path:       objectPath(entity, id),
			body:       map[string]interface{}{"incident": incident},
			resultKey:  "incident",
			needsFrom:  true,
		}, nil
	}
}

func snoozeIncident(entity, id string, params Params) (*methodRequest, error) {
	raw, ok := params.PopString("duration")
	if !ok {
		return nil, &ArgumentError{Method: "snooze", Argument: "duration"}
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return nil, &ArgumentError{Method: "snooze", Argument: "duration", Reason: "must be a positive number of seconds"}
	}
	return &methodRequest{
		httpMethod: http.MethodPost,
		path:       objectPath(entity, id) + "/snooze",
		body:       map[string]interface{}{"duration": seconds},
		resultKey:  "incident",
		needsFrom:  true,
	}, nil
}

func reassignIncident(entity, id string, params Params) (*methodRequest, error) {
	users := stringList(params, "user_ids")
	if len(users) == 0 {
		return nil, &ArgumentError{Method: "reassign", Argument: "user_ids"}
	}
	assignments := make([]interface{}, 0, len(users))
	for _, u := range users {
		assignments = append(assignments, map[string]interface{}{
			"assignee": map[string]interface{}{"id": u, "type": "user_reference"},
		})
	}
	return &methodRequest{
		httpMethod: http.MethodPut,
		path:       objectPath(entity, id),
		body: map[string]interface{}{
			"incident": map[string]interface{}{
				"type":        "incident_reference",
				"assignments": assignments,
			},
		},
		resultKey: "incident",
		needsFrom: true,
	}, nil
}

func mergeIncidents(entity, id string, params Params) (*methodRequest, error) {
	sources := stringList(params, "source_incidents")
	if len(sources) == 0 {
		return nil, &ArgumentError{Method: "merge", Argument: "source_incidents"}
	}
	refs := make([]interface{}, 0, len(sources))
	for _, s := range sources {
		refs = append(refs, map[string]interface{}{"id": s, "type": "incident_reference"})
	}
	return &methodRequest{
		httpMethod: http.MethodPut,
		path:       objectPath(entity, id) + "/merge",
		body:       map[string]interface{}{"source_incidents": refs},
		resultKey:  "incident",
		needsFrom:  true,
	}, nil
}

func createNote(entity, id string, params Params) (*methodRequest, error) {
	content, ok := params.PopString("content")
	if !ok || content == "" {
		return nil, &ArgumentError{Method: "create_note", Argument: "content"}
	}
	return &methodRequest{
		httpMethod: http.MethodPost,
		path:       objectPath(entity, id) + "/notes",
		body:       map[string]interface{}{"note": map[string]interface{}{"content": content}},
		resultKey:  "note",
		needsFrom:  true,
	}, nil
}

func listChild(child string) methodBuilder {
	return func(entity, id string, params Params) (*methodRequest, error) {
		return &methodRequest{
			httpMethod: http.MethodGet,
			path:       objectPath(entity, id) + "/" + child,
			resultKey:  child,
		}, nil
	}
}

func teamMember(httpMethod string) methodBuilder {
	return func(entity, id string, params Params) (*methodRequest, error) {
		user, ok := params.PopString("user_id")
		if !ok || user == "" {
			return nil, &ArgumentError{Method: "team membership", Argument: "user_id"}
		}
		return &methodRequest{
			httpMethod: httpMethod,
			path:       objectPath(entity, id) + "/users/" + url.PathEscape(user),
		}, nil
	}
}

// stringList pops key and accepts either a single value or a list.
func stringList(params Params, key string) []string {
	v, ok := params.Pop(key)
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item != nil {
				out = append(out, scalarString(item))
			}
		}
		return out
	default:
		return []string{scalarString(t)}
	}
}
