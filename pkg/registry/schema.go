package registry

// ActionRegistry lists the PagerDuty entities an action may target and the
// per-object methods each one supports.
type ActionRegistry struct {
	Version     string   `json:"version"`
	LastUpdated string   `json:"lastUpdated"`
	Entities    []Entity `json:"entities"`
}

type Entity struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Methods     []string `json:"methods"`
	// CreateSchema is a JSON schema the create payload must satisfy. Nil
	// means any object is accepted.
	CreateSchema map[string]interface{} `json:"createSchema,omitempty"`
}

// ReservedMethods are routed by the dispatcher itself and cannot be
// registered as per-object methods.
var ReservedMethods = []string{"find", "fetch", "delete", "create"}
