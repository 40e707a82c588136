// internal/workers/incident/pagerduty-action/action.go
package pagerdutyaction

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"pagerduty-workers/internal/common/pagerduty"

	"github.com/mitchellh/mapstructure"
)

// Kind names the routing branch a method string falls into.
type Kind string

const (
	KindFind    Kind = "find"
	KindFetch   Kind = "fetch"
	KindDelete  Kind = "delete"
	KindCreate  Kind = "create"
	KindGeneric Kind = "generic"
)

// KindOf maps a method string to its branch. Matching is case-sensitive.
func KindOf(method string) Kind {
	switch method {
	case "find":
		return KindFind
	case "fetch":
		return KindFetch
	case "delete":
		return KindDelete
	case "create":
		return KindCreate
	default:
		return KindGeneric
	}
}

// Mutating reports whether the branch may change state in PagerDuty.
func (k Kind) Mutating() bool {
	return k != KindFind && k != KindFetch
}

// RequiredFields lists the params that must be present and non-null.
func (k Kind) RequiredFields() []string {
	switch k {
	case KindFind:
		return nil
	case KindCreate:
		return []string{"from_email", "data"}
	default:
		return []string{"entity_id"}
	}
}

// Action is one of FindAction, FetchAction, DeleteAction, CreateAction or
// GenericAction.
type Action interface {
	Kind() Kind
}

type FindAction struct {
	Extra pagerduty.Params
}

type FetchAction struct {
	EntityID string           `mapstructure:"entity_id"`
	Extra    pagerduty.Params `mapstructure:",remain"`
}

type DeleteAction struct {
	EntityID string           `mapstructure:"entity_id"`
	Extra    pagerduty.Params `mapstructure:",remain"`
}

type CreateAction struct {
	FromEmail string           `mapstructure:"from_email"`
	Data      interface{}      `mapstructure:"data"`
	Extra     pagerduty.Params `mapstructure:",remain"`
}

// GenericAction is any per-object method; Method is kept verbatim.
type GenericAction struct {
	Method   string           `mapstructure:"-"`
	EntityID string           `mapstructure:"entity_id"`
	Extra    pagerduty.Params `mapstructure:",remain"`
}

func (FindAction) Kind() Kind    { return KindFind }
func (FetchAction) Kind() Kind   { return KindFetch }
func (DeleteAction) Kind() Kind  { return KindDelete }
func (CreateAction) Kind() Kind  { return KindCreate }
func (GenericAction) Kind() Kind { return KindGeneric }

// MissingFields returns the required params of kind that are absent or null.
func MissingFields(kind Kind, params map[string]interface{}) []string {
	var missing []string
	for _, field := range kind.RequiredFields() {
		if v, ok := params[field]; !ok || v == nil {
			missing = append(missing, field)
		}
	}
	return missing
}

// ParseAction decodes params into the typed action for method. Ids and the
// sender email are coerced to strings; every other key lands in Extra
// untouched. params itself is never modified. Required fields are not
// checked here; see MissingFields.
func ParseAction(method string, params map[string]interface{}) (Action, error) {
	switch KindOf(method) {
	case KindFind:
		return FindAction{Extra: extraOf(params)}, nil
	case KindFetch:
		var a FetchAction
		if err := decodeParams(params, &a); err != nil {
			return nil, err
		}
		a.Extra = nonNil(a.Extra)
		return a, nil
	case KindDelete:
		var a DeleteAction
		if err := decodeParams(params, &a); err != nil {
			return nil, err
		}
		a.Extra = nonNil(a.Extra)
		return a, nil
	case KindCreate:
		var a CreateAction
		if err := decodeParams(params, &a); err != nil {
			return nil, err
		}
		a.Extra = nonNil(a.Extra)
		return a, nil
	default:
		a := GenericAction{Method: method}
		if err := decodeParams(params, &a); err != nil {
			return nil, err
		}
		a.Method = method
		a.Extra = nonNil(a.Extra)
		return a, nil
	}
}

func decodeParams(params map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringifyHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("invalid action parameters: %w", err)
	}
	return nil
}

// stringifyHook coerces any value bound to a string field, so ids and
// emails reach PagerDuty as strings whatever type the process supplied.
func stringifyHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.String || data == nil {
		return data, nil
	}
	return stringValue(data), nil
}

// stringValue renders a parameter value as text. Whole JSON numbers lose
// their fraction, lists and objects are JSON encoded.
func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case json.Number:
		return t.String()
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

func extraOf(params map[string]interface{}) pagerduty.Params {
	return pagerduty.Params(params).Clone()
}

func nonNil(p pagerduty.Params) pagerduty.Params {
	if p == nil {
		return pagerduty.Params{}
	}
	return p
}
