// internal/common/pagerduty/query.go
package pagerduty

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params carries the extra arguments of a call. Keys that the client does
// not consume travel to PagerDuty untouched: as query parameters on reads,
// merged into the body on writes.
type Params map[string]interface{}

// Clone returns a shallow copy so callers can pop keys without touching
// the original map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Pop removes key and returns its value.
func (p Params) Pop(key string) (interface{}, bool) {
	v, ok := p[key]
	if ok {
		delete(p, key)
	}
	return v, ok
}

// PopString removes key and returns it formatted as a string.
func (p Params) PopString(key string) (string, bool) {
	v, ok := p.Pop(key)
	if !ok || v == nil {
		return "", false
	}
	return scalarString(v), true
}

// encodeQuery renders params the way PagerDuty expects: list values use
// the key[] form, keys are emitted in sorted order.
func encodeQuery(params Params) url.Values {
	q := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case []interface{}:
			lk := listKey(k)
			for _, item := range v {
				q.Add(lk, scalarString(item))
			}
		case []string:
			lk := listKey(k)
			for _, item := range v {
				q.Add(lk, item)
			}
		default:
			q.Set(k, scalarString(v))
		}
	}
	return q
}

func listKey(k string) string {
	if strings.HasSuffix(k, "[]") {
		return k
	}
	return k + "[]"
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

// Singular turns a collection name into the key PagerDuty wraps single
// objects in: escalation_policies -> escalation_policy, incidents -> incident.
func Singular(entity string) string {
	switch {
	case strings.HasSuffix(entity, "ies"):
		return strings.TrimSuffix(entity, "ies") + "y"
	case strings.HasSuffix(entity, "s"):
		return strings.TrimSuffix(entity, "s")
	default:
		return entity
	}
}
