package pagerdutyaction

import (
	"context"
	stderrors "errors"
	"testing"

	"pagerduty-workers/internal/common/errors"
	"pagerduty-workers/internal/common/logger"
	"pagerduty-workers/internal/common/pagerduty"
	"pagerduty-workers/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Find(ctx context.Context, entity string, params pagerduty.Params) ([]map[string]interface{}, error) {
	args := m.Called(ctx, entity, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}

func (m *MockClient) Fetch(ctx context.Context, entity, id string, params pagerduty.Params) (map[string]interface{}, error) {
	args := m.Called(ctx, entity, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockClient) Delete(ctx context.Context, entity, id string, params pagerduty.Params) (map[string]interface{}, error) {
	args := m.Called(ctx, entity, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockClient) Create(ctx context.Context, entity, fromEmail string, payload interface{}, params pagerduty.Params) (map[string]interface{}, error) {
	args := m.Called(ctx, entity, fromEmail, payload, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockClient) Call(ctx context.Context, entity, method, id string, params pagerduty.Params) (interface{}, error) {
	args := m.Called(ctx, entity, method, id, params)
	return args.Get(0), args.Error(1)
}

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) (*Dispatcher, *MockClient) {
	client := &MockClient{}
	t.Cleanup(func() { client.AssertExpectations(t) })
	return NewDispatcher(client, logger.NewTestLogger(t), opts...), client
}

func errorCode(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr), "expected StandardError, got %v", err)
	return stdErr.Code
}

func TestDispatch_FindNeedsNoEntityID(t *testing.T) {
	d, client := newTestDispatcher(t)
	found := []map[string]interface{}{{"id": "P1"}}
	client.On("Find", mock.Anything, "incidents", pagerduty.Params{"statuses": []interface{}{"triggered"}}).
		Return(found, nil)

	res, err := d.Dispatch(context.Background(), "incidents", "find", map[string]interface{}{
		"statuses": []interface{}{"triggered"},
	})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, found, res.Value)
}

func TestDispatch_FindWithoutParams(t *testing.T) {
	d, client := newTestDispatcher(t)
	client.On("Find", mock.Anything, "services", pagerduty.Params{}).Return([]map[string]interface{}{}, nil)

	res, err := d.Dispatch(context.Background(), "services", "find", nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestDispatch_FetchExample(t *testing.T) {
	d, client := newTestDispatcher(t)
	incident := map[string]interface{}{"id": "42", "status": "triggered"}
	client.On("Fetch", mock.Anything, "incidents", "42", pagerduty.Params{}).Return(incident, nil)

	res, err := d.Dispatch(context.Background(), "incidents", "fetch", map[string]interface{}{"entity_id": 42})

	require.NoError(t, err)
	assert.Equal(t, Result{OK: true, Value: incident}, res)
}

func TestDispatch_IDsRequired(t *testing.T) {
	tests := []struct {
		name   string
		method string
		params map[string]interface{}
	}{
		{name: "fetch without entity_id", method: "fetch", params: map[string]interface{}{"include": "teams"}},
		{name: "fetch with null entity_id", method: "fetch", params: map[string]interface{}{"entity_id": nil}},
		{name: "delete without entity_id", method: "delete", params: map[string]interface{}{}},
		{name: "generic without entity_id", method: "acknowledge", params: map[string]interface{}{"from_email": "a@b.com"}},
		{name: "generic with nil params", method: "snooze", params: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher(t)

			_, err := d.Dispatch(context.Background(), "incidents", tt.method, tt.params)

			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeMissingRequiredField, errorCode(t, err))
			var stdErr *errors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, "missing: entity_id", stdErr.Details)
		})
	}
}

func TestDispatch_CreateRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]interface{}
		missing string
	}{
		{name: "no from_email", params: map[string]interface{}{"data": map[string]interface{}{"title": "x"}}, missing: "from_email"},
		{name: "no data", params: map[string]interface{}{"from_email": "a@b.com"}, missing: "data"},
		{name: "null data", params: map[string]interface{}{"from_email": "a@b.com", "data": nil}, missing: "data"},
		{name: "nothing", params: map[string]interface{}{}, missing: "from_email, data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher(t)

			_, err := d.Dispatch(context.Background(), "incidents", "create", tt.params)

			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeMissingRequiredField, errorCode(t, err))
			var stdErr *errors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Contains(t, stdErr.Details, tt.missing)
		})
	}
}

func TestDispatch_CreateForwardsPayload(t *testing.T) {
	d, client := newTestDispatcher(t)
	data := map[string]interface{}{"type": "incident", "title": "Disk full"}
	created := map[string]interface{}{"id": "PNEW"}
	client.On("Create", mock.Anything, "incidents", "a@b.com", data, pagerduty.Params{}).Return(created, nil)

	res, err := d.Dispatch(context.Background(), "incidents", "create", map[string]interface{}{
		"from_email": "a@b.com",
		"data":       data,
	})

	require.NoError(t, err)
	assert.Equal(t, Result{OK: true, Value: created}, res)
}

func TestDispatch_CreateKeepsExtraParams(t *testing.T) {
	d, client := newTestDispatcher(t)
	client.On("Create", mock.Anything, "incidents", "123", "raw", pagerduty.Params{"priority": "P1"}).
		Return(map[string]interface{}{}, nil)

	_, err := d.Dispatch(context.Background(), "incidents", "create", map[string]interface{}{
		"from_email": 123,
		"data":       "raw",
		"priority":   "P1",
	})
	require.NoError(t, err)
}

func TestDispatch_GenericKeepsMethodVerbatim(t *testing.T) {
	d, client := newTestDispatcher(t)
	client.On("Call", mock.Anything, "incidents", "Snooze_Later", "P1", pagerduty.Params{"duration": 60.0}).
		Return("ok", nil)

	res, err := d.Dispatch(context.Background(), "incidents", "Snooze_Later", map[string]interface{}{
		"entity_id": "P1",
		"duration":  60.0,
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
}

func TestDispatch_MethodMatchIsCaseSensitive(t *testing.T) {
	d, client := newTestDispatcher(t)
	client.On("Call", mock.Anything, "incidents", "Fetch", "P1", pagerduty.Params{}).Return(nil, nil)

	_, err := d.Dispatch(context.Background(), "incidents", "Fetch", map[string]interface{}{"entity_id": "P1"})
	require.NoError(t, err)
}

func TestDispatch_CoercesIDsToStrings(t *testing.T) {
	tests := []struct {
		name string
		id   interface{}
		want string
	}{
		{name: "int", id: 12345, want: "12345"},
		{name: "int64", id: int64(9007199254740993), want: "9007199254740993"},
		{name: "json number", id: 42.0, want: "42"},
		{name: "fractional", id: 1.5, want: "1.5"},
		{name: "string", id: "PABC123", want: "PABC123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, client := newTestDispatcher(t)
			client.On("Delete", mock.Anything, "services", tt.want, pagerduty.Params{}).
				Return(map[string]interface{}{"id": tt.want, "deleted": true}, nil)

			res, err := d.Dispatch(context.Background(), "services", "delete", map[string]interface{}{"entity_id": tt.id})
			require.NoError(t, err)
			assert.True(t, res.OK)
		})
	}
}

func TestDispatch_NonScalarIDsForwardedAsStrings(t *testing.T) {
	tests := []struct {
		name string
		id   interface{}
		want string
	}{
		{name: "bool", id: true, want: "true"},
		{name: "list", id: []interface{}{"P1", "P2"}, want: `["P1","P2"]`},
		{name: "object", id: map[string]interface{}{"id": "P1"}, want: `{"id":"P1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, client := newTestDispatcher(t)
			client.On("Fetch", mock.Anything, "incidents", tt.want, pagerduty.Params{}).
				Return(map[string]interface{}{"id": tt.want}, nil)

			res, err := d.Dispatch(context.Background(), "incidents", "fetch", map[string]interface{}{"entity_id": tt.id})
			require.NoError(t, err)
			assert.True(t, res.OK)
		})
	}
}

func TestDispatch_CreateCoercesFromEmail(t *testing.T) {
	d, client := newTestDispatcher(t)
	payload := map[string]interface{}{"name": "db"}
	client.On("Create", mock.Anything, "services", `["a@example.com"]`, payload, pagerduty.Params{}).
		Return(map[string]interface{}{"id": "PSVC"}, nil)

	res, err := d.Dispatch(context.Background(), "services", "create", map[string]interface{}{
		"from_email": []interface{}{"a@example.com"},
		"data":       payload,
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestStringValueMatchesDecodedParams(t *testing.T) {
	values := []interface{}{true, 42.0, 1.5, 7, "P1", []interface{}{"P1"}, map[string]interface{}{"id": "P1"}}

	for _, v := range values {
		params := map[string]interface{}{"entity_id": v}
		action, err := ParseAction("fetch", params)
		require.NoError(t, err)
		assert.Equal(t, action.(FetchAction).EntityID, paramString(params, "entity_id"), "%#v", v)
	}
	assert.Equal(t, "", paramString(map[string]interface{}{}, "entity_id"))
}

func TestDispatch_EntityAndMethodRequired(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "", "find", nil)
	assert.Equal(t, errors.ErrCodeMissingRequiredField, errorCode(t, err))

	_, err = d.Dispatch(context.Background(), "incidents", "", nil)
	assert.Equal(t, errors.ErrCodeMissingRequiredField, errorCode(t, err))
}

func TestDispatch_DoesNotMutateParams(t *testing.T) {
	d, client := newTestDispatcher(t)
	client.On("Fetch", mock.Anything, "incidents", "P1", pagerduty.Params{"include": "teams"}).
		Return(map[string]interface{}{}, nil)

	params := map[string]interface{}{"entity_id": "P1", "include": "teams"}
	_, err := d.Dispatch(context.Background(), "incidents", "fetch", params)

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"entity_id": "P1", "include": "teams"}, params)
}

func TestDispatch_ExternalErrorReturnedUnchanged(t *testing.T) {
	d, client := newTestDispatcher(t)
	apiErr := &pagerduty.APIError{StatusCode: 404, Message: "Not Found"}
	client.On("Fetch", mock.Anything, "incidents", "P404", pagerduty.Params{}).Return(nil, apiErr)

	res, err := d.Dispatch(context.Background(), "incidents", "fetch", map[string]interface{}{"entity_id": "P404"})

	require.Error(t, err)
	assert.Same(t, apiErr, err)
	assert.False(t, res.OK)
}

func TestDispatch_RegistryRejectsUnknownMethod(t *testing.T) {
	d, _ := newTestDispatcher(t, WithMethodRegistry(registry.DefaultRegistry()))

	_, err := d.Dispatch(context.Background(), "incidents", "explode", map[string]interface{}{"entity_id": "P1"})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnsupportedMethod, errorCode(t, err))
}

func TestDispatch_RegistryChecksEntityIDFirst(t *testing.T) {
	d, _ := newTestDispatcher(t, WithMethodRegistry(registry.DefaultRegistry()))

	_, err := d.Dispatch(context.Background(), "incidents", "explode", map[string]interface{}{})

	assert.Equal(t, errors.ErrCodeMissingRequiredField, errorCode(t, err))
}

func TestDispatch_RegistryAllowsKnownMethod(t *testing.T) {
	d, client := newTestDispatcher(t, WithMethodRegistry(registry.DefaultRegistry()))
	client.On("Call", mock.Anything, "incidents", "acknowledge", "P1", pagerduty.Params{"from_email": "a@b.com"}).
		Return(map[string]interface{}{"status": "acknowledged"}, nil)

	res, err := d.Dispatch(context.Background(), "incidents", "acknowledge", map[string]interface{}{
		"entity_id":  "P1",
		"from_email": "a@b.com",
	})

	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestDispatch_StrictRegistryRejectsUnknownEntity(t *testing.T) {
	d, _ := newTestDispatcher(t, WithMethodRegistry(registry.DefaultRegistry()), WithStrictEntities())

	_, err := d.Dispatch(context.Background(), "widgets", "find", nil)

	assert.Equal(t, errors.ErrCodeUnknownEntity, errorCode(t, err))
}

func TestDispatch_LenientRegistryAllowsUnknownEntityFind(t *testing.T) {
	d, client := newTestDispatcher(t, WithMethodRegistry(registry.DefaultRegistry()))
	client.On("Find", mock.Anything, "widgets", pagerduty.Params{}).Return([]map[string]interface{}{}, nil)

	_, err := d.Dispatch(context.Background(), "widgets", "find", map[string]interface{}{})
	require.NoError(t, err)
}

func TestDispatch_CreateSchema(t *testing.T) {
	valid := map[string]interface{}{
		"type":    "incident",
		"title":   "Disk full",
		"service": map[string]interface{}{"id": "PS1", "type": "service_reference"},
	}

	t.Run("violation", func(t *testing.T) {
		d, _ := newTestDispatcher(t, WithMethodRegistry(registry.DefaultRegistry()))

		_, err := d.Dispatch(context.Background(), "incidents", "create", map[string]interface{}{
			"from_email": "a@b.com",
			"data":       map[string]interface{}{"title": "Disk full"},
		})

		assert.Equal(t, errors.ErrCodePayloadSchemaViolation, errorCode(t, err))
	})

	t.Run("valid", func(t *testing.T) {
		d, client := newTestDispatcher(t, WithMethodRegistry(registry.DefaultRegistry()))
		client.On("Create", mock.Anything, "incidents", "a@b.com", valid, pagerduty.Params{}).
			Return(map[string]interface{}{"id": "PNEW"}, nil)

		res, err := d.Dispatch(context.Background(), "incidents", "create", map[string]interface{}{
			"from_email": "a@b.com",
			"data":       valid,
		})

		require.NoError(t, err)
		assert.True(t, res.OK)
	})
}

func TestDefaultRegistryMethodsAreCallable(t *testing.T) {
	client := pagerduty.NewClient(pagerduty.ClientConfig{APIToken: "unused"})
	for _, entity := range registry.DefaultRegistry().Entities {
		for _, method := range entity.Methods {
			assert.True(t, client.HasMethod(entity.Name, method), "%s.%s", entity.Name, method)
		}
	}
}

func TestParseAction(t *testing.T) {
	action, err := ParseAction("create", map[string]interface{}{
		"from_email": "a@b.com",
		"data":       map[string]interface{}{"title": "x"},
		"urgency":    "high",
	})
	require.NoError(t, err)

	create, ok := action.(CreateAction)
	require.True(t, ok)
	assert.Equal(t, KindCreate, create.Kind())
	assert.Equal(t, "a@b.com", create.FromEmail)
	assert.Equal(t, pagerduty.Params{"urgency": "high"}, create.Extra)

	action, err = ParseAction("merge", map[string]interface{}{"entity_id": 7})
	require.NoError(t, err)
	generic := action.(GenericAction)
	assert.Equal(t, "merge", generic.Method)
	assert.Equal(t, "7", generic.EntityID)
}

func TestKind(t *testing.T) {
	assert.False(t, KindFind.Mutating())
	assert.False(t, KindFetch.Mutating())
	assert.True(t, KindDelete.Mutating())
	assert.True(t, KindCreate.Mutating())
	assert.True(t, KindGeneric.Mutating())
	assert.Equal(t, KindGeneric, KindOf("FIND"))
}
