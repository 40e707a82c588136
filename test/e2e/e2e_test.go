// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagerduty-workers/internal/common/config"
	"pagerduty-workers/internal/common/database"
	"pagerduty-workers/internal/common/logger"
	pda "pagerduty-workers/internal/workers/incident/pagerduty-action"
	"pagerduty-workers/pkg/registry"
)

// These tests need the docker-compose Redis and PostgreSQL on localhost.
// PagerDuty itself is replaced by a local fake.
func requireE2E(t *testing.T) {
	if testing.Short() || os.Getenv("E2E_TESTS") != "1" {
		t.Skip("set E2E_TESTS=1 to run against local Redis and PostgreSQL")
	}
}

type fakePagerDuty struct {
	creates int32
}

func (f *fakePagerDuty) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/incidents":
		n := atomic.AddInt32(&f.creates, 1)
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		incident, _ := body["incident"].(map[string]interface{})
		incident["id"] = fmt.Sprintf("PE2E%d", n)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"incident": incident})
	case r.Method == http.MethodGet && r.URL.Path == "/incidents":
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"incidents": []interface{}{map[string]interface{}{"id": "PE2E1"}},
			"more":      false,
		})
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/incidents/"):
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"incident": map[string]interface{}{"id": strings.TrimPrefix(r.URL.Path, "/incidents/"), "status": "acknowledged"},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 2100, "message": "Not Found"},
		})
	}
}

func localConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Postgres: config.PostgresConfig{
				Host:           envOr("E2E_POSTGRES_HOST", "localhost"),
				Port:           5432,
				Database:       envOr("E2E_POSTGRES_DB", "camunda_workers"),
				User:           envOr("E2E_POSTGRES_USER", "postgres"),
				Password:       envOr("E2E_POSTGRES_PASSWORD", "postgres"),
				MaxConnections: 5,
				MaxIdle:        1,
				SSLMode:        "disable",
			},
			Redis: config.RedisConfig{Address: envOr("E2E_REDIS_ADDRESS", "localhost:6379")},
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPagerDutyActionE2E(t *testing.T) {
	requireE2E(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := localConfig()
	log := logger.NewTestLogger(t)

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	defer pg.Close()
	require.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")

	table := fmt.Sprintf("pagerduty_action_audit_e2e_%d", time.Now().UnixNano())
	audit := database.NewAuditStore(pg.DB, table)
	require.NoError(t, audit.EnsureSchema(ctx))
	defer pg.DB.ExecContext(context.Background(), fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, table))

	// --- Redis ---
	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx), "Redis ping failed")

	// --- PagerDuty fake ---
	fake := &fakePagerDuty{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	workerCfg := pda.DefaultConfig()
	workerCfg.APIToken = "e2e-token"
	workerCfg.BaseURL = srv.URL
	workerCfg.IdempotencyEnabled = true
	workerCfg.IdempotencyTTL = time.Minute
	workerCfg.AuditEnabled = true
	workerCfg.AuditTable = table

	handler, err := pda.NewHandler(pda.HandlerOptions{
		CustomConfig: workerCfg,
		Registry:     registry.DefaultRegistry(),
		Redis:        rdb.Client,
		DB:           pg.DB,
		Logger:       log,
	})
	require.NoError(t, err)

	jobKey := time.Now().UnixNano()
	create := &pda.Input{
		JobKey: jobKey,
		Request: pda.Request{Entity: "incidents", Method: "create", Params: map[string]interface{}{
			"from_email": "oncall@example.com",
			"data": map[string]interface{}{
				"type":    "incident",
				"title":   "E2E disk full",
				"service": map[string]interface{}{"id": "PSVC", "type": "service_reference"},
			},
		}},
	}

	t.Run("create then replay", func(t *testing.T) {
		first, err := handler.Execute(ctx, create)
		require.NoError(t, err)
		assert.False(t, first.Replayed)

		second, err := handler.Execute(ctx, create)
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.Result.(map[string]interface{})["id"], second.Result.(map[string]interface{})["id"])
		assert.Equal(t, int32(1), atomic.LoadInt32(&fake.creates))
	})

	t.Run("find", func(t *testing.T) {
		out, err := handler.Execute(ctx, &pda.Input{
			JobKey:  jobKey + 1,
			Request: pda.Request{Entity: "incidents", Method: "find"},
		})
		require.NoError(t, err)
		assert.Len(t, out.Result, 1)
	})

	t.Run("acknowledge", func(t *testing.T) {
		out, err := handler.Execute(ctx, &pda.Input{
			JobKey: jobKey + 2,
			Request: pda.Request{Entity: "incidents", Method: "acknowledge", Params: map[string]interface{}{
				"entity_id":  "PE2E1",
				"from_email": "oncall@example.com",
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, "acknowledged", out.Result.(map[string]interface{})["status"])
	})

	t.Run("not found", func(t *testing.T) {
		_, err := handler.Execute(ctx, &pda.Input{
			JobKey:  jobKey + 3,
			Request: pda.Request{Entity: "incidents", Method: "delete", Params: map[string]interface{}{"entity_id": "NOPE"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PAGERDUTY_NOT_FOUND")
	})

	t.Run("audit trail", func(t *testing.T) {
		var total, failed int
		row := pg.DB.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT success) FROM "%s"`, table))
		require.NoError(t, row.Scan(&total, &failed))
		assert.Equal(t, 3, total)
		assert.Equal(t, 1, failed)
	})
}
