//go:build integration

package router

// End-to-end tests over the full HTTP stack with real Postgres + Redis via
// testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zerostress/internal/config"
	"zerostress/internal/handler"
	"zerostress/internal/infra"
	"zerostress/internal/model"
	"zerostress/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Setup ────────────────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	rdb    *redis.Client
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("zerostress_test"),
		tcPostgres.WithUsername("zerostress"),
		tcPostgres.WithPassword("zerostress"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                8000,
		Env:                 "test",
		Timezone:            "UTC",
		DatabaseURL:         pgURL,
		RedisURL:            rdURL,
		DataSource:          "local",
		BoardRefreshSeconds: 5,
		WorkerPoolSize:      1,
		ReportStoragePath:   t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	for _, zona := range []string{model.ZonaHombres, model.ZonaMujeres} {
		for n := 1; n <= model.LockersPorZona; n++ {
			llave := model.Llave{ID: fmt.Sprintf("%s%02d", zona[:1], n), Zone: zona, Number: n, Available: true}
			require.NoError(t, db.Create(&llave).Error)
		}
	}

	svcs := NewServices(cfg, db, rdb, nil, worker.NewDispatcher(rdb))
	r := New(cfg, db, rdb, nil, svcs, handler.NewTableroHub())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, rdb: rdb}
}

// ── Tests ────────────────────────────────────────────────────────────────────

// Full day: open the box, hold a locker on an account, charge and close it,
// then reconcile the box against the derived payment.
func TestE2E_DiaCompleto(t *testing.T) {
	env := setupTestEnv(t)
	hoy := time.Now().UTC().Format("2006-01-02")

	resp := do(t, env.server, "POST", "/v1/caja/"+hoy+"/abrir",
		jsonBody(t, map[string]any{"opening_amount": 50, "opened_by": "ana"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", "/v1/caja/"+hoy+"/movimientos",
		jsonBody(t, map[string]any{"type": "Egreso", "amount": 5, "concept": "Hielo", "created_by": "ana"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", "/v1/cuentas",
		jsonBody(t, map[string]any{"cliente": "Ana", "llaves": []string{"3H"}, "abierta_por": "recepcion"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var cuenta struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &cuenta)

	resp = do(t, env.server, "GET", "/v1/llaves/3H", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var llave struct {
		Status     string  `json:"status"`
		AssignedTo *string `json:"assigned_to"`
	}
	decodeJSON(t, resp, &llave)
	assert.Equal(t, "ocupada", llave.Status)
	require.NotNil(t, llave.AssignedTo)
	assert.Equal(t, "Ana", *llave.AssignedTo)

	resp = do(t, env.server, "POST", "/v1/llaves/3H/asignar", jsonBody(t, map[string]any{"cliente": "Beto"}))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", "/v1/cuentas/"+cuenta.ID+"/cargos",
		jsonBody(t, map[string]any{"kind": "Entrance", "concepto": "Entrada", "cantidad": 2, "precio_unitario": 10}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", "/v1/cuentas/"+cuenta.ID+"/cerrar",
		jsonBody(t, map[string]any{"tipo_pago": "Efectivo", "cerrada_por": "caja"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cerrada struct {
		Estado string  `json:"estado"`
		PagoID *string `json:"pago_id"`
	}
	decodeJSON(t, resp, &cerrada)
	assert.Equal(t, "cerrada", cerrada.Estado)
	assert.NotNil(t, cerrada.PagoID)

	resp = do(t, env.server, "GET", "/v1/llaves", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tablero struct {
		Disponibles int `json:"disponibles"`
		Ocupadas    int `json:"ocupadas"`
	}
	decodeJSON(t, resp, &tablero)
	assert.Equal(t, 32, tablero.Disponibles)
	assert.Zero(t, tablero.Ocupadas)

	resp = do(t, env.server, "GET", "/v1/caja/"+hoy+"/resumen", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var resumen struct {
		Moves  []map[string]any `json:"moves"`
		Totals struct {
			Theoretical decimal.Decimal `json:"theoretical"`
		} `json:"totals"`
	}
	decodeJSON(t, resp, &resumen)
	assert.Len(t, resumen.Moves, 2)
	assert.Equal(t, "65.00", resumen.Totals.Theoretical.StringFixed(2))

	resp = do(t, env.server, "POST", "/v1/caja/"+hoy+"/cerrar",
		jsonBody(t, map[string]any{"counted_cash": 64, "closed_by": "ana"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cierre struct {
		Totals struct {
			Diff *decimal.Decimal `json:"diff"`
		} `json:"totals"`
	}
	decodeJSON(t, resp, &cierre)
	require.NotNil(t, cierre.Totals.Diff)
	assert.Equal(t, "-1.00", cierre.Totals.Diff.StringFixed(2))

	queued, err := env.rdb.LLen(context.Background(), worker.QueueCierre).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)

	resp = do(t, env.server, "POST", "/v1/caja/"+hoy+"/movimientos",
		jsonBody(t, map[string]any{"type": "Ingreso", "amount": 1, "created_by": "ana"}))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/v1/caja/"+hoy+"/exportar", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "caja_"+hoy)
	resp.Body.Close()
}

func TestE2E_Errores(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "GET", "/v1/caja/2020-01-01", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body struct {
		Detail string `json:"detail"`
	}
	decodeJSON(t, resp, &body)
	assert.NotEmpty(t, body.Detail)

	resp = do(t, env.server, "POST", "/v1/caja/2020-01-01/cerrar",
		jsonBody(t, map[string]any{"counted_cash": 0, "closed_by": "ana"}))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/v1/llaves/17H", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	decodeJSON(t, resp, &health)
	assert.Equal(t, "disabled", health["remote"])
}
