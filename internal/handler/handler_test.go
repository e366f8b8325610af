package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"netpanel/internal/auth"
	"netpanel/internal/client"
	"netpanel/internal/domain"
	"netpanel/internal/hub"
	"netpanel/internal/metrics"
	"netpanel/internal/repository/sqlite"
	"netpanel/internal/service"
)

const pairsPreset = `
uuid: pairs
name: Pairs
variables:
  spacing: 100
coreFunctions:
  getIntnet: floor(i / 2) + 1
  getPosX: i * spacing
  getPosY: "0"
`

type testServer struct {
	*httptest.Server
	machines *service.MachineService
	presets  *service.PresetService
	metrics  *metrics.Registry
}

func newTestServer(t *testing.T, mgr *auth.Manager) *testServer {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	reg := metrics.NewRegistry()
	bus := service.NewEventBus()
	machines := service.NewMachineService(repo, bus, reg)
	presets := service.NewPresetService(t.TempDir(), machines, bus, reg)

	srv := httptest.NewServer(NewRouter(Deps{
		Network:        service.NewNetworkService(repo, bus, reg),
		Presets:        presets,
		Machines:       machines,
		Auth:           mgr,
		Metrics:        reg,
		AllowedOrigins: []string{"http://localhost:3000"},
	}))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, machines: machines, presets: presets, metrics: reg}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func testManager(t *testing.T) *auth.Manager {
	t.Helper()
	hash := func(pw string) string {
		h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		require.NoError(t, err)
		return string(h)
	}
	mgr, err := auth.NewManager(strings.Repeat("s", 32), 0, []auth.User{
		{Username: "alice", PasswordHash: hash("wonderland"), Permissions: []string{auth.PermissionNetwork}},
		{Username: "bob", PasswordHash: hash("builder")},
	})
	require.NoError(t, err)
	return mgr
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[HealthResponse](t, resp).Status)
}

func TestConfigurationRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	state := `{"nodes":[{"id":"machine-m1","type":"machine","position":{"x":1,"y":2},"data":{"label":"m1"}},
		{"id":"intnet-i1","type":"intnet","position":{"x":5,"y":5},"data":{"label":"intnet 1"}}],
		"viewport":{"x":0,"y":0,"zoom":1}}`
	resp := s.do(t, http.MethodPut, "/network/configuration/panelstate", state)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/network/configuration/intnets", `{"i1":{"uuid":"i1","machines":["m1"]}}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/network/configuration", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cfg := decode[domain.Configuration](t, resp)
	assert.Len(t, cfg.Nodes, 2)
	require.Contains(t, cfg.Intnets, "i1")
	assert.Equal(t, []string{"m1"}, cfg.Intnets["i1"].Machines)

	resp = s.do(t, http.MethodPut, "/network/configuration/intnets", `{"i1":{"uuid":"other"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/network/configuration/panelstate", `{"nodes":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSnapshotRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, http.MethodPost, "/network/snapshot", `{"name":"first","nodes":[],"intnets":{}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[domain.Snapshot](t, resp)
	assert.NotEmpty(t, created.UUID)
	assert.True(t, created.Deletable)

	t.Run("duplicate name", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/network/snapshot", `{"name":"first","nodes":[],"intnets":{}}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.NotEmpty(t, decode[ErrorResponse](t, resp).Error)
	})

	t.Run("invalid name", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/network/snapshot", `{"name":"ab","nodes":[],"intnets":{}}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/network/snapshot/all", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[[]domain.Snapshot](t, resp), 1)
	})

	t.Run("rename", func(t *testing.T) {
		resp := s.do(t, http.MethodPatch, "/network/snapshot/"+created.UUID, `{"name":"Renamed"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Renamed", decode[domain.Snapshot](t, resp).Name)

		resp = s.do(t, http.MethodPatch, "/network/snapshot/"+created.UUID, `{"name":"1bad"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("export", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/network/snapshot/"+created.UUID+"/export?format=yaml", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/x-yaml", resp.Header.Get("Content-Type"))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "Renamed")

		resp = s.do(t, http.MethodGet, "/network/snapshot/"+created.UUID+"/export?format=xml", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("import", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/network/snapshot/import?format=json", `{"name":"imported","nodes":[],"intnets":{}}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "imported", decode[domain.Snapshot](t, resp).Name)
	})

	t.Run("delete", func(t *testing.T) {
		resp := s.do(t, http.MethodDelete, "/network/snapshot/"+created.UUID, "")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = s.do(t, http.MethodGet, "/network/snapshot/"+created.UUID, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("not deletable", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/network/snapshot", `{"name":"locked","deletable":false,"nodes":[],"intnets":{}}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		locked := decode[domain.Snapshot](t, resp)
		assert.False(t, locked.Deletable)

		resp = s.do(t, http.MethodDelete, "/network/snapshot/"+locked.UUID, "")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestMachineRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, http.MethodPut, "/vm/m1/networkdata", `{"group":"desktop","group_member_id":1,"state":"active"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "m1", decode[domain.Machine](t, resp).UUID)

	resp = s.do(t, http.MethodGet, "/vm/all/networkdata", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inventory := decode[map[string]domain.Machine](t, resp)
	require.Contains(t, inventory, "m1")
	assert.Equal(t, "desktop", inventory["m1"].Group)

	resp = s.do(t, http.MethodPut, "/vm/m1/networkdata", `{"uuid":"m2"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/vm/m1/networkdata", `{"state":"exploded"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/vm/inventory/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "m1")

	resp = s.do(t, http.MethodDelete, "/vm/m1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/vm/m1/networkdata", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPresetRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	require.NoError(t, s.machines.Replace(ctx, []domain.Machine{
		{UUID: "m1", Group: "desktop", GroupMemberID: 1},
		{UUID: "m2", Group: "desktop", GroupMemberID: 2},
		{UUID: "s1", Group: "server", GroupMemberID: 1},
	}))
	require.NoError(t, os.WriteFile(filepath.Join(s.presets.Dir(), "pairs.yaml"), []byte(pairsPreset), 0o644))

	resp := s.do(t, http.MethodPost, "/network/preset/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reloaded := decode[ReloadResponse](t, resp)
	require.Len(t, reloaded.Presets, 1)
	assert.Empty(t, reloaded.Error)

	resp = s.do(t, http.MethodGet, "/network/preset/all", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]domain.PresetSummary](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "Pairs", list[0].Name)

	resp = s.do(t, http.MethodGet, "/network/preset/pairs", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/network/preset/pairs/preview", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	preview := decode[PreviewResponse](t, resp)
	assert.Equal(t, 2, preview.MaxNumber)
	assert.Len(t, preview.Intnets, 2)
	assert.Len(t, preview.Edges, 3)

	resp = s.do(t, http.MethodGet, "/network/preset/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t, testManager(t))

	login := func(t *testing.T, username, password string) *http.Response {
		t.Helper()
		form := url.Values{"username": {username}, "password": {password}}
		resp, err := http.Post(s.URL+"/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("missing token", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/network/configuration", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	})

	t.Run("bad password", func(t *testing.T) {
		resp := login(t, "alice", "nope")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("login", func(t *testing.T) {
		resp := login(t, "alice", "wonderland")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		tok := decode[TokenResponse](t, resp)
		assert.Equal(t, "bearer", tok.TokenType)
		require.NotEmpty(t, tok.AccessToken)

		resp = s.do(t, http.MethodGet, "/network/configuration", "", "Authorization", "Bearer "+tok.AccessToken)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = s.do(t, http.MethodGet, "/user", "", "Authorization", "Bearer "+tok.AccessToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "alice", decode[UserResponse](t, resp).Username)
	})

	t.Run("json login", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/token", `{"username":"alice","password":"wonderland"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("without permission", func(t *testing.T) {
		resp := login(t, "bob", "builder")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		tok := decode[TokenResponse](t, resp)

		resp = s.do(t, http.MethodGet, "/vm/all/networkdata", "", "Authorization", "Bearer "+tok.AccessToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/network/snapshot/all", "", "Authorization", "Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("health is public", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	assert.GreaterOrEqual(t, counterValue(t, s.metrics.AuthFailuresTotal), float64(4))
}

func TestEventsRequireAuth(t *testing.T) {
	mgr := testManager(t)
	reg := metrics.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	events := hub.New()
	go events.Run(ctx)

	srv := httptest.NewServer(NewRouter(Deps{Auth: mgr, Events: events, Metrics: reg}))
	t.Cleanup(srv.Close)
	t.Cleanup(cancel)

	user, err := mgr.Authenticate("alice", "wonderland")
	require.NoError(t, err)
	token, err := mgr.IssueToken(user)
	require.NoError(t, err)

	get := func(t *testing.T, path string, headers ...string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		for i := 0; i+1 < len(headers); i += 2 {
			req.Header.Set(headers[i], headers[i+1])
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("no token", func(t *testing.T) {
		resp := get(t, "/events")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, 0, events.ClientCount())
	})

	t.Run("bad query token", func(t *testing.T) {
		resp := get(t, "/events?access_token=not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("query token", func(t *testing.T) {
		resp := get(t, "/events?access_token="+url.QueryEscape(token))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	})

	t.Run("header token", func(t *testing.T) {
		resp := get(t, "/events", "Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestClientAgainstRouter(t *testing.T) {
	s := newTestServer(t, testManager(t))
	ctx := context.Background()

	c := client.New(s.URL)
	require.NoError(t, c.Login(ctx, "alice", "wonderland"))

	created, err := c.CreateSnapshot(ctx, &domain.Snapshot{Name: "client", Deletable: true, Intnets: domain.IntnetConfig{}})
	require.NoError(t, err)

	_, err = c.CreateSnapshot(ctx, &domain.Snapshot{Name: "client", Intnets: domain.IntnetConfig{}})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = c.RenameSnapshot(ctx, created.UUID, "x")
	assert.ErrorIs(t, err, domain.ErrInvalid)

	require.NoError(t, c.DeleteSnapshot(ctx, created.UUID))
	_, err = c.Snapshot(ctx, created.UUID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	unauthenticated := client.New(s.URL)
	_, err = unauthenticated.Configuration(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestMetricsMiddleware(t *testing.T) {
	s := newTestServer(t, nil)

	s.do(t, http.MethodGet, "/healthz", "")
	s.do(t, http.MethodGet, "/network/snapshot/abc", "")

	assert.Equal(t, float64(1), counterValue(t, s.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200")))
	assert.Equal(t, float64(1), counterValue(t, s.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/network/snapshot/{uuid}", "404")))

	resp := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "netpanel_http_requests_total")
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, http.MethodOptions, "/network/configuration", "", "Origin", "http://localhost:3000")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = s.do(t, http.MethodGet, "/healthz", "", "Origin", "http://evil.example")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Recover)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestBodyLimit(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v map[string]string
		if err := decodeJSON(r, &v); err != nil {
			writeServiceError(w, "Invalid request body", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}), BodyLimit(8))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"key":"a long value"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
