package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"modelcore/internal/status"
	"modelcore/pkg/types"
)

type mockService struct {
	models   []types.ModelStatus
	status   types.StatusResponse
	backends []types.BackendStatus
	ready    bool
	err      error
	block    bool
	loaded   []string
	ops      map[string]types.OperationStatus
}

func (m *mockService) Models() ([]types.ModelStatus, error) { return m.models, m.err }

func (m *mockService) ModelStatus(name string) (types.ModelStatus, error) {
	for _, ms := range m.models {
		if ms.Name == name {
			return ms, nil
		}
	}
	return types.ModelStatus{}, status.Newf(status.NotFound, "model '%s' not found", name)
}

func (m *mockService) Load(ctx context.Context, name string) error {
	if m.block {
		<-ctx.Done()
		return status.Newf(status.Cancelled, "loading model '%s' cancelled: %v", name, ctx.Err())
	}
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, name)
	return nil
}

func (m *mockService) Unload(name string) error                      { return m.err }
func (m *mockService) Reload(ctx context.Context, name string) error { return m.Load(ctx, name) }

func (m *mockService) ReloadAsync(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.ops == nil {
		m.ops = map[string]types.OperationStatus{}
	}
	m.ops["op-1"] = types.OperationStatus{ID: "op-1", Model: name, State: "pending"}
	return "op-1", nil
}

func (m *mockService) Operation(id string) (types.OperationStatus, bool) {
	op, ok := m.ops[id]
	return op, ok
}

func (m *mockService) Backends() []types.BackendStatus { return m.backends }
func (m *mockService) Status() types.StatusResponse    { return m.status }
func (m *mockService) Ready() bool                     { return m.ready }

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealthAndReadiness(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	if rec := serve(t, h, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rec.Code)
	}
	rec := serve(t, h, http.MethodGet, "/readyz")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "not ready") {
		t.Fatalf("readyz status=%d body=%q", rec.Code, rec.Body.String())
	}
	svc.ready = true
	if rec := serve(t, h, http.MethodGet, "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", rec.Code)
	}
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.ModelStatus{{Name: "a", State: "unavailable"}, {Name: "m", State: "ready"}}}
	rec := serve(t, NewMux(svc), http.MethodGet, "/v2/models")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	body := decode[types.ModelsResponse](t, rec)
	if diff := cmp.Diff(svc.models, body.Models); diff != "" {
		t.Fatalf("models (-want +got):\n%s", diff)
	}
}

func TestModelStatusNotFound(t *testing.T) {
	rec := serve(t, NewMux(&mockService{}), http.MethodGet, "/v2/models/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	body := decode[types.ErrorResponse](t, rec)
	if body.Code != http.StatusNotFound || body.Error != "model 'nope' not found" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestLoadReturnsModelStatus(t *testing.T) {
	svc := &mockService{models: []types.ModelStatus{{Name: "m", State: "ready", Generation: 1}}}
	rec := serve(t, NewMux(svc), http.MethodPost, "/v2/models/m/load")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decode[types.ModelStatus](t, rec); got.State != "ready" || got.Generation != 1 {
		t.Fatalf("unexpected body: %+v", got)
	}
	if diff := cmp.Diff([]string{"m"}, svc.loaded); diff != "" {
		t.Fatalf("loaded (-want +got):\n%s", diff)
	}
}

func TestLifecycleErrorMapping(t *testing.T) {
	tests := []struct {
		code status.Code
		want int
	}{
		{status.NotFound, http.StatusNotFound},
		{status.InvalidArgument, http.StatusBadRequest},
		{status.AlreadyExists, http.StatusConflict},
		{status.Unavailable, http.StatusServiceUnavailable},
		{status.Unsupported, http.StatusNotImplemented},
		{status.Cancelled, http.StatusRequestTimeout},
		{status.Internal, http.StatusInternalServerError},
		{status.Unknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		svc := &mockService{err: status.New(tt.code, "boom")}
		h := NewMux(svc)
		for _, action := range []string{"load", "unload", "reload"} {
			rec := serve(t, h, http.MethodPost, "/v2/models/m/"+action)
			if rec.Code != tt.want {
				t.Fatalf("%s with %v: status=%d want %d", action, tt.code, rec.Code, tt.want)
			}
			if body := decode[types.ErrorResponse](t, rec); body.Error != "boom" || body.Code != tt.want {
				t.Fatalf("%s with %v: body=%+v", action, tt.code, body)
			}
		}
	}
}

func TestUnloadOfRemovedModel(t *testing.T) {
	rec := serve(t, NewMux(&mockService{}), http.MethodPost, "/v2/models/gone/unload")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if got := decode[types.ModelStatus](t, rec); got.Name != "gone" || got.State != "unavailable" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestReloadAsyncAndOperation(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	rec := serve(t, h, http.MethodPost, "/v2/models/m/reload?async=1")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status=%d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/v2/operations/op-1" {
		t.Fatalf("location=%q", loc)
	}
	want := types.OperationStatus{ID: "op-1", Model: "m", State: "pending"}
	if diff := cmp.Diff(want, decode[types.OperationStatus](t, rec)); diff != "" {
		t.Fatalf("operation (-want +got):\n%s", diff)
	}
	if rec := serve(t, h, http.MethodGet, "/v2/operations/op-1"); rec.Code != http.StatusOK {
		t.Fatalf("operation status=%d", rec.Code)
	}
	if rec := serve(t, h, http.MethodGet, "/v2/operations/other"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown operation status=%d", rec.Code)
	}
}

func TestLoadTimeout(t *testing.T) {
	SetLoadTimeout(20 * time.Millisecond)
	defer SetLoadTimeout(0)
	rec := serve(t, NewMux(&mockService{block: true}), http.MethodPost, "/v2/models/m/load")
	if rec.Code != http.StatusRequestTimeout {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestLoadCancelledOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	defer SetBaseContext(context.Background())
	cancel()
	rec := serve(t, NewMux(&mockService{block: true}), http.MethodPost, "/v2/models/m/reload")
	if rec.Code != http.StatusRequestTimeout {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestBackendsAndStatus(t *testing.T) {
	svc := &mockService{
		backends: []types.BackendStatus{{Name: "x", References: 2}},
		status:   types.StatusResponse{LoadedCount: 2, LoadsTotal: 3},
	}
	h := NewMux(svc)
	rec := serve(t, h, http.MethodGet, "/v2/backends")
	if diff := cmp.Diff(svc.backends, decode[types.BackendsResponse](t, rec).Backends); diff != "" {
		t.Fatalf("backends (-want +got):\n%s", diff)
	}
	rec = serve(t, h, http.MethodGet, "/status")
	if got := decode[types.StatusResponse](t, rec); got.LoadedCount != 2 || got.LoadsTotal != 3 {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, []string{"GET", "POST", "OPTIONS"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodGet, "/v2/models", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected Access-Control-Allow-Origin to be set")
	}
}

func TestMetricsUseRoutePatterns(t *testing.T) {
	h := NewMux(&mockService{models: []types.ModelStatus{{Name: "m"}}})
	serve(t, h, http.MethodGet, "/v2/models/m")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "modelcore_http_requests_total") {
		t.Fatalf("missing request counter")
	}
	if !strings.Contains(body, `route="/v2/models/{name}"`) {
		t.Fatalf("expected route pattern label in metrics")
	}
	if strings.Contains(body, `route="/v2/models/m"`) {
		t.Fatalf("raw path leaked into metric labels")
	}
}

func TestActionLogsWithZerolog(t *testing.T) {
	prev := logger
	defer func() { logger = prev }()
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	svc := &mockService{err: status.New(status.InvalidArgument, "bad config")}
	serve(t, NewMux(svc), http.MethodPost, "/v2/models/m/load?log=info")
	out := buf.String()
	for _, want := range []string{`"message":"load start"`, `"message":"load end"`, `"status":400`, `"model":"m"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %s: %s", want, out)
		}
	}
}
