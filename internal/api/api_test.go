package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/routetree/internal/routeservice"
	"github.com/starford/routetree/internal/testutil"
)

// testEnv sets up a temp SQLite DB, service, and router for testing.
func testEnv(t *testing.T) (*routeservice.Service, http.Handler) {
	t.Helper()
	svc, _ := testutil.TestService(t)
	return svc, NewRouter(svc, nil)
}

func postRoute(t *testing.T, router http.Handler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/routes", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// seed creates DXB(root) -> JFK(L, 120) -> CDG(L, 40), and DXB -> LHR(R, 80).
func seed(t *testing.T, router http.Handler) {
	t.Helper()
	for _, body := range []map[string]any{
		{"code": "DXB", "position": "ROOT"},
		{"code": "JFK", "parent_id": 1, "position": "L", "duration": 120},
		{"code": "LHR", "parent_id": 1, "position": "right", "duration": 80},
		{"code": "CDG", "parent_id": 2, "position": "left", "duration": 40},
	} {
		if w := postRoute(t, router, body); w.Code != http.StatusCreated {
			t.Fatalf("seed %v: status = %d, body = %s", body["code"], w.Code, w.Body.String())
		}
	}
}

func TestCreateAndGetRoute(t *testing.T) {
	_, router := testEnv(t)

	w := postRoute(t, router, map[string]any{"code": "DXB", "position": "ROOT"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created RouteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID != 1 || created.Code != "DXB" || created.Duration != 0 {
		t.Errorf("created = %+v", created)
	}

	w = get(router, "/routes/1")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got RouteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Label != "DXB (Root) - 0km" {
		t.Errorf("label = %q", got.Label)
	}
	if got.ParentID != nil {
		t.Errorf("root parent = %v", *got.ParentID)
	}
}

func TestCreateRoute_ValidationErrors(t *testing.T) {
	_, router := testEnv(t)
	seed(t, router)

	tests := []struct {
		name string
		body map[string]any
		kind string
	}{
		{"second root", map[string]any{"code": "AUH", "position": "ROOT"}, "DuplicateRoot"},
		{"root with duration", map[string]any{"code": "AUH", "position": "ROOT", "duration": 3}, "RootDurationNonZero"},
		{"root without ROOT", map[string]any{"code": "AUH", "position": "L"}, "RootPositionMismatch"},
		{"child as root", map[string]any{"code": "AUH", "parent_id": 1, "position": "ROOT", "duration": 3}, "NonRootCannotBeRoot"},
		{"zero duration", map[string]any{"code": "AUH", "parent_id": 3, "position": "L", "duration": 0}, "NonPositiveDuration"},
		{"taken slot", map[string]any{"code": "AUH", "parent_id": 1, "position": "L", "duration": 3}, "DuplicateSibling"},
		{"unknown parent", map[string]any{"code": "AUH", "parent_id": 99, "position": "L", "duration": 3}, "DanglingParent"},
		{"bad position", map[string]any{"code": "AUH", "parent_id": 1, "position": "UP", "duration": 3}, "InvalidField"},
		{"missing code", map[string]any{"parent_id": 3, "position": "L", "duration": 3}, "InvalidField"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postRoute(t, router, tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422, body = %s", w.Code, w.Body.String())
			}
			var resp errResponse
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Kind != tt.kind {
				t.Errorf("kind = %q, want %q (%s)", resp.Kind, tt.kind, resp.Error)
			}
			if resp.Error == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestCreateRoute_InvalidJSON(t *testing.T) {
	_, router := testEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/routes", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}
}

func TestCreateRoute_WrongContentType(t *testing.T) {
	_, router := testEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/routes", bytes.NewReader([]byte(`{"code":"DXB"}`)))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("text/plain = %d, want 415", w.Code)
	}
}

func TestListRoutes(t *testing.T) {
	_, router := testEnv(t)
	seed(t, router)

	w := get(router, "/routes")
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp RouteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 4 || len(resp.Routes) != 4 {
		t.Fatalf("total = %d, len = %d, want 4", resp.Total, len(resp.Routes))
	}
	for i, code := range []string{"DXB", "JFK", "LHR", "CDG"} {
		if resp.Routes[i].Code != code {
			t.Errorf("routes[%d] = %q, want %q", i, resp.Routes[i].Code, code)
		}
	}
}

func TestListRoutes_Empty(t *testing.T) {
	_, router := testEnv(t)
	w := get(router, "/routes")
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	routes, ok := resp["routes"].([]any)
	if !ok || len(routes) != 0 {
		t.Errorf("routes = %v, want empty array", resp["routes"])
	}
}

func TestLastReachable(t *testing.T) {
	_, router := testEnv(t)
	seed(t, router)

	w := get(router, "/routes/1/last?direction=left")
	if w.Code != http.StatusOK {
		t.Fatalf("last = %d, body = %s", w.Code, w.Body.String())
	}
	var res Reachability
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Result.Code != "CDG" || res.IsStart {
		t.Errorf("result = %+v", res)
	}

	w = get(router, "/routes/3/last?direction=RIGHT")
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Result.Code != "LHR" || !res.IsStart {
		t.Errorf("leaf result = %+v, want start itself", res)
	}
}

func TestLastReachable_BadInput(t *testing.T) {
	_, router := testEnv(t)
	seed(t, router)

	if w := get(router, "/routes/1/last?direction=up"); w.Code != http.StatusBadRequest {
		t.Errorf("bad direction = %d, want 400", w.Code)
	}
	if w := get(router, "/routes/1/last"); w.Code != http.StatusBadRequest {
		t.Errorf("missing direction = %d, want 400", w.Code)
	}
	if w := get(router, "/routes/abc/last?direction=left"); w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", w.Code)
	}
	if w := get(router, "/routes/42/last?direction=left"); w.Code != http.StatusNotFound {
		t.Errorf("missing start = %d, want 404", w.Code)
	}
}

func TestLongestAndShortest(t *testing.T) {
	_, router := testEnv(t)

	if w := get(router, "/routes/longest"); w.Code != http.StatusNoContent {
		t.Errorf("empty longest = %d, want 204", w.Code)
	}
	if w := get(router, "/routes/shortest"); w.Code != http.StatusNoContent {
		t.Errorf("empty shortest = %d, want 204", w.Code)
	}

	seed(t, router)

	var route RouteDetail
	w := get(router, "/routes/longest")
	_ = json.Unmarshal(w.Body.Bytes(), &route)
	if w.Code != http.StatusOK || route.Code != "JFK" {
		t.Errorf("longest = %d %q, want JFK", w.Code, route.Code)
	}
	w = get(router, "/routes/shortest")
	_ = json.Unmarshal(w.Body.Bytes(), &route)
	if w.Code != http.StatusOK || route.Code != "DXB" {
		t.Errorf("shortest = %d %q, want DXB", w.Code, route.Code)
	}
}

func TestGetRoute_DepthAndChildren(t *testing.T) {
	_, router := testEnv(t)
	seed(t, router)

	var d RouteDetail
	_ = json.Unmarshal(get(router, "/routes/4").Body.Bytes(), &d)
	if d.Depth != 2 {
		t.Errorf("depth = %d, want 2", d.Depth)
	}

	_ = json.Unmarshal(get(router, "/routes/1").Body.Bytes(), &d)
	if d.LeftID == nil || *d.LeftID != 2 || d.RightID == nil || *d.RightID != 3 {
		t.Errorf("children ids = %v, %v", d.LeftID, d.RightID)
	}

	w := get(router, "/routes/1/children")
	var resp ChildrenResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Children) != 2 || resp.Children[0].Code != "JFK" {
		t.Errorf("children = %+v", resp.Children)
	}
}

func TestGetRoute_NotFound(t *testing.T) {
	_, router := testEnv(t)
	if w := get(router, "/routes/9"); w.Code != http.StatusNotFound {
		t.Errorf("missing route = %d, want 404", w.Code)
	}
	if w := get(router, "/routes/9/children"); w.Code != http.StatusNotFound {
		t.Errorf("missing children = %d, want 404", w.Code)
	}
}

func TestDashboard(t *testing.T) {
	_, router := testEnv(t)
	seed(t, router)

	w := get(router, "/dashboard")
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard = %d", w.Code)
	}
	var d Dashboard
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.TotalNodes != 4 || d.TotalDuration != 240 {
		t.Errorf("dashboard = %+v", d)
	}
	if d.Root == nil || d.Root.Code != "DXB" {
		t.Errorf("root = %+v", d.Root)
	}
}

func TestEventsMounted(t *testing.T) {
	svc, _ := testutil.TestService(t)

	// Minimal SSE handler stub: writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		<-r.Context().Done()
	})
	router := NewRouter(svc, sseHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}
