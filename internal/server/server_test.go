package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"onboardline/internal/config"
	"onboardline/internal/db"
	"onboardline/internal/domain"
	"onboardline/internal/engine"
	"onboardline/internal/migrate"
)

const testMuni = "2281"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	cfg := config.Default(testMuni)
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth:     AuthConfig{AllowLegacyActorHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if headers["Authorization"] == "" && headers["X-Api-Key"] == "" {
		req.Header.Set("X-Actor-Id", "tester")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestChecklistLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v1/municipalities/" + testMuni

	res, data := doJSON(t, client, http.MethodPost, base+"/organizations", map[string]any{
		"organization_number": 579,
		"organization_name":   "Elementary School",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create organization: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/phases", map[string]any{
		"name": "Before first day",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create phase: %d %s", res.StatusCode, string(data))
	}
	var phase domain.Phase
	if err := json.Unmarshal(data, &phase); err != nil {
		t.Fatalf("unmarshal phase: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/checklists", map[string]any{
		"organization_number": 579,
		"name":                "school-onboarding",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create checklist: %d %s", res.StatusCode, string(data))
	}
	var created domain.Checklist
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal checklist: %v", err)
	}
	if created.LifeCycle != domain.LifeCycleCreated || created.Version != 1 {
		t.Fatalf("unexpected new checklist: %+v", created)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/checklists/"+created.ID+"/tasks", map[string]any{
		"phase_id": phase.ID,
		"heading":  "Order computer",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/checklists/"+created.ID+"/activate", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("activate: %d %s", res.StatusCode, string(data))
	}
	var active domain.Checklist
	_ = json.Unmarshal(data, &active)
	if active.LifeCycle != domain.LifeCycleActive {
		t.Fatalf("expected ACTIVE, got %s", active.LifeCycle)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/checklists/"+created.ID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get checklist: %d %s", res.StatusCode, string(data))
	}
	var fetched domain.Checklist
	if err := json.Unmarshal(data, &fetched); err != nil {
		t.Fatalf("unmarshal fetched: %v", err)
	}
	if len(fetched.Tasks) != 1 {
		t.Fatalf("expected 1 task on fetched checklist, got %d", len(fetched.Tasks))
	}
}

func TestActivateDeprecatedReturnsConflictEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v1/municipalities/" + testMuni

	res, data := doJSON(t, client, http.MethodPost, base+"/organizations", map[string]any{
		"organization_number": 579,
		"organization_name":   "Elementary School",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create organization: %d %s", res.StatusCode, string(data))
	}
	_, data = doJSON(t, client, http.MethodPost, base+"/checklists", map[string]any{
		"organization_number": 579,
		"name":                "school-onboarding",
	}, nil)
	var v1 domain.Checklist
	_ = json.Unmarshal(data, &v1)
	doJSON(t, client, http.MethodPost, base+"/checklists/"+v1.ID+"/activate", nil, nil)
	_, data = doJSON(t, client, http.MethodPost, base+"/checklists/"+v1.ID+"/version", nil, nil)
	var v2 domain.Checklist
	_ = json.Unmarshal(data, &v2)
	doJSON(t, client, http.MethodPost, base+"/checklists/"+v2.ID+"/activate", nil, nil)

	// v1 is now DEPRECATED and cannot come back
	res, data = doJSON(t, client, http.MethodPost, base+"/checklists/"+v1.ID+"/activate", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 reactivating deprecated version, got %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "bad_request" || envelope.Error.Message == "" {
		t.Fatalf("unexpected error envelope: %s", string(data))
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet,
		srv.URL+"/v1/municipalities/"+testMuni+"/checklists/does-not-exist", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("unexpected code: %s", string(data))
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/municipalities/"+testMuni+"/checklists", nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", res.StatusCode)
	}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, err := srv.Client().Get(srv.URL + "/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
}

func TestExportImportOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v1/municipalities/" + testMuni

	doJSON(t, client, http.MethodPost, base+"/organizations", map[string]any{
		"organization_number": 579,
		"organization_name":   "Elementary School",
	}, nil)
	_, data := doJSON(t, client, http.MethodPost, base+"/phases", map[string]any{"name": "First week"}, nil)
	var phase domain.Phase
	_ = json.Unmarshal(data, &phase)
	_, data = doJSON(t, client, http.MethodPost, base+"/checklists", map[string]any{
		"organization_number": 579,
		"name":                "school-onboarding",
	}, nil)
	var cl domain.Checklist
	_ = json.Unmarshal(data, &cl)
	doJSON(t, client, http.MethodPost, base+"/checklists/"+cl.ID+"/tasks", map[string]any{
		"phase_id": phase.ID,
		"heading":  "Order computer",
	}, nil)
	doJSON(t, client, http.MethodPost, base+"/checklists/"+cl.ID+"/activate", nil, nil)

	res, data := doJSON(t, client, http.MethodGet, base+"/organizations/579/checklists/export", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("export: %d %s", res.StatusCode, string(data))
	}
	var doc engine.PortableChecklist
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	if len(doc.Tasks) != 1 || doc.Name != "school-onboarding" {
		t.Fatalf("unexpected document: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/organizations/579/checklists/import", map[string]any{
		"document": doc,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("import: %d %s", res.StatusCode, string(data))
	}
	var imported domain.Checklist
	_ = json.Unmarshal(data, &imported)
	if imported.Version != 2 || imported.LifeCycle != domain.LifeCycleCreated {
		t.Fatalf("unexpected imported checklist: %+v", imported)
	}
}
