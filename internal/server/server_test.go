// internal/server/server_test.go
package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/valpere/crosslink/internal/config"
	"github.com/valpere/crosslink/internal/engine"
	"github.com/valpere/crosslink/internal/monitoring"
	"github.com/valpere/crosslink/internal/rules"
	"github.com/valpere/crosslink/internal/store"
	"github.com/valpere/crosslink/internal/utils"
)

const javdbPage = `<html><body><h2 class="title"><strong>ABC-123</strong> Some title</h2></body></html>`

type testEnv struct {
	server *httptest.Server
	engine *engine.Engine
	store  *store.Store
}

func setupTestServer(t *testing.T, cfg config.ServerConfig) *testEnv {
	t.Helper()

	st, err := store.New(store.NewMemoryBackend(), "rules", store.WithLogger(utils.NopLogger{}))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	eng, err := engine.NewEngine(st, engine.WithLogger(utils.NopLogger{}))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	metrics := monitoring.NewMetricsManager(monitoring.MetricsConfig{Namespace: "test"})
	srv, err := New(eng, st, cfg, WithLogger(utils.NopLogger{}), WithMetrics(metrics, "/metrics"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, engine: eng, store: st}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func evaluateBody(t *testing.T, url, html string) string {
	t.Helper()
	data, err := json.Marshal(EvaluateRequest{URL: url, HTML: html})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	return string(data)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(nil, nil, config.ServerConfig{}); err == nil {
		t.Error("Expected error for nil engine")
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})

	resp, _ := env.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestEvaluate_Match(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})

	resp, body := env.do(t, http.MethodPost, "/api/v1/evaluate", evaluateBody(t, "https://javdb.com/v/abc", javdbPage))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d. Body: %s", resp.StatusCode, body)
	}

	var result struct {
		Profile     rules.SiteProfile       `json:"profile"`
		Identifiers []rules.IdentifierValue `json:"identifiers"`
		Links       []rules.BuiltLink       `json:"links"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}

	if result.Profile.ID != "javdb" {
		t.Errorf("expected javdb profile, got %q", result.Profile.ID)
	}
	if len(result.Identifiers) != 1 || result.Identifiers[0].Value != "ABC-123" {
		t.Errorf("unexpected identifiers: %+v", result.Identifiers)
	}

	found := false
	for _, link := range result.Links {
		if link.TargetSiteID == "avbase" && link.URL == "https://www.avbase.net/works?q=ABC-123" {
			found = true
		}
		if link.TargetSiteID == "javdb" {
			t.Error("result must not link back to the current site")
		}
	}
	if !found {
		t.Errorf("expected avbase link, got %+v", result.Links)
	}
}

func TestEvaluate_NoMatch(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})

	resp, body := env.do(t, http.MethodPost, "/api/v1/evaluate", evaluateBody(t, "https://example.org/page", "<html></html>"))
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected status 204, got %d. Body: %s", resp.StatusCode, body)
	}
}

func TestEvaluate_BadRequests(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"relative url", evaluateBody(t, "/v/abc", javdbPage)},
		{"missing url", `{"html":"<p></p>"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/v1/evaluate", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d. Body: %s", resp.StatusCode, body)
			}
		})
	}
}

func TestEvaluate_BodyLimit(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{MaxBodyBytes: 64})

	big := evaluateBody(t, "https://javdb.com/v/abc", strings.Repeat("<p>x</p>", 100))
	resp, _ := env.do(t, http.MethodPost, "/api/v1/evaluate", big)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", resp.StatusCode)
	}
}

func TestGetRules(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})

	resp, body := env.do(t, http.MethodGet, "/api/v1/rules", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var profiles []rules.SiteProfile
	if err := json.Unmarshal(body, &profiles); err != nil {
		t.Fatalf("failed to decode rules: %v", err)
	}
	if len(profiles) != len(rules.DefaultProfiles()) {
		t.Errorf("expected %d profiles, got %d", len(rules.DefaultProfiles()), len(profiles))
	}
}

func TestPutRules_Rejected(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})

	body := `[
		{"id":"a","keywords":["shared"],"matchers":[{"id":"m","pattern":"("}],"identifierExtractors":[]},
		{"id":"b","keywords":["shared"],"matchers":[],"identifierExtractors":[]}
	]`
	resp, data := env.do(t, http.MethodPut, "/api/v1/rules", body)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d. Body: %s", resp.StatusCode, data)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if len(errResp.Errors) != 2 {
		t.Errorf("expected the complete error list (2), got %+v", errResp.Errors)
	}

	// The defaults are still in effect.
	_, rulesBody := env.do(t, http.MethodGet, "/api/v1/rules", "")
	var profiles []rules.SiteProfile
	json.Unmarshal(rulesBody, &profiles)
	if len(profiles) != len(rules.DefaultProfiles()) {
		t.Errorf("rejected set must not replace the rules, got %d profiles", len(profiles))
	}
}

func TestPutRules_RehydratesEngine(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})
	target := evaluateBody(t, "https://example.org/item/XYZ-9", "<html></html>")

	// Warm the engine and the cache with the defaults.
	if resp, _ := env.do(t, http.MethodPost, "/api/v1/evaluate", target); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected no match before update, got %d", resp.StatusCode)
	}

	profiles := []rules.SiteProfile{
		{
			ID:       "example",
			Keywords: []string{"example.org"},
			Matchers: []rules.URLMatcher{{ID: "item", Pattern: "/item/", MatchScope: rules.ScopePathname}},
			Extractors: []rules.Extractor{{
				ID: "path", Method: rules.MethodURLRegex, Pattern: ".+/(.+)", IdentifierType: "code",
			}},
		},
		{
			ID:       "mirror",
			Keywords: []string{"mirror.test"},
			EntryPoints: []rules.EntryPoint{{
				ID: "search", RequiredIdentifierType: "code", URLTemplate: "https://mirror.test/{code:lower}", DisplayName: "Mirror",
			}},
		},
	}
	data, _ := json.Marshal(profiles)
	resp, body := env.do(t, http.MethodPut, "/api/v1/rules", string(data))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d. Body: %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, http.MethodPost, "/api/v1/evaluate", target)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected match after update, got %d. Body: %s", resp.StatusCode, body)
	}
	if !bytes.Contains(body, []byte("https://mirror.test/xyz-9")) {
		t.Errorf("expected link to mirror, got %s", body)
	}
}

func TestValidateRules(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})

	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantErrs  int
	}{
		{"defaults", func() string { d, _ := json.Marshal(rules.DefaultProfiles()); return string(d) }(), true, 0},
		{"missing keywords", `[{"id":"x","keywords":[],"matchers":[],"identifierExtractors":[]}]`, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, http.MethodPost, "/api/v1/rules/validate", tt.body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected status 200, got %d", resp.StatusCode)
			}
			var v ValidateResponse
			if err := json.Unmarshal(data, &v); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if v.Valid != tt.wantValid || len(v.Errors) != tt.wantErrs {
				t.Errorf("got valid=%v errors=%d, want valid=%v errors=%d", v.Valid, len(v.Errors), tt.wantValid, tt.wantErrs)
			}
		})
	}
}

func TestExportImport(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})

	resp, exported := env.do(t, http.MethodGet, "/api/v1/rules/export", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "site-rules.json") {
		t.Errorf("expected attachment header, got %q", resp.Header.Get("Content-Disposition"))
	}

	resp, _ = env.do(t, http.MethodPost, "/api/v1/rules/import", string(exported))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected re-import to succeed, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/v1/rules/import", "[{")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400 for garbage, got %d", resp.StatusCode)
	}
}

func TestInvalidateCache(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})

	env.do(t, http.MethodPost, "/api/v1/evaluate", evaluateBody(t, "https://javdb.com/v/abc", javdbPage))
	env.do(t, http.MethodPost, "/api/v1/evaluate", evaluateBody(t, "https://javdb.com/v/def", javdbPage))
	if env.engine.CacheSize() != 2 {
		t.Fatalf("expected 2 cached results, got %d", env.engine.CacheSize())
	}

	resp, _ := env.do(t, http.MethodDelete, "/api/v1/cache?url=https://javdb.com/v/abc", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", resp.StatusCode)
	}
	if env.engine.CacheSize() != 1 {
		t.Errorf("expected 1 cached result, got %d", env.engine.CacheSize())
	}

	env.do(t, http.MethodDelete, "/api/v1/cache", "")
	if env.engine.CacheSize() != 0 {
		t.Errorf("expected empty cache, got %d", env.engine.CacheSize())
	}
}

func TestRateLimit(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{RateLimit: 0.001, Burst: 1})

	first, _ := env.do(t, http.MethodGet, "/api/v1/rules", "")
	second, _ := env.do(t, http.MethodGet, "/api/v1/rules", "")

	if first.StatusCode != http.StatusOK {
		t.Errorf("expected first request to pass, got %d", first.StatusCode)
	}
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", second.StatusCode)
	}

	// Health is outside the limited API.
	if resp, _ := env.do(t, http.MethodGet, "/health", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("expected health to bypass the limiter, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t, config.ServerConfig{})

	env.do(t, http.MethodGet, "/api/v1/rules", "")
	resp, body := env.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`test_http_requests_total{method="GET",route="/api/v1/rules",status_code="200"} 1`)) {
		t.Errorf("expected request counter in metrics output, got:\n%s", body)
	}
}
