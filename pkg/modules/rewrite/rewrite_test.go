package rewrite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// startModule builds a started rewrite module from a YAML rule document.
func startModule(t *testing.T, rules string) *Module {
	t.Helper()
	var conf Conf
	if err := yaml.Unmarshal([]byte(rules), &conf); err != nil {
		t.Fatalf("Unmarshal() returned error: %v", err)
	}
	mod := New()
	if err := mod.Startup(context.Background(), &conf, module.NewEnv()); err != nil {
		t.Fatalf("Startup() returned error: %v", err)
	}
	return mod
}

func TestFilter_InternalRewrite(t *testing.T) {
	mod := startModule(t, `
rewrite_rules:
  from: /images/*
  to: /static/img/${tail}
`)

	req := httptest.NewRequest(http.MethodGet, "/images/logo.png?size=2", nil)
	decision, err := mod.Filter(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Filter() returned error: %v", err)
	}
	if decision != module.Continue {
		t.Errorf("decision = %v, want Continue (internal rewrite)", decision)
	}
	if req.URL.Path != "/static/img/logo.png" {
		t.Errorf("path = %q, want %q", req.URL.Path, "/static/img/logo.png")
	}
	if req.URL.RawQuery != "" {
		t.Errorf("query = %q, want it dropped by default", req.URL.RawQuery)
	}
}

func TestFilter_QueryPreservedThroughVariable(t *testing.T) {
	mod := startModule(t, `
rewrite_rules:
  from: /file.txt
  to: /file.html?${query}
`)

	req := httptest.NewRequest(http.MethodGet, "/file.txt?a=b", nil)
	if _, err := mod.Filter(httptest.NewRecorder(), req); err != nil {
		t.Fatalf("Filter() returned error: %v", err)
	}
	if req.URL.Path != "/file.html" {
		t.Errorf("path = %q, want %q", req.URL.Path, "/file.html")
	}
	if req.URL.RawQuery != "a=b" {
		t.Errorf("query = %q, want %q", req.URL.RawQuery, "a=b")
	}
}

func TestFilter_Redirects(t *testing.T) {
	tests := []struct {
		ruleType   string
		wantStatus int
	}{
		{"redirect", http.StatusTemporaryRedirect},
		{"permanent", http.StatusPermanentRedirect},
	}

	for _, tt := range tests {
		t.Run(tt.ruleType, func(t *testing.T) {
			mod := startModule(t, `
rewrite_rules:
  from: /old
  to: /new
  type: `+tt.ruleType+"\n")

			rec := httptest.NewRecorder()
			decision, err := mod.Filter(rec, httptest.NewRequest(http.MethodGet, "/old", nil))
			if err != nil {
				t.Fatalf("Filter() returned error: %v", err)
			}
			if decision != module.Handled {
				t.Errorf("decision = %v, want Handled", decision)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Location"); got != "/new" {
				t.Errorf("Location = %q, want %q", got, "/new")
			}
		})
	}
}

func TestFilter_ClosestMatchWins(t *testing.T) {
	mod := startModule(t, `
rewrite_rules:
  - from: /*
    to: /generic
  - from: /dir/*
    to: /closer
  - from: /dir/file.txt
    to: /exact
`)

	tests := []struct {
		path string
		want string
	}{
		{"/dir/file.txt", "/exact"},
		{"/dir/other.txt", "/closer"},
		{"/elsewhere", "/generic"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if _, err := mod.Filter(httptest.NewRecorder(), req); err != nil {
			t.Fatalf("Filter(%q) returned error: %v", tt.path, err)
		}
		if req.URL.Path != tt.want {
			t.Errorf("rewrite of %q = %q, want %q", tt.path, req.URL.Path, tt.want)
		}
	}
}

func TestFilter_RegexRestrictions(t *testing.T) {
	mod := startModule(t, `
rewrite_rules:
  from: /images/*
  from_regex: "!\\.png$"
  to: /other/${tail}
`)

	png := httptest.NewRequest(http.MethodGet, "/images/a.png", nil)
	if _, err := mod.Filter(httptest.NewRecorder(), png); err != nil {
		t.Fatalf("Filter() returned error: %v", err)
	}
	if png.URL.Path != "/images/a.png" {
		t.Errorf("negated regex rewrote %q", png.URL.Path)
	}

	txt := httptest.NewRequest(http.MethodGet, "/images/a.txt", nil)
	if _, err := mod.Filter(httptest.NewRecorder(), txt); err != nil {
		t.Fatalf("Filter() returned error: %v", err)
	}
	if txt.URL.Path != "/other/a.txt" {
		t.Errorf("path = %q, want %q", txt.URL.Path, "/other/a.txt")
	}
}

func TestFilter_QueryRegexRestriction(t *testing.T) {
	mod := startModule(t, `
rewrite_rules:
  from: /download
  query_regex: "file="
  to: /serve?${query}
`)

	withFile := httptest.NewRequest(http.MethodGet, "/download?file=a.txt", nil)
	if _, err := mod.Filter(httptest.NewRecorder(), withFile); err != nil {
		t.Fatalf("Filter() returned error: %v", err)
	}
	if withFile.URL.Path != "/serve" {
		t.Errorf("path = %q, want %q", withFile.URL.Path, "/serve")
	}

	without := httptest.NewRequest(http.MethodGet, "/download?page=2", nil)
	if _, err := mod.Filter(httptest.NewRecorder(), without); err != nil {
		t.Fatalf("Filter() returned error: %v", err)
	}
	if without.URL.Path != "/download" {
		t.Errorf("query_regex ignored, path = %q", without.URL.Path)
	}
}

func TestFilter_HeaderInterpolation(t *testing.T) {
	mod := startModule(t, `
rewrite_rules:
  from: /here
  to: https://${http_host}/there
  type: redirect
`)

	// httptest.NewRequest defaults the host to example.com.
	req := httptest.NewRequest(http.MethodGet, "/here", nil)
	rec := httptest.NewRecorder()
	if _, err := mod.Filter(rec, req); err != nil {
		t.Fatalf("Filter() returned error: %v", err)
	}
	if got := rec.Header().Get("Location"); got != "https://example.com/there" {
		t.Errorf("Location = %q, want interpolated host", got)
	}
}

func TestFilter_NoRules(t *testing.T) {
	mod := New()
	if err := mod.Startup(context.Background(), &Conf{}, module.NewEnv()); err != nil {
		t.Fatalf("Startup() returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	decision, err := mod.Filter(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Filter() returned error: %v", err)
	}
	if decision != module.Continue {
		t.Errorf("decision = %v, want Continue", decision)
	}
}
