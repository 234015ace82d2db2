package config

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// echoConf is a minimal typed fragment used to exercise file loading.
type echoConf struct {
	Greeting module.Opt[string] `yaml:"greeting"`
	Port     module.Opt[int]    `yaml:"port"`
}

func (c *echoConf) Keys() []string {
	return []string{"greeting", "port"}
}

func (c *echoConf) Merge(override module.Fragment) error {
	o, err := module.SameShape[*echoConf](override)
	if err != nil {
		return err
	}
	c.Greeting.Merge(o.Greeting)
	c.Port.Merge(o.Port)
	return nil
}

// echoModule captures the fragment it is started with so tests can inspect
// what the loader routed to it.
type echoModule struct {
	name string
	got  *echoConf
}

func (m *echoModule) Name() string                                     { return m.name }
func (m *echoModule) NewConfig() module.Fragment                       { return &echoConf{} }
func (m *echoModule) Flags() []module.Flag                             { return nil }
func (m *echoModule) ApplyFlags(module.Fragment, *pflag.FlagSet) error { return nil }

func (m *echoModule) Startup(_ context.Context, cfg module.Fragment, _ *module.Env) error {
	c, err := module.SameShape[*echoConf](cfg)
	if err != nil {
		return err
	}
	m.got = c
	return nil
}

func (m *echoModule) Filter(http.ResponseWriter, *http.Request) (module.Decision, error) {
	return module.Continue, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func testPipeline(t *testing.T) (*module.Pipeline, *echoModule) {
	t.Helper()
	echo := &echoModule{name: "echo"}
	pipe, err := module.New(echo)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return pipe, echo
}

// startedConf runs the pipeline's startup with cfg and returns the fragment
// the echo module received.
func startedConf(t *testing.T, pipe *module.Pipeline, echo *echoModule, cfg module.Fragment) *echoConf {
	t.Helper()
	if err := pipe.Startup(context.Background(), cfg, module.NewEnv()); err != nil {
		t.Fatalf("Startup() returned error: %v", err)
	}
	return echo.got
}

func TestLoad_MarksOnlyPresentKeysSet(t *testing.T) {
	pipe, echoMod := testPipeline(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "greeting: hello\n")

	cfg := pipe.NewConfig()
	if err := Load(path, cfg); err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	echo := startedConf(t, pipe, echoMod, cfg)
	if got := echo.Greeting.Or(""); got != "hello" {
		t.Errorf("greeting = %q, want %q", got, "hello")
	}
	if echo.Port.IsSet() {
		t.Error("port absent from file but marked set")
	}
}

func TestLoad_RejectsUnknownKey(t *testing.T) {
	pipe, _ := testPipeline(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "greeting: hello\nbogus: 1\n")

	err := Load(path, pipe.NewConfig())
	if err == nil {
		t.Fatal("Load() succeeded, want unknown-key error")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("error = %v, want it to name the unknown key", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	pipe, _ := testPipeline(t)
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), pipe.NewConfig()); err == nil {
		t.Error("Load() succeeded for a missing file")
	}
}

func TestLoadAll_LaterFilesWin(t *testing.T) {
	pipe, echoMod := testPipeline(t)
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", "greeting: hello\nport: 8080\n")
	site := writeFile(t, dir, "site.yaml", "port: 9090\n")

	cfg, err := LoadAll([]string{base, site}, pipe)
	if err != nil {
		t.Fatalf("LoadAll() returned error: %v", err)
	}

	echo := startedConf(t, pipe, echoMod, cfg)
	if got := echo.Greeting.Or(""); got != "hello" {
		t.Errorf("greeting = %q, want base value %q", got, "hello")
	}
	if got := echo.Port.Or(0); got != 9090 {
		t.Errorf("port = %d, want override 9090", got)
	}
}

func TestLoadAll_NoFiles(t *testing.T) {
	pipe, echoMod := testPipeline(t)
	cfg, err := LoadAll(nil, pipe)
	if err != nil {
		t.Fatalf("LoadAll() returned error: %v", err)
	}
	echo := startedConf(t, pipe, echoMod, cfg)
	if echo.Greeting.IsSet() || echo.Port.IsSet() {
		t.Error("LoadAll(nil) produced set fields")
	}
}
