package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:8787" {
		t.Errorf("expected loopback default addr, got %s", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Engine.MaxLineItems != 500 || cfg.Engine.MaxPages != 50 || cfg.Engine.UndoDepth != 50 {
		t.Errorf("unexpected engine limits: %+v", cfg.Engine)
	}
	if cfg.Engine.Rounding != "half_even" {
		t.Errorf("expected half_even rounding, got %s", cfg.Engine.Rounding)
	}
	if cfg.Engine.DefaultCurrency != "USD" || cfg.Engine.DefaultTheme != "modern" {
		t.Errorf("unexpected engine defaults: %+v", cfg.Engine)
	}
	if cfg.Drafts.Backend != DraftsBackendMemory {
		t.Errorf("expected memory drafts backend, got %s", cfg.Drafts.Backend)
	}
	if cfg.Assets.MaxBytes != 2<<20 || cfg.Assets.GCSEnabled {
		t.Errorf("unexpected assets defaults: %+v", cfg.Assets)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"BIZDOC_SERVER_ADDR":                 ":9000",
		"BIZDOC_SERVER_WRITE_TIMEOUT":        "2m",
		"BIZDOC_ENGINE_MAX_LINE_ITEMS":       "100",
		"BIZDOC_ENGINE_MAX_PAGES":            "5",
		"BIZDOC_ENGINE_UNDO_DEPTH":           "10",
		"BIZDOC_ENGINE_PAPER_SIZE":           "Letter",
		"BIZDOC_ENGINE_LOCALE":               "de-DE",
		"BIZDOC_ENGINE_ROUNDING":             "HALF_UP",
		"BIZDOC_ENGINE_DEFAULT_CURRENCY":     "jpy",
		"BIZDOC_ENGINE_DEFAULT_THEME":        "Creative",
		"BIZDOC_DRAFTS_BACKEND":              "redis",
		"BIZDOC_DRAFTS_TTL":                  "72h",
		"BIZDOC_REDIS_ADDR":                  "localhost:6379",
		"BIZDOC_REDIS_DB":                    "2",
		"BIZDOC_ASSETS_MAX_BYTES":            "1024",
		"BIZDOC_ASSETS_GCS_ENABLED":          "yes",
		"BIZDOC_ASSETS_GCS_CREDENTIALS_FILE": "/etc/bizdoc/sa.json",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	want := Config{
		Server: ServerConfig{
			Addr:            ":9000",
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Engine: EngineConfig{
			MaxLineItems:    100,
			MaxPages:        5,
			UndoDepth:       10,
			PaperSize:       "letter",
			Locale:          "de-DE",
			Rounding:        "half_up",
			DefaultCurrency: "JPY",
			DefaultTheme:    "creative",
		},
		Drafts: DraftsConfig{Backend: "redis", Dir: defaultDraftsDir, TTL: 72 * time.Hour},
		Redis:  RedisConfig{Addr: "localhost:6379", DB: 2},
		Assets: AssetsConfig{
			MaxBytes:           1024,
			CacheTTL:           defaultAssetsCacheTTL,
			GCSEnabled:         true,
			GCSCredentialsFile: "/etc/bizdoc/sa.json",
		},
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("unexpected config:\n got %+v\nwant %+v", cfg, want)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# local overrides\nBIZDOC_DRAFTS_BACKEND=localfs\nexport BIZDOC_DRAFTS_DIR=\"/tmp/bizdoc\"\nBIZDOC_ENGINE_MAX_PAGES=7\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv(), WithEnvMap(map[string]string{
		"BIZDOC_ENGINE_MAX_PAGES": "9",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Drafts.Backend != DraftsBackendLocalFS || cfg.Drafts.Dir != "/tmp/bizdoc" {
		t.Errorf("expected dotenv drafts config, got %+v", cfg.Drafts)
	}
	if cfg.Engine.MaxPages != 9 {
		t.Errorf("expected env map to win over dotenv, got %d", cfg.Engine.MaxPages)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(context.Background(), WithEnvFile(filepath.Join(t.TempDir(), "absent.env")), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	env := map[string]string{
		"BIZDOC_SERVER_READ_TIMEOUT":     "soon",
		"BIZDOC_ENGINE_MAX_PAGES":        "0",
		"BIZDOC_ENGINE_UNDO_DEPTH":       "many",
		"BIZDOC_ENGINE_PAPER_SIZE":       "a3",
		"BIZDOC_ENGINE_ROUNDING":         "ceiling",
		"BIZDOC_ENGINE_DEFAULT_CURRENCY": "DOGE",
		"BIZDOC_ENGINE_DEFAULT_THEME":    "neon",
		"BIZDOC_DRAFTS_BACKEND":          "redis",
		"BIZDOC_ASSETS_GCS_ENABLED":      "maybe",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	got := make(map[string]bool)
	for _, field := range verr.Fields() {
		got[field] = true
	}
	for _, field := range []string{
		"BIZDOC_SERVER_READ_TIMEOUT",
		"BIZDOC_ENGINE_UNDO_DEPTH",
		"BIZDOC_ASSETS_GCS_ENABLED",
		"Engine.MaxPages",
		"Engine.PaperSize",
		"Engine.Rounding",
		"Engine.DefaultCurrency",
		"Engine.DefaultTheme",
		"Redis.Addr",
	} {
		if !got[field] {
			t.Errorf("expected %s in %v", field, verr.Fields())
		}
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "BIZDOC_SERVER_ADDR=:1111\nBIZDOC_ENGINE_LOCALE=fr\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	values, err := EnvironmentValues(WithEnvFile(envPath), WithoutSystemEnv(), WithEnvMap(map[string]string{
		"BIZDOC_ENGINE_LOCALE": "ja",
	}))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}
	if values["BIZDOC_SERVER_ADDR"] != ":1111" {
		t.Errorf("expected dotenv value, got %q", values["BIZDOC_SERVER_ADDR"])
	}
	if values["BIZDOC_ENGINE_LOCALE"] != "ja" {
		t.Errorf("expected override to win, got %q", values["BIZDOC_ENGINE_LOCALE"])
	}
}
