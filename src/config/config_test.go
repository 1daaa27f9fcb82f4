package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EASLOG_CONFIG", "EXPO_TOKEN", "EASLOG_API_URL", "EASLOG_OUTPUT_DIR", "EASLOG_CONCURRENCY",
		"EASLOG_STRIP_ANSI", "REDPANDA_BROKERS", "POSTGRES_DSN", "EASLOG_HTTP_ADDR",
		"EASLOG_CHROME_PROFILE", "EASLOG_LOG_LEVEL", "EASLOG_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults without token", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.ExpoToken != "" {
			t.Errorf("LoadFromEnv() token = %v, want empty", cfg.ExpoToken)
		}
		if cfg.APIURL != "https://api.expo.dev/graphql" {
			t.Errorf("LoadFromEnv() api url = %v", cfg.APIURL)
		}
		if cfg.Concurrency != 4 || cfg.AgentMode() {
			t.Errorf("LoadFromEnv() = %+v", cfg)
		}
	})

	t.Run("env values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EXPO_TOKEN", "test-token-12345")
		t.Setenv("EASLOG_CONCURRENCY", "8")
		t.Setenv("EASLOG_STRIP_ANSI", "true")
		t.Setenv("REDPANDA_BROKERS", "localhost:19092, other:9092,")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.ExpoToken != "test-token-12345" {
			t.Errorf("LoadFromEnv() token = %v, want %v", cfg.ExpoToken, "test-token-12345")
		}
		if cfg.Concurrency != 8 || !cfg.StripANSI {
			t.Errorf("LoadFromEnv() concurrency = %d, strip = %v", cfg.Concurrency, cfg.StripANSI)
		}
		if want := []string{"localhost:19092", "other:9092"}; !reflect.DeepEqual(cfg.RedpandaBrokers, want) {
			t.Errorf("LoadFromEnv() brokers = %v, want %v", cfg.RedpandaBrokers, want)
		}
		if !cfg.AgentMode() {
			t.Error("AgentMode() = false with brokers set")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		for key, value := range map[string]string{
			"EASLOG_CONCURRENCY": "many",
			"EASLOG_STRIP_ANSI":  "sometimes",
			"EASLOG_API_URL":     "ftp://x",
			"EASLOG_LOG_FORMAT":  "xml",
		} {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("LoadFromEnv() with %s=%s expected error, got nil", key, value)
			}
		}
	})
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "easlog.yaml")
	content := `
expo_token: from-file
output_dir: /tmp/exports
concurrency: 2
redpanda_brokers: [a:1, b:2]
log_format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EXPO_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.ExpoToken != "from-env" {
		t.Errorf("Load() token = %v, want env to win", cfg.ExpoToken)
	}
	if cfg.OutputDir != "/tmp/exports" || cfg.Concurrency != 2 || cfg.LogFormat != "json" {
		t.Errorf("Load() = %+v", cfg)
	}
	if len(cfg.RedpandaBrokers) != 2 {
		t.Errorf("Load() brokers = %v", cfg.RedpandaBrokers)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Load() http addr = %v, want default kept", cfg.HTTPAddr)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) expected error, got nil")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("concurrency: [unclosed"), 0o600)
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile(bad yaml) expected error, got nil")
	}
}

func TestMustLoadFromEnv_Panics(t *testing.T) {
	clearEnv(t)
	t.Setenv("EASLOG_CONCURRENCY", "0")

	defer func() {
		if recover() == nil {
			t.Error("MustLoadFromEnv() did not panic on invalid config")
		}
	}()
	MustLoadFromEnv()
}
