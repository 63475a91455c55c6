package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseKeys(t *testing.T) {
	cases := []struct {
		name    string
		primary string
		list    string
		want    []string
	}{
		{name: "primary only", primary: "k1", want: []string{"k1"}},
		{name: "list only", list: "k1,k2,k3", want: []string{"k1", "k2", "k3"}},
		{name: "primary prepended", primary: "k0", list: "k1,k2", want: []string{"k0", "k1", "k2"}},
		{name: "primary already in list", primary: "k1", list: "k1,k2", want: []string{"k1", "k2"}},
		{name: "whitespace and empties trimmed", primary: " k1 ", list: " , k2 ,, k1 ", want: []string{"k1", "k2"}},
		{name: "nothing configured", want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseKeys(tc.primary, tc.list)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseKeys(%q, %q) = %v, want %v", tc.primary, tc.list, got, tc.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "4000" {
		t.Fatalf("Port = %q, want 4000", cfg.Port)
	}
	if cfg.StorageBackend != "memory" || cfg.AuthBackend != "static" {
		t.Fatalf("backends = %q/%q, want memory/static", cfg.StorageBackend, cfg.AuthBackend)
	}
	if cfg.UpstreamTimeout != 60*time.Second {
		t.Fatalf("UpstreamTimeout = %v, want 60s", cfg.UpstreamTimeout)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MINDWELL_PORT", "9090")
	t.Setenv("MINDWELL_GEMINI_API_KEY", "primary")
	t.Setenv("MINDWELL_GEMINI_API_KEYS", "primary,backup")
	t.Setenv("MINDWELL_USE_MOCK_LLM", "true")
	t.Setenv("MINDWELL_STORAGE_TIMEOUT_SECONDS", "3")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Fatalf("Port = %q, want 9090", cfg.Port)
	}
	if want := []string{"primary", "backup"}; !reflect.DeepEqual(cfg.GeminiAPIKeys, want) {
		t.Fatalf("GeminiAPIKeys = %v, want %v", cfg.GeminiAPIKeys, want)
	}
	if !cfg.UseMockLLM {
		t.Fatal("UseMockLLM = false, want true")
	}
	if cfg.StorageTimeout != 3*time.Second {
		t.Fatalf("StorageTimeout = %v, want 3s", cfg.StorageTimeout)
	}
}

func TestGetSecondsEnvRejectsGarbage(t *testing.T) {
	t.Setenv("MINDWELL_UPSTREAM_TIMEOUT_SECONDS", "not-a-number")
	if got := getSecondsEnv("MINDWELL_UPSTREAM_TIMEOUT_SECONDS", 7*time.Second); got != 7*time.Second {
		t.Fatalf("getSecondsEnv = %v, want default 7s", got)
	}

	t.Setenv("MINDWELL_UPSTREAM_TIMEOUT_SECONDS", "-5")
	if got := getSecondsEnv("MINDWELL_UPSTREAM_TIMEOUT_SECONDS", 7*time.Second); got != 7*time.Second {
		t.Fatalf("getSecondsEnv = %v, want default 7s", got)
	}
}
