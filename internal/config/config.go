package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Upstream credentials. GeminiAPIKeys is the ordered rotation pool;
	// the primary key (GEMINI_API_KEY) is prepended when not already in
	// the list.
	GeminiAPIKeys []string
	ModelName     string

	YouTubeAPIKey string

	GCPProjectID string

	StorageBackend string // "memory" or "firestore"
	AuthBackend    string // "static" or "firebase"
	UseMockLLM     bool

	UpstreamTimeout time.Duration
	StorageTimeout  time.Duration
	EnrichTimeout   time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getSecondsEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// ParseKeys builds the credential list from the comma-separated pool
// plus the single primary key, trimmed and de-duplicated, primary first.
func ParseKeys(primary, list string) []string {
	var keys []string
	seen := make(map[string]struct{})

	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	add(primary)
	for _, k := range strings.Split(list, ",") {
		add(k)
	}
	return keys
}

// Load reads all env vars and builds the config.
func Load() *Config {
	cfg := &Config{
		Port: getEnv("MINDWELL_PORT", "4000"),

		GeminiAPIKeys: ParseKeys(
			os.Getenv("MINDWELL_GEMINI_API_KEY"),
			os.Getenv("MINDWELL_GEMINI_API_KEYS"),
		),
		ModelName: getEnv("MINDWELL_MODEL_NAME", "gemini-2.5-flash"),

		YouTubeAPIKey: os.Getenv("MINDWELL_YT_API_KEY"),

		GCPProjectID: os.Getenv("MINDWELL_GCP_PROJECT"),

		StorageBackend: getEnv("MINDWELL_STORAGE_BACKEND", "memory"),
		AuthBackend:    getEnv("MINDWELL_AUTH_BACKEND", "static"),
		UseMockLLM:     getBoolEnv("MINDWELL_USE_MOCK_LLM", false),

		UpstreamTimeout: getSecondsEnv("MINDWELL_UPSTREAM_TIMEOUT_SECONDS", 60*time.Second),
		StorageTimeout:  getSecondsEnv("MINDWELL_STORAGE_TIMEOUT_SECONDS", 10*time.Second),
		EnrichTimeout:   getSecondsEnv("MINDWELL_ENRICH_TIMEOUT_SECONDS", 5*time.Second),
	}

	// Minimal validation for the GCP-backed adapters.
	if cfg.StorageBackend == "firestore" && cfg.GCPProjectID == "" {
		log.Fatal("MINDWELL_GCP_PROJECT must be set for the firestore backend")
	}
	if cfg.AuthBackend == "firebase" && cfg.GCPProjectID == "" {
		log.Fatal("MINDWELL_GCP_PROJECT must be set for firebase auth")
	}

	return cfg
}
