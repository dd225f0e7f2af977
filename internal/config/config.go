// Package config handles platform configuration
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string
	LogLevel string
	LogFile  string

	BackendURL   string // CRUD backend: menu, knowledge, cart, live-token
	BackendToken string
	GeminiAPIKey string // mint credentials locally instead of via the backend
	CatalogFile  string // serve the catalog from a file instead of the backend
	MemoryCart   bool

	Model           string
	Voice           string
	Greeting        string
	Currency        string
	KnowledgeLimit  int
	CredentialTTL   time.Duration
	CatalogCacheTTL time.Duration

	InputSampleRate  int
	OutputSampleRate int
	FramesPerBuffer  int
	ExcludedDevices  []string
}

// LoadDotenv loads variables from the given files (default ".env") without
// overriding the existing environment. Missing files are ignored.
func LoadDotenv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

func Load() *Config {
	return &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8000"),
		GRPCAddr:         getEnv("GRPC_ADDR", ":50061"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          getEnv("LOG_FILE", ""),
		BackendURL:       strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:3000"), "/"),
		BackendToken:     getEnv("BACKEND_TOKEN", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		CatalogFile:      getEnv("CATALOG_FILE", ""),
		MemoryCart:       getEnvBool("MEMORY_CART", false),
		Model:            getEnv("LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
		Voice:            getEnv("LIVE_VOICE", "Kore"),
		Greeting:         getEnv("LIVE_GREETING", "Salom"),
		Currency:         getEnv("CURRENCY", "so'm"),
		KnowledgeLimit:   getEnvInt("KNOWLEDGE_LIMIT", 12000),
		CredentialTTL:    getEnvDuration("CREDENTIAL_TTL", 60*time.Second),
		CatalogCacheTTL:  getEnvDuration("CATALOG_CACHE_TTL", 30*time.Second),
		InputSampleRate:  getEnvInt("INPUT_SAMPLE_RATE", 16000),
		OutputSampleRate: getEnvInt("OUTPUT_SAMPLE_RATE", 24000),
		FramesPerBuffer:  getEnvInt("FRAMES_PER_BUFFER", 4096),
		ExcludedDevices:  getEnvList("EXCLUDED_AUDIO_DEVICES", []string{"iphone", "teams"}),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if s, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(s * float64(time.Second))
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
