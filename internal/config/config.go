package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Profile string

const (
	ProfileDevelopment Profile = "development"
	ProfileProduction  Profile = "production"
)

const (
	ProviderGemini    = "gemini"
	ProviderVertex    = "vertex"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

const (
	StorageMemory    = "memory"
	StorageRedis     = "redis"
	StoragePostgres  = "postgres"
	StorageFirestore = "firestore"
)

type Config struct {
	Profile Profile `yaml:"profile"`
	Debug   bool    `yaml:"debug"`
	Port    string  `yaml:"port"`

	SecretKey string `yaml:"secret_key"`

	GoogleAPIKeyContract string `yaml:"google_api_key_contract"`
	GoogleAPIKeyGeneral  string `yaml:"google_api_key_general"`
	AnthropicAPIKey      string `yaml:"anthropic_api_key"`

	// File upload settings
	MaxContentLength  int64    `yaml:"max_content_length"`
	UploadFolder      string   `yaml:"upload_folder"`
	VectorstoreFolder string   `yaml:"vectorstore_folder"`
	AllowedExtensions []string `yaml:"allowed_extensions"`

	CORSOrigins []string `yaml:"cors_origins"`

	// Model settings
	LLMProvider    string  `yaml:"llm_provider"` // "gemini", "vertex", "anthropic" or "mock"
	ContractModel  string  `yaml:"contract_model"`
	GeneralModel   string  `yaml:"general_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	AnthropicModel string  `yaml:"anthropic_model"`
	Temperature    float32 `yaml:"temperature"`
	GCPProjectID   string  `yaml:"gcp_project"`
	GCPLocation    string  `yaml:"gcp_location"`

	StorageBackend string `yaml:"storage_backend"` // "memory", "redis", "postgres" or "firestore"
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	DatabaseURL    string `yaml:"database_url"`

	MaxHistoryTurns int           `yaml:"max_history_turns"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`

	// LogLevel left empty takes the profile default.
	LogLevel string `yaml:"log_level"`
}

// Defaults returns the base settings shared by every profile.
func Defaults() *Config {
	return &Config{
		Profile: ProfileDevelopment,
		Debug:   true,
		Port:    "5000",

		MaxContentLength:  10 * 1024 * 1024, // 10MB
		UploadFolder:      "uploads",
		VectorstoreFolder: "vectorstore",
		AllowedExtensions: []string{"pdf"},

		CORSOrigins: []string{"http://localhost:3000", "http://localhost:5000", "http://127.0.0.1:5000"},

		LLMProvider:    ProviderGemini,
		ContractModel:  "gemini-2.5-flash",
		GeneralModel:   "gemini-2.5-pro",
		EmbeddingModel: "models/embedding-001",
		AnthropicModel: "claude-3-7-sonnet-latest",
		Temperature:    0.3,
		GCPLocation:    "us-central1",

		StorageBackend: StorageMemory,
		RedisAddr:      "localhost:6379",

		MaxHistoryTurns: 20,
		RequestTimeout:  60 * time.Second,
	}
}

// Load reads .env (if present), the optional YAML file named by LEGALAI_CONFIG_FILE
// and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	// Try to load .env if it exists; ignore error if file not found
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("LEGALAI_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.applyProfile()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Profile = parseProfile(getEnv("LEGALAI_ENV", string(c.Profile)))
	c.Port = getEnv("PORT", c.Port)

	c.SecretKey = getEnv("SECRET_KEY", c.SecretKey)
	c.GoogleAPIKeyContract = getEnv("GOOGLE_API_KEY_CONTRACT", c.GoogleAPIKeyContract)
	c.GoogleAPIKeyGeneral = getEnv("GOOGLE_API_KEY_GENERAL", getEnv("GOOGLE_API_KEY", c.GoogleAPIKeyGeneral))
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)

	c.MaxContentLength = getInt64Env("MAX_CONTENT_LENGTH", c.MaxContentLength)
	c.UploadFolder = getEnv("UPLOAD_FOLDER", c.UploadFolder)
	c.VectorstoreFolder = getEnv("VECTORSTORE_FOLDER", c.VectorstoreFolder)
	c.CORSOrigins = getListEnv("CORS_ORIGINS", c.CORSOrigins)

	c.LLMProvider = strings.ToLower(getEnv("LEGALAI_LLM_PROVIDER", c.LLMProvider))
	c.ContractModel = getEnv("CONTRACT_MODEL", c.ContractModel)
	c.GeneralModel = getEnv("GENERAL_MODEL", c.GeneralModel)
	c.EmbeddingModel = getEnv("EMBEDDING_MODEL", c.EmbeddingModel)
	c.AnthropicModel = getEnv("ANTHROPIC_MODEL", c.AnthropicModel)
	c.Temperature = getFloat32Env("TEMPERATURE", c.Temperature)
	c.GCPProjectID = getEnv("LEGALAI_GCP_PROJECT", c.GCPProjectID)
	c.GCPLocation = getEnv("LEGALAI_GCP_LOCATION", c.GCPLocation)

	c.StorageBackend = strings.ToLower(getEnv("LEGALAI_STORAGE_BACKEND", c.StorageBackend))
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getIntEnv("REDIS_DB", c.RedisDB)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.MaxHistoryTurns = getIntEnv("LEGALAI_MAX_HISTORY_TURNS", c.MaxHistoryTurns)
	c.RequestTimeout = getDurationEnv("LEGALAI_REQUEST_TIMEOUT", c.RequestTimeout)
	c.LogLevel = getEnv("LEGALAI_LOG_LEVEL", c.LogLevel)

	c.Debug = getBoolEnv("FLASK_DEBUG", c.Debug)
	c.Debug = getBoolEnv("LEGALAI_DEBUG", c.Debug)
}

// applyProfile pins Debug for each environment profile and fills the log level
// when neither the file nor the environment set one.
func (c *Config) applyProfile() {
	switch c.Profile {
	case ProfileProduction:
		c.Debug = false
		if c.LogLevel == "" {
			c.LogLevel = "warn"
		}
	default:
		c.Debug = true
		if c.LogLevel == "" {
			c.LogLevel = "debug"
		}
	}
}

// AllowedFile reports whether filename carries one of the allowed extensions.
func (c *Config) AllowedFile(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range c.AllowedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// Validate checks that the selected provider and backend have what they need.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case ProviderGemini:
		if c.GoogleAPIKeyGeneral == "" {
			errs = append(errs, errors.New("GOOGLE_API_KEY_GENERAL must be set for the gemini provider"))
		}
	case ProviderVertex:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("LEGALAI_GCP_PROJECT must be set for the vertex provider"))
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY must be set for the anthropic provider"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLMProvider))
	}

	switch c.StorageBackend {
	case StorageMemory, StorageRedis:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set for the postgres storage backend"))
		}
	case StorageFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("LEGALAI_GCP_PROJECT must be set for the firestore storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}

	if c.Profile == ProfileProduction && c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY must be set in production"))
	}

	return errors.Join(errs...)
}

func parseProfile(s string) Profile {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return ProfileProduction
	default:
		// "development", "default" and anything unknown
		return ProfileDevelopment
	}
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
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getInt64Env(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getFloat32Env(key string, def float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getListEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
