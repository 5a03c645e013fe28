package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	DataDir               string        `mapstructure:"DATA_DIR"`
	ModelPath             string        `mapstructure:"MODEL_PATH"`
	ONNXModelPath         string        `mapstructure:"ONNX_MODEL_PATH"`
	ONNXRuntimeLib        string        `mapstructure:"ONNXRUNTIME_LIB"`
	ONNXInputName         string        `mapstructure:"ONNX_INPUT_NAME"`
	ONNXOutputName        string        `mapstructure:"ONNX_OUTPUT_NAME"`
	FeatureMatchThreshold float64       `mapstructure:"FEATURE_MATCH_THRESHOLD"`
	DiseaseMatchThreshold float64       `mapstructure:"DISEASE_MATCH_THRESHOLD"`
	StoreBackend          string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS          float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit             string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AuthSigningKey        string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer            string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience          string        `mapstructure:"AUTH_AUDIENCE"`
	OpenAIAPIKey          string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel           string        `mapstructure:"OPENAI_MODEL"`
	PHIEncryptionKey      string        `mapstructure:"PHI_ENCRYPTION_KEY"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATA_DIR", "MODEL_PATH", "ONNX_MODEL_PATH", "ONNXRUNTIME_LIB",
	"ONNX_INPUT_NAME", "ONNX_OUTPUT_NAME",
	"FEATURE_MATCH_THRESHOLD", "DISEASE_MATCH_THRESHOLD", "STORE_BACKEND", "DATABASE_URL",
	"DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"BODY_LIMIT", "REQUEST_TIMEOUT", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"OPENAI_API_KEY", "OPENAI_MODEL", "PHI_ENCRYPTION_KEY",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("FEATURE_MATCH_THRESHOLD", 0.7)
	v.SetDefault("DISEASE_MATCH_THRESHOLD", 0.6)
	v.SetDefault("STORE_BACKEND", StoreMemory)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("ONNX_INPUT_NAME", "float_input")
	v.SetDefault("ONNX_OUTPUT_NAME", "probabilities")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// LLMEnabled reports whether prescriptions go to the chat model first.
func (c *Config) LLMEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// Validate checks that the configuration is safe to run. Outside
// development a signing key is required so real JWT authentication is
// enforced. Production also refuses a wildcard CORS origin.
func (c *Config) Validate() error {
	if c.FeatureMatchThreshold <= 0 || c.FeatureMatchThreshold > 1 {
		return fmt.Errorf("FEATURE_MATCH_THRESHOLD must be in (0, 1], got %v", c.FeatureMatchThreshold)
	}
	if c.DiseaseMatchThreshold <= 0 || c.DiseaseMatchThreshold > 1 {
		return fmt.Errorf("DISEASE_MATCH_THRESHOLD must be in (0, 1], got %v", c.DiseaseMatchThreshold)
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", StorePostgres)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreMemory, StorePostgres, c.StoreBackend)
	}

	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY must be set when ENV is %q", c.Env)
	}
	if c.IsProduction() {
		for _, o := range c.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("CORS_ORIGINS must list explicit origins in production")
			}
		}
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}
