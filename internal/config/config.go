package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location, overridable with
// DOMSTUDIO_CONFIG.
var ConfigPath = "config.yaml"

func init() {
	if v := strings.TrimSpace(os.Getenv("DOMSTUDIO_CONFIG")); v != "" {
		ConfigPath = v
	}
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	AuthJWKSURL string `yaml:"authJwksURL"`
	JWTIssuer   string `yaml:"jwtIssuer"`
	JWTAudience string `yaml:"jwtAudience"`
	JWTLeeway   string `yaml:"jwtLeeway"`

	OpenAIAPIKey      string  `yaml:"openaiApiKey"`
	OpenAIBaseURL     string  `yaml:"openaiBaseURL"`
	OpenAIModel       string  `yaml:"openaiModel"`
	OpenAITemperature float64 `yaml:"openaiTemperature"`
	OpenAIMaxTokens   int     `yaml:"openaiMaxTokens"`

	TemplatesFile              string `yaml:"templatesFile"`
	GenerateTimeoutSeconds     int    `yaml:"generateTimeoutSeconds"`
	GenerateRateLimitPerMinute int    `yaml:"generateRateLimitPerMinute"`
	ProviderRateLimitPerMinute int    `yaml:"providerRateLimitPerMinute"`

	QueueName              string `yaml:"queueName"`
	QueueGroup             string `yaml:"queueGroup"`
	QueueConcurrency       int    `yaml:"queueConcurrency"`
	QueueMaxRetries        int    `yaml:"queueMaxRetries"`
	QueueRetryDelaySeconds int    `yaml:"queueRetryDelaySeconds"`

	MinioEndpoint     string `yaml:"minioEndpoint"`
	MinioAccessKey    string `yaml:"minioAccessKey"`
	MinioSecretKey    string `yaml:"minioSecretKey"`
	MinioBucket       string `yaml:"minioBucket"`
	MinioUseSSL       bool   `yaml:"minioUseSSL"`
	ExportURLTTLHours int    `yaml:"exportUrlTtlHours"`

	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("DOMSTUDIO_AUTH_JWKS_URL"); v != "" {
		cfg.AuthJWKSURL = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.JWTAudience = v
	}
	if v := os.Getenv("JWT_LEEWAY"); v != "" {
		cfg.JWTLeeway = v
	}
	if v := os.Getenv("DOMSTUDIO_TEMPLATES_FILE"); v != "" {
		cfg.TemplatesFile = v
	}
	if v := os.Getenv("DOMSTUDIO_GENERATE_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GenerateRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("DOMSTUDIO_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return errors.New("config: openaiApiKey is required (set in config.yaml or OPENAI_API_KEY)")
	}
	if strings.TrimSpace(cfg.AuthJWKSURL) == "" {
		return errors.New("config: authJwksURL is required (set in config.yaml or DOMSTUDIO_AUTH_JWKS_URL)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for rate limiting and the export queue")
	}
	if cfg.GenerateRateLimitPerMinute < 0 || cfg.ProviderRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if exportsEnabled(cfg) {
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
			return errors.New("config: minio endpoint set but access key, secret key or bucket missing")
		}
	}
	return nil
}

// ExportsEnabled reports whether exports are configured. Without object
// storage the API still serves everything except export requests.
func ExportsEnabled(cfg FileConfig) bool {
	return exportsEnabled(cfg)
}

func exportsEnabled(cfg FileConfig) bool {
	return strings.TrimSpace(cfg.MinioEndpoint) != ""
}

// ParseJWTLeeway parses the optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(leewayStr)
	if err != nil {
		return 0, fmt.Errorf("invalid jwtLeeway duration: %w", err)
	}
	return dur, nil
}
