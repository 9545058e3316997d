package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Platform   PlatformConfig
	Database   DatabaseConfig
	Kubernetes KubernetesConfig
	Nodes      NodesConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type PlatformConfig struct {
	URL        string
	Token      string
	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int
	MaxRetries int
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

// DSN returns the postgres connection URL understood by pgxpool and migrate.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	DefaultNS      string
	PredictTimeout time.Duration
}

type NodesConfig struct {
	CloneMaxAttempts   int
	DefaultAdapter     string
	ClearModelMetadata []string
}

// Adapter backends for the prediction node.
const (
	AdapterPlatform = "platform"
	AdapterKServe   = "kserve"
)

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment from .env")
	}

	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.SetDefault("PLATFORM_URL", "http://localhost:8085/api/v1")
	v.SetDefault("PLATFORM_TOKEN", "")
	v.SetDefault("PLATFORM_TIMEOUT", "30s")
	v.SetDefault("PLATFORM_RATE_LIMIT", 10.0)
	v.SetDefault("PLATFORM_RATE_BURST", 5)
	v.SetDefault("PLATFORM_MAX_RETRIES", 3)

	v.SetDefault("DATABASE_ENABLED", false)
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_NAME", "pipeline_nodes")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DATABASE_MIGRATE_ON_START", true)

	v.SetDefault("KUBERNETES_ENABLED", false)
	v.SetDefault("KUBERNETES_IN_CLUSTER", false)
	v.SetDefault("KUBERNETES_KUBECONFIG", "")
	v.SetDefault("KUBERNETES_NAMESPACE", "model-serving")
	v.SetDefault("KUBERNETES_PREDICT_TIMEOUT", "60s")

	v.SetDefault("NODES_CLONE_MAX_ATTEMPTS", 50)
	v.SetDefault("NODES_DEFAULT_ADAPTER", AdapterPlatform)
	v.SetDefault("NODES_CLEAR_MODEL_METADATA", "train,validation")

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Platform: PlatformConfig{
			URL:        strings.TrimSuffix(v.GetString("PLATFORM_URL"), "/"),
			Token:      v.GetString("PLATFORM_TOKEN"),
			Timeout:    durationOr(v.GetString("PLATFORM_TIMEOUT"), 30*time.Second),
			RateLimit:  v.GetFloat64("PLATFORM_RATE_LIMIT"),
			RateBurst:  v.GetInt("PLATFORM_RATE_BURST"),
			MaxRetries: v.GetInt("PLATFORM_MAX_RETRIES"),
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("DATABASE_ENABLED"),
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Name:            v.GetString("DATABASE_NAME"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: durationOr(v.GetString("DATABASE_CONN_MAX_LIFETIME"), 30*time.Minute),
			MigrateOnStart:  v.GetBool("DATABASE_MIGRATE_ON_START"),
		},
		Kubernetes: KubernetesConfig{
			Enabled:        v.GetBool("KUBERNETES_ENABLED"),
			InCluster:      v.GetBool("KUBERNETES_IN_CLUSTER"),
			KubeConfigPath: v.GetString("KUBERNETES_KUBECONFIG"),
			DefaultNS:      v.GetString("KUBERNETES_NAMESPACE"),
			PredictTimeout: durationOr(v.GetString("KUBERNETES_PREDICT_TIMEOUT"), 60*time.Second),
		},
		Nodes: NodesConfig{
			CloneMaxAttempts:   v.GetInt("NODES_CLONE_MAX_ATTEMPTS"),
			DefaultAdapter:     strings.ToLower(v.GetString("NODES_DEFAULT_ADAPTER")),
			ClearModelMetadata: splitList(v.GetString("NODES_CLEAR_MODEL_METADATA")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Platform.URL == "" {
		return fmt.Errorf("PLATFORM_URL is required")
	}
	switch c.Nodes.DefaultAdapter {
	case AdapterPlatform, AdapterKServe:
	default:
		return fmt.Errorf("NODES_DEFAULT_ADAPTER must be %q or %q, got %q",
			AdapterPlatform, AdapterKServe, c.Nodes.DefaultAdapter)
	}
	if c.Nodes.CloneMaxAttempts <= 0 {
		return fmt.Errorf("NODES_CLONE_MAX_ATTEMPTS must be positive")
	}
	return nil
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// splitList parses a comma separated list, dropping blank entries.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
