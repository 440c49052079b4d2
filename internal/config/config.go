// config.go
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port string

	StoreDriver       string
	MongoURI          string
	MongoDBName       string
	MongoTransactions bool

	JWTSecret    string
	JWTTTL       time.Duration
	AdminSecret  string
	SellerSecret string
	ClientURL    string

	RabbitURL string

	BlobURL       string
	PublicBaseURL string

	LogLevel  string
	LogPretty bool

	CORSOrigins []string
	GinMode     string
}

// Load reads .env (when present), an optional YAML file named by
// CONFIG_FILE, and the process environment, in that order of precedence
// from lowest to highest.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			if value == "" {
				return "", nil
			}
			return strings.ToLower(key), value
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables")
	}

	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	ttl, err := time.ParseDuration(getString(k, "jwt_ttl", "24h"))
	if err != nil {
		return nil, errors.Wrap(err, "parse JWT_TTL")
	}

	cfg := &Config{
		Port:              getString(k, "port", "5000"),
		StoreDriver:       getString(k, "store_driver", StoreMongo),
		MongoURI:          getString(k, "mongo_uri", "mongodb://localhost:27017"),
		MongoDBName:       getString(k, "mongo_db_name", "storefront"),
		MongoTransactions: getBool(k, "mongo_transactions", false),
		JWTSecret:         getString(k, "jwt_secret", ""),
		JWTTTL:            ttl,
		AdminSecret:       getString(k, "admin_secret", ""),
		SellerSecret:      getString(k, "seller_secret", ""),
		ClientURL:         getString(k, "client_url", "http://localhost:5173"),
		RabbitURL:         getString(k, "rabbit_url", ""),
		BlobURL:           getString(k, "blob_url", "file:///tmp/storefront-uploads"),
		PublicBaseURL:     strings.TrimRight(getString(k, "public_base_url", "http://localhost:5000/uploads"), "/"),
		LogLevel:          getString(k, "log_level", "info"),
		LogPretty:         getBool(k, "log_pretty", false),
		CORSOrigins:       splitList(getString(k, "cors_origins", "*")),
		GinMode:           getString(k, "gin_mode", "release"),
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return errors.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func getString(k *koanf.Koanf, key, fallback string) string {
	if k.Exists(key) {
		if v := strings.TrimSpace(k.String(key)); v != "" {
			return v
		}
	}
	return fallback
}

func getBool(k *koanf.Koanf, key string, fallback bool) bool {
	switch strings.ToLower(getString(k, key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
