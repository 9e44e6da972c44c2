package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr        string `yaml:"addr"`
		MetricsAddr string `yaml:"metrics_addr"`
		// BasePath prefixes the public endpoints (schema, token).
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`

	// Homepage is the public site URL; identity tokens carry it as issuer
	// and relative user pictures resolve against it.
	Homepage string `yaml:"homepage"`

	// ServiceURL is the public base the schema proxy writes into rewritten
	// references. Defaults to Homepage.
	ServiceURL string `yaml:"service_url"`

	// ReservedNamespaces may not be claimed by tenant schemas.
	ReservedNamespaces []string `yaml:"reserved_namespaces"`

	Proxy struct {
		HTTPProxy string `yaml:"http_proxy"`
		NoProxy   string `yaml:"no_proxy"`
	} `yaml:"proxy"`

	Storage struct {
		Driver string `yaml:"driver"` // memory | mongo | postgres
		Mongo  struct {
			URI      string `yaml:"uri"`
			Database string `yaml:"database"`
		} `yaml:"mongo"`
	} `yaml:"storage"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		Backend     string `yaml:"backend"` // memory | redis
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`
		Redis       struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"rate"`

	Tokens struct {
		// AccountTokenSpan overrides the default account-token lifetime.
		AccountTokenSpan string `yaml:"account_token_span"`
	} `yaml:"tokens"`

	Identity struct {
		// Alg selects the identity-token signature: "none" or "HS256".
		Alg    string `yaml:"alg"`
		Secret string `yaml:"secret"`
	} `yaml:"identity"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// SchemaPath is the schema proxy route under the base path.
func (c *Config) SchemaPath() string { return c.Server.BasePath + "/schema" }

// TokenPath is the grant-exchange route under the base path.
func (c *Config) TokenPath() string { return c.Server.BasePath + "/token" }

// RateWindow parses the configured window; Load already validated it.
func (c *Config) RateWindow() time.Duration {
	d, _ := time.ParseDuration(c.Rate.Window)
	return d
}

// AccountTokenSpan parses the configured span; zero means "use the
// default".
func (c *Config) AccountTokenSpan() time.Duration {
	if c.Tokens.AccountTokenSpan == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Tokens.AccountTokenSpan)
	return d
}

// NamespaceReserved reports whether ns collides with a reserved namespace,
// case-insensitively.
func (c *Config) NamespaceReserved(ns string) bool {
	for _, r := range c.ReservedNamespaces {
		if strings.EqualFold(r, ns) {
			return true
		}
	}
	return false
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/api/v2"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Rate.Backend == "" {
		c.Rate.Backend = "memory"
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}
	if c.Identity.Alg == "" {
		c.Identity.Alg = "none"
	}
	if len(c.ReservedNamespaces) == 0 {
		c.ReservedNamespaces = []string{"default", "system"}
	}

	c.applyEnvOverrides()

	if c.ServiceURL == "" {
		c.ServiceURL = c.Homepage
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Server.BasePath, "/") || strings.HasSuffix(c.Server.BasePath, "/") {
		return fmt.Errorf("config: base_path must start and must not end with '/': %q", c.Server.BasePath)
	}
	if _, err := time.ParseDuration(c.Rate.Window); err != nil {
		return fmt.Errorf("config: rate.window: %w", err)
	}
	if c.Tokens.AccountTokenSpan != "" {
		if _, err := time.ParseDuration(c.Tokens.AccountTokenSpan); err != nil {
			return fmt.Errorf("config: tokens.account_token_span: %w", err)
		}
	}
	switch c.Storage.Driver {
	case "memory", "mongo", "postgres":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "mongo" && c.Storage.Mongo.URI == "" {
		return fmt.Errorf("config: storage.mongo.uri required for the mongo driver")
	}
	switch c.Rate.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown rate backend %q", c.Rate.Backend)
	}
	if c.Rate.Enabled && c.Rate.Backend == "redis" && c.Rate.Redis.Addr == "" {
		return fmt.Errorf("config: rate.redis.addr required for the redis backend")
	}
	if strings.EqualFold(c.App.Env, "prod") {
		if c.Homepage == "" {
			return fmt.Errorf("config: homepage required in prod")
		}
		if c.Identity.Alg == "none" {
			return fmt.Errorf("config: identity.alg \"none\" is not allowed in prod")
		}
	}
	if c.Identity.Alg == "HS256" && c.Identity.Secret == "" {
		return fmt.Errorf("config: identity.secret required for HS256")
	}
	return nil
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides lets the environment override config.yaml.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("METRICS_ADDR"); ok {
		c.Server.MetricsAddr = v
	}
	if v, ok := getEnvStr("BASE_PATH"); ok {
		c.Server.BasePath = v
	}
	if v, ok := getEnvStr("HOMEPAGE"); ok {
		c.Homepage = v
	}
	if v, ok := getEnvStr("SERVICE_URL"); ok {
		c.ServiceURL = v
	}
	if v, ok := getEnvCSV("RESERVED_NAMESPACES"); ok {
		c.ReservedNamespaces = v
	}

	if v, ok := getEnvStr("HTTP_PROXY"); ok {
		c.Proxy.HTTPProxy = v
	}
	if v, ok := getEnvStr("NO_PROXY"); ok {
		c.Proxy.NoProxy = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("MONGO_URI"); ok {
		c.Storage.Mongo.URI = v
	}
	if v, ok := getEnvStr("MONGO_DATABASE"); ok {
		c.Storage.Mongo.Database = v
	}

	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("RATE_BACKEND"); ok {
		c.Rate.Backend = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Rate.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Rate.Redis.DB = v
	}

	if v, ok := getEnvStr("ACCOUNT_TOKEN_SPAN"); ok {
		c.Tokens.AccountTokenSpan = v
	}

	if v, ok := getEnvStr("IDENTITY_ALG"); ok {
		c.Identity.Alg = v
	}
	if v, ok := getEnvStr("IDENTITY_SECRET"); ok {
		c.Identity.Secret = v
	}

	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}
