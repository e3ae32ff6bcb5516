package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/CivicGraph/demo-server/pkg/utils"
)

// ArangoConfig locates the graph database and its evstore service.
type ArangoConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port" validate:"min=1,max=65535"`
	Database     string `yaml:"database" validate:"required"`
	ServiceMount string `yaml:"service_mount" validate:"required"`
	BearerToken  string `yaml:"bearer_token"`
}

// Endpoint returns the HTTP endpoint of the coordinator.
func (a ArangoConfig) Endpoint() string {
	return fmt.Sprintf("http://%s:%d", a.Host, a.Port)
}

// CanonicalConfig names the shared lineage graph sessions are seeded from.
type CanonicalConfig struct {
	Graph              string   `yaml:"graph" validate:"required"`
	Prefix             string   `yaml:"prefix" validate:"required"`
	RootCollection     string   `yaml:"root_collection" validate:"required"`
	AllowedCollections []string `yaml:"allowed_collections"`
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment" validate:"oneof=development staging production test"`
	StaticDir     string `yaml:"static_dir"`

	// Storage
	StoreDriver    string       `yaml:"store_driver" validate:"oneof=arangodb memory"`
	RegistryDriver string       `yaml:"registry_driver" validate:"oneof=memory redis dynamodb"`
	Arango         ArangoConfig `yaml:"arango"`
	RedisURL       string       `yaml:"redis_url"`
	DynamoDBTable  string       `yaml:"dynamodb_table"`

	// AWS configuration
	AWSRegion    string `yaml:"aws_region"`
	EventBusName string `yaml:"event_bus_name"`
	IsLambda     bool   `yaml:"-"`

	// Sessions
	Canonical        CanonicalConfig `yaml:"canonical"`
	RemoveMaxDepth   int             `yaml:"remove_max_depth" validate:"min=1"`
	InitLeaseSeconds int             `yaml:"init_lease_seconds" validate:"min=1"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Authentication
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Feature flags
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
	EnableXRay    bool   `yaml:"enable_xray"`
	EnableCORS    bool   `yaml:"enable_cors"`

	// File is the YAML overlay the configuration was read from, if any.
	File string `yaml:"-"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		ServerAddress:  ":8080",
		Environment:    "development",
		StoreDriver:    "arangodb",
		RegistryDriver: "memory",
		Arango: ArangoConfig{
			Host:         "localhost",
			Port:         8529,
			Database:     "evstore",
			ServiceMount: "evstore",
		},
		AWSRegion:    "us-west-2",
		EventBusName: "",
		Canonical: CanonicalConfig{
			Graph:              "evstore_test_ss_lineage",
			Prefix:             "evstore_test_",
			RootCollection:     "evstore_test_stars",
			AllowedCollections: []string{"evstore_test_planets", "evstore_test_stars"},
		},
		RemoveMaxDepth:   10,
		InitLeaseSeconds: 30,
		LogLevel:         "info",
		JWTIssuer:        "lineage-demo",
		EnableCORS:       true,
	}
}

// LoadConfig reads defaults, then the YAML file named by CONFIG_FILE, then
// environment variables, and validates the result.
func LoadConfig() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func applyEnv(c *Config) {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)

	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.RegistryDriver = getEnv("REGISTRY_DRIVER", c.RegistryDriver)
	c.Arango.Host = getEnv("ARANGO_HOST", c.Arango.Host)
	c.Arango.Port = getEnvInt("ARANGO_PORT", c.Arango.Port)
	c.Arango.Database = getEnv("ARANGO_DATABASE", c.Arango.Database)
	c.Arango.ServiceMount = getEnv("ARANGO_SERVICE_MOUNT", c.Arango.ServiceMount)
	c.Arango.BearerToken = getEnv("BEARER_TOKEN", c.Arango.BearerToken)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.DynamoDBTable = getEnv("DYNAMODB_TABLE", c.DynamoDBTable)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.IsLambda = getEnv("AWS_LAMBDA_FUNCTION_NAME", "") != ""

	c.Canonical.Graph = getEnv("CANONICAL_GRAPH", c.Canonical.Graph)
	c.Canonical.Prefix = getEnv("CANONICAL_PREFIX", c.Canonical.Prefix)
	c.Canonical.RootCollection = getEnv("CANONICAL_ROOT_COLLECTION", c.Canonical.RootCollection)
	c.Canonical.AllowedCollections = getEnvList("CANONICAL_ALLOWED_COLLECTIONS", c.Canonical.AllowedCollections)
	c.RemoveMaxDepth = getEnvInt("REMOVE_MAX_DEPTH", c.RemoveMaxDepth)
	c.InitLeaseSeconds = getEnvInt("INIT_LEASE_SECONDS", c.InitLeaseSeconds)

	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)
	c.EnableXRay = getEnvBool("ENABLE_XRAY", c.EnableXRay)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.StoreDriver == "arangodb" && c.Arango.Host == "" {
		return fmt.Errorf("ARANGO_HOST is required for the arangodb store")
	}
	switch c.RegistryDriver {
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis registry")
		}
	case "dynamodb":
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb registry")
		}
	}
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.StoreDriver == "memory" {
			return fmt.Errorf("the memory store cannot be used in production")
		}
	}
	return nil
}

// InitLease returns the init lease TTL.
func (c *Config) InitLease() time.Duration {
	return time.Duration(c.InitLeaseSeconds) * time.Second
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
