package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port             string `mapstructure:"PORT"`
	Env              string `mapstructure:"ENV"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
	LogFormat        string `mapstructure:"LOG_FORMAT"`
	StoreDriver      string `mapstructure:"STORE_DRIVER"`
	MongoURI         string `mapstructure:"MONGO_URI"`
	MongoDatabase    string `mapstructure:"MONGO_DATABASE"`
	FirebaseProject  string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int    `mapstructure:"REDIS_DB"`
	CacheTTLSeconds  int    `mapstructure:"CACHE_TTL_SECONDS"`
	JWTSecret        string `mapstructure:"JWT_SECRET"`
	JWTIssuer        string `mapstructure:"JWT_ISSUER"`
	TokenTTLMinutes  int    `mapstructure:"TOKEN_TTL_MINUTES"`
	NurseCapacity    int64  `mapstructure:"NURSE_CAPACITY"`
	PushEnabled      bool   `mapstructure:"PUSH_ENABLED"`
	MQTTBroker       string `mapstructure:"MQTT_BROKER"`
	MQTTClientID     string `mapstructure:"MQTT_CLIENT_ID"`
	MQTTTopicPrefix  string `mapstructure:"MQTT_TOPIC_PREFIX"`
	PredictorURL     string `mapstructure:"PREDICTOR_URL"`
	ReconcileCron    string `mapstructure:"RECONCILE_SCHEDULE"`
	CORSOrigins      string `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT", "STORE_DRIVER",
	"MONGO_URI", "MONGO_DATABASE", "FIREBASE_PROJECT_ID", "FIREBASE_CREDENTIALS_FILE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CACHE_TTL_SECONDS",
	"JWT_SECRET", "JWT_ISSUER", "TOKEN_TTL_MINUTES", "NURSE_CAPACITY",
	"PUSH_ENABLED", "MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_TOPIC_PREFIX",
	"PREDICTOR_URL", "RECONCILE_SCHEDULE", "CORS_ORIGINS",
}

/*
* Load the .env file when present, the process environment wins
* Bind every key explicitly so Unmarshal sees it
* Apply defaults
 */
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_DRIVER", "mongo")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MONGO_DATABASE", "mamacare")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL_SECONDS", 3600)
	v.SetDefault("JWT_ISSUER", "mamacare")
	v.SetDefault("TOKEN_TTL_MINUTES", 60)
	v.SetDefault("NURSE_CAPACITY", 5)
	v.SetDefault("PUSH_ENABLED", false)
	v.SetDefault("MQTT_CLIENT_ID", "mamacare-api")
	v.SetDefault("MQTT_TOPIC_PREFIX", "mamacare")
	v.SetDefault("PREDICTOR_URL", "http://localhost:8000")
	v.SetDefault("RECONCILE_SCHEDULE", "15 2 * * *")
	v.SetDefault("CORS_ORIGINS", "*")

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "test"
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	var errs []error
	if c.NurseCapacity <= 0 {
		errs = append(errs, fmt.Errorf("NURSE_CAPACITY must be positive, got %d", c.NurseCapacity))
	}
	if c.TokenTTLMinutes <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL_MINUTES must be positive, got %d", c.TokenTTLMinutes))
	}
	if !c.IsDev() && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes outside development"))
	}
	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" || c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_URI and MONGO_DATABASE are required for the mongo driver"))
		}
	case "firestore":
		if c.FirebaseProject == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for the firestore driver"))
		}
	case "memory":
		if !c.IsDev() {
			errs = append(errs, errors.New("the memory driver is only allowed in development"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be mongo, firestore or memory, got %q", c.StoreDriver))
	}
	if c.PushEnabled && c.FirebaseProject == "" {
		errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required when PUSH_ENABLED is set"))
	}
	return errors.Join(errs...)
}
