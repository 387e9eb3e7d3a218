package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the auth service reads from the environment so
// main stays lean.
type Config struct {
	Addr        string
	ServiceName string

	Google   GoogleConfig
	JWT      JWTConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Postgres PostgresConfig

	// ExternalCallTimeout bounds provider-facing calls; InternalCallTimeout
	// bounds service-to-service round trips over the broker.
	ExternalCallTimeout time.Duration
	InternalCallTimeout time.Duration

	// Workers bounds the pool dispatching inbound broker messages.
	Workers int

	// ClientRedirectURI is where the OAuth callback sends the client after a
	// completed login, carrying the token pair as query parameters.
	ClientRedirectURI string
}

// GoogleConfig holds the provider registration. The endpoint URLs default to
// Google's and exist as fields so tests can point the client at a stub.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// NativeAudience is the client id mobile apps obtain ID tokens for.
	NativeAudience string

	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	TokenInfoURL string
}

// JWTConfig configures the token codec.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// KafkaConfig holds broker connection parameters.
type KafkaConfig struct {
	Brokers []string
	Group   string
}

// RedisConfig holds connection settings for the revocation store. URL empty
// means Redis is not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds the revocation store fallback DSN. Empty means
// Postgres is not configured.
type PostgresConfig struct {
	URL string
}

// FromEnv builds the service configuration from environment variables with
// development defaults.
func FromEnv() Config {
	return Config{
		Addr:        getenv("AUTH_ADDR", ":8080"),
		ServiceName: getenv("AUTH_SERVICE_NAME", "auth"),
		Google: GoogleConfig{
			ClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURI:    getenv("GOOGLE_REDIRECT_URI", "http://localhost:8080/oauth2/google/callback"),
			NativeAudience: os.Getenv("GOOGLE_NATIVE_CLIENT_ID"),
			AuthURL:        getenv("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/auth"),
			TokenURL:       getenv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			UserInfoURL:    getenv("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v3/userinfo"),
			TokenInfoURL:   getenv("GOOGLE_TOKENINFO_URL", "https://oauth2.googleapis.com/tokeninfo"),
		},
		JWT: JWTConfig{
			// Default for development - must be overridden in production.
			SigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     getenv("JWT_ISSUER", "authsvc"),
			AccessTTL:  getduration("JWT_ACCESS_TTL", time.Hour),
			RefreshTTL: getduration("JWT_REFRESH_TTL", 14*24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
			Group:   getenv("KAFKA_GROUP", "auth-service"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getint("REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getduration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("POSTGRES_URL"),
		},
		ExternalCallTimeout: getduration("EXTERNAL_CALL_TIMEOUT", 10*time.Second),
		InternalCallTimeout: getduration("INTERNAL_CALL_TIMEOUT", 5*time.Second),
		Workers:             getint("CONSUMER_WORKERS", 16),
		ClientRedirectURI:   getenv("CLIENT_REDIRECT_URI", "devkitchen://oauthredirect"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
