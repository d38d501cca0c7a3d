package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"time"

	"quorumcred/internal/credential/models"
	"quorumcred/pkg/domain"
	platformstrings "quorumcred/pkg/platform/strings"
)

// Server captures process level configuration, grouped by concern.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	TrustedProxies []netip.Prefix
	Database       DatabaseConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	Auth           AuthConfig
	Metadata       MetadataConfig
	Registry       RegistryConfig
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers         string
	Topic           string
	ConsumerGroup   string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// Enabled reports whether the Kafka relay should run.
func (k KafkaConfig) Enabled() bool { return k.Brokers != "" }

type AuthConfig struct {
	JWTSigningKey string
	TokenTTL      time.Duration
	ChallengeTTL  time.Duration
	AdminToken    string
}

type MetadataConfig struct {
	PinURL     string
	GatewayURL string
	APIKey     string
	APISecret  string
	Timeout    time.Duration
}

// Pinning reports whether metadata goes to an external pinning service.
func (m MetadataConfig) Pinning() bool { return m.PinURL != "" }

// RegistryConfig holds the registry policies and read-side tuning.
type RegistryConfig struct {
	SelfSigning         models.SelfSigningPolicy
	ThresholdPolicy     models.ThresholdPolicy
	FeedPollInterval    time.Duration
	ReadAwaitTimeout    time.Duration
	LockTimeout         time.Duration
	BootstrapIssuers    []domain.Address
	BootstrapValidators []domain.Address
}

const devSigningKey = "dev-secret-key-change-in-production"

// Load reads the environment. Unlike most settings the self-signing policy has
// no default: running without an explicit decision is a startup error.
func Load() (Server, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Server, error) {
	var errs []error
	env := envReader{getenv: getenv, errs: &errs}

	cfg := Server{
		Addr:           env.str("QUORUMCRED_ADDR", ":8080"),
		Environment:    env.str("ENVIRONMENT", "development"),
		LogLevel:       env.str("LOG_LEVEL", "info"),
		TrustedProxies: env.prefixes("TRUSTED_PROXIES"),
		Database: DatabaseConfig{
			URL:             env.str("DATABASE_URL", ""),
			MaxOpenConns:    env.integer("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: env.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          env.str("REDIS_URL", ""),
			PoolSize:     env.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: env.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:         env.str("KAFKA_BROKERS", ""),
			Topic:           env.str("KAFKA_TOPIC", "quorumcred.credential.events"),
			ConsumerGroup:   env.str("KAFKA_CONSUMER_GROUP", ""),
			Acks:            env.str("KAFKA_ACKS", "all"),
			Retries:         env.integer("KAFKA_RETRIES", 3),
			DeliveryTimeout: env.duration("KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSigningKey: env.str("JWT_SIGNING_KEY", ""),
			TokenTTL:      env.duration("TOKEN_TTL", 15*time.Minute),
			ChallengeTTL:  env.duration("CHALLENGE_TTL", 5*time.Minute),
			AdminToken:    env.str("ADMIN_TOKEN", ""),
		},
		Metadata: MetadataConfig{
			PinURL:     env.str("METADATA_PIN_URL", ""),
			GatewayURL: env.str("METADATA_GATEWAY_URL", ""),
			APIKey:     env.str("METADATA_API_KEY", ""),
			APISecret:  env.str("METADATA_API_SECRET", ""),
			Timeout:    env.duration("METADATA_TIMEOUT", 10*time.Second),
		},
		Registry: RegistryConfig{
			FeedPollInterval:    env.duration("FEED_POLL_INTERVAL", 200*time.Millisecond),
			ReadAwaitTimeout:    env.duration("READ_AWAIT_TIMEOUT", 3*time.Second),
			LockTimeout:         env.duration("CREDENTIAL_LOCK_TIMEOUT", 5*time.Second),
			BootstrapIssuers:    env.addresses("BOOTSTRAP_ISSUERS"),
			BootstrapValidators: env.addresses("BOOTSTRAP_VALIDATORS"),
		},
	}

	selfSigning, err := models.ParseSelfSigningPolicy(getenv("CREDENTIAL_SELF_SIGNING"))
	if err != nil {
		errs = append(errs, fmt.Errorf("CREDENTIAL_SELF_SIGNING: %w", err))
	}
	cfg.Registry.SelfSigning = selfSigning

	threshold, err := models.ParseThresholdPolicy(getenv("CREDENTIAL_THRESHOLD_POLICY"))
	if err != nil {
		errs = append(errs, fmt.Errorf("CREDENTIAL_THRESHOLD_POLICY: %w", err))
	}
	cfg.Registry.ThresholdPolicy = threshold

	if cfg.Auth.JWTSigningKey == "" {
		if cfg.IsProduction() {
			errs = append(errs, errors.New("JWT_SIGNING_KEY is required in production"))
		}
		cfg.Auth.JWTSigningKey = devSigningKey
	}
	if cfg.IsProduction() && cfg.Auth.AdminToken == "" {
		errs = append(errs, errors.New("ADMIN_TOKEN is required in production"))
	}
	if cfg.Kafka.Enabled() && cfg.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set"))
	}

	if len(errs) > 0 {
		return Server{}, errors.Join(errs...)
	}
	return cfg, nil
}

func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// envReader collects parse errors so Load reports every bad variable at once.
type envReader struct {
	getenv func(string) string
	errs   *[]error
}

func (e envReader) str(key, fallback string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e envReader) integer(key string, fallback int) int {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		*e.errs = append(*e.errs, fmt.Errorf("%s: expected a non-negative integer, got %q", key, v))
		return fallback
	}
	return n
}

func (e envReader) duration(key string, fallback time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*e.errs = append(*e.errs, fmt.Errorf("%s: expected a positive duration, got %q", key, v))
		return fallback
	}
	return d
}

func (e envReader) addresses(key string) []domain.Address {
	var out []domain.Address
	for _, raw := range platformstrings.SplitList(e.getenv(key)) {
		addr, err := domain.ParseAddress(raw)
		if err != nil {
			*e.errs = append(*e.errs, fmt.Errorf("%s: %q: %w", key, raw, err))
			continue
		}
		out = append(out, addr)
	}
	return out
}

// prefixes accepts CIDR ranges and bare addresses, which become single-host prefixes.
func (e envReader) prefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range platformstrings.SplitList(e.getenv(key)) {
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			*e.errs = append(*e.errs, fmt.Errorf("%s: %q is neither a CIDR nor an IP", key, raw))
			continue
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}
