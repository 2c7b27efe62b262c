package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Verification VerificationConfig
	Matching     MatchingConfig
	Cache        CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds unified Redis connection settings.
// Supported modes: single, sentinel, cluster.
type RedisConfig struct {
	// Mode selects the Redis topology ("single", "sentinel", "cluster").
	// Defaults to "single".
	Mode string `mapstructure:"mode"`

	// Addrs lists Redis addresses (host:port), used by all modes. For
	// single mode the first address wins when non-empty.
	Addrs []string `mapstructure:"addrs"`

	// Addr is the single-mode fallback used when Addrs is empty.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName names the Redis master (sentinel mode only).
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// AuthConfig holds admin authentication settings.
type AuthConfig struct {
	// JWTSecret signs admin-scope tokens.
	JWTSecret string `mapstructure:"jwt_secret"`
	// TokenTTLHours bounds admin token lifetime.
	TokenTTLHours int `mapstructure:"token_ttl_hours"`
	// AdminAPIKeyHash is the bcrypt hash of the admin API key accepted on
	// the X-API-Key header. Empty disables API key auth.
	AdminAPIKeyHash string `mapstructure:"admin_api_key_hash"`
}

// VerificationConfig holds the link verification workflow settings.
type VerificationConfig struct {
	// CodeTTLMinutes is the verification code lifetime. Minutes-scale on
	// purpose: the code only needs to survive a human relaying it.
	CodeTTLMinutes int `mapstructure:"code_ttl_minutes"`
	// CodeLength is the verification code length.
	CodeLength int `mapstructure:"code_length"`
	// CodePepper is mixed into the stored code hashes.
	CodePepper string `mapstructure:"code_pepper"`
}

// MatchingConfig holds signal thresholds and fusion bonuses. The defaults
// are hand-tuned starting points, not validated optima.
type MatchingConfig struct {
	UsernameThreshold    float64 `mapstructure:"username_threshold"`
	TemporalFloor        float64 `mapstructure:"temporal_floor"`
	TemporalWeight       float64 `mapstructure:"temporal_weight"`
	SocialMinShared      int64   `mapstructure:"social_min_shared"`
	SocialPerRoomWeight  float64 `mapstructure:"social_per_room_weight"`
	SocialCap            float64 `mapstructure:"social_cap"`
	UsernameBonus        float64 `mapstructure:"username_bonus"`
	TemporalBonus        float64 `mapstructure:"temporal_bonus"`
	SocialBonus          float64 `mapstructure:"social_bonus"`
	AutoLinkThreshold    float64 `mapstructure:"auto_link_threshold"`
	CandidateLimit       int     `mapstructure:"candidate_limit"`
	MinHistogramMessages int64   `mapstructure:"min_histogram_messages"`
}

// CacheConfig holds resolve cache settings.
type CacheConfig struct {
	ResolveTTLSeconds int `mapstructure:"resolve_ttl_seconds"`
}

// PostgresConnectionString builds the PostgreSQL DSN.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// CodeTTL returns the verification code lifetime as a duration.
func (v *VerificationConfig) CodeTTL() time.Duration {
	return time.Duration(v.CodeTTLMinutes) * time.Minute
}

// ResolveTTL returns the resolve cache lifetime as a duration.
func (c *CacheConfig) ResolveTTL() time.Duration {
	return time.Duration(c.ResolveTTLSeconds) * time.Second
}

// Load reads configuration from an optional YAML file plus explicitly
// bound environment variables. Env vars win over file values.
func Load(configPath string) (*Config, error) {
	vip := viper.New()

	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 10)
	vip.SetDefault("server.writetimeout", 10)
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("auth.token_ttl_hours", 12)
	vip.SetDefault("verification.code_ttl_minutes", 15)
	vip.SetDefault("verification.code_length", 6)
	vip.SetDefault("cache.resolve_ttl_seconds", 30)

	vip.SetDefault("matching.username_threshold", 70.0)
	vip.SetDefault("matching.temporal_floor", 0.7)
	vip.SetDefault("matching.temporal_weight", 60.0)
	vip.SetDefault("matching.social_min_shared", 3)
	vip.SetDefault("matching.social_per_room_weight", 10.0)
	vip.SetDefault("matching.social_cap", 80.0)
	vip.SetDefault("matching.username_bonus", 15.0)
	vip.SetDefault("matching.temporal_bonus", 15.0)
	vip.SetDefault("matching.social_bonus", 20.0)
	vip.SetDefault("matching.auto_link_threshold", 80.0)
	vip.SetDefault("matching.candidate_limit", 50)
	vip.SetDefault("matching.min_histogram_messages", 20)

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	vip.BindEnv("auth.token_ttl_hours", "AUTH_TOKEN_TTL_HOURS")
	vip.BindEnv("auth.admin_api_key_hash", "AUTH_ADMIN_API_KEY_HASH")

	vip.BindEnv("verification.code_ttl_minutes", "VERIFICATION_CODE_TTL_MINUTES")
	vip.BindEnv("verification.code_length", "VERIFICATION_CODE_LENGTH")
	vip.BindEnv("verification.code_pepper", "VERIFICATION_CODE_PEPPER")

	vip.BindEnv("server.port", "SERVER_PORT")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Config file '%s' not found, using environment variables and defaults.", configPath)
			} else {
				log.Printf("Warning: could not read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
