package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "JEBDEKHO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	RelayFanoutLocal = "local"
	RelayFanoutRedis = "redis"
	RelayFanoutAMQP  = "amqp"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Relay         RelayConfig
	Cron          CronConfig
	Marketplace   MarketplaceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	accessTTL := time.Duration(c.JWT.ExpirationMinutes) * time.Minute
	if accessTTL <= 0 {
		return errors.New("jwt expiration minutes must be positive")
	}
	if c.JWT.RefreshTokenTTL() <= accessTTL {
		return fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", c.JWT.RefreshTokenTTL(), accessTTL)
	}
	switch strings.ToLower(c.Relay.Fanout) {
	case RelayFanoutLocal, RelayFanoutRedis:
	case RelayFanoutAMQP:
		if c.Relay.AMQPURL == "" {
			return fmt.Errorf("%s_RELAY_AMQP_URL is required when relay fanout is amqp", EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown relay fanout %q", c.Relay.Fanout)
	}
	if c.Marketplace.TaxRatePercent.IsNegative() {
		return errors.New("tax rate cannot be negative")
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"JEBDEKHO_APP_ENV" required:"true"`
	Port         string `envconfig:"JEBDEKHO_APP_PORT" default:"5000"`
	LogLevel     string `envconfig:"JEBDEKHO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"JEBDEKHO_LOG_WARN_STACK" default:"false"`
	// SeedDemoData loads the demo catalog, users and promos at boot.
	SeedDemoData bool `envconfig:"JEBDEKHO_SEED_DEMO_DATA" default:"true"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `envconfig:"JEBDEKHO_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"JEBDEKHO_HTTP_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"JEBDEKHO_HTTP_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"JEBDEKHO_HTTP_SHUTDOWN_TIMEOUT" default:"20s"`
	CORSOrigins     []string      `envconfig:"JEBDEKHO_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:3001"`
}

// DBConfig is optional; without a DSN notifications stay in memory.
type DBConfig struct {
	DSN    string `envconfig:"JEBDEKHO_DB_DSN"`
	Driver string `envconfig:"JEBDEKHO_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"JEBDEKHO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"JEBDEKHO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"JEBDEKHO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"JEBDEKHO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"JEBDEKHO_DB_AUTO_MIGRATE" default:"false"`
}

// Enabled reports whether a database was configured.
func (d DBConfig) Enabled() bool {
	return strings.TrimSpace(d.DSN) != ""
}

type RedisConfig struct {
	URL          string        `envconfig:"JEBDEKHO_REDIS_URL"`
	Address      string        `envconfig:"JEBDEKHO_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"JEBDEKHO_REDIS_PASSWORD"`
	DB           int           `envconfig:"JEBDEKHO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"JEBDEKHO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"JEBDEKHO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"JEBDEKHO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"JEBDEKHO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"JEBDEKHO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"JEBDEKHO_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"JEBDEKHO_JWT_ISSUER" default:"jebdekho"`
	ExpirationMinutes      int    `envconfig:"JEBDEKHO_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"JEBDEKHO_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"JEBDEKHO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"JEBDEKHO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"JEBDEKHO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"JEBDEKHO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"JEBDEKHO_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"JEBDEKHO_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"JEBDEKHO_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"JEBDEKHO_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"JEBDEKHO_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"JEBDEKHO_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"JEBDEKHO_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	OTPWindow          time.Duration `envconfig:"JEBDEKHO_AUTH_RATE_LIMIT_OTP_WINDOW" default:"10m"`
	OTPIPLimit         int           `envconfig:"JEBDEKHO_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"10"`
}

type RelayConfig struct {
	// Fanout selects how events reach hubs on other instances: local, redis or amqp.
	Fanout         string        `envconfig:"JEBDEKHO_RELAY_FANOUT" default:"local"`
	RedisChannel   string        `envconfig:"JEBDEKHO_RELAY_REDIS_CHANNEL" default:"jd:relay"`
	AMQPURL        string        `envconfig:"JEBDEKHO_RELAY_AMQP_URL"`
	AMQPExchange   string        `envconfig:"JEBDEKHO_RELAY_AMQP_EXCHANGE" default:"jd.relay"`
	SubscriberBuf  int           `envconfig:"JEBDEKHO_RELAY_SUBSCRIBER_BUFFER" default:"64"`
	WriteTimeout   time.Duration `envconfig:"JEBDEKHO_RELAY_WRITE_TIMEOUT" default:"10s"`
	PingPeriod     time.Duration `envconfig:"JEBDEKHO_RELAY_PING_PERIOD" default:"30s"`
	MaxMessageSize int64         `envconfig:"JEBDEKHO_RELAY_MAX_MESSAGE_BYTES" default:"8192"`
}

type CronConfig struct {
	Enabled                   bool          `envconfig:"JEBDEKHO_CRON_ENABLED" default:"true"`
	Interval                  time.Duration `envconfig:"JEBDEKHO_CRON_INTERVAL" default:"1h"`
	LockKey                   string        `envconfig:"JEBDEKHO_CRON_LOCK_KEY" default:"jd:cron:lock"`
	LockTTL                   time.Duration `envconfig:"JEBDEKHO_CRON_LOCK_TTL" default:"50m"`
	NotificationRetentionDays int           `envconfig:"JEBDEKHO_NOTIFICATION_RETENTION_DAYS" default:"30"`
	CartTTL                   time.Duration `envconfig:"JEBDEKHO_CART_TTL" default:"24h"`
}

// MarketplaceConfig holds pricing rules shared by checkout and booking.
type MarketplaceConfig struct {
	FoodMinimumOrder decimal.Decimal `envconfig:"JEBDEKHO_FOOD_MINIMUM_ORDER" default:"150"`
	MartMinimumOrder decimal.Decimal `envconfig:"JEBDEKHO_MART_MINIMUM_ORDER" default:"200"`
	DeliveryFee      decimal.Decimal `envconfig:"JEBDEKHO_DELIVERY_FEE" default:"40"`
	TaxRatePercent   decimal.Decimal `envconfig:"JEBDEKHO_TAX_RATE_PERCENT" default:"5"`
	OTPTTL           time.Duration   `envconfig:"JEBDEKHO_OTP_TTL" default:"5m"`
	NearbyRadiusKM   float64         `envconfig:"JEBDEKHO_NEARBY_RADIUS_KM" default:"5"`
}

// DefaultMarketplace mirrors the envconfig defaults for callers that build services without Load.
func DefaultMarketplace() MarketplaceConfig {
	return MarketplaceConfig{
		FoodMinimumOrder: decimal.NewFromInt(150),
		MartMinimumOrder: decimal.NewFromInt(200),
		DeliveryFee:      decimal.NewFromInt(40),
		TaxRatePercent:   decimal.NewFromInt(5),
		OTPTTL:           5 * time.Minute,
		NearbyRadiusKM:   5,
	}
}
