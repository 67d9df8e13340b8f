package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shrdaa/backend/internal/database"
	"github.com/shrdaa/backend/internal/identity"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Storage  database.StorageConfig
	Database database.DBConfig
	Redis    database.RedisConfig
	JWT      JWTConfig
	Security SecurityConfig
	Ledger   LedgerConfig
}

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level  string
	Format string
}

type JWTConfig struct {
	SecretKey   string
	ExpiryHours int
}

func (c JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryHours) * time.Hour
}

type SecurityConfig struct {
	PasswordScheme string
	Argon2         identity.Argon2Params
}

// LedgerConfig holds the role-dependent opening balances.
type LedgerConfig struct {
	DefaultBalanceGovtOfficer decimal.Decimal
	DefaultBalanceBeneficiary decimal.Decimal
}

var envBindings = map[string]string{
	"server.port":                         "PORT",
	"log.level":                           "LOG_LEVEL",
	"log.format":                          "LOG_FORMAT",
	"storage.driver":                      "STORAGE_DRIVER",
	"storage.dir":                         "STORAGE_DIR",
	"database.host":                       "DATABASE_HOST",
	"database.port":                       "DATABASE_PORT",
	"database.user":                       "DATABASE_USER",
	"database.password":                   "DATABASE_PASSWORD",
	"database.name":                       "DATABASE_NAME",
	"database.ssl_mode":                   "DATABASE_SSL_MODE",
	"redis.host":                          "REDIS_HOST",
	"redis.port":                          "REDIS_PORT",
	"redis.password":                      "REDIS_PASSWORD",
	"redis.db":                            "REDIS_DB",
	"jwt.secret_key":                      "JWT_SECRET_KEY",
	"jwt.expiry_hours":                    "JWT_EXPIRY_HOURS",
	"security.password_scheme":            "PASSWORD_SCHEME",
	"argon2.time":                         "ARGON2_TIME",
	"argon2.memory":                       "ARGON2_MEMORY",
	"argon2.threads":                      "ARGON2_THREADS",
	"argon2.key_length":                   "ARGON2_KEY_LENGTH",
	"argon2.salt_length":                  "ARGON2_SALT_LENGTH",
	"ledger.default_balance_govt_officer": "DEFAULT_BALANCE_GOVT_OFFICER",
	"ledger.default_balance_beneficiary":  "DEFAULT_BALANCE_BENEFICIARY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")

	v.SetDefault("storage.driver", database.DriverCSV)
	v.SetDefault("storage.dir", "./database")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "shrdaa")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Minute*5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.expiry_hours", 24)

	argon := identity.DefaultArgon2Params()
	v.SetDefault("security.password_scheme", identity.SchemeSHA256)
	v.SetDefault("argon2.time", argon.Time)
	v.SetDefault("argon2.memory", argon.Memory)
	v.SetDefault("argon2.threads", argon.Threads)
	v.SetDefault("argon2.key_length", argon.KeyLength)
	v.SetDefault("argon2.salt_length", argon.SaltLength)

	v.SetDefault("ledger.default_balance_govt_officer", "100000000")
	v.SetDefault("ledger.default_balance_beneficiary", "1000000")
}

// Load reads configuration from path (any format viper understands), or
// from ./.env when path is empty. Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(".env")
		if err := v.ReadInConfig(); err != nil {
			slog.Debug("Config file not found, using defaults", "module", "config", "error", err)
		}
	}

	govt, err := decimal.NewFromString(v.GetString("ledger.default_balance_govt_officer"))
	if err != nil {
		return nil, fmt.Errorf("ledger.default_balance_govt_officer: %w", err)
	}
	beneficiary, err := decimal.NewFromString(v.GetString("ledger.default_balance_beneficiary"))
	if err != nil {
		return nil, fmt.Errorf("ledger.default_balance_beneficiary: %w", err)
	}
	if govt.IsNegative() || beneficiary.IsNegative() {
		return nil, fmt.Errorf("default balances must not be negative")
	}

	return &Config{
		Server: ServerConfig{Port: v.GetString("server.port")},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Storage: database.StorageConfig{
			Driver: v.GetString("storage.driver"),
			Dir:    v.GetString("storage.dir"),
		},
		Database: database.DBConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: database.RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			SecretKey:   v.GetString("jwt.secret_key"),
			ExpiryHours: v.GetInt("jwt.expiry_hours"),
		},
		Security: SecurityConfig{
			PasswordScheme: v.GetString("security.password_scheme"),
			Argon2: identity.Argon2Params{
				Time:       v.GetUint32("argon2.time"),
				Memory:     v.GetUint32("argon2.memory"),
				Threads:    uint8(v.GetUint("argon2.threads")),
				KeyLength:  v.GetUint32("argon2.key_length"),
				SaltLength: v.GetInt("argon2.salt_length"),
			},
		},
		Ledger: LedgerConfig{
			DefaultBalanceGovtOfficer: govt,
			DefaultBalanceBeneficiary: beneficiary,
		},
	}, nil
}
