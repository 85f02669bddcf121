package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/logger"
)

// BaseConfig holds configuration shared by every process entrypoint.
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN builds the Postgres connection string gorm.Open(postgres.Open(...)) expects.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// NATSConfig holds NATS JetStream configuration for the Notifier.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// ServerConfig holds the read-only HTTP listing endpoint configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// WorkerConfig holds the Confirmation Tracker's shared worker pool sizing.
type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// MonitorEntry is the raw configuration shape of one monitored wallet.
type MonitorEntry struct {
	WalletAddress string `mapstructure:"walletAddress"`
	TokenAddress  string `mapstructure:"tokenAddress"`
	TokenDecimals int    `mapstructure:"tokenDecimals"`
}

// ChainEntry is the raw configuration shape of one chain, matching
// spec.md §6's configuration schema exactly.
type ChainEntry struct {
	Name                   string         `mapstructure:"name"`
	HTTPURL                string         `mapstructure:"httpUrl"`
	WSURL                  string         `mapstructure:"wsUrl"`
	RequiredConfirmations  int            `mapstructure:"requiredConfirmations"`
	Monitor                []MonitorEntry `mapstructure:"monitor"`
}

// Config is the full configuration for the deposit-watcher process.
type Config struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	Database   DatabaseConfig `mapstructure:"database"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Worker     WorkerConfig   `mapstructure:"worker"`
	Chains     []ChainEntry   `mapstructure:"chains"`
}

// Load reads configuration from a YAML file (or FF-style environment
// variables when no file is present) plus .env overlays, grounded on the
// teacher's configureViper/LoadXConfig pattern.
func Load(configFile string, envPath string) (*Config, error) {
	v := configureViper(configFile, envPath)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "DEPOSITS")
	v.SetDefault("worker.pool_size", 5)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func configureViper(configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("cmd/deposit-watcher/")
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("DEPOSIT_WATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func loadEnv(envPath string) {
	if envPath == "" {
		envPath = "config/"
	}
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(filepath.Join(envPath, envFile))
	}
}

// ChainConfigs converts the raw configuration entries into domain chain
// configurations, skipping entries with a missing httpUrl or an unparseable
// address and logging a warning for each — spec.md §7's Configuration error
// policy ("Skip that chain entry; log warning; continue with remaining
// chains").
func (c *Config) ChainConfigs() []domain.ChainConfig {
	out := make([]domain.ChainConfig, 0, len(c.Chains))

	for _, entry := range c.Chains {
		if entry.HTTPURL == "" {
			logger.Warn("skipping chain with missing httpUrl", zap.String("chain", entry.Name))
			continue
		}

		monitors := validateMonitors(entry.Name, entry.Monitor)

		requiredConfirmations := entry.RequiredConfirmations
		if requiredConfirmations <= 0 {
			requiredConfirmations = 12
		}

		out = append(out, domain.ChainConfig{
			Name:                  entry.Name,
			HTTPURL:               entry.HTTPURL,
			WSURL:                 entry.WSURL,
			RequiredConfirmations: uint64(requiredConfirmations),
			Monitors:              monitors,
		})
	}

	return out
}

func validateMonitors(chainName string, entries []MonitorEntry) []domain.Monitor {
	monitors := make([]domain.Monitor, 0, len(entries))

	for _, m := range entries {
		if !common.IsHexAddress(m.WalletAddress) {
			logger.Warn("skipping monitor with unparseable wallet address",
				zap.String("chain", chainName), zap.String("walletAddress", m.WalletAddress))
			continue
		}

		if m.TokenAddress != "" && !common.IsHexAddress(m.TokenAddress) {
			logger.Warn("skipping monitor with unparseable token address",
				zap.String("chain", chainName), zap.String("tokenAddress", m.TokenAddress))
			continue
		}

		decimals := m.TokenDecimals
		if m.TokenAddress == "" {
			decimals = 18
		}

		monitors = append(monitors, domain.Monitor{
			WalletAddress: domain.NormalizeAddress(m.WalletAddress),
			TokenAddress:  domain.NormalizeAddress(m.TokenAddress),
			TokenDecimals: decimals,
		})
	}

	return monitors
}
