package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverMySQL  = "mysql"
	StoreDriverMemory = "memory"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Log      LogConfig
	Order    OrderConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

type LogConfig struct {
	Level string
}

type OrderConfig struct {
	TxTimeout        time.Duration
	MaxRetryAttempts int
	MaxItems         int
	// RefundOnCancel credits the wallet back when a wallet-paid order is cancelled.
	RefundOnCancel bool
}

// Load reads the optional YAML file at path and lets environment variables override
// every key (db_host <- DB_HOST). An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("server_port", 8080)
	v.SetDefault("server_read_timeout", "10s")
	v.SetDefault("server_write_timeout", "10s")
	v.SetDefault("server_shutdown_timeout", "10s")
	v.SetDefault("store_driver", StoreDriverMySQL)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 3306)
	v.SetDefault("db_user", "pharmacart")
	v.SetDefault("db_password", "secret")
	v.SetDefault("db_name", "pharmacart")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", "5m")
	v.SetDefault("db_migrate", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("order_tx_timeout", "5s")
	v.SetDefault("order_max_retry_attempts", 3)
	v.SetDefault("order_max_items", 100)
	v.SetDefault("order_refund_on_cancel", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	connMaxLifetime, err := time.ParseDuration(v.GetString("db_conn_max_lifetime"))
	if err != nil {
		return nil, fmt.Errorf("parsing db_conn_max_lifetime: %w", err)
	}

	txTimeout, err := time.ParseDuration(v.GetString("order_tx_timeout"))
	if err != nil {
		return nil, fmt.Errorf("parsing order_tx_timeout: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("server_port"),
			ReadTimeout:     v.GetDuration("server_read_timeout"),
			WriteTimeout:    v.GetDuration("server_write_timeout"),
			ShutdownTimeout: v.GetDuration("server_shutdown_timeout"),
		},
		Store: StoreConfig{
			Driver: v.GetString("store_driver"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("db_host"),
			Port:            v.GetInt("db_port"),
			User:            v.GetString("db_user"),
			Password:        v.GetString("db_password"),
			Name:            v.GetString("db_name"),
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
			Migrate:         v.GetBool("db_migrate"),
		},
		Log: LogConfig{
			Level: v.GetString("log_level"),
		},
		Order: OrderConfig{
			TxTimeout:        txTimeout,
			MaxRetryAttempts: v.GetInt("order_max_retry_attempts"),
			MaxItems:         v.GetInt("order_max_items"),
			RefundOnCancel:   v.GetBool("order_refund_on_cancel"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverMySQL, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store_driver %q", c.Store.Driver)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Order.TxTimeout <= 0 {
		return fmt.Errorf("order_tx_timeout must be positive")
	}
	if c.Order.MaxRetryAttempts < 1 {
		return fmt.Errorf("order_max_retry_attempts must be at least 1")
	}
	if c.Order.MaxItems < 1 {
		return fmt.Errorf("order_max_items must be at least 1")
	}
	return nil
}
