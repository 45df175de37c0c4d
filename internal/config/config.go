package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Log          LogConfig
	Telegram     TelegramConfig
	Webhook      WebhookConfig
	Order        OrderConfig
	Conversation ConversationConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type TelegramConfig struct {
	BotToken      string
	ChatID        string
	APIURL        string
	Mode          string
	PollTimeout   time.Duration
	NotifyTimeout time.Duration
}

type WebhookConfig struct {
	Secret          string
	ExternalHost    string
	Path            string
	QueueCapacity   int
	DispatchWorkers int
}

type OrderConfig struct {
	MaxRetryAttempts  int
	TxTimeout         time.Duration
	StrictCredentials bool
}

type ConversationConfig struct {
	SessionIdleTimeout time.Duration
}

// Load reads the configuration from the environment. When configFile is not
// empty it is read first and environment variables override it.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 5000)
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "motomaster")
	v.SetDefault("DB_PASSWORD", "secret")
	v.SetDefault("DB_NAME", "motomaster")
	v.SetDefault("DB_PATH", "orders.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("TELEGRAM_API_URL", "https://api.telegram.org")
	v.SetDefault("BOT_MODE", ModePolling)
	v.SetDefault("POLL_TIMEOUT", "30s")
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("WEBHOOK_PATH", "/telegram_webhook")
	v.SetDefault("QUEUE_CAPACITY", 1024)
	v.SetDefault("DISPATCH_WORKERS", 1)
	v.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", 3)
	v.SetDefault("ORDER_TX_TIMEOUT", "5s")
	v.SetDefault("STRICT_CREDENTIALS", false)
	v.SetDefault("SESSION_IDLE_TIMEOUT", "0s")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	durations := map[string]time.Duration{}
	for _, key := range []string{"DB_CONN_MAX_LIFETIME", "POLL_TIMEOUT", "NOTIFY_TIMEOUT", "ORDER_TX_TIMEOUT", "SESSION_IDLE_TIMEOUT"} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", key, err)
		}
		durations[key] = d
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			Path:            v.GetString("DB_PATH"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: durations["DB_CONN_MAX_LIFETIME"],
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Telegram: TelegramConfig{
			BotToken:      strings.TrimSpace(v.GetString("TELEGRAM_BOT_TOKEN")),
			ChatID:        strings.TrimSpace(v.GetString("TELEGRAM_CHAT_ID")),
			APIURL:        v.GetString("TELEGRAM_API_URL"),
			Mode:          strings.ToLower(strings.TrimSpace(v.GetString("BOT_MODE"))),
			PollTimeout:   durations["POLL_TIMEOUT"],
			NotifyTimeout: durations["NOTIFY_TIMEOUT"],
		},
		Webhook: WebhookConfig{
			Secret:          v.GetString("WEBHOOK_SECRET"),
			ExternalHost:    strings.TrimSpace(v.GetString("RENDER_EXTERNAL_HOSTNAME")),
			Path:            v.GetString("WEBHOOK_PATH"),
			QueueCapacity:   v.GetInt("QUEUE_CAPACITY"),
			DispatchWorkers: v.GetInt("DISPATCH_WORKERS"),
		},
		Order: OrderConfig{
			MaxRetryAttempts:  v.GetInt("ORDER_MAX_RETRY_ATTEMPTS"),
			TxTimeout:         durations["ORDER_TX_TIMEOUT"],
			StrictCredentials: v.GetBool("STRICT_CREDENTIALS"),
		},
		Conversation: ConversationConfig{
			SessionIdleTimeout: durations["SESSION_IDLE_TIMEOUT"],
		},
	}

	return cfg, nil
}

// Validate reports the first missing or inconsistent setting. The process
// must not start when it fails.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	switch c.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Webhook.Secret == "" {
			return fmt.Errorf("WEBHOOK_SECRET is required in webhook mode")
		}
		if c.Webhook.ExternalHost == "" {
			return fmt.Errorf("RENDER_EXTERNAL_HOSTNAME is required in webhook mode")
		}
	default:
		return fmt.Errorf("unsupported BOT_MODE %q", c.Telegram.Mode)
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Order.MaxRetryAttempts < 1 {
		return fmt.Errorf("ORDER_MAX_RETRY_ATTEMPTS must be at least 1")
	}
	if c.Webhook.DispatchWorkers < 1 {
		return fmt.Errorf("DISPATCH_WORKERS must be at least 1")
	}
	return nil
}

// WebhookURL is the public URL registered with the Bot API.
func (c *Config) WebhookURL() string {
	return "https://" + c.Webhook.ExternalHost + c.Webhook.Path
}
