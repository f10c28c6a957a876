package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// SecretsName is the base name of the secrets bundle inside the secrets directory.
	SecretsName = "secrets"
	// EnvPrefix namespaces environment overrides, e.g. RELAY_DISCORD_TOKEN.
	EnvPrefix = "RELAY"
)

type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Redis    RedisConfig    `mapstructure:"redis"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
	License  LicenseConfig  `mapstructure:"license"`
	Log      LogConfig      `mapstructure:"log"`
	Replay   ReplayConfig   `mapstructure:"replay"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Otel     OtelConfig     `mapstructure:"otel"`

	v  *viper.Viper
	mu sync.Mutex
}

type DiscordConfig struct {
	Token string `mapstructure:"token"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Prefix namespaces every key the relay touches.
	Prefix string `mapstructure:"prefix"`
}

type AMQPConfig struct {
	URL string `mapstructure:"url"`
	// EventsExchange receives every captured platform event.
	EventsExchange string `mapstructure:"events_exchange"`
	// CommandsExchange carries bus-delivered commands.
	CommandsExchange string `mapstructure:"commands_exchange"`
	// Queue is the single work queue all command routes are bound to.
	Queue    string `mapstructure:"queue"`
	Prefetch int    `mapstructure:"prefetch"`
	// Retry redelivers a failed bus command. It sits on top of the dispatch
	// retries, so every message-level attempt spends the dispatch budget again.
	Retry RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type LicenseConfig struct {
	Token string `mapstructure:"token"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Otel  bool   `mapstructure:"otel"`
}

// ReplayConfig is the safety switch of the archive replay. Disabled unless set.
type ReplayConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	PageSize int  `mapstructure:"page_size"`
}

type DispatchConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type AdminConfig struct {
	Addr string `mapstructure:"addr"`
}

// OtelConfig enables span export. Tracing stays local when Endpoint is empty.
type OtelConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.token", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "wopr:discord:")
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.events_exchange", "discord.events")
	v.SetDefault("amqp.commands_exchange", "discord.commands")
	v.SetDefault("amqp.queue", "discord-relay.commands.v1")
	v.SetDefault("amqp.prefetch", 16)
	v.SetDefault("amqp.retry.max_retries", 1)
	v.SetDefault("amqp.retry.initial_interval", 2*time.Second)
	v.SetDefault("amqp.retry.max_interval", 15*time.Second)
	v.SetDefault("license.token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.otel", false)
	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.page_size", 500)
	v.SetDefault("dispatch.max_retries", 3)
	v.SetDefault("dispatch.initial_interval", 500*time.Millisecond)
	v.SetDefault("dispatch.max_interval", 10*time.Second)
	v.SetDefault("admin.addr", ":8080")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service_name", "im-discord-relay")
}

// Flags exposes the overridable keys as a pflag set. Only flags marked
// as changed take precedence over the secrets bundle.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	fs.String("log.level", "info", "log level (debug, info, warn, error)")
	fs.Bool("replay.enabled", false, "enable the archive replay safety switch")
	fs.String("admin.addr", ":8080", "admin HTTP listen address")
	return fs
}

// LoadConfig reads secrets.{json,yaml,toml} from dir (default ".") and applies
// RELAY_* environment variables and any changed flags on top of it.
func LoadConfig(dir string, flags *pflag.FlagSet) (*Config, error) {
	if dir == "" {
		dir = "."
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(SecretsName)
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read secrets in %s: %w", dir, err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the relay cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if c.AMQP.URL == "" {
		errs = append(errs, errors.New("amqp.url is required"))
	}
	if c.Replay.PageSize <= 0 {
		errs = append(errs, errors.New("replay.page_size must be positive"))
	}
	if c.Dispatch.MaxRetries < 0 {
		errs = append(errs, errors.New("dispatch.max_retries must not be negative"))
	}
	if c.AMQP.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("amqp.retry.max_retries must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// File returns the secrets bundle in use, or "" when only env/defaults apply.
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// OnChange watches the secrets bundle and calls fn with the re-read settings.
// It is a no-op when no file was loaded.
func (c *Config) OnChange(fn func(next *Config)) {
	if c.File() == "" {
		return
	}

	c.v.OnConfigChange(func(_ fsnotify.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()

		next := &Config{v: c.v}
		if err := c.v.Unmarshal(next); err != nil {
			return
		}
		fn(next)
	})
	c.v.WatchConfig()
}
