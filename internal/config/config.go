package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const EnvPrefix = "VOICECLUB"

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	LogLevel   string `mapstructure:"log_level"`
	Secret     string `mapstructure:"secret"`

	WS     WSConfig     `mapstructure:"ws"`
	Store  StoreConfig  `mapstructure:"store"`
	Media  MediaConfig  `mapstructure:"media"`
	Stream StreamConfig `mapstructure:"stream"`
	Admin  AdminConfig  `mapstructure:"admin"`
	Chat   ChatConfig   `mapstructure:"chat"`
}

type WSConfig struct {
	ReadLimit     int64         `mapstructure:"read_limit"`
	SendBuffer    int           `mapstructure:"send_buffer"`
	WriteWait     time.Duration `mapstructure:"write_wait"`
	PingPeriod    time.Duration `mapstructure:"ping_period"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	EndTimeout    time.Duration `mapstructure:"end_timeout"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	BadgerPath string `mapstructure:"badger_path"`
}

type MediaConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// Configured reports whether real media tokens can be minted.
func (m MediaConfig) Configured() bool {
	return m.URL != "" && m.APIKey != "" && m.APISecret != ""
}

type StreamConfig struct {
	RTMPURL string `mapstructure:"rtmp_url"`
}

type AdminConfig struct {
	OwnerWallet    string   `mapstructure:"owner_wallet"`
	AdminWallets   []string `mapstructure:"admin_wallets"`
	AllowAnonymous bool     `mapstructure:"allow_anonymous"`
}

type ChatConfig struct {
	MaxLength     int           `mapstructure:"max_length"`
	RateLimit     int           `mapstructure:"rate_limit"`
	RateInterval  time.Duration `mapstructure:"rate_interval"`
	CensoredWords []string      `mapstructure:"censored_words"`
	CensorChar    string        `mapstructure:"censor_char"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "")

	v.SetDefault("ws.read_limit", 32768)
	v.SetDefault("ws.send_buffer", 64)
	v.SetDefault("ws.write_wait", "5s")
	v.SetDefault("ws.ping_period", "30s")
	v.SetDefault("ws.idle_timeout", "90s")
	v.SetDefault("ws.sweep_interval", "10s")
	v.SetDefault("ws.end_timeout", "10s")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.badger_path", "./data/badger")

	v.SetDefault("media.url", "")
	v.SetDefault("media.api_key", "")
	v.SetDefault("media.api_secret", "")
	v.SetDefault("media.token_ttl", "6h")

	v.SetDefault("stream.rtmp_url", "rtmp://localhost:1935/live")

	v.SetDefault("admin.owner_wallet", "")
	v.SetDefault("admin.admin_wallets", []string{})
	v.SetDefault("admin.allow_anonymous", false)

	v.SetDefault("chat.max_length", 1000)
	v.SetDefault("chat.rate_limit", 5)
	v.SetDefault("chat.rate_interval", "5s")
	v.SetDefault("chat.censored_words", []string{})
	v.SetDefault("chat.censor_char", "*")
}

// Load reads config/config.<env>.yaml on top of defaults. Environment
// variables such as VOICECLUB_STORE_DRIVER override both. An empty env
// falls back to CONFIG_ENV, then "dev".
func Load(env string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if env == "" {
		env = os.Getenv("CONFIG_ENV")
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("store", cfg.Store.Driver).Bool("media_mock", !cfg.Media.Configured()).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "badger", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Mode == "release" && c.Secret == "" {
		return fmt.Errorf("secret is required in release mode")
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for postgres")
	}
	if c.WS.SendBuffer <= 0 {
		return fmt.Errorf("ws.send_buffer must be positive")
	}
	if c.WS.IdleTimeout <= 0 || c.WS.SweepInterval <= 0 {
		return fmt.Errorf("ws.idle_timeout and ws.sweep_interval must be positive")
	}
	if len([]rune(c.Chat.CensorChar)) != 1 {
		return fmt.Errorf("chat.censor_char must be a single character")
	}
	return nil
}
