// Package config resolves the bot settings from flags, environment,
// an optional config file and a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. PARLEY_KB_URL.
const EnvPrefix = "PARLEY"

// Service is a collaborator endpoint.
type Service struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// ChatLog selects the logging collaborator. URL wins over SQLite.
type ChatLog struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	SQLite string `mapstructure:"sqlite"`
}

type Freshdesk struct {
	Domain   string `mapstructure:"domain"`
	APIKey   string `mapstructure:"api-key"`
	Password string `mapstructure:"password"`
}

// Redis enables shared snapshots and locking when Addr is set.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Config is the resolved configuration.
type Config struct {
	Workflow      string        `mapstructure:"workflow"`
	Port          int           `mapstructure:"port"`
	LogLevel      string        `mapstructure:"log-level"`
	LogFormat     string        `mapstructure:"log-format"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Delay         time.Duration `mapstructure:"delay"`
	AgentName     string        `mapstructure:"agent-name"`
	GraphCacheTTL time.Duration `mapstructure:"graph-cache-ttl"`
	Origins       []string      `mapstructure:"origins"`
	SessionsDir   string        `mapstructure:"sessions-dir"`

	KB         Service   `mapstructure:"kb"`
	Classifier Service   `mapstructure:"classifier"`
	ChatLog    ChatLog   `mapstructure:"chatlog"`
	Freshdesk  Freshdesk `mapstructure:"freshdesk"`
	Redis      Redis     `mapstructure:"redis"`
}

var defaults = map[string]any{
	"workflow":           "",
	"port":               8080,
	"log-level":          "info",
	"log-format":         "text",
	"timeout":            240 * time.Second,
	"delay":              time.Duration(0),
	"agent-name":         "Eva",
	"graph-cache-ttl":    time.Duration(0),
	"origins":            []string{"*"},
	"sessions-dir":       "",
	"kb.url":             "",
	"kb.token":           "",
	"classifier.url":     "",
	"classifier.token":   "",
	"chatlog.url":        "",
	"chatlog.token":      "",
	"chatlog.sqlite":     "",
	"freshdesk.domain":   "",
	"freshdesk.api-key":  "",
	"freshdesk.password": "",
	"redis.addr":         "",
	"redis.password":     "",
	"redis.db":           0,
	"redis.ttl":          24 * time.Hour,
}

// Load resolves the configuration. Precedence is flag, then environment,
// then the file named by the "config" flag, then defaults. A .env file in
// the working directory is read first when present.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Flags registers the top-level settings on flags.
func Flags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to a config file (yaml, json, toml)")
	flags.String("workflow", "", "Path to the workflow document (.json, .yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.Duration("timeout", 240*time.Second, "How long a listen step waits for the user")
	flags.Duration("delay", 0, "Pause between steps")
	flags.String("agent-name", "Eva", "Agent name available to templates as {agent_name}")
}
