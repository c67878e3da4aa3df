package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	BackendURL        string `mapstructure:"backend_url"`
	ListenAddr        string `mapstructure:"listen_addr"`
	TgToken           string `mapstructure:"tg_token"`
	PublicURL         string `mapstructure:"public_url"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
	MaxUploadMB       int    `mapstructure:"max_upload_mb"`
	SessionTTLMin     int    `mapstructure:"session_ttl_min"`
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// UploadLimit is the largest accepted file in bytes, 0 when unlimited.
func (c *Config) UploadLimit() int64 {
	if c.MaxUploadMB <= 0 {
		return 0
	}
	return int64(c.MaxUploadMB) << 20
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}

// flag name for each key that can be overridden from the command line
var flagNames = map[string]string{
	"backend_url": "backend-url",
	"listen_addr": "listen",
	"tg_token":    "tg-token",
	"public_url":  "public-url",
}

var (
	config  *Config
	once    sync.Once
	cfgFile string
	flags   *pflag.FlagSet
)

// Init sets the config file and command line flags GetConfig reads.
// It has no effect after the first GetConfig call.
func Init(file string, fs *pflag.FlagSet) {
	cfgFile = file
	flags = fs
}

// GetConfig возвращает singleton экземпляр конфигурации
func GetConfig() *Config {
	once.Do(func() {
		// .env is optional, real environment wins
		if err := godotenv.Load(); err != nil {
			log.Printf("no .env file loaded: %v", err)
		}
		c, err := Load(cfgFile, flags)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		config = c
	})
	return config
}

// Load reads configuration from defaults, an optional config file, EDA_*
// environment variables and flags, later sources winning.
func Load(file string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EDA")
	v.AutomaticEnv()

	v.SetDefault("backend_url", "http://localhost:8000")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("tg_token", "")
	v.SetDefault("public_url", "http://localhost:8080")
	v.SetDefault("request_timeout_sec", 30)
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("session_ttl_min", 120)

	// TG_TOKEN is what older deployments set
	if err := v.BindEnv("tg_token", "EDA_TG_TOKEN", "TG_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if fs != nil {
		for key, name := range flagNames {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
