package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Game    GameConfig    `mapstructure:"game"`
	Oracle  OracleConfig  `mapstructure:"oracle"`
	Assets  AssetsConfig  `mapstructure:"assets"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
	// Inbound events per second allowed on one connection.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
	// Ping interval; a peer silent for two intervals is dropped.
	Heartbeat time.Duration `mapstructure:"heartbeat"`
	// CORS origins for the HTTP API.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type GameConfig struct {
	// "all" or "first"
	ReadyPolicy string `mapstructure:"ready_policy"`
}

type OracleConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	UserPrompt  string        `mapstructure:"user_prompt"`
	MaxRetries  int           `mapstructure:"max_retries"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type AssetsConfig struct {
	ImagesDir string `mapstructure:"images_dir"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8000")
	v.SetDefault("server.rpc_address", ":8001")
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.heartbeat", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("game.ready_policy", "all")
	v.SetDefault("oracle.base_url", "https://api.openai.com/v1")
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("oracle.max_retries", 3)
	v.SetDefault("oracle.backoff_base", "500ms")
	v.SetDefault("oracle.timeout", "30s")
	v.SetDefault("assets.images_dir", "public/images")
	v.SetDefault("metrics.namespace", "drawguess")
}

// LoadConfig reads config.yaml from path. A missing file is not an error;
// defaults and DRAWGUESS_* environment variables apply instead.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("drawguess")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
