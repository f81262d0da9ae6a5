package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	API       APIConfig       `yaml:"api"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Import    ImportConfig    `yaml:"import"`
	History   HistoryConfig   `yaml:"history"`
	Cache     CacheConfig     `yaml:"cache"`
	Redis     RedisConf       `yaml:"redis"`
	HTTP      HTTPConfig      `yaml:"http"`
	MockAPI   MockAPIConfig   `yaml:"mock_api"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:3000/api"`
	Timeout time.Duration `yaml:"timeout" env-default:"15s"`
	UserID  string        `yaml:"user_id" env:"API_USER_ID"`
}

type ReconcileConfig struct {
	SettleDelay time.Duration   `yaml:"settle_delay" env-default:"300ms"`
	RetryDelays []time.Duration `yaml:"retry_delays" env-default:"500ms,1s,2s"`
}

type ImportConfig struct {
	MaxRetries int           `yaml:"max_retries" env-default:"3"`
	BaseDelay  time.Duration `yaml:"base_delay" env-default:"250ms"`
	MaxDelay   time.Duration `yaml:"max_delay" env-default:"4s"`
}

type HistoryConfig struct {
	Limit            int           `yaml:"limit" env-default:"50"`
	AutosaveDebounce time.Duration `yaml:"autosave_debounce" env-default:"2s"`
}

type CacheConfig struct {
	// Driver is one of memory|redis|sqlite|postgres.
	Driver      string        `yaml:"driver" env:"CACHE_DRIVER" env-default:"sqlite"`
	TTL         time.Duration `yaml:"ttl" env-default:"720h"`
	SQLitePath  string        `yaml:"sqlite_path" env-default:"./.remotion/cache.sqlite"`
	PostgresDSN string        `yaml:"postgres_dsn" env:"CACHE_POSTGRES_DSN"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redispassword" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env-default:"0"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port" env:"PORT" env-default:"8080"`
}

type MockAPIConfig struct {
	Port        string `yaml:"port" env-default:"3000"`
	ReadLag     int    `yaml:"read_lag"`
	FailCreates int    `yaml:"fail_creates"`
}

// MustLoad resolves the config path from the --config flag value or
// CONFIG_PATH. Without either it falls back to defaults plus environment.
func MustLoad(flagPath string) *Config {
	path := fetchConfigPath(flagPath)
	if path == "" {
		cfg, err := LoadEnv()
		if err != nil {
			panic("cannot read config from env: " + err.Error())
		}

		return cfg
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

func LoadEnv() (*Config, error) {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func fetchConfigPath(res string) string {
	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
