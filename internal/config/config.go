package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// TrackedLocation is a farm location warmed at startup.
type TrackedLocation struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration

	OpenAIAPIKey  string
	OpenAIAPIURL  string
	OpenAIModel   string
	OpenAITimeout time.Duration

	MapboxAccessToken  string
	MapboxAPIURL       string
	GeoAPIURL          string
	LocationAPITimeout time.Duration

	RequestTimeout   time.Duration
	WeatherCacheTTL  time.Duration
	AgroCacheTTL     time.Duration
	LocationCacheTTL time.Duration
	CacheBackend     string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	BreakerEnabled          bool
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration

	JWTSecret   string
	TokenExpiry time.Duration

	// DatabaseURL selects the Postgres stores; empty means in-memory stores
	// (tests, local development without a database).
	DatabaseURL string

	LocationMaxLength int
	ShutdownTimeout   time.Duration

	WarmCache        bool
	WarmInterval     time.Duration
	TrackedLocations []TrackedLocation
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	OpenAI struct {
		URL     string `yaml:"url"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"openai"`

	Location struct {
		GeoAPIURL string `yaml:"geo_api_url"`
		MapboxURL string `yaml:"mapbox_url"`
		Timeout   string `yaml:"timeout"`
		CacheTTL  string `yaml:"cache_ttl"`
	} `yaml:"location"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend    string `yaml:"backend"`
		WeatherTTL string `yaml:"weather_ttl"`
		AgroTTL    string `yaml:"agro_ttl"`
		Memcached  struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RetryMaxAttempts        int    `yaml:"retry_max_attempts"`
		RetryBaseDelay          string `yaml:"retry_base_delay"`
		RetryMaxDelay           string `yaml:"retry_max_delay"`
		RateLimitRPS            int    `yaml:"rate_limit_rps"`
		RateLimitBurst          int    `yaml:"rate_limit_burst"`
		BreakerEnabled          *bool  `yaml:"breaker_enabled"`
		BreakerFailureThreshold int    `yaml:"breaker_failure_threshold"`
		BreakerSuccessThreshold int    `yaml:"breaker_success_threshold"`
		BreakerTimeout          string `yaml:"breaker_timeout"`
	} `yaml:"reliability"`

	Auth struct {
		TokenExpiry string `yaml:"token_expiry"`
	} `yaml:"auth"`

	HTTP struct {
		LocationMaxLength int `yaml:"location_max_length"`
	} `yaml:"http"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Warming struct {
		Enabled   *bool             `yaml:"enabled"`
		Interval  string            `yaml:"interval"`
		Locations []TrackedLocation `yaml:"locations"`
	} `yaml:"warming"`
}

type secretsFile struct {
	WeatherAPIKey     string `yaml:"weather_api_key"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`
	MapboxAccessToken string `yaml:"mapbox_access_token"`
	JWTSecret         string `yaml:"jwt_secret"`
	DatabaseURL       string `yaml:"database_url"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml. A .env file is loaded first when present. Secrets come
// from env (WEATHER_API_KEY, OPENAI_API_KEY, MAPBOX_ACCESS_TOKEN, JWT_SECRET,
// DATABASE_URL) with the secrets file as fallback. Call from project root.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var sec secretsFile
	secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
	secretsData, err := os.ReadFile(secretsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read secrets file: %w", err)
		}
	} else if err := yaml.Unmarshal(secretsData, &sec); err != nil {
		return nil, fmt.Errorf("parse secrets file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIKey = firstNonEmpty(os.Getenv("WEATHER_API_KEY"), sec.WeatherAPIKey)
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env or config/secrets.yaml weather_api_key)")
	}
	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.openweathermap.org/data/2.5/weather"
	}
	cfg.WeatherAPITimeout = parseDuration(fc.WeatherAPI.Timeout, 2*time.Second)

	cfg.OpenAIAPIKey = firstNonEmpty(os.Getenv("OPENAI_API_KEY"), sec.OpenAIAPIKey)
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY required (set env or config/secrets.yaml openai_api_key)")
	}
	cfg.OpenAIAPIURL = fc.OpenAI.URL
	cfg.OpenAIModel = fc.OpenAI.Model
	cfg.OpenAITimeout = parseDuration(fc.OpenAI.Timeout, 30*time.Second)

	cfg.MapboxAccessToken = firstNonEmpty(os.Getenv("MAPBOX_ACCESS_TOKEN"), sec.MapboxAccessToken)
	if cfg.MapboxAccessToken == "" {
		return nil, fmt.Errorf("MAPBOX_ACCESS_TOKEN required (set env or config/secrets.yaml mapbox_access_token)")
	}
	cfg.MapboxAPIURL = fc.Location.MapboxURL
	cfg.GeoAPIURL = fc.Location.GeoAPIURL
	if cfg.GeoAPIURL == "" {
		cfg.GeoAPIURL = "https://json.geoapi.pt"
	}
	cfg.LocationAPITimeout = parseDuration(fc.Location.Timeout, 5*time.Second)
	cfg.LocationCacheTTL = parseDuration(fc.Location.CacheTTL, time.Hour)

	cfg.JWTSecret = firstNonEmpty(os.Getenv("JWT_SECRET"), sec.JWTSecret)
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET required (set env or config/secrets.yaml jwt_secret)")
	}
	cfg.TokenExpiry = parseDuration(fc.Auth.TokenExpiry, 24*time.Hour)

	cfg.DatabaseURL = firstNonEmpty(os.Getenv("DATABASE_URL"), sec.DatabaseURL)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 60*time.Second)
	cfg.WeatherCacheTTL = parseDuration(fc.Cache.WeatherTTL, 30*time.Minute)
	cfg.AgroCacheTTL = parseDuration(fc.Cache.AgroTTL, time.Hour)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.BreakerEnabled = true
	if fc.Reliability.BreakerEnabled != nil {
		cfg.BreakerEnabled = *fc.Reliability.BreakerEnabled
	}
	cfg.BreakerFailureThreshold = fc.Reliability.BreakerFailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerSuccessThreshold = fc.Reliability.BreakerSuccessThreshold
	if cfg.BreakerSuccessThreshold <= 0 {
		cfg.BreakerSuccessThreshold = 2
	}
	cfg.BreakerTimeout = parseDuration(fc.Reliability.BreakerTimeout, 30*time.Second)

	cfg.LocationMaxLength = fc.HTTP.LocationMaxLength
	if cfg.LocationMaxLength <= 0 {
		cfg.LocationMaxLength = 100
	}
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if fc.Warming.Enabled != nil {
		cfg.WarmCache = *fc.Warming.Enabled
	}
	cfg.WarmInterval = parseDuration(fc.Warming.Interval, 0)
	cfg.TrackedLocations = fc.Warming.Locations

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("config: unknown cache backend %q", cfg.CacheBackend)
	}
	if cfg.WeatherCacheTTL <= 0 || cfg.AgroCacheTTL <= 0 || cfg.LocationCacheTTL <= 0 {
		return fmt.Errorf("config: cache TTLs must be positive")
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive")
	}
	for _, loc := range cfg.TrackedLocations {
		if loc.Name == "" {
			return fmt.Errorf("config: warming location without a name")
		}
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return fmt.Errorf("config: warming location %q has invalid coordinates", loc.Name)
		}
	}
	return nil
}

// parseDuration parses s, returning def when s is empty or invalid.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
