// Package config loads engine, storage and server settings from an optional
// YAML file, a .env file and MRP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vsinha/mrpbom/pkg/application/services/mrp"
)

// EnvPrefix is prepended to every environment variable, e.g. MRP_ENGINE_STRICTNESS
const EnvPrefix = "MRP"

type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Data      DataConfig      `mapstructure:"data"`
}

type EngineConfig struct {
	QuantityPolicy string `mapstructure:"quantity_policy"`
	DatePolicy     string `mapstructure:"date_policy"`
	CycleGuard     string `mapstructure:"cycle_guard"`
	Strictness     string `mapstructure:"strictness"`
	Parallelism    int    `mapstructure:"parallelism"`
	MaxDepth       int    `mapstructure:"max_depth"`
}

type DatabaseConfig struct {
	// URL takes precedence over the individual fields
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	// MaxConcurrentTx bounds the number of open write transactions
	MaxConcurrentTx int64 `mapstructure:"max_concurrent_tx"`
}

type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisURL      string        `mapstructure:"redis_url"`
	RedisHost     string        `mapstructure:"redis_host"`
	RedisPort     string        `mapstructure:"redis_port"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// EventRetention caps the in-memory event log; 0 keeps every event
	EventRetention int `mapstructure:"event_retention"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type TelemetryConfig struct {
	// Exporter is none, stdout or otlp
	Exporter    string `mapstructure:"exporter"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// DataConfig points at the catalog source used when no database is configured
type DataConfig struct {
	// Source is csv or postgres
	Source      string `mapstructure:"source"`
	ScenarioDir string `mapstructure:"scenario_dir"`
	StockFile   string `mapstructure:"stock_file"`
}

// Default returns the built-in configuration
func Default() Config {
	engine := mrp.DefaultEngineConfig()
	return Config{
		Engine: EngineConfig{
			QuantityPolicy: string(engine.QuantityPolicy),
			DatePolicy:     string(engine.DatePolicy),
			CycleGuard:     string(engine.CycleGuard),
			Strictness:     string(engine.Strictness),
			Parallelism:    engine.Parallelism,
			MaxDepth:       engine.MaxDepth,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Password:        "postgres",
			DBName:          "mrp",
			SSLMode:         "disable",
			MaxConcurrentTx: 10,
		},
		Cache: CacheConfig{
			RedisHost: "127.0.0.1",
			RedisPort: "6379",
			TTL:       5 * time.Minute,
		},
		Server: ServerConfig{
			Port:           "8080",
			Mode:           "release",
			ReadTimeout:    30,
			WriteTimeout:   60,
			AllowedOrigins: []string{"*"},
			EventRetention: 10000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Exporter:    "none",
			ServiceName: "mrpbom",
		},
		Data: DataConfig{
			Source:      "csv",
			ScenarioDir: "./data",
		},
	}
}

// Load reads configuration. path may be empty; a missing .env file is ignored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if _, err := cfg.Engine.ToEngineConfig(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("engine.quantity_policy", d.Engine.QuantityPolicy)
	v.SetDefault("engine.date_policy", d.Engine.DatePolicy)
	v.SetDefault("engine.cycle_guard", d.Engine.CycleGuard)
	v.SetDefault("engine.strictness", d.Engine.Strictness)
	v.SetDefault("engine.parallelism", d.Engine.Parallelism)
	v.SetDefault("engine.max_depth", d.Engine.MaxDepth)

	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.DBName)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.max_concurrent_tx", d.Database.MaxConcurrentTx)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("cache.redis_host", d.Cache.RedisHost)
	v.SetDefault("cache.redis_port", d.Cache.RedisPort)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.event_retention", d.Server.EventRetention)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)

	v.SetDefault("telemetry.exporter", d.Telemetry.Exporter)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)

	v.SetDefault("data.source", d.Data.Source)
	v.SetDefault("data.scenario_dir", d.Data.ScenarioDir)
	v.SetDefault("data.stock_file", d.Data.StockFile)
}

// ToEngineConfig converts the settings into an engine configuration
func (e EngineConfig) ToEngineConfig() (mrp.EngineConfig, error) {
	cfg := mrp.DefaultEngineConfig()
	cfg.QuantityPolicy = mrp.QuantityPolicy(strings.ToLower(e.QuantityPolicy))
	cfg.DatePolicy = mrp.DatePolicy(strings.ToLower(e.DatePolicy))
	cfg.CycleGuard = mrp.CycleGuard(strings.ToLower(e.CycleGuard))
	cfg.Strictness = mrp.Strictness(strings.ToLower(e.Strictness))
	cfg.Parallelism = e.Parallelism
	cfg.MaxDepth = e.MaxDepth

	if err := cfg.Validate(); err != nil {
		return mrp.EngineConfig{}, fmt.Errorf("invalid engine config: %w", err)
	}
	return cfg, nil
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// Addr returns host:port for the HTTP server
func (s ServerConfig) Addr() string {
	return net.JoinHostPort("", s.Port)
}

// ErrNoScenario is returned when neither a scenario directory nor a database is configured
var ErrNoScenario = errors.New("no scenario directory or database configured")
