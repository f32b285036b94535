package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Cloudinary CloudinaryConfig
	Upload     UploadConfig
	Tracing    TracingConfig
	LogLevel   string `mapstructure:"LOG_LEVEL"`
}

type ServerConfig struct {
	Port        string        `mapstructure:"SERVER_PORT"`
	Timeout     time.Duration `mapstructure:"SERVER_TIMEOUT"`
	CORSOrigins []string      `mapstructure:"CORS_ORIGINS"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"DB_DRIVER"`
	Host     string `mapstructure:"DB_HOST"`
	Port     string `mapstructure:"DB_PORT"`
	User     string `mapstructure:"DB_USER"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"DB_SSL_MODE"`
	Path     string `mapstructure:"DB_PATH"`
	MaxConns int    `mapstructure:"DB_MAX_CONNS"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"JWT_SECRET"`
	JWTExpiresIn time.Duration `mapstructure:"JWT_EXPIRES_IN"`
	CookieSecure bool          `mapstructure:"COOKIE_SECURE"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"REDIS_ADDR"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	Window   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
}

type CloudinaryConfig struct {
	URL    string `mapstructure:"CLOUDINARY_URL"`
	Folder string `mapstructure:"CLOUDINARY_FOLDER"`
}

type UploadConfig struct {
	Workers   int `mapstructure:"UPLOAD_WORKERS"`
	QueueSize int `mapstructure:"UPLOAD_QUEUE_SIZE"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool    `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName string  `mapstructure:"OTEL_SERVICE_NAME"`
	SampleRatio float64 `mapstructure:"OTEL_SAMPLE_RATIO"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_TIMEOUT", 30*time.Second)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_PATH", "soco.db")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("JWT_EXPIRES_IN", 7*24*time.Hour)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_REQUESTS", 20)
	v.SetDefault("RATE_LIMIT_WINDOW", 15*time.Minute)
	v.SetDefault("CLOUDINARY_FOLDER", "soco")
	v.SetDefault("UPLOAD_WORKERS", 4)
	v.SetDefault("UPLOAD_QUEUE_SIZE", 64)
	v.SetDefault("OTEL_SERVICE_NAME", "soco-api")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config

	cfg.AppEnv = v.GetString("APP_ENV")
	cfg.LogLevel = v.GetString("LOG_LEVEL")

	cfg.Server.Port = v.GetString("SERVER_PORT")
	cfg.Server.Timeout = v.GetDuration("SERVER_TIMEOUT")
	cfg.Server.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	cfg.Database.Driver = strings.ToLower(v.GetString("DB_DRIVER"))
	cfg.Database.Host = v.GetString("DB_HOST")
	cfg.Database.Port = v.GetString("DB_PORT")
	cfg.Database.User = v.GetString("DB_USER")
	cfg.Database.Password = v.GetString("DB_PASSWORD")
	cfg.Database.Name = v.GetString("DB_NAME")
	cfg.Database.SSLMode = v.GetString("DB_SSL_MODE")
	cfg.Database.Path = v.GetString("DB_PATH")
	cfg.Database.MaxConns = v.GetInt("DB_MAX_CONNS")

	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	cfg.Auth.JWTExpiresIn = v.GetDuration("JWT_EXPIRES_IN")
	cfg.Auth.CookieSecure = v.GetBool("COOKIE_SECURE")

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.RateLimit.Requests = v.GetInt("RATE_LIMIT_REQUESTS")
	cfg.RateLimit.Window = v.GetDuration("RATE_LIMIT_WINDOW")

	cfg.Cloudinary.URL = v.GetString("CLOUDINARY_URL")
	cfg.Cloudinary.Folder = v.GetString("CLOUDINARY_FOLDER")

	cfg.Upload.Workers = v.GetInt("UPLOAD_WORKERS")
	cfg.Upload.QueueSize = v.GetInt("UPLOAD_QUEUE_SIZE")

	cfg.Tracing.Endpoint = v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.Tracing.Insecure = v.GetBool("OTEL_EXPORTER_OTLP_INSECURE")
	cfg.Tracing.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.Tracing.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.Name == "" {
		return errors.New("DB_NAME must be set for postgres")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
