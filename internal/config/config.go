package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   Server    `yaml:"server"`
	Database Postgres  `yaml:"database"`
	RabbitMQ *RabbitMQ `yaml:"rabbitmq"`
	Push     *Push     `yaml:"push"`
}

type Server struct {
	Port           int      `yaml:"port"`
	JWTSecret      string   `yaml:"jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type RabbitMQ struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type Push struct {
	Endpoint  string `yaml:"endpoint"`
	ServerKey string `yaml:"server_key"`
}

// Load reads the YAML config at path and applies environment overrides.
// A .env file next to the binary is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.Host = getEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = getEnv("POSTGRES_PORT", c.Database.Port)
	c.Database.User = getEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = getEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("POSTGRES_DBNAME", c.Database.Database)
	c.Server.JWTSecret = getEnv("JWT_SECRET", c.Server.JWTSecret)
	if c.Push != nil {
		c.Push.ServerKey = getEnv("PUSH_SERVER_KEY", c.Push.ServerKey)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
}

// DSN builds the postgres connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// URL builds the amqp connection string.
func (r RabbitMQ) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		r.User, r.Password, r.Host, r.Port, r.VHost)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
