package config

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPoolSize          = 10
	DefaultKeepAliveInterval = 5 * time.Minute
)

type Config struct {
	DatabaseDSN       string
	ServerAddr        string
	SigningKey        []byte
	AllowedOrigins    []string
	RedisAddr         string
	PoolSize          int
	KeepAliveInterval time.Duration
}

// DatabaseOptions holds the individual connection settings the DSN is built from.
type DatabaseOptions struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// Options is the raw, unvalidated configuration. It is filled in layers:
// defaults, then an optional YAML file, then the environment, then flags.
type Options struct {
	Addr              string          `yaml:"addr"`
	Database          DatabaseOptions `yaml:"database"`
	SigningKey        string          `yaml:"signing_key"`
	AllowedOrigins    []string        `yaml:"allowed_origins"`
	RedisAddr         string          `yaml:"redis_addr"`
	PoolSize          int             `yaml:"pool_size"`
	KeepAliveInterval time.Duration   `yaml:"keep_alive_interval"`
}

func DefaultOptions() Options {
	return Options{
		Addr: "localhost:3002",
		Database: DatabaseOptions{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "postgres",
			SSLMode: "disable",
		},
		PoolSize:          DefaultPoolSize,
		KeepAliveInterval: DefaultKeepAliveInterval,
	}
}

// LoadFile overlays the YAML file at path onto o. Keys missing from the
// file keep their current values.
func (o *Options) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, o); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	return nil
}

// LoadEnv overlays the environment variables read through getenv onto o.
func (o *Options) LoadEnv(getenv func(string) string) error {
	if v := getenv("DB_HOST"); v != "" {
		o.Database.Host = v
	}
	if v := getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_PORT: %w", err)
		}
		o.Database.Port = port
	}
	if v := getenv("DB_USER"); v != "" {
		o.Database.User = v
	}
	if v := getenv("DB_PASSWORD"); v != "" {
		o.Database.Password = v
	}
	if v := getenv("DB_NAME"); v != "" {
		o.Database.Name = v
	}
	if v := getenv("DB_SSLMODE"); v != "" {
		o.Database.SSLMode = v
	}
	if v := getenv("PORT"); v != "" {
		o.Addr = ":" + v
	}
	if v := getenv("SIGNING_KEY"); v != "" {
		o.SigningKey = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		o.RedisAddr = v
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		o.AllowedOrigins = strings.Split(v, ",")
	}

	return nil
}

// DSN renders the database options as a postgres connection URL.
func (d DatabaseOptions) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}

	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else if d.User != "" {
		u.User = url.User(d.User)
	}

	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}

	return u.String()
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(o Options) (*Config, error) {
	if o.Addr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if o.Database.Host == "" || o.Database.Name == "" {
		return nil, fmt.Errorf("database host and name cannot be empty")
	}
	if o.SigningKey == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if o.PoolSize <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", o.PoolSize)
	}
	if o.KeepAliveInterval <= 0 {
		return nil, fmt.Errorf("keep-alive interval must be positive, got %s", o.KeepAliveInterval)
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(o.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		DatabaseDSN:       o.Database.DSN(),
		ServerAddr:        o.Addr,
		SigningKey:        signingKey,
		AllowedOrigins:    o.AllowedOrigins,
		RedisAddr:         o.RedisAddr,
		PoolSize:          o.PoolSize,
		KeepAliveInterval: o.KeepAliveInterval,
	}, nil
}
