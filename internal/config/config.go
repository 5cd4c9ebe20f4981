// Package config loads echost configuration.
//
// Values are layered: built-in defaults, then the config file (JSON or YAML,
// keys as in the historical config.json), then ECHOST_* environment variables.
// The result is validated before it is returned.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// S3Config holds the MinIO/S3 backend settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
}

// Config mirrors the config file schema.
type Config struct {
	OpenRegistrations bool     `yaml:"openRegistrations"`
	UsedPort          int      `yaml:"usedPort"`
	FileStorage       string   `yaml:"fileStorage"`
	MimeTypeWhiteList []string `yaml:"mimeTypeWhiteList"`
	DefaultUser       string   `yaml:"defaultUser"`

	Database    string   `yaml:"database"`
	DatabaseURL string   `yaml:"databaseUrl"`
	Storage     string   `yaml:"storage"`
	S3          S3Config `yaml:"s3"`

	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
	LogLevel       string `yaml:"logLevel"`
	LogFormat      string `yaml:"logFormat"`
	SecureCookies  bool   `yaml:"secureCookies"`
	// TrustProxy makes the rate limiter and request log use X-Forwarded-For.
	TrustProxy bool `yaml:"trustProxy"`
	// AuthRateLimit is the number of login/register attempts allowed per
	// client IP per minute. 0 disables the limiter.
	AuthRateLimit int `yaml:"authRateLimit"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		UsedPort:    8080,
		FileStorage: "uploads",
		MimeTypeWhiteList: []string{
			"image/png",
			"image/jpeg",
			"image/gif",
			"image/webp",
			"text/plain",
			"application/pdf",
			"audio/mpeg",
			"video/mp4",
		},
		Database:       "database.db",
		Storage:        StorageLocal,
		MaxUploadBytes: 512 << 20,
		LogLevel:       "info",
		LogFormat:      "text",
		AuthRateLimit:  30,
	}
}

// Load reads the config file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOptional behaves like Load but falls back to defaults when the file
// does not exist.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Load("")
	}
	return cfg, err
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.UsedPort)
}

// getenvDefault reads an environment variable and returns def if it is unset.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func applyEnv(c *Config) error {
	v := NewValidator()

	if raw := os.Getenv("ECHOST_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			v.AddError("ECHOST_PORT", "must be a number")
		}
		c.UsedPort = port
	}
	if raw := os.Getenv("ECHOST_OPEN_REGISTRATIONS"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			v.AddError("ECHOST_OPEN_REGISTRATIONS", "must be true or false")
		}
		c.OpenRegistrations = b
	}
	if raw := os.Getenv("ECHOST_MAX_UPLOAD_BYTES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			v.AddError("ECHOST_MAX_UPLOAD_BYTES", "must be a valid integer")
		}
		c.MaxUploadBytes = n
	}
	if raw := os.Getenv("ECHOST_TRUST_PROXY"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			v.AddError("ECHOST_TRUST_PROXY", "must be true or false")
		}
		c.TrustProxy = b
	}
	if raw := os.Getenv("ECHOST_MIME_WHITELIST"); raw != "" {
		c.MimeTypeWhiteList = strings.Split(raw, ",")
	}

	c.FileStorage = getenvDefault("ECHOST_FILE_STORAGE", c.FileStorage)
	c.DefaultUser = getenvDefault("ECHOST_DEFAULT_USER", c.DefaultUser)
	c.Database = getenvDefault("ECHOST_DATABASE", c.Database)
	c.DatabaseURL = getenvDefault("DATABASE_URL", c.DatabaseURL)
	c.Storage = getenvDefault("ECHOST_STORAGE", c.Storage)
	c.S3.Endpoint = getenvDefault("ECHOST_S3_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKey = getenvDefault("ECHOST_S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getenvDefault("ECHOST_S3_SECRET_KEY", c.S3.SecretKey)
	c.S3.Bucket = getenvDefault("ECHOST_BUCKET", c.S3.Bucket)
	c.LogLevel = getenvDefault("ECHOST_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenvDefault("ECHOST_LOG_FORMAT", c.LogFormat)

	if v.HasErrors() {
		return errors.New(v.ErrorString())
	}
	return nil
}

func normalize(c *Config) {
	c.FileStorage = strings.TrimSpace(c.FileStorage)
	c.DefaultUser = strings.TrimSpace(c.DefaultUser)
	c.Database = strings.TrimSpace(c.Database)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	wl := c.MimeTypeWhiteList[:0]
	for _, m := range c.MimeTypeWhiteList {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			wl = append(wl, m)
		}
	}
	c.MimeTypeWhiteList = wl
}
