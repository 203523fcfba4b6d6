// Package config loads service settings from an optional YAML file,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session store backends.
const (
	StoreMemory    = "memory"
	StoreRedis     = "redis"
	StoreFirestore = "firestore"
)

// Config is the full service configuration.
type Config struct {
	Port        string   `yaml:"port"`
	LogLevel    string   `yaml:"logLevel"`
	CORSOrigins []string `yaml:"corsOrigins"`

	Gemini   GeminiConfig   `yaml:"gemini"`
	Session  SessionConfig  `yaml:"session"`
	Redis    RedisConfig    `yaml:"redis"`
	Firebase FirebaseConfig `yaml:"firebase"`
	Photo    PhotoConfig    `yaml:"photo"`
	Share    ShareConfig    `yaml:"share"`
	Poster   PosterConfig   `yaml:"poster"`
}

// GeminiConfig configures the description generator.
type GeminiConfig struct {
	APIKey      string        `yaml:"apiKey"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	StrictEmpty bool          `yaml:"strictEmpty"`
	BaseURL     string        `yaml:"baseURL"`
}

// SessionConfig selects the session store.
type SessionConfig struct {
	Store string        `yaml:"store"`
	TTL   time.Duration `yaml:"ttl"`
	Sweep time.Duration `yaml:"sweep"`
}

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// FirebaseConfig configures the Firestore session store.
type FirebaseConfig struct {
	ProjectID   string `yaml:"projectId"`
	Credentials string `yaml:"credentials"`
}

// PhotoConfig bounds uploaded photos.
type PhotoConfig struct {
	MaxBytes     int64 `yaml:"maxBytes"`
	MaxDimension int   `yaml:"maxDimension"`
	MaxPixels    int64 `yaml:"maxPixels"`
}

// ShareConfig configures share links.
type ShareConfig struct {
	MapsEmbedKey     string `yaml:"mapsEmbedKey"`
	ReferralURL      string `yaml:"referralURL"`
	WhatsAppReferral bool   `yaml:"whatsAppReferral"`
	QRSize           int    `yaml:"qrSize"`
}

// PosterConfig configures poster rendering.
type PosterConfig struct {
	Locale string `yaml:"locale"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:     "8080",
		LogLevel: "info",
		Gemini: GeminiConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Store: StoreMemory,
			TTL:   24 * time.Hour,
			Sweep: time.Minute,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "lostcat:session:",
		},
		Photo: PhotoConfig{
			MaxBytes:     10 << 20,
			MaxDimension: 1600,
			MaxPixels:    40_000_000,
		},
		Share: ShareConfig{
			ReferralURL: "https://github.com/Bashlostcat/lostcat",
			QRSize:      150,
		},
		Poster: PosterConfig{
			Locale: "en-US",
		},
	}
}

// Load reads .env (when present), the YAML file named by LOSTCAT_CONFIG
// (when set) and then the environment on top of the defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("LOSTCAT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str(&c.Port, "PORT")
	e.str(&c.LogLevel, "LOG_LEVEL")
	if v, ok := lookup("CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}

	e.str(&c.Gemini.APIKey, "API_KEY")
	e.str(&c.Gemini.APIKey, "GEMINI_API_KEY")
	e.str(&c.Gemini.Model, "GEMINI_MODEL")
	e.duration(&c.Gemini.Timeout, "GEMINI_TIMEOUT")
	e.boolean(&c.Gemini.StrictEmpty, "GEMINI_STRICT_EMPTY")
	e.str(&c.Gemini.BaseURL, "GEMINI_BASE_URL")

	e.str(&c.Session.Store, "SESSION_STORE")
	e.duration(&c.Session.TTL, "SESSION_TTL")
	e.duration(&c.Session.Sweep, "SESSION_SWEEP")

	e.str(&c.Redis.Addr, "REDIS_ADDR")
	e.str(&c.Redis.Password, "REDIS_PASSWORD")
	e.integer(&c.Redis.DB, "REDIS_DB")
	e.str(&c.Redis.Prefix, "REDIS_PREFIX")

	e.str(&c.Firebase.ProjectID, "FIREBASE_PROJECT_ID")
	e.str(&c.Firebase.Credentials, "GOOGLE_APPLICATION_CREDENTIALS")

	e.int64(&c.Photo.MaxBytes, "PHOTO_MAX_BYTES")
	e.integer(&c.Photo.MaxDimension, "PHOTO_MAX_DIMENSION")
	e.int64(&c.Photo.MaxPixels, "PHOTO_MAX_PIXELS")

	e.str(&c.Share.MapsEmbedKey, "MAPS_EMBED_API_KEY")
	e.str(&c.Share.ReferralURL, "SHARE_REFERRAL_URL")
	e.boolean(&c.Share.WhatsAppReferral, "SHARE_WHATSAPP_REFERRAL")
	e.integer(&c.Share.QRSize, "QR_SIZE")

	e.str(&c.Poster.Locale, "POSTER_LOCALE")

	return e.err
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	var errs []error
	switch c.Session.Store {
	case StoreMemory, StoreRedis:
	case StoreFirestore:
		if c.Firebase.ProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for the firestore session store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q", c.Session.Store))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.Gemini.Timeout <= 0 {
		errs = append(errs, errors.New("gemini timeout must be positive"))
	}
	if c.Photo.MaxBytes <= 0 || c.Photo.MaxDimension <= 0 || c.Photo.MaxPixels <= 0 {
		errs = append(errs, errors.New("photo limits must be positive"))
	}
	if c.Share.QRSize <= 0 {
		errs = append(errs, errors.New("qr size must be positive"))
	}
	return errors.Join(errs...)
}

// RequestBodyLimit is the request size cap for the router: room for one
// photo plus multipart and header overhead.
func (c Config) RequestBodyLimit() int64 {
	return c.Photo.MaxBytes + 1<<20
}

type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) fail(key, value string, err error) {
	e.err = errors.Join(e.err, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (e *envReader) str(dst *string, key string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) duration(dst *time.Duration, key string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}

func (e *envReader) boolean(dst *bool, key string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}

func (e *envReader) integer(dst *int, key string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) int64(dst *int64, key string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
