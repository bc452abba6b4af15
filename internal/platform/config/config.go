package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

const (
	defaultEnvFile         = ".env"
	defaultServerAddr      = "127.0.0.1:8787"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxLineItems    = 500
	defaultMaxPages        = 50
	defaultUndoDepth       = 50
	defaultPaperSize       = "a4"
	defaultLocale          = "en"
	defaultRounding        = "half_even"
	defaultCurrency        = "USD"
	defaultTheme           = "modern"
	defaultDraftsBackend   = DraftsBackendMemory
	defaultDraftsDir       = ".bizdoc"
	defaultDraftsTTL       = 30 * 24 * time.Hour
	defaultAssetsMaxBytes  = 2 << 20
	defaultAssetsCacheTTL  = 10 * time.Minute
)

// Draft cache backends.
const (
	DraftsBackendMemory  = "memory"
	DraftsBackendLocalFS = "localfs"
	DraftsBackendRedis   = "redis"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server ServerConfig
	Engine EngineConfig
	Drafts DraftsConfig
	Redis  RedisConfig
	Assets AssetsConfig
}

// ServerConfig configures the local editor shell.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// EngineConfig bounds and tunes document processing.
type EngineConfig struct {
	MaxLineItems    int
	MaxPages        int
	UndoDepth       int
	PaperSize       string
	Locale          string
	Rounding        string
	DefaultCurrency string
	DefaultTheme    string
}

// DraftsConfig selects where autosaved drafts and counters live.
type DraftsConfig struct {
	Backend string
	Dir     string
	TTL     time.Duration
}

// RedisConfig is only consulted when Drafts.Backend is redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AssetsConfig controls logo loading.
type AssetsConfig struct {
	MaxBytes           int64
	BaseDir            string
	CacheTTL           time.Duration
	GCSEnabled         bool
	GCSCredentialsFile string
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// EnvironmentValues returns the effective key/value environment map after applying the same precedence
// rules as Load (dotenv < OS env < explicit env map).
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := defaultLoaderOptions(opts)

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	merge := func(source map[string]string) {
		for key, value := range source {
			values[key] = value
		}
	}
	merge(dotEnvValues)
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[strings.TrimSpace(key)] = value
		}
	}
	merge(options.envMap)
	return values, nil
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

func defaultLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Load assembles the configuration by combining defaults, .env overrides and
// environment variables. Malformed values are reported, not silently replaced.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}
	options := defaultLoaderOptions(opts)

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}
	p := &parser{lookup: lookup}

	cfg := Config{
		Server: ServerConfig{
			Addr:            p.string("BIZDOC_SERVER_ADDR", defaultServerAddr),
			ReadTimeout:     p.duration("BIZDOC_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    p.duration("BIZDOC_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     p.duration("BIZDOC_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: p.duration("BIZDOC_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Engine: EngineConfig{
			MaxLineItems:    p.int("BIZDOC_ENGINE_MAX_LINE_ITEMS", defaultMaxLineItems),
			MaxPages:        p.int("BIZDOC_ENGINE_MAX_PAGES", defaultMaxPages),
			UndoDepth:       p.int("BIZDOC_ENGINE_UNDO_DEPTH", defaultUndoDepth),
			PaperSize:       strings.ToLower(p.string("BIZDOC_ENGINE_PAPER_SIZE", defaultPaperSize)),
			Locale:          p.string("BIZDOC_ENGINE_LOCALE", defaultLocale),
			Rounding:        strings.ToLower(p.string("BIZDOC_ENGINE_ROUNDING", defaultRounding)),
			DefaultCurrency: strings.ToUpper(p.string("BIZDOC_ENGINE_DEFAULT_CURRENCY", defaultCurrency)),
			DefaultTheme:    strings.ToLower(p.string("BIZDOC_ENGINE_DEFAULT_THEME", defaultTheme)),
		},
		Drafts: DraftsConfig{
			Backend: strings.ToLower(p.string("BIZDOC_DRAFTS_BACKEND", defaultDraftsBackend)),
			Dir:     p.string("BIZDOC_DRAFTS_DIR", defaultDraftsDir),
			TTL:     p.duration("BIZDOC_DRAFTS_TTL", defaultDraftsTTL),
		},
		Redis: RedisConfig{
			Addr:     p.string("BIZDOC_REDIS_ADDR", ""),
			Password: p.string("BIZDOC_REDIS_PASSWORD", ""),
			DB:       p.int("BIZDOC_REDIS_DB", 0),
		},
		Assets: AssetsConfig{
			MaxBytes:           int64(p.int("BIZDOC_ASSETS_MAX_BYTES", defaultAssetsMaxBytes)),
			BaseDir:            p.string("BIZDOC_ASSETS_BASE_DIR", ""),
			CacheTTL:           p.duration("BIZDOC_ASSETS_CACHE_TTL", defaultAssetsCacheTTL),
			GCSEnabled:         p.bool("BIZDOC_ASSETS_GCS_ENABLED", false),
			GCSCredentialsFile: p.string("BIZDOC_ASSETS_GCS_CREDENTIALS_FILE", ""),
		},
	}

	if err := validateConfig(cfg, p.invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	fields := append([]string(nil), invalid...)
	add := func(field string) {
		for _, existing := range fields {
			if existing == field {
				return
			}
		}
		fields = append(fields, field)
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		add("Server.Addr")
	}
	if cfg.Server.ReadTimeout <= 0 {
		add("Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		add("Server.WriteTimeout")
	}
	if cfg.Engine.MaxLineItems <= 0 {
		add("Engine.MaxLineItems")
	}
	if cfg.Engine.MaxPages <= 0 {
		add("Engine.MaxPages")
	}
	if cfg.Engine.UndoDepth <= 0 {
		add("Engine.UndoDepth")
	}
	switch cfg.Engine.PaperSize {
	case "a4", "letter", "us-letter":
	default:
		add("Engine.PaperSize")
	}
	if _, err := language.Parse(cfg.Engine.Locale); err != nil {
		add("Engine.Locale")
	}
	switch cfg.Engine.Rounding {
	case "half_even", "half-even", "bankers", "half_up", "half-up":
	default:
		add("Engine.Rounding")
	}
	if _, err := currency.ParseISO(cfg.Engine.DefaultCurrency); err != nil {
		add("Engine.DefaultCurrency")
	}
	switch cfg.Engine.DefaultTheme {
	case "modern", "corporate", "creative":
	default:
		add("Engine.DefaultTheme")
	}

	switch cfg.Drafts.Backend {
	case DraftsBackendMemory:
	case DraftsBackendLocalFS:
		if strings.TrimSpace(cfg.Drafts.Dir) == "" {
			add("Drafts.Dir")
		}
	case DraftsBackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			add("Redis.Addr")
		}
	default:
		add("Drafts.Backend")
	}
	if cfg.Drafts.TTL < 0 {
		add("Drafts.TTL")
	}
	if cfg.Redis.DB < 0 {
		add("Redis.DB")
	}
	if cfg.Assets.MaxBytes <= 0 {
		add("Assets.MaxBytes")
	}

	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

// loadDotEnv reads path with godotenv. A missing file is not an error.
func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

// parser reads typed values and records the env keys that failed to parse.
type parser struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func (p *parser) raw(key string) (string, bool) {
	value, ok := p.lookup(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (p *parser) string(key, fallback string) string {
	if value, ok := p.raw(key); ok {
		return value
	}
	return fallback
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	value, ok := p.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

func (p *parser) int(key string, fallback int) int {
	value, ok := p.raw(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return parsed
}

func (p *parser) bool(key string, fallback bool) bool {
	value, ok := p.raw(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	p.invalid = append(p.invalid, key)
	return fallback
}
