package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/editor"
	"github.com/hanko-field/bizdoc/internal/layout"
	"github.com/hanko-field/bizdoc/internal/money"
	"github.com/hanko-field/bizdoc/internal/platform/config"
	"github.com/hanko-field/bizdoc/internal/platform/observability"
	"github.com/hanko-field/bizdoc/internal/platform/storage"
	"github.com/hanko-field/bizdoc/internal/render"
	"github.com/hanko-field/bizdoc/internal/repositories"
	"github.com/hanko-field/bizdoc/internal/repositories/localfs"
	"github.com/hanko-field/bizdoc/internal/repositories/memory"
	"github.com/hanko-field/bizdoc/internal/repositories/redis"
	"github.com/hanko-field/bizdoc/internal/services"
)

// Services bundles the engine components handlers and commands rely upon.
type Services struct {
	Calculator *services.DocumentCalculator
	Validator  *services.DocumentValidator
	Assets     services.AssetService
	Export     services.ExportService
	Numbering  services.NumberingService
}

// Container wires repositories, services, and platform clients for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Catalog      *money.Catalog
	Themes       *layout.ThemeTable
	Locale       language.Tag

	logger  *zap.Logger
	clock   func() time.Time
	objects *storage.Reader
}

// Option customises container construction.
type Option func(*containerOptions)

type containerOptions struct {
	logger   *zap.Logger
	registry repositories.Registry
	objects  services.ObjectReader
	clock    func() time.Time
}

// WithLogger sets the base zap logger used for every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithRegistry supplies a repository registry instead of building one from config.
func WithRegistry(reg repositories.Registry) Option {
	return func(o *containerOptions) {
		o.registry = reg
	}
}

// WithObjectReader supplies the gs:// reader instead of dialing Cloud Storage.
func WithObjectReader(objects services.ObjectReader) Option {
	return func(o *containerOptions) {
		o.objects = objects
	}
}

// WithClock overrides the wall clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *containerOptions) {
		o.clock = clock
	}
}

// NewContainer constructs the runtime dependencies described by cfg.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	options := containerOptions{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	if options.clock == nil {
		options.clock = time.Now
	}

	c := &Container{
		Config:  cfg,
		Catalog: money.DefaultCatalog(),
		Themes:  layout.DefaultThemes(),
		logger:  options.logger,
		clock:   options.clock,
	}

	locale, err := language.Parse(strings.TrimSpace(cfg.Engine.Locale))
	if err != nil {
		locale = language.English
	}
	c.Locale = locale

	reg := options.registry
	if reg == nil {
		reg, err = BuildRegistry(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	c.Repositories = reg

	objects := options.objects
	if objects == nil && cfg.Assets.GCSEnabled {
		reader, err := storage.Dial(ctx, cfg.Assets.GCSCredentialsFile)
		if err != nil {
			_ = reg.Close(ctx)
			return nil, fmt.Errorf("build storage reader: %w", err)
		}
		c.objects = reader
		objects = reader
	}

	svc, err := c.buildServices(cfg, objects)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	c.Services = svc
	return c, nil
}

// BuildRegistry selects the draft and counter backend named by cfg.Drafts.Backend.
func BuildRegistry(ctx context.Context, cfg config.Config) (repositories.Registry, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Drafts.Backend)) {
	case "", config.DraftsBackendMemory:
		return memory.NewRegistry(), nil
	case config.DraftsBackendLocalFS:
		reg, err := localfs.NewRegistry(localfs.Options{Dir: cfg.Drafts.Dir, TTL: cfg.Drafts.TTL})
		if err != nil {
			return nil, fmt.Errorf("build localfs registry: %w", err)
		}
		return reg, nil
	case config.DraftsBackendRedis:
		reg, err := redis.NewRegistry(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			DraftTTL: cfg.Drafts.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("build redis registry: %w", err)
		}
		return reg, nil
	default:
		return nil, fmt.Errorf("unknown drafts backend %q", cfg.Drafts.Backend)
	}
}

func (c *Container) buildServices(cfg config.Config, objects services.ObjectReader) (Services, error) {
	rounding, ok := money.ParseRoundingMode(cfg.Engine.Rounding)
	if !ok {
		return Services{}, fmt.Errorf("build calculator: unknown rounding mode %q", cfg.Engine.Rounding)
	}
	paper, ok := render.ParsePaperSize(cfg.Engine.PaperSize)
	if !ok {
		return Services{}, fmt.Errorf("build renderer: unknown paper size %q", cfg.Engine.PaperSize)
	}

	calculator, err := services.NewDocumentCalculator(services.DocumentCalculatorDeps{
		Rounding: rounding,
		Logger:   observability.EventLogger(c.logger, "calculator"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build calculator: %w", err)
	}

	validator := services.NewDocumentValidator(services.DocumentValidatorDeps{
		Catalog:      c.Catalog,
		MaxLineItems: cfg.Engine.MaxLineItems,
	})

	assets := services.NewAssetService(services.AssetServiceDeps{
		Objects:  objects,
		MaxBytes: cfg.Assets.MaxBytes,
		BaseDir:  cfg.Assets.BaseDir,
		CacheTTL: cfg.Assets.CacheTTL,
		Clock:    c.clock,
		Logger:   observability.EventLogger(c.logger, "assets"),
	})

	renderer := render.NewRenderer(render.Options{
		Paper:    paper,
		MaxPages: cfg.Engine.MaxPages,
		Logger:   observability.EventLogger(c.logger, "render"),
	})

	export, err := services.NewExportService(services.ExportServiceDeps{
		Calculator: calculator,
		Validator:  validator,
		Renderer:   renderer,
		Assets:     assets,
		Catalog:    c.Catalog,
		Themes:     c.Themes,
		Locale:     c.Locale,
		Logger:     observability.EventLogger(c.logger, "export"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build export service: %w", err)
	}

	var numbering services.NumberingService
	if counters := c.Repositories.Counters(); counters != nil {
		numbering, err = services.NewNumberingService(services.NumberingServiceDeps{
			Repository: counters,
			Clock:      c.clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build numbering service: %w", err)
		}
	}

	return Services{
		Calculator: calculator,
		Validator:  validator,
		Assets:     assets,
		Export:     export,
		Numbering:  numbering,
	}, nil
}

// NewSession opens an editor session autosaving into the configured draft cache.
func (c *Container) NewSession(kind domain.DocumentKind, opts ...editor.Option) (*editor.Session, error) {
	if c == nil {
		return nil, errors.New("di: container is nil")
	}
	if drafts := c.Repositories.Drafts(); drafts != nil {
		opts = append([]editor.Option{editor.WithDraftStore(drafts)}, opts...)
	}
	return editor.NewSession(kind, editor.SessionDeps{
		Calculator:      c.Services.Calculator,
		Exporter:        c.Services.Export,
		Validator:       c.Services.Validator,
		Numbering:       c.Services.Numbering,
		Catalog:         c.Catalog,
		DefaultCurrency: c.Config.Engine.DefaultCurrency,
		DefaultTheme:    domain.ThemeID(c.Config.Engine.DefaultTheme),
		MaxLineItems:    c.Config.Engine.MaxLineItems,
		UndoDepth:       c.Config.Engine.UndoDepth,
		Clock:           c.clock,
		Logger:          observability.EventLogger(c.logger, "editor"),
	}, opts...)
}

// Close releases repository clients and the storage reader.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close repositories: %w", err))
		}
	}
	if c.objects != nil {
		if err := c.objects.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage reader: %w", err))
		}
	}
	return errors.Join(errs...)
}
