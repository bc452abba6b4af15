package di

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/editor"
	"github.com/hanko-field/bizdoc/internal/platform/config"
	"github.com/hanko-field/bizdoc/internal/services"
)

var testNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func loadConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load(context.Background(),
		config.WithoutSystemEnv(),
		config.WithEnvFile(filepath.Join(t.TempDir(), "missing.env")),
		config.WithEnvMap(env),
	)
	require.NoError(t, err)
	return cfg
}

func newContainer(t *testing.T, cfg config.Config, opts ...Option) *Container {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	c, err := NewContainer(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func fillInvoice(t *testing.T, s *editor.Session) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpdateField(ctx, editor.FieldIssuerName, "Acme Design Co"))
	_, err := s.AddLineItem(ctx, domain.LineItem{Description: "Logo design", Quantity: decimal.NewFromInt(2), UnitRate: 5000})
	require.NoError(t, err)
}

func TestNewContainer_MemoryBackend(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := loadConfig(t, map[string]string{
		"BIZDOC_ENGINE_ROUNDING":         "half_up",
		"BIZDOC_ENGINE_PAPER_SIZE":       "letter",
		"BIZDOC_ENGINE_DEFAULT_CURRENCY": "EUR",
		"BIZDOC_ENGINE_DEFAULT_THEME":    "creative",
	})
	c := newContainer(t, cfg, WithLogger(zap.New(core)))

	assert.Equal(t, "en", c.Locale.String())
	s, err := c.NewSession(domain.KindInvoice)
	require.NoError(t, err)
	doc := s.Document()
	assert.Equal(t, "EUR", doc.Currency)
	assert.Equal(t, domain.ThemeCreative, doc.Theme)
	assert.Equal(t, testNow.Truncate(24*time.Hour), doc.IssueDate)

	fillInvoice(t, s)
	number, err := s.NextNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "INV-202610-000001", number)

	result, err := s.Export(context.Background(), services.ExportOptions{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(result.PDF, []byte("%PDF")))
	assert.Equal(t, "invoice-INV-202610-000001.pdf", result.Filename)

	assert.NotZero(t, logs.FilterField(zap.String("event", "export_completed")).Len())
	for _, entry := range logs.All() {
		for _, v := range entry.ContextMap() {
			if str, ok := v.(string); ok {
				assert.NotContains(t, str, "Acme", "document content leaked into logs")
			}
		}
	}

	report, err := c.Repositories.Health().Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthStatusOK, report.Status)
}

func TestNewContainer_LocalFSDraftsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, map[string]string{
		"BIZDOC_DRAFTS_BACKEND": "localfs",
		"BIZDOC_DRAFTS_DIR":     dir,
	})

	first := newContainer(t, cfg)
	s, err := first.NewSession(domain.KindQuote)
	require.NoError(t, err)
	require.NoError(t, s.UpdateField(context.Background(), editor.FieldRecipientName, "Globex"))
	require.NoError(t, first.Close(context.Background()))

	second := newContainer(t, cfg)
	restored, err := second.NewSession(domain.KindQuote)
	require.NoError(t, err)
	ok, err := restored.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Globex", restored.Document().Recipient.Name)
}

func TestNewContainer_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, map[string]string{
		"BIZDOC_DRAFTS_BACKEND": "redis",
		"BIZDOC_REDIS_ADDR":     mr.Addr(),
	})
	c := newContainer(t, cfg)

	s, err := c.NewSession(domain.KindEstimate)
	require.NoError(t, err)
	require.NoError(t, s.UpdateField(context.Background(), editor.FieldNotes, "Valid for 30 days"))
	assert.True(t, mr.Exists("bizdoc:draft:estimate"))

	number, err := s.NextNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EST-202610-000001", number)

	report, err := c.Repositories.Health().Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthStatusOK, report.Status)
}

type fakeObjects struct {
	data []byte
}

func (f *fakeObjects) Open(context.Context, string, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func TestNewContainer_ObjectReaderOption(t *testing.T) {
	cfg := loadConfig(t, nil)
	c := newContainer(t, cfg, WithObjectReader(&fakeObjects{data: []byte("not an image")}))

	_, err := c.Services.Assets.LoadLogo(context.Background(), "gs://brand/logo.png")
	var decodeErr *domain.AssetDecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.NotErrorIs(t, err, services.ErrAssetSourceUnavailable)
}

func TestNewContainer_Errors(t *testing.T) {
	base := loadConfig(t, nil)

	badRounding := base
	badRounding.Engine.Rounding = "ceiling"
	_, err := NewContainer(context.Background(), badRounding)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rounding")

	badPaper := base
	badPaper.Engine.PaperSize = "a3"
	_, err = NewContainer(context.Background(), badPaper)
	require.Error(t, err)

	badBackend := base
	badBackend.Drafts.Backend = "s3"
	_, err = BuildRegistry(context.Background(), badBackend)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "s3"))

	unreachable := base
	unreachable.Drafts.Backend = config.DraftsBackendRedis
	unreachable.Redis.Addr = "127.0.0.1:1"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = BuildRegistry(ctx, unreachable)
	require.Error(t, err)
}
