package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/repositories"
)

func TestDraftRepositoryPersistsJSON(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg, err := NewRegistry(Options{Dir: dir})
	require.NoError(t, err)

	doc := domain.NewDocument(domain.KindInvoice, "EUR", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	doc.Issuer.Name = "Acme"
	doc.TaxRate = decimal.RequireFromString("19")
	doc.LineItems = append(doc.LineItems, domain.LineItem{Description: "Hours", Quantity: decimal.RequireFromString("1.5"), UnitRate: 9000})
	require.NoError(t, reg.Drafts().Save(ctx, doc))

	_, err = os.Stat(filepath.Join(dir, "drafts", "invoice.json"))
	require.NoError(t, err)

	// A second registry over the same dir sees the draft.
	reopened, err := NewRegistry(Options{Dir: dir})
	require.NoError(t, err)
	loaded, err := reopened.Drafts().Load(ctx, domain.KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, "Acme", loaded.Issuer.Name)
	assert.True(t, loaded.TaxRate.Equal(decimal.NewFromInt(19)))
	assert.True(t, loaded.LineItems[0].Quantity.Equal(decimal.RequireFromString("1.5")))

	require.NoError(t, reopened.Drafts().Delete(ctx, domain.KindInvoice))
	require.NoError(t, reopened.Drafts().Delete(ctx, domain.KindInvoice))
	_, err = reopened.Drafts().Load(ctx, domain.KindInvoice)
	assert.ErrorIs(t, err, repositories.ErrDraftNotFound)
}

func TestDraftRepositoryExpiresByTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	reg, err := NewRegistry(Options{Dir: t.TempDir(), TTL: time.Hour, Clock: func() time.Time { return now }})
	require.NoError(t, err)

	doc := domain.NewDocument(domain.KindReceipt, "USD", now)
	require.NoError(t, reg.Drafts().Save(ctx, doc))

	_, err = reg.Drafts().Load(ctx, domain.KindReceipt)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = reg.Drafts().Load(ctx, domain.KindReceipt)
	assert.ErrorIs(t, err, repositories.ErrDraftNotFound)
}

func TestCounterRepositorySurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg, err := NewRegistry(Options{Dir: dir})
	require.NoError(t, err)

	v, err := reg.Counters().Next(ctx, "invoice:202610", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	reopened, err := NewRegistry(Options{Dir: dir})
	require.NoError(t, err)
	v, err = reopened.Counters().Next(ctx, "invoice:202610", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	start := int64(41)
	require.NoError(t, reopened.Counters().Configure(ctx, "quote:202610", repositories.CounterConfig{InitialValue: &start}))
	v, err = reopened.Counters().Next(ctx, "quote:202610", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestRegistryHealthChecksDir(t *testing.T) {
	reg, err := NewRegistry(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	report, err := reg.Health().Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthStatusOK, report.Status)
}

func TestNewRegistryRequiresDir(t *testing.T) {
	_, err := NewRegistry(Options{})
	require.Error(t, err)
}
