package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/repositories"
)

func TestDraftRepositoryRoundTripIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewDraftRepository()

	_, err := repo.Load(ctx, domain.KindQuote)
	require.ErrorIs(t, err, repositories.ErrDraftNotFound)

	doc := domain.NewDocument(domain.KindQuote, "USD", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	doc.LineItems = append(doc.LineItems, domain.LineItem{Description: "Design", Quantity: decimal.NewFromInt(1), UnitRate: 5000})
	require.NoError(t, repo.Save(ctx, doc))

	doc.LineItems[0].Description = "mutated after save"

	loaded, err := repo.Load(ctx, domain.KindQuote)
	require.NoError(t, err)
	assert.Equal(t, "Design", loaded.LineItems[0].Description)

	require.NoError(t, repo.Delete(ctx, domain.KindQuote))
	_, err = repo.Load(ctx, domain.KindQuote)
	assert.True(t, errors.Is(err, repositories.ErrDraftNotFound))
}

func TestCounterRepositorySequence(t *testing.T) {
	ctx := context.Background()
	repo := NewCounterRepository()

	for want := int64(1); want <= 3; want++ {
		got, err := repo.Next(ctx, "invoice:202610", 0)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	initial := int64(99)
	max := int64(100)
	require.NoError(t, repo.Configure(ctx, "quote:202610", repositories.CounterConfig{InitialValue: &initial, MaxValue: &max}))
	got, err := repo.Next(ctx, "quote:202610", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)

	_, err = repo.Next(ctx, "quote:202610", 0)
	var counterErr *repositories.CounterError
	require.ErrorAs(t, err, &counterErr)
	assert.Equal(t, repositories.CounterErrorExhausted, counterErr.Code)

	_, err = repo.Next(ctx, " ", 1)
	require.ErrorAs(t, err, &counterErr)
	assert.Equal(t, repositories.CounterErrorInvalidInput, counterErr.Code)
}

func TestRegistryHealthIsOK(t *testing.T) {
	reg := NewRegistry()
	report, err := reg.Health().Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthStatusOK, report.Status)
	require.NoError(t, reg.Close(context.Background()))
}
