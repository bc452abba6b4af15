package services

import (
	"context"
	"io"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/layout"
)

// NumberingService issues advisory document numbers.
type NumberingService interface {
	NextDocumentNumber(ctx context.Context, kind domain.DocumentKind) (string, error)
	Next(ctx context.Context, scope, name string, opts CounterGenerationOptions) (CounterValue, error)
}

// AssetService resolves logo references to verified image bytes.
type AssetService interface {
	LoadLogo(ctx context.Context, ref string) (*domain.LogoImage, error)
}

// ObjectReader opens objects in remote storage. Implemented by platform/storage.
type ObjectReader interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// ExportService turns documents into PDF artifacts.
type ExportService interface {
	// Preview builds the same tree Export renders.
	Preview(ctx context.Context, doc domain.BusinessDocument) (Preview, error)
	Export(ctx context.Context, doc domain.BusinessDocument, opts ExportOptions) (ExportResult, error)
	ExportAsync(ctx context.Context, doc domain.BusinessDocument, opts ExportOptions) <-chan ExportOutcome
	SuggestedFilename(doc domain.BusinessDocument) string
}

// Preview is a recomputed document with its resolved layout.
type Preview struct {
	Document domain.BusinessDocument `json:"document"`
	Tree     layout.Tree             `json:"tree"`
	// Warnings are non-fatal issues such as an undecodable logo.
	Warnings []string `json:"warnings,omitempty"`
}
