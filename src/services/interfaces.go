package services

import (
	"context"
	"errors"

	"github.com/username/bankfolio/src/models"
)

var (
	// ErrParsingFailed wraps any file-level parse failure (format, missing
	// columns). The upload is rejected before any row is produced.
	ErrParsingFailed = errors.New("statement parsing failed")

	// ErrPreviewNotFound means the review session token is unknown or has
	// expired. Abandoning a review has no side effects; nothing was
	// persisted.
	ErrPreviewNotFound = errors.New("preview session not found or expired")
)

// ImportService is the statement ingestion pipeline: parse and preview an
// upload, classify duplicates against the organization's ledger, and commit
// the caller's final selection.
type ImportService interface {
	// PreviewStatement parses the uploaded bytes, aggregates the statement,
	// classifies every transaction against the organization's stored ledger
	// and caches the result under a review token.
	PreviewStatement(ctx context.Context, organizationID int64, filename string, data []byte) (*models.StatementPreview, error)

	// GetPreview re-fetches a cached review session.
	GetPreview(token string) (*models.StatementPreview, error)

	// CommitImport persists the caller-selected transactions. It trusts the
	// duplicate verdicts the caller acted on and does not re-derive them,
	// but a storage uniqueness violation is still reclassified as a
	// duplicate skip. A single row's failure never aborts the batch.
	CommitImport(ctx context.Context, organizationID int64, filename string, txs []models.NormalizedTransaction) (*models.CommitResult, error)

	// ListTransactions returns the organization's committed ledger.
	ListTransactions(ctx context.Context, organizationID int64) ([]models.StoredTransaction, error)

	// ListImports returns the organization's import activity log.
	ListImports(ctx context.Context, organizationID int64) ([]models.ImportActivity, error)
}

// NotificationService delivers fire-and-forget import summaries.
type NotificationService interface {
	SendImportSummary(filename string, result *models.CommitResult) error
}
