package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/bankfolio/src/database"
	"github.com/username/bankfolio/src/logger"
	"github.com/username/bankfolio/src/models"
	"github.com/username/bankfolio/src/parsers"
)

const previewKeyFormat = "preview_%s"

type importServiceImpl struct {
	parser           parsers.StatementParser
	previewCache     *cache.Cache
	notifier         NotificationService
	commitRowTimeout time.Duration

	mu       sync.Mutex
	orgLocks map[int64]*sync.Mutex
}

func NewImportService(
	parser parsers.StatementParser,
	previewCache *cache.Cache,
	notifier NotificationService,
	commitRowTimeout time.Duration,
) ImportService {
	return &importServiceImpl{
		parser:           parser,
		previewCache:     previewCache,
		notifier:         notifier,
		commitRowTimeout: commitRowTimeout,
		orgLocks:         make(map[int64]*sync.Mutex),
	}
}

func (s *importServiceImpl) PreviewStatement(ctx context.Context, organizationID int64, filename string, data []byte) (*models.StatementPreview, error) {
	startTime := time.Now()
	logger.L.Info("PreviewStatement START", "orgID", organizationID, "filename", filename)

	upload, err := s.parser.Parse(data, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	if upload.DroppedRows > 0 {
		logger.L.Warn("Dropped statement rows with unparseable dates",
			"orgID", organizationID, "filename", filename, "droppedRows", upload.DroppedRows)
	}

	stored, err := s.ListTransactions(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	verdicts := CheckDuplicates(upload.Transactions, stored)
	duplicateCount := 0
	for _, v := range verdicts {
		if v.IsDuplicate {
			duplicateCount++
		}
	}

	preview := &models.StatementPreview{
		Token:          uuid.NewString(),
		Upload:         upload,
		Verdicts:       verdicts,
		DuplicateCount: duplicateCount,
	}
	s.previewCache.Set(fmt.Sprintf(previewKeyFormat, preview.Token), preview, cache.DefaultExpiration)

	logger.L.Info("PreviewStatement END",
		"orgID", organizationID, "filename", filename,
		"transactions", len(upload.Transactions), "duplicates", duplicateCount,
		"duration", time.Since(startTime))
	return preview, nil
}

func (s *importServiceImpl) GetPreview(token string) (*models.StatementPreview, error) {
	if cached, found := s.previewCache.Get(fmt.Sprintf(previewKeyFormat, token)); found {
		return cached.(*models.StatementPreview), nil
	}
	return nil, ErrPreviewNotFound
}

// CommitImport persists the caller's selection row by row. Commits for the
// same organization are serialized; the ledger's uniqueness constraint is
// the backstop for anything that slips past a stale duplicate check.
func (s *importServiceImpl) CommitImport(ctx context.Context, organizationID int64, filename string, txs []models.NormalizedTransaction) (*models.CommitResult, error) {
	lock := s.lockForOrganization(organizationID)
	lock.Lock()
	defer lock.Unlock()

	startTime := time.Now()
	logger.L.Info("CommitImport START", "orgID", organizationID, "filename", filename, "total", len(txs))

	result := &models.CommitResult{
		Total:        len(txs),
		Transactions: []models.StoredTransaction{},
	}

	stmt, err := database.DB.Prepare(`INSERT INTO bank_transactions
		(id, organization_id, transaction_date, value_date, description, amount, balance, reference, counterparty, account_number, currency, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		rowCtx, cancel := context.WithTimeout(ctx, s.commitRowTimeout)
		id := uuid.NewString()
		_, execErr := stmt.ExecContext(rowCtx,
			id,
			organizationID,
			tx.TransactionDate.Format(models.DateLayout),
			nullableDate(tx.ValueDate),
			tx.Description,
			tx.Amount.String(),
			nullableDecimal(tx.Balance),
			tx.Reference,
			tx.Counterparty,
			tx.AccountNumber,
			tx.Currency,
			tx.Fingerprint(),
		)
		cancel()

		if execErr != nil {
			if isUniqueViolation(execErr) {
				logger.L.Debug("Skipping duplicate transaction on commit",
					"orgID", organizationID, "description", tx.Description)
				result.Skipped++
				result.SkippedDuplicates = append(result.SkippedDuplicates, tx.Description)
				continue
			}
			cause := execErr.Error()
			if errors.Is(execErr, context.DeadlineExceeded) {
				cause = "storage timeout: " + cause
			}
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s (%s): %s", tx.Description, tx.TransactionDate.Format(models.DateLayout), cause))
			continue
		}

		result.Inserted++
		result.Transactions = append(result.Transactions, models.StoredTransaction{
			ID:              id,
			OrganizationID:  organizationID,
			TransactionDate: tx.TransactionDate,
			ValueDate:       tx.ValueDate,
			Description:     tx.Description,
			Amount:          tx.Amount,
			Balance:         tx.Balance,
			Reference:       tx.Reference,
			Counterparty:    tx.Counterparty,
			AccountNumber:   tx.AccountNumber,
			Currency:        tx.Currency,
			CreatedAt:       startTime,
		})
	}

	s.recordImport(organizationID, filename, result)
	if s.notifier != nil {
		go func() {
			if err := s.notifier.SendImportSummary(filename, result); err != nil {
				logger.L.Warn("Failed to send import summary notification",
					"orgID", organizationID, "filename", filename, "error", err)
			}
		}()
	}

	logger.L.Info("CommitImport END",
		"orgID", organizationID, "filename", filename,
		"inserted", result.Inserted, "skipped", result.Skipped, "errors", len(result.Errors),
		"duration", time.Since(startTime))
	return result, nil
}

func (s *importServiceImpl) ListTransactions(ctx context.Context, organizationID int64) ([]models.StoredTransaction, error) {
	rows, err := database.DB.QueryContext(ctx, `SELECT
		id, organization_id, transaction_date, value_date, description, amount, balance,
		reference, counterparty, account_number, currency, created_at
		FROM bank_transactions WHERE organization_id = ?
		ORDER BY transaction_date ASC, id ASC`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for organization %d: %w", organizationID, err)
	}
	defer rows.Close()

	var transactions []models.StoredTransaction
	for rows.Next() {
		tx, err := scanStoredTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction row for organization %d: %w", organizationID, err)
		}
		transactions = append(transactions, *tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows for organization %d: %w", organizationID, err)
	}
	return transactions, nil
}

func (s *importServiceImpl) ListImports(ctx context.Context, organizationID int64) ([]models.ImportActivity, error) {
	rows, err := database.DB.QueryContext(ctx, `SELECT
		id, organization_id, filename, inserted, skipped, total, created_at
		FROM statement_imports WHERE organization_id = ?
		ORDER BY created_at DESC, id DESC`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("error querying imports for organization %d: %w", organizationID, err)
	}
	defer rows.Close()

	var imports []models.ImportActivity
	for rows.Next() {
		var activity models.ImportActivity
		if err := rows.Scan(&activity.ID, &activity.OrganizationID, &activity.Filename,
			&activity.Inserted, &activity.Skipped, &activity.Total, &activity.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning import row for organization %d: %w", organizationID, err)
		}
		imports = append(imports, activity)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over import rows for organization %d: %w", organizationID, err)
	}
	return imports, nil
}

// recordImport appends to the import activity log. Logging failures never
// fail the commit itself.
func (s *importServiceImpl) recordImport(organizationID int64, filename string, result *models.CommitResult) {
	_, err := database.DB.Exec(`INSERT INTO statement_imports
		(organization_id, filename, inserted, skipped, total) VALUES (?, ?, ?, ?, ?)`,
		organizationID, filename, result.Inserted, result.Skipped, result.Total)
	if err != nil {
		logger.L.Warn("Failed to record import activity",
			"orgID", organizationID, "filename", filename, "error", err)
	}
}

func (s *importServiceImpl) lockForOrganization(organizationID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.orgLocks[organizationID]
	if !ok {
		lock = &sync.Mutex{}
		s.orgLocks[organizationID] = lock
	}
	return lock
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func nullableDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(models.DateLayout)
}

func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

// scanStoredTransaction maps one ledger row, converting the TEXT date and
// decimal columns back to their model types.
func scanStoredTransaction(rows *sql.Rows) (*models.StoredTransaction, error) {
	var tx models.StoredTransaction
	var transactionDate string
	var valueDate, balance, reference, counterparty, accountNumber, currency sql.NullString
	var amount string

	if err := rows.Scan(&tx.ID, &tx.OrganizationID, &transactionDate, &valueDate, &tx.Description,
		&amount, &balance, &reference, &counterparty, &accountNumber, &currency, &tx.CreatedAt); err != nil {
		return nil, err
	}

	parsedDate, err := time.Parse(models.DateLayout, transactionDate)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction_date %q in ledger: %w", transactionDate, err)
	}
	tx.TransactionDate = parsedDate

	if valueDate.Valid && valueDate.String != "" {
		vd, err := time.Parse(models.DateLayout, valueDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid value_date %q in ledger: %w", valueDate.String, err)
		}
		tx.ValueDate = &vd
	}

	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q in ledger: %w", amount, err)
	}
	tx.Amount = parsedAmount

	if balance.Valid && balance.String != "" {
		b, err := decimal.NewFromString(balance.String)
		if err != nil {
			return nil, fmt.Errorf("invalid balance %q in ledger: %w", balance.String, err)
		}
		tx.Balance = &b
	}

	tx.Reference = reference.String
	tx.Counterparty = counterparty.String
	tx.AccountNumber = accountNumber.String
	tx.Currency = currency.String
	return &tx, nil
}
