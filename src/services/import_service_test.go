package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/bankfolio/src/database"
	"github.com/username/bankfolio/src/logger"
	"github.com/username/bankfolio/src/models"
	"github.com/username/bankfolio/src/parsers"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")

	tempDir, err := os.MkdirTemp("", "bankfolio_test_")
	if err != nil {
		panic(err)
	}
	database.InitDB(filepath.Join(tempDir, "test.db"))

	code := m.Run()

	database.DB.Close()
	os.RemoveAll(tempDir)
	os.Exit(code)
}

func newTestService() ImportService {
	return NewImportService(
		parsers.NewStatementParser(),
		cache.New(time.Minute, time.Minute),
		&MockNotificationService{},
		5*time.Second,
	)
}

func importTx(date time.Time, amount, desc, ref string) models.NormalizedTransaction {
	return models.NormalizedTransaction{
		TransactionDate: date,
		Amount:          decimal.RequireFromString(amount),
		Description:     desc,
		Reference:       ref,
		Currency:        "DKK",
	}
}

func TestCommitImport_InsertsAllRows(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	const orgID = 100

	txs := []models.NormalizedTransaction{
		importTx(day(2024, 3, 1), "15000.00", "Salary", "REF-1"),
		importTx(day(2024, 3, 2), "-5000.00", "Rent", "REF-2"),
	}

	result, err := svc.CommitImport(ctx, orgID, "marts.csv", txs)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 2, result.Total)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Transactions, 2)
	assert.NotEmpty(t, result.Transactions[0].ID)
	assert.Equal(t, int64(orgID), result.Transactions[0].OrganizationID)

	stored, err := svc.ListTransactions(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Salary", stored[0].Description)
	assert.Equal(t, "15000.00", stored[0].Amount.StringFixed(2))
	assert.Equal(t, "DKK", stored[0].Currency)
}

func TestCommitImport_RecommitSkipsEverything(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	const orgID = 101

	txs := []models.NormalizedTransaction{
		importTx(day(2024, 3, 1), "15000.00", "Salary", "REF-1"),
		importTx(day(2024, 3, 2), "-5000.00", "Rent", "REF-2"),
		importTx(day(2024, 3, 3), "-45.00", "Coffee", ""),
	}

	first, err := svc.CommitImport(ctx, orgID, "marts.csv", txs)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)

	second, err := svc.CommitImport(ctx, orgID, "marts.csv", txs)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Skipped)
	assert.Equal(t, second.Total, second.Skipped)
	assert.ElementsMatch(t, []string{"Salary", "Rent", "Coffee"}, second.SkippedDuplicates)

	stored, err := svc.ListTransactions(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestCommitImport_OrganizationsAreIsolated(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	txs := []models.NormalizedTransaction{
		importTx(day(2024, 3, 1), "100.00", "Shared description", "REF-X"),
	}

	_, err := svc.CommitImport(ctx, 102, "a.csv", txs)
	require.NoError(t, err)
	result, err := svc.CommitImport(ctx, 103, "b.csv", txs)
	require.NoError(t, err)

	// The same logical transaction is not a duplicate across organizations.
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
}

func TestCommitImport_CancelledContextReportsRowErrors(t *testing.T) {
	svc := newTestService()
	const orgID = 104

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	txs := []models.NormalizedTransaction{
		importTx(day(2024, 3, 1), "10.00", "Doomed row", ""),
	}

	result, err := svc.CommitImport(ctx, orgID, "marts.csv", txs)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Doomed row (2024-03-01)")
}

func TestCommitImport_RecordsImportActivity(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	const orgID = 105

	txs := []models.NormalizedTransaction{
		importTx(day(2024, 3, 1), "10.00", "One row", ""),
	}
	_, err := svc.CommitImport(ctx, orgID, "log-me.csv", txs)
	require.NoError(t, err)

	imports, err := svc.ListImports(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, "log-me.csv", imports[0].Filename)
	assert.Equal(t, 1, imports[0].Inserted)
	assert.Equal(t, 0, imports[0].Skipped)
	assert.Equal(t, 1, imports[0].Total)
}

func TestPreviewStatement_RoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	const orgID = 106

	data := []byte("Dato;Tekst;Beløb;Saldo\n01-03-2024;Salary;15000,00;20000,00\n02-03-2024;Rent;-5000,00;15000,00\n")

	preview, err := svc.PreviewStatement(ctx, orgID, "marts.csv", data)
	require.NoError(t, err)
	require.NotEmpty(t, preview.Token)
	require.Len(t, preview.Upload.Transactions, 2)
	require.Len(t, preview.Verdicts, 2)
	assert.Equal(t, 0, preview.DuplicateCount)

	fetched, err := svc.GetPreview(preview.Token)
	require.NoError(t, err)
	assert.Equal(t, preview, fetched)
}

func TestPreviewStatement_FlagsDuplicatesAgainstLedger(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	const orgID = 107

	_, err := svc.CommitImport(ctx, orgID, "first.csv", []models.NormalizedTransaction{
		importTx(day(2024, 3, 2), "-5000.00", "Rent", ""),
	})
	require.NoError(t, err)

	data := []byte("Dato;Tekst;Beløb\n01-03-2024;Salary;15000,00\n02-03-2024;Rent;-5000,00\n")
	preview, err := svc.PreviewStatement(ctx, orgID, "second.csv", data)
	require.NoError(t, err)

	require.Len(t, preview.Verdicts, 2)
	assert.False(t, preview.Verdicts[0].IsDuplicate)
	assert.True(t, preview.Verdicts[1].IsDuplicate)
	assert.Equal(t, 1, preview.DuplicateCount)
}

func TestPreviewStatement_ParsingFailure(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.PreviewStatement(ctx, 108, "broken.csv", []byte("   \n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParsingFailed)

	var formatErr *parsers.FileFormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestGetPreview_UnknownToken(t *testing.T) {
	svc := newTestService()

	_, err := svc.GetPreview("no-such-token")
	assert.ErrorIs(t, err, ErrPreviewNotFound)
}
