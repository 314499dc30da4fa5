package parsers

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/bankfolio/src/models"
)

// BuildStatementUpload folds the normalized rows into the per-statement
// aggregate in a single pass: total credits and debits, the inclusive date
// range, and the first non-empty currency and account number seen. An empty
// row list is a degenerate case, not an error; its date range collapses to
// the upload day.
func BuildStatementUpload(filename string, txs []models.NormalizedTransaction, droppedRows int, now time.Time) *models.StatementUpload {
	upload := &models.StatementUpload{
		Filename:     filename,
		UploadedAt:   now,
		Transactions: txs,
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
		DroppedRows:  droppedRows,
	}

	if len(txs) == 0 {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		upload.DateRange = models.DateRange{Start: today, End: today}
		return upload
	}

	start, end := txs[0].TransactionDate, txs[0].TransactionDate
	for _, tx := range txs {
		if tx.Amount.IsNegative() {
			upload.TotalDebits = upload.TotalDebits.Add(tx.Amount.Abs())
		} else {
			upload.TotalCredits = upload.TotalCredits.Add(tx.Amount)
		}
		if tx.TransactionDate.Before(start) {
			start = tx.TransactionDate
		}
		if tx.TransactionDate.After(end) {
			end = tx.TransactionDate
		}
		if upload.Currency == "" && tx.Currency != "" {
			upload.Currency = tx.Currency
		}
		if upload.AccountNumber == "" && tx.AccountNumber != "" {
			upload.AccountNumber = tx.AccountNumber
		}
	}
	upload.DateRange = models.DateRange{Start: start, End: end}
	return upload
}
