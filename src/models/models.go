package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction type values derived from the sign of the amount.
const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

// DateLayout is the canonical calendar-date format used in JSON payloads
// and in the ledger tables.
const DateLayout = "2006-01-02"

// NormalizedTransaction is the canonical, bank-agnostic representation of one
// statement line, independent of the source file's column layout. It exists
// only between a parse call and the commit decision; it is never persisted
// as-is.
type NormalizedTransaction struct {
	TransactionDate time.Time        `json:"transaction_date"`
	ValueDate       *time.Time       `json:"value_date,omitempty"`
	Description     string           `json:"description"`
	Amount          decimal.Decimal  `json:"amount"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`
	Reference       string           `json:"reference,omitempty"`
	Counterparty    string           `json:"counterparty,omitempty"`
	AccountNumber   string           `json:"account_number,omitempty"`
	Currency        string           `json:"currency,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// Type derives the transaction type from the sign of the amount. It is
// intentionally not a struct field so it can never drift from the amount.
func (t NormalizedTransaction) Type() string {
	if t.Amount.IsNegative() {
		return TypeDebit
	}
	return TypeCredit
}

// MarshalJSON adds the derived transaction_type to the serialized form.
func (t NormalizedTransaction) MarshalJSON() ([]byte, error) {
	type alias NormalizedTransaction
	return json.Marshal(struct {
		alias
		TransactionType string `json:"transaction_type"`
	}{alias(t), t.Type()})
}

// Fingerprint identifies a transaction for the ledger's uniqueness backstop:
// two commits of the same statement line always produce the same fingerprint.
func (t NormalizedTransaction) Fingerprint() string {
	base := fmt.Sprintf("%s|%s|%s|%s",
		t.TransactionDate.Format(DateLayout),
		t.Amount.StringFixed(2),
		strings.ToLower(strings.TrimSpace(t.Description)),
		strings.TrimSpace(t.Reference))
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])
}

// DateRange is the inclusive span of transaction dates in a statement.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// StatementUpload is the aggregate produced from one uploaded file. It is
// held only for the duration of a review session and never persisted.
type StatementUpload struct {
	Filename      string                  `json:"filename"`
	UploadedAt    time.Time               `json:"uploaded_at"`
	Transactions  []NormalizedTransaction `json:"transactions"`
	TotalDebits   decimal.Decimal         `json:"total_debits"`
	TotalCredits  decimal.Decimal         `json:"total_credits"`
	Currency      string                  `json:"currency,omitempty"`
	AccountNumber string                  `json:"account_number,omitempty"`
	DateRange     DateRange               `json:"date_range"`
	DroppedRows   int                     `json:"dropped_rows"`
}

// StoredTransaction is the ledger's persisted shape: a committed statement
// line plus its owning organization and generated identifier. Rows are
// append-only; once committed they are never mutated or deleted here.
type StoredTransaction struct {
	ID              string           `json:"id"`
	OrganizationID  int64            `json:"organization_id"`
	TransactionDate time.Time        `json:"transaction_date"`
	ValueDate       *time.Time       `json:"value_date,omitempty"`
	Description     string           `json:"description"`
	Amount          decimal.Decimal  `json:"amount"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`
	Reference       string           `json:"reference,omitempty"`
	Counterparty    string           `json:"counterparty,omitempty"`
	AccountNumber   string           `json:"account_number,omitempty"`
	Currency        string           `json:"currency,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Type derives the transaction type from the sign of the amount.
func (t StoredTransaction) Type() string {
	if t.Amount.IsNegative() {
		return TypeDebit
	}
	return TypeCredit
}

// MarshalJSON adds the derived transaction_type to the serialized form.
func (t StoredTransaction) MarshalJSON() ([]byte, error) {
	type alias StoredTransaction
	return json.Marshal(struct {
		alias
		TransactionType string `json:"transaction_type"`
	}{alias(t), t.Type()})
}

// DuplicateVerdict classifies one candidate transaction against the stored
// ledger. It is a pure function of the candidate and the stored set.
type DuplicateVerdict struct {
	IsDuplicate bool   `json:"is_duplicate"`
	MatchReason string `json:"match_reason,omitempty"`
}

// StatementPreview is the review payload returned after an upload: the parsed
// statement plus one verdict per transaction, cached under Token until the
// caller commits or abandons the session.
type StatementPreview struct {
	Token          string             `json:"token"`
	Upload         *StatementUpload   `json:"upload"`
	Verdicts       []DuplicateVerdict `json:"verdicts"`
	DuplicateCount int                `json:"duplicate_count"`
}

// CommitResult reports what a commit actually did. A commit is never
// all-or-nothing: it always returns counts of what succeeded, what was
// skipped as a duplicate, and what failed.
type CommitResult struct {
	Inserted          int                 `json:"inserted"`
	Skipped           int                 `json:"skipped"`
	Total             int                 `json:"total"`
	Transactions      []StoredTransaction `json:"transactions"`
	SkippedDuplicates []string            `json:"skipped_duplicates,omitempty"`
	Errors            []string            `json:"errors,omitempty"`
}

// ImportActivity is one row of the append-only import audit log.
type ImportActivity struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Filename       string    `json:"filename"`
	Inserted       int       `json:"inserted"`
	Skipped        int       `json:"skipped"`
	Total          int       `json:"total"`
	CreatedAt      time.Time `json:"created_at"`
}
