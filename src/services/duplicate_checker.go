package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/bankfolio/src/models"
)

// Amounts within this absolute tolerance compare equal, so rounding
// differences between exports never hide a duplicate.
var amountTolerance = decimal.RequireFromString("0.01")

// Match reasons, surfaced to the review UI so a human can judge how strong
// the evidence is.
const (
	ReasonReference = "reference+date+amount"
	ReasonAccount   = "account+date+amount+description"
	// The weakest rule. With no reference or account number to anchor on it
	// will flag legitimate recurring transactions (same rent, same day) as
	// duplicates; the reason string names that so reviewers can override.
	ReasonWeak = "date+amount+description (no reference/account available)"
)

// CheckDuplicates classifies each candidate against the organization's
// stored transactions, one verdict per candidate index. Pure function of its
// two inputs.
func CheckDuplicates(candidates []models.NormalizedTransaction, stored []models.StoredTransaction) []models.DuplicateVerdict {
	verdicts := make([]models.DuplicateVerdict, len(candidates))
	for i, candidate := range candidates {
		verdicts[i] = classify(candidate, stored)
	}
	return verdicts
}

// classify compares one candidate against every stored transaction,
// short-circuiting on the first match.
func classify(candidate models.NormalizedTransaction, stored []models.StoredTransaction) models.DuplicateVerdict {
	for _, s := range stored {
		if reason, ok := matches(candidate, s); ok {
			return models.DuplicateVerdict{IsDuplicate: true, MatchReason: reason}
		}
	}
	return models.DuplicateVerdict{}
}

// matches applies the tie-break order: a shared reference decides on
// reference+date+amount alone; otherwise a shared account number requires
// date+amount+description plus account equality; with neither present the
// weak date+amount+description rule applies unconditionally.
func matches(c models.NormalizedTransaction, s models.StoredTransaction) (string, bool) {
	cRef, sRef := strings.TrimSpace(c.Reference), strings.TrimSpace(s.Reference)
	cAcct, sAcct := strings.TrimSpace(c.AccountNumber), strings.TrimSpace(s.AccountNumber)

	switch {
	case cRef != "" && sRef != "":
		if cRef == sRef && sameDay(c.TransactionDate, s.TransactionDate) && amountsClose(c.Amount, s.Amount) {
			return ReasonReference, true
		}
	case cAcct != "" && sAcct != "":
		if cAcct == sAcct &&
			sameDay(c.TransactionDate, s.TransactionDate) &&
			amountsClose(c.Amount, s.Amount) &&
			sameDescription(c.Description, s.Description) {
			return ReasonAccount, true
		}
	default:
		if sameDay(c.TransactionDate, s.TransactionDate) &&
			amountsClose(c.Amount, s.Amount) &&
			sameDescription(c.Description, s.Description) {
			return ReasonWeak, true
		}
	}
	return "", false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func amountsClose(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(amountTolerance)
}

func sameDescription(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
