package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/username/bankfolio/src/models"
	"github.com/username/bankfolio/src/security/validation"
)

// NormalizeRows converts every data row below the header into a
// NormalizedTransaction, preserving row order. Rows whose date cannot be
// parsed are dropped entirely; the second return value counts them. A
// dropped row leaves no gap marker in the output.
func NormalizeRows(grid *Grid, headerRow int, mapping ColumnMapping) ([]models.NormalizedTransaction, int) {
	var out []models.NormalizedTransaction
	dropped := 0
	for _, row := range grid.Rows[headerRow+1:] {
		tx, err := normalizeRow(row, mapping)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, *tx)
	}
	return out, dropped
}

// normalizeRow parses one data row. The only hard error is an unparseable
// transaction date; everything else degrades to a warning or an empty field.
func normalizeRow(row []string, mapping ColumnMapping) (*models.NormalizedTransaction, error) {
	date, err := ParseStatementDate(cellFor(row, mapping, RoleDate))
	if err != nil {
		return nil, err
	}

	tx := models.NormalizedTransaction{TransactionDate: date}

	if raw := cellFor(row, mapping, RoleValueDate); strings.TrimSpace(raw) != "" {
		if vd, err := ParseStatementDate(raw); err == nil {
			tx.ValueDate = &vd
		}
	}

	tx.Description = strings.TrimSpace(validation.StripUnprintable(cellFor(row, mapping, RoleDescription)))
	tx.Reference = strings.TrimSpace(cellFor(row, mapping, RoleReference))
	tx.Counterparty = strings.TrimSpace(validation.StripUnprintable(cellFor(row, mapping, RoleCounterparty)))
	tx.AccountNumber = strings.TrimSpace(cellFor(row, mapping, RoleAccount))
	tx.Currency = strings.TrimSpace(cellFor(row, mapping, RoleCurrency))
	tx.Amount = resolveAmount(row, mapping)

	if raw := cellFor(row, mapping, RoleBalance); strings.TrimSpace(raw) != "" {
		balance := ParseAmount(raw)
		tx.Balance = &balance
	}

	if tx.Description == "" {
		tx.Warnings = append(tx.Warnings, "missing description")
	}
	if tx.Amount.IsZero() {
		tx.Warnings = append(tx.Warnings, "zero amount")
	}
	return &tx, nil
}

// resolveAmount applies the signed-amount precedence: a positive debit cell
// wins (negated), then a positive credit cell, then the unified amount
// column's own sign.
func resolveAmount(row []string, mapping ColumnMapping) decimal.Decimal {
	_, hasDebit := mapping[RoleDebit]
	_, hasCredit := mapping[RoleCredit]
	_, hasAmount := mapping[RoleAmount]

	if hasDebit {
		if debit := ParseAmount(cellFor(row, mapping, RoleDebit)); debit.IsPositive() {
			return debit.Neg()
		}
	}
	if hasCredit {
		if credit := ParseAmount(cellFor(row, mapping, RoleCredit)); credit.IsPositive() {
			return credit
		}
	}
	if hasAmount {
		return ParseAmount(cellFor(row, mapping, RoleAmount))
	}
	return decimal.Zero
}

// cellFor returns the raw cell for a mapped role, or "" when the role is
// absent or the row is too short.
func cellFor(row []string, mapping ColumnMapping, role ColumnRole) string {
	idx, ok := mapping[role]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

var (
	dayMonthAbbrevRe = regexp.MustCompile(`^(\d{1,2})-([A-Za-z]{3})-(\d{2}|\d{4})$`)
	leadingISORe     = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
	trailingDrCrRe   = regexp.MustCompile(`(?i)\s*(cr|dr)\.?\s*$`)

	monthAbbrevs = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
)

// ParseStatementDate tries the date formats seen across bank exports, in
// order: ISO with an optional trailing time component, DD-Mon-YY(YY) with a
// case-insensitive month abbreviation, DD-MM-YYYY / DD/MM/YYYY, and a bare
// ISO date at the start of the field.
func ParseStatementDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date field")
	}

	iso := s
	if i := strings.IndexAny(iso, "T "); i > 0 {
		iso = iso[:i]
	}
	if t, err := time.Parse(models.DateLayout, iso); err == nil {
		return t, nil
	}

	if m := dayMonthAbbrevRe.FindStringSubmatch(s); m != nil {
		if month, ok := monthAbbrevs[strings.ToLower(m[2])]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			if len(m[3]) == 2 {
				// Two-digit years pivot at 30, not at Go's default 69.
				if year <= 30 {
					year += 2000
				} else {
					year += 1900
				}
			}
			t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if t.Day() == day && t.Month() == month {
				return t, nil
			}
		}
	}

	for _, layout := range []string{"02-01-2006", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	if m := leadingISORe.FindStringSubmatch(s); m != nil {
		if t, err := time.Parse(models.DateLayout, m[1]); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// ParseAmount parses a monetary cell. It strips currency symbols and
// trailing CR/DR markers, then decides which of '.' and ',' is the decimal
// point: with both present the one occurring last wins, with only a comma
// present the comma is the decimal point. Unparseable input resolves to
// zero rather than erroring; the ambiguity is inherent to the source files.
func ParseAmount(raw string) decimal.Decimal {
	s := trailingDrCrRe.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			return r
		case unicode.IsSpace(r):
			return r
		}
		return -1
	}, s)

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}
	s = strings.Join(strings.Fields(s), "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
