package parsers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ColumnRole is a logical column meaning, independent of where (or whether)
// the source file places it.
type ColumnRole string

const (
	RoleDate         ColumnRole = "date"
	RoleValueDate    ColumnRole = "value_date"
	RoleDescription  ColumnRole = "description"
	RoleAmount       ColumnRole = "amount"
	RoleDebit        ColumnRole = "debit"
	RoleCredit       ColumnRole = "credit"
	RoleBalance      ColumnRole = "balance"
	RoleReference    ColumnRole = "reference"
	RoleCounterparty ColumnRole = "counterparty"
	RoleAccount      ColumnRole = "account"
	RoleCurrency     ColumnRole = "currency"
)

// allRoles lists every role in resolution order.
var allRoles = []ColumnRole{
	RoleDate, RoleValueDate, RoleDescription, RoleAmount, RoleDebit,
	RoleCredit, RoleBalance, RoleReference, RoleCounterparty, RoleAccount,
	RoleCurrency,
}

// roleKeywords maps each role to the header labels that banks actually use,
// Danish and English alike. Matching is substring containment in either
// direction after normalization.
var roleKeywords = map[ColumnRole][]string{
	RoleDate:         {"date", "dato", "transaction date", "transaktionsdato", "bogføringsdato"},
	RoleValueDate:    {"value date", "valørdato", "valuta"},
	RoleDescription:  {"description", "tekst", "beskrivelse", "text", "note", "notat", "details"},
	RoleAmount:       {"amount", "beløb"},
	RoleDebit:        {"debit", "udgift", "udbetaling", "withdrawal"},
	RoleCredit:       {"credit", "indtægt", "indbetaling", "deposit"},
	RoleBalance:      {"balance", "saldo"},
	RoleReference:    {"reference", "ref"},
	RoleCounterparty: {"counterparty", "modpart", "name", "navn"},
	RoleAccount:      {"account", "konto", "kontonummer"},
	RoleCurrency:     {"currency", "valuta"},
}

// headerProbeRoles are the roles whose keywords identify a row as the header
// row during the scan.
var headerProbeRoles = []ColumnRole{RoleDate, RoleDescription, RoleDebit, RoleCredit, RoleAmount}

// headerScanWindow bounds how many leading rows are probed for a header.
const headerScanWindow = 5

// normalizedKeywords holds roleKeywords passed through the same
// normalization applied to header cells, built once at init.
var normalizedKeywords = func() map[ColumnRole][]string {
	out := make(map[ColumnRole][]string, len(roleKeywords))
	for role, words := range roleKeywords {
		normalized := make([]string, 0, len(words))
		for _, w := range words {
			normalized = append(normalized, normalizeHeaderCell(w))
		}
		out[role] = normalized
	}
	return out
}()

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeHeaderCell lowercases, folds combining diacritics, drops
// punctuation and collapses whitespace, so "Bogførings-Dato " and
// "bogføringsdato" compare equal.
func normalizeHeaderCell(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// matchesRole reports whether a normalized cell matches any keyword of the
// role, by containment in either direction.
func matchesRole(normalizedCell string, role ColumnRole) bool {
	if normalizedCell == "" {
		return false
	}
	for _, kw := range normalizedKeywords[role] {
		if strings.Contains(normalizedCell, kw) || strings.Contains(kw, normalizedCell) {
			return true
		}
	}
	return false
}

// ColumnMapping resolves logical roles to zero-based column indices. Absent
// roles have no entry. Built once per file and read-only afterwards.
type ColumnMapping map[ColumnRole]int

// LocateHeader finds the header row within the scan window (falling back to
// row 0) and resolves every column role from it. It fails when the date
// role, the description role, or all of amount/debit/credit are absent.
func LocateHeader(grid *Grid) (int, ColumnMapping, error) {
	headerRow := locateHeaderRow(grid.Rows)
	mapping := ResolveColumns(grid.Rows[headerRow])

	var missing []string
	if _, ok := mapping[RoleDate]; !ok {
		missing = append(missing, string(RoleDate))
	}
	if _, ok := mapping[RoleDescription]; !ok {
		missing = append(missing, string(RoleDescription))
	}
	_, hasAmount := mapping[RoleAmount]
	_, hasDebit := mapping[RoleDebit]
	_, hasCredit := mapping[RoleCredit]
	if !hasAmount && !hasDebit && !hasCredit {
		missing = append(missing, "amount/debit/credit")
	}
	if len(missing) > 0 {
		return 0, nil, &ColumnNotFoundError{Missing: missing}
	}
	return headerRow, mapping, nil
}

func locateHeaderRow(rows [][]string) int {
	limit := len(rows)
	if limit > headerScanWindow {
		limit = headerScanWindow
	}
	for i := 0; i < limit; i++ {
		for _, cell := range rows[i] {
			normalized := normalizeHeaderCell(cell)
			for _, role := range headerProbeRoles {
				if matchesRole(normalized, role) {
					return i
				}
			}
		}
	}
	return 0
}

// ResolveColumns resolves each role independently against the header cells,
// scanning left to right and taking the first match.
func ResolveColumns(headerCells []string) ColumnMapping {
	normalized := make([]string, len(headerCells))
	for i, cell := range headerCells {
		normalized[i] = normalizeHeaderCell(cell)
	}

	mapping := ColumnMapping{}
	for _, role := range allRoles {
		for i, cell := range normalized {
			if matchesRole(cell, role) {
				mapping[role] = i
				break
			}
		}
	}
	return mapping
}
