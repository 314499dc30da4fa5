package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateHeader_DanishLabels(t *testing.T) {
	grid := &Grid{Rows: [][]string{
		{"Dato", "Tekst", "Beløb", "Saldo"},
		{"01-03-2024", "Salary", "15000,00", "20000,00"},
	}}

	headerRow, mapping, err := LocateHeader(grid)
	require.NoError(t, err)

	assert.Equal(t, 0, headerRow)
	assert.Equal(t, 0, mapping[RoleDate])
	assert.Equal(t, 1, mapping[RoleDescription])
	assert.Equal(t, 2, mapping[RoleAmount])
	assert.Equal(t, 3, mapping[RoleBalance])
}

func TestLocateHeader_SkipsMetadataRows(t *testing.T) {
	grid := &Grid{Rows: [][]string{
		{"Kontoudtog for 1234-5678"},
		{"Periode: 01.03.2024 - 31.03.2024"},
		{"Dato", "Tekst", "Beløb"},
		{"01-03-2024", "Salary", "15000,00"},
	}}

	headerRow, mapping, err := LocateHeader(grid)
	require.NoError(t, err)

	assert.Equal(t, 2, headerRow)
	assert.Equal(t, 1, mapping[RoleDescription])
}

func TestLocateHeader_DiacriticFolding(t *testing.T) {
	grid := &Grid{Rows: [][]string{
		{"Bogføringsdato", "Valørdato", "Beskrivelse", "Udbetaling", "Indbetaling"},
	}}

	_, mapping, err := LocateHeader(grid)
	require.NoError(t, err)

	assert.Equal(t, 0, mapping[RoleDate])
	assert.Equal(t, 1, mapping[RoleValueDate])
	assert.Equal(t, 2, mapping[RoleDescription])
	assert.Equal(t, 3, mapping[RoleDebit])
	assert.Equal(t, 4, mapping[RoleCredit])
}

func TestLocateHeader_MissingMandatoryColumns(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		missing string
	}{
		{"no date", []string{"Tekst", "Beløb"}, "date"},
		{"no description", []string{"Dato", "Beløb"}, "description"},
		{"no amount column at all", []string{"Dato", "Tekst", "Saldo"}, "amount/debit/credit"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			grid := &Grid{Rows: [][]string{tc.header}}
			_, _, err := LocateHeader(grid)
			require.Error(t, err)

			var columnErr *ColumnNotFoundError
			require.ErrorAs(t, err, &columnErr)
			assert.Contains(t, columnErr.Missing, tc.missing)
		})
	}
}

func TestLocateHeader_DebitCreditSatisfyAmountRequirement(t *testing.T) {
	grid := &Grid{Rows: [][]string{
		{"Date", "Description", "Withdrawal", "Deposit"},
	}}

	_, mapping, err := LocateHeader(grid)
	require.NoError(t, err)

	_, hasAmount := mapping[RoleAmount]
	assert.False(t, hasAmount)
	assert.Equal(t, 2, mapping[RoleDebit])
	assert.Equal(t, 3, mapping[RoleCredit])
}

func TestLocateHeaderRow_FallsBackToFirstRow(t *testing.T) {
	rows := [][]string{
		{"foo", "bar"},
		{"baz"},
	}
	assert.Equal(t, 0, locateHeaderRow(rows))
}

func TestLocateHeaderRow_WindowBound(t *testing.T) {
	rows := [][]string{
		{"metadata"}, {"metadata"}, {"metadata"}, {"metadata"}, {"metadata"},
		{"Dato", "Tekst", "Beløb"},
	}
	// The header sits just past the scan window, so the scan falls back.
	assert.Equal(t, 0, locateHeaderRow(rows))
}

func TestNormalizeHeaderCell(t *testing.T) {
	assert.Equal(t, "bogføringsdato", normalizeHeaderCell("Bogførings-Dato "))
	assert.Equal(t, "valørdato", normalizeHeaderCell("Valørdato"))
	assert.Equal(t, "transaction date", normalizeHeaderCell("  Transaction   Date\t"))
	assert.Equal(t, "", normalizeHeaderCell("  .,;  "))
}

func TestResolveColumns_FirstMatchWins(t *testing.T) {
	mapping := ResolveColumns([]string{"Amount", "Amount (local)", "Date"})
	assert.Equal(t, 0, mapping[RoleAmount])
	assert.Equal(t, 2, mapping[RoleDate])
}
