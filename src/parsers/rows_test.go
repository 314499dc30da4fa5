package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatementDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-02-01", "2024-02-01"},
		{"2024-02-01T00:00:00", "2024-02-01"},
		{"2024-02-01 14:30:00", "2024-02-01"},
		{"28-Apr-17", "2017-04-28"},
		{"28-apr-2017", "2017-04-28"},
		{"01-02-2024", "2024-02-01"},
		{"01/02/2024", "2024-02-01"},
		{" 05-03-2024 ", "2024-03-05"},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseStatementDate(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Format("2006-01-02"))
		})
	}
}

func TestParseStatementDate_TwoDigitYearPivot(t *testing.T) {
	got, err := ParseStatementDate("15-Jun-30")
	require.NoError(t, err)
	assert.Equal(t, 2030, got.Year())

	got, err = ParseStatementDate("15-Jun-31")
	require.NoError(t, err)
	assert.Equal(t, 1931, got.Year())
}

func TestParseStatementDate_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a date", "32-01-2024", "01-Xyz-24", "2024-13-40"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseStatementDate(raw)
			assert.Error(t, err)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"100,00", "100.00"},
		{"100.00", "100.00"},
		{"-5000,00", "-5000.00"},
		{"15 000,00", "15000.00"},
		{"1.234.567,89", "1234567.89"},
		{"DKK 250,75", "250.75"},
		{"100,00 DR", "100.00"},
		{"100,00 CR", "100.00"},
		{"0,00", "0.00"},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got := ParseAmount(tc.raw)
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestParseAmount_UnparseableIsZero(t *testing.T) {
	assert.True(t, ParseAmount("").IsZero())
	assert.True(t, ParseAmount("n/a").IsZero())
	assert.True(t, ParseAmount("--").IsZero())
}

func TestNormalizeRows_AmountPrecedence(t *testing.T) {
	grid := &Grid{Rows: [][]string{
		{"Dato", "Tekst", "Udbetaling", "Indbetaling", "Beløb"},
		{"01-03-2024", "Groceries", "250,00", "", "999,99"},
		{"02-03-2024", "Salary", "", "15000,00", "999,99"},
		{"03-03-2024", "Adjustment", "", "", "-42,00"},
	}}
	headerRow, mapping, err := LocateHeader(grid)
	require.NoError(t, err)

	txs, dropped := NormalizeRows(grid, headerRow, mapping)
	require.Len(t, txs, 3)
	assert.Equal(t, 0, dropped)

	assert.Equal(t, "-250.00", txs[0].Amount.StringFixed(2))
	assert.Equal(t, "15000.00", txs[1].Amount.StringFixed(2))
	assert.Equal(t, "-42.00", txs[2].Amount.StringFixed(2))
}

func TestNormalizeRows_DropsRowsWithBadDates(t *testing.T) {
	grid := &Grid{Rows: [][]string{
		{"Dato", "Tekst", "Beløb"},
		{"01-03-2024", "Kept", "10,00"},
		{"Ialt", "Sum row", "25,00"},
		{"02-03-2024", "Also kept", "15,00"},
	}}
	headerRow, mapping, err := LocateHeader(grid)
	require.NoError(t, err)

	txs, dropped := NormalizeRows(grid, headerRow, mapping)
	require.Len(t, txs, 2)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "Kept", txs[0].Description)
	assert.Equal(t, "Also kept", txs[1].Description)
}

func TestNormalizeRows_Warnings(t *testing.T) {
	grid := &Grid{Rows: [][]string{
		{"Dato", "Tekst", "Beløb"},
		{"03-03-2024", "", "0,00"},
	}}
	headerRow, mapping, err := LocateHeader(grid)
	require.NoError(t, err)

	txs, _ := NormalizeRows(grid, headerRow, mapping)
	require.Len(t, txs, 1)
	assert.Equal(t, []string{"missing description", "zero amount"}, txs[0].Warnings)
}

func TestNormalizeRows_OptionalFields(t *testing.T) {
	grid := &Grid{Rows: [][]string{
		{"Dato", "Valørdato", "Tekst", "Beløb", "Saldo", "Reference", "Modpart", "Kontonummer", "Valuta"},
		{"01-03-2024", "02-03-2024", "Rent", "-5000,00", "15000,00", "REF-1", "Landlord ApS", "1234-5678", "DKK"},
		{"05-03-2024", "", "Coffee", "-45,00", "", "", "", "", ""},
	}}
	headerRow, mapping, err := LocateHeader(grid)
	require.NoError(t, err)

	txs, _ := NormalizeRows(grid, headerRow, mapping)
	require.Len(t, txs, 2)

	first := txs[0]
	require.NotNil(t, first.ValueDate)
	assert.Equal(t, "2024-03-02", first.ValueDate.Format("2006-01-02"))
	require.NotNil(t, first.Balance)
	assert.Equal(t, "15000.00", first.Balance.StringFixed(2))
	assert.Equal(t, "REF-1", first.Reference)
	assert.Equal(t, "Landlord ApS", first.Counterparty)
	assert.Equal(t, "1234-5678", first.AccountNumber)
	assert.Equal(t, "DKK", first.Currency)

	second := txs[1]
	assert.Nil(t, second.ValueDate)
	assert.Nil(t, second.Balance)
	assert.Empty(t, second.Reference)
}

func TestNormalizeRows_ShortRowsTreatedAsEmptyCells(t *testing.T) {
	grid := &Grid{Rows: [][]string{
		{"Dato", "Tekst", "Beløb", "Saldo"},
		{"01-03-2024", "Truncated row"},
	}}
	headerRow, mapping, err := LocateHeader(grid)
	require.NoError(t, err)

	txs, dropped := NormalizeRows(grid, headerRow, mapping)
	assert.Equal(t, 0, dropped)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.IsZero())
	assert.Nil(t, txs[0].Balance)
	assert.Contains(t, txs[0].Warnings, "zero amount")
}

func TestNormalizeRows_PreservesRowOrder(t *testing.T) {
	grid := &Grid{Rows: [][]string{
		{"Dato", "Tekst", "Beløb"},
		{"05-03-2024", "c", "1,00"},
		{"01-03-2024", "a", "1,00"},
		{"03-03-2024", "b", "1,00"},
	}}
	headerRow, mapping, err := LocateHeader(grid)
	require.NoError(t, err)

	txs, _ := NormalizeRows(grid, headerRow, mapping)
	require.Len(t, txs, 3)
	assert.Equal(t, "c", txs[0].Description)
	assert.Equal(t, "a", txs[1].Description)
	assert.Equal(t, "b", txs[2].Description)
	assert.Equal(t, time.March, txs[0].TransactionDate.Month())
}
