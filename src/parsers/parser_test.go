package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStatement = `Dato;Tekst;Beløb;Saldo
01-03-2024;Salary;15000,00;20000,00
02-03-2024;Rent;-5000,00;15000,00
03-03-2024;;0,00;15000,00
`

func TestStatementParser_Parse(t *testing.T) {
	p := NewStatementParser()

	upload, err := p.Parse([]byte(sampleStatement), "marts.csv")
	require.NoError(t, err)

	assert.Equal(t, "marts.csv", upload.Filename)
	require.Len(t, upload.Transactions, 3)
	assert.Equal(t, 0, upload.DroppedRows)

	assert.Equal(t, "Salary", upload.Transactions[0].Description)
	assert.Equal(t, "15000.00", upload.Transactions[0].Amount.StringFixed(2))
	assert.Equal(t, "credit", upload.Transactions[0].Type())

	assert.Equal(t, "Rent", upload.Transactions[1].Description)
	assert.Equal(t, "-5000.00", upload.Transactions[1].Amount.StringFixed(2))
	assert.Equal(t, "debit", upload.Transactions[1].Type())

	assert.Equal(t, []string{"missing description", "zero amount"}, upload.Transactions[2].Warnings)

	assert.Equal(t, "15000.00", upload.TotalCredits.StringFixed(2))
	assert.Equal(t, "5000.00", upload.TotalDebits.StringFixed(2))
	assert.Equal(t, "2024-03-01", upload.DateRange.Start.Format("2006-01-02"))
	assert.Equal(t, "2024-03-03", upload.DateRange.End.Format("2006-01-02"))
}

func TestStatementParser_Deterministic(t *testing.T) {
	p := newStatementParserAt(func() time.Time {
		return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	})

	first, err := p.Parse([]byte(sampleStatement), "marts.csv")
	require.NoError(t, err)
	second, err := p.Parse([]byte(sampleStatement), "marts.csv")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStatementParser_EmptyStatementDateRangeFallsBackToToday(t *testing.T) {
	p := newStatementParserAt(func() time.Time {
		return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	})

	upload, err := p.Parse([]byte("Dato;Tekst;Beløb\n"), "tom.csv")
	require.NoError(t, err)

	assert.Empty(t, upload.Transactions)
	assert.Equal(t, "2024-04-01", upload.DateRange.Start.Format("2006-01-02"))
	assert.Equal(t, "2024-04-01", upload.DateRange.End.Format("2006-01-02"))
}

func TestStatementParser_UndecodableFile(t *testing.T) {
	p := NewStatementParser()

	_, err := p.Parse([]byte("   \n"), "blank.csv")
	require.Error(t, err)

	var formatErr *FileFormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestStatementParser_MissingColumns(t *testing.T) {
	p := NewStatementParser()

	_, err := p.Parse([]byte("Foo;Bar\n1;2\n"), "weird.csv")
	require.Error(t, err)

	var columnErr *ColumnNotFoundError
	assert.ErrorAs(t, err, &columnErr)
}
