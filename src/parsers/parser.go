package parsers

import (
	"time"

	"github.com/username/bankfolio/src/models"
)

// StatementParser turns raw statement file bytes into a reviewed-ready
// StatementUpload. Parsing is a pure, synchronous, single-pass transform; it
// is safe to call concurrently from any number of uploads.
type StatementParser interface {
	Parse(data []byte, filename string) (*models.StatementUpload, error)
}

type statementParser struct {
	now func() time.Time
}

// NewStatementParser returns the production parser.
func NewStatementParser() StatementParser {
	return &statementParser{now: time.Now}
}

// newStatementParserAt pins the clock, for deterministic tests of the
// empty-statement date-range fallback.
func newStatementParserAt(now func() time.Time) StatementParser {
	return &statementParser{now: now}
}

func (p *statementParser) Parse(data []byte, filename string) (*models.StatementUpload, error) {
	grid, err := DecodeTabular(data, filename)
	if err != nil {
		return nil, err
	}
	headerRow, mapping, err := LocateHeader(grid)
	if err != nil {
		return nil, err
	}
	txs, dropped := NormalizeRows(grid, headerRow, mapping)
	return BuildStatementUpload(filename, txs, dropped, p.now().UTC()), nil
}
