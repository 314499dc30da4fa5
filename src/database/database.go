package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/bankfolio/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateBankTransactions()

	// UNIQUE(organization_id, fingerprint) is the backstop of record against
	// concurrent imports committing the same logical transaction; the import
	// committer treats a violation as a duplicate skip.
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS bank_transactions (
		id TEXT PRIMARY KEY,
		organization_id INTEGER NOT NULL,
		transaction_date TEXT NOT NULL,
		value_date TEXT,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance TEXT,
		reference TEXT,
		counterparty TEXT,
		account_number TEXT,
		currency TEXT,
		fingerprint TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(organization_id, fingerprint)
	);

	CREATE TABLE IF NOT EXISTS statement_imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		organization_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		inserted INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		total INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateBankTransactions adds columns introduced after the table first
// shipped (value_date, counterparty) to databases created before them.
func migrateBankTransactions() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='bank_transactions'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return // table will be created with the full schema
		}
		if logger.L != nil {
			logger.L.Error("Error checking for bank_transactions table", "error", err)
		} else {
			stdlog.Printf("Error checking for bank_transactions table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(bank_transactions)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for bank_transactions", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for bank_transactions: %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for bank_transactions", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for bank_transactions: %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for bank_transactions", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for bank_transactions: %v", err)
		}
		return
	}

	addColumn := func(name, definition string) {
		if columnExists[name] {
			return
		}
		if _, err := DB.Exec("ALTER TABLE bank_transactions ADD COLUMN " + name + " " + definition); err != nil {
			if logger.L != nil {
				logger.L.Error("Error adding column to bank_transactions", "column", name, "error", err)
			} else {
				stdlog.Printf("Error adding %s column to bank_transactions: %v", name, err)
			}
		} else if logger.L != nil {
			logger.L.Info("Added column to bank_transactions", "column", name)
		}
	}
	addColumn("value_date", "TEXT")
	addColumn("counterparty", "TEXT")
}
