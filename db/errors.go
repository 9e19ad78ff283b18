package db

import "fmt"

// Common errors
var (
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrDatabaseConnection = fmt.Errorf("database connection error")
	ErrMigrationFailed    = fmt.Errorf("migration failed")
	ErrTransactionFailed  = fmt.Errorf("transaction failed")
)
