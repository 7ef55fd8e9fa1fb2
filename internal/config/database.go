package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			password VARCHAR(255) NOT NULL,
			user_type VARCHAR(10) NOT NULL,
			balance INTEGER NOT NULL CHECK (balance >= 0),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			commission INTEGER NOT NULL CHECK (commission >= 0),
			available BOOLEAN NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// One owner and at most one active borrower per item
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS item_relations (
			item_id VARCHAR(36) NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL REFERENCES users(id),
			kind VARCHAR(10) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (item_id, kind)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS loans (
			id VARCHAR(36) PRIMARY KEY,
			item_id VARCHAR(36) NOT NULL REFERENCES items(id),
			status VARCHAR(20) NOT NULL,
			started_at TIMESTAMP,
			returned_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS help_requests (
			id VARCHAR(36) PRIMARY KEY,
			requester_id VARCHAR(36) NOT NULL REFERENCES users(id),
			description TEXT NOT NULL,
			scheduled_at TIMESTAMP NOT NULL,
			hours_needed INTEGER NOT NULL CHECK (hours_needed > 0),
			people_needed INTEGER NOT NULL CHECK (people_needed > 0),
			reward INTEGER NOT NULL CHECK (reward >= 0),
			state VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS volunteerings (
			request_id VARCHAR(36) NOT NULL REFERENCES help_requests(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL REFERENCES users(id),
			status VARCHAR(10) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (request_id, user_id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS care_transactions (
			id VARCHAR(36) PRIMARY KEY,
			payer_id VARCHAR(36) REFERENCES users(id),
			payee_id VARCHAR(36) NOT NULL REFERENCES users(id),
			amount INTEGER NOT NULL CHECK (amount >= 0),
			kind VARCHAR(20) NOT NULL,
			hours INTEGER,
			loan_id VARCHAR(36),
			request_id VARCHAR(36),
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL REFERENCES users(id),
			message TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			item_id VARCHAR(36),
			request_id VARCHAR(36),
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_loans_item_id ON loans(item_id)",
		"CREATE INDEX IF NOT EXISTS idx_volunteerings_request_id ON volunteerings(request_id)",
		"CREATE INDEX IF NOT EXISTS idx_care_transactions_payee_id ON care_transactions(payee_id)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
