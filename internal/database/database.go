package database

import (
	"database/sql"
	"fmt"
	"log"

	"cabinex-be/internal/config"

	_ "github.com/lib/pq"
)

func InitDB() (*sql.DB, error) {
	host := config.GetEnv("DB_HOST", "localhost")
	port := config.GetEnv("DB_PORT", "5432")
	user := config.GetEnv("DB_USER", "cabinex_user")
	password := config.GetEnv("DB_PASSWORD", "cabinex_password")
	dbname := config.GetEnv("DB_NAME", "cabinex_db")
	sslmode := config.GetEnv("DB_SSLMODE", "disable")

	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	log.Println("Database connected successfully")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	// Create users table
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		whatsapp_number VARCHAR(32) DEFAULT '',
		role VARCHAR(20) NOT NULL DEFAULT 'staff' CHECK (role IN ('admin', 'staff', 'installer')),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	// Create leads table. Nested lists live in JSONB columns so partial
	// patches stay single-row updates.
	leadsTable := `
	CREATE TABLE IF NOT EXISTS leads (
		id VARCHAR(64) PRIMARY KEY,
		customer_name VARCHAR(255) NOT NULL,
		whatsapp_number VARCHAR(32) DEFAULT '',
		address_label VARCHAR(500) NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'invoice_sent', 'paid', 'visit_scheduled', 'measured', 'quoted', 'won', 'lost')),
		preferred_visit_date VARCHAR(10) DEFAULT '',
		notes JSONB NOT NULL DEFAULT '[]',
		visits JSONB NOT NULL DEFAULT '[]',
		initial_images JSONB NOT NULL DEFAULT '[]',
		generated_designs JSONB NOT NULL DEFAULT '[]',
		visit_charge_invoice JSONB,
		quote JSONB,
		created_by VARCHAR(64) DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);`

	// Create password_resets table
	passwordResetsTable := `
	CREATE TABLE IF NOT EXISTS password_resets (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		email VARCHAR(255) NOT NULL,
		token VARCHAR(128) UNIQUE NOT NULL,
		purpose VARCHAR(32) NOT NULL DEFAULT 'forgot_password',
		expires_at TIMESTAMP NOT NULL,
		is_used BOOLEAN DEFAULT FALSE,
		rate_limit_count INTEGER DEFAULT 0,
		rate_limit_reset_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_password_resets_email ON password_resets(email);`

	tables := []string{
		usersTable,
		leadsTable,
		passwordResetsTable,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
