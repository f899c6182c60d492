package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// InitDB opens the Postgres pool and bootstraps the schema.
func InitDB(dsn string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) UNIQUE NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(50) NOT NULL DEFAULT 'customer',
	wallet_balance DECIMAL(10, 2) NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS menu_items (
	id SERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category VARCHAR(100) NOT NULL,
	price DECIMAL(10, 2) NOT NULL,
	available BOOLEAN NOT NULL DEFAULT TRUE,
	prep_minutes INTEGER NOT NULL DEFAULT 0,
	popular BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS orders (
	id SERIAL PRIMARY KEY,
	order_number VARCHAR(64) UNIQUE NOT NULL,
	user_id INTEGER NOT NULL,
	customer_name VARCHAR(255) NOT NULL,
	total_amount DECIMAL(10, 2) NOT NULL,
	status VARCHAR(50) NOT NULL DEFAULT 'pending',
	payment_method VARCHAR(50) NOT NULL,
	payment_status VARCHAR(50) NOT NULL DEFAULT 'pending',
	provider_order_id VARCHAR(255) NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS order_items (
	id SERIAL PRIMARY KEY,
	order_id INTEGER NOT NULL REFERENCES orders(id),
	item_id INTEGER NOT NULL,
	name VARCHAR(255) NOT NULL,
	unit_price DECIMAL(10, 2) NOT NULL,
	quantity INTEGER NOT NULL,
	line_total DECIMAL(10, 2) NOT NULL,
	note TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS inventory_items (
	id SERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	unit VARCHAR(50) NOT NULL,
	quantity DECIMAL(10, 2) NOT NULL DEFAULT 0 CHECK (quantity >= 0),
	reorder_threshold DECIMAL(10, 2) NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS waste_records (
	id SERIAL PRIMARY KEY,
	item_name VARCHAR(255) NOT NULL,
	quantity DECIMAL(10, 2) NOT NULL,
	unit VARCHAR(50) NOT NULL,
	reason TEXT NOT NULL,
	recorded_by INTEGER NOT NULL,
	recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS wallet_transactions (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL,
	order_id INTEGER,
	amount DECIMAL(10, 2) NOT NULL,
	type VARCHAR(20) NOT NULL,
	balance_after DECIMAL(10, 2) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
