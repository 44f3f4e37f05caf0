package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createStaffTable,
		createPurchasesTable,
		createPurchaseItemsTable,
		createTicketsTable,
		createVerificationCodesTable,
		createPorteriaValidationsTable,
		createTicketLookupIndexes,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createStaffTable = `
CREATE TABLE IF NOT EXISTS staff (
    id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'porteria',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (role IN ('admin', 'porteria'))
);`

const createPurchasesTable = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE TABLE IF NOT EXISTS purchases (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    event_id UUID NOT NULL,
    event_title VARCHAR(500) NOT NULL,
    event_date VARCHAR(20) NOT NULL DEFAULT '',
    event_time VARCHAR(20) NOT NULL DEFAULT '',
    event_location VARCHAR(500) NOT NULL DEFAULT '',
    business_name VARCHAR(255) NOT NULL DEFAULT '',
    customer_name VARCHAR(255) NOT NULL,
    customer_phone VARCHAR(50) NOT NULL,
    customer_email VARCHAR(255) NOT NULL DEFAULT '',
    total_amount BIGINT NOT NULL,
    payment_method VARCHAR(20) NOT NULL,
    payment_proof_url TEXT,
    status VARCHAR(30) NOT NULL DEFAULT 'pending_payment',
    verification_code VARCHAR(8) UNIQUE NOT NULL,
    notified_received BOOLEAN NOT NULL DEFAULT FALSE,
    notified_verified BOOLEAN NOT NULL DEFAULT FALSE,
    notified_tickets BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    payment_submitted_at TIMESTAMP,
    payment_verified_at TIMESTAMP,
    completed_at TIMESTAMP,

    CHECK (status IN ('pending_payment', 'payment_submitted', 'payment_verified', 'completed', 'cancelled')),
    CHECK (payment_method IN ('qr', 'transfer', 'cash', 'external'))
);`

const createPurchaseItemsTable = `
CREATE TABLE IF NOT EXISTS purchase_items (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    purchase_id UUID NOT NULL REFERENCES purchases(id) ON DELETE CASCADE,
    sector_name VARCHAR(100) NOT NULL,
    sector_color VARCHAR(20) NOT NULL DEFAULT '',
    quantity INTEGER NOT NULL CHECK (quantity > 0),
    unit_price BIGINT NOT NULL,
    total_price BIGINT NOT NULL,
    ticket_type VARCHAR(20) NOT NULL DEFAULT 'CLIENTE',

    CHECK (ticket_type IN ('CLIENTE', 'VIP', 'STAFF'))
);`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    purchase_id UUID NOT NULL REFERENCES purchases(id) ON DELETE CASCADE,
    item_id UUID NOT NULL REFERENCES purchase_items(id),
    event_id UUID NOT NULL,
    event_title VARCHAR(500) NOT NULL,
    event_date VARCHAR(20) NOT NULL DEFAULT '',
    event_time VARCHAR(20) NOT NULL DEFAULT '',
    event_location VARCHAR(500) NOT NULL DEFAULT '',
    business_name VARCHAR(255) NOT NULL DEFAULT '',
    sector_name VARCHAR(100) NOT NULL,
    sector_color VARCHAR(20) NOT NULL DEFAULT '',
    quantity INTEGER NOT NULL CHECK (quantity > 0),
    unit_price BIGINT NOT NULL,
    total_price BIGINT NOT NULL,
    ticket_type VARCHAR(20) NOT NULL DEFAULT 'CLIENTE',
    verification_code VARCHAR(8) UNIQUE NOT NULL,
    qr_code VARCHAR(64) UNIQUE NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    validated_at TIMESTAMP,
    used_at TIMESTAMP,

    UNIQUE(purchase_id, item_id),
    CHECK (status IN ('pending', 'validated', 'used', 'cancelled'))
);`

const createVerificationCodesTable = `
CREATE TABLE IF NOT EXISTS verification_codes (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    code VARCHAR(8) NOT NULL,
    type VARCHAR(10) NOT NULL,
    related_id UUID NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP,

    UNIQUE(type, code),
    CHECK (type IN ('purchase', 'ticket'))
);`

const createPorteriaValidationsTable = `
CREATE TABLE IF NOT EXISTS porteria_validations (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    ticket_id UUID NOT NULL REFERENCES tickets(id),
    verification_code VARCHAR(8) NOT NULL,
    qr_code VARCHAR(64) NOT NULL,
    staff_id INTEGER NOT NULL REFERENCES staff(id),
    location VARCHAR(255) NOT NULL,
    validated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createTicketLookupIndexes = `
CREATE INDEX IF NOT EXISTS tickets_purchase_id_idx ON tickets (purchase_id);
CREATE INDEX IF NOT EXISTS purchases_status_idx ON purchases (status);
CREATE INDEX IF NOT EXISTS porteria_validations_ticket_id_idx ON porteria_validations (ticket_id);`
