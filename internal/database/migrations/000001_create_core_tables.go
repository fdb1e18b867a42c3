package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateCoreTables creates the users, charities and payments tables
func CreateCoreTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_core_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE EXTENSION IF NOT EXISTS "pgcrypto";

				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					name VARCHAR(255),
					email VARCHAR(255) NOT NULL UNIQUE,
					password VARCHAR(255) NOT NULL,
					is_admin BOOLEAN DEFAULT FALSE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE TABLE IF NOT EXISTS charities (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					title VARCHAR(255) NOT NULL,
					slug VARCHAR(255) UNIQUE,
					excerpt TEXT,
					category VARCHAR(100),
					location VARCHAR(255),
					cover VARCHAR(500),
					goal DECIMAL(20,2) DEFAULT 0,
					raised DECIMAL(20,2) DEFAULT 0,
					featured BOOLEAN DEFAULT FALSE,
					status VARCHAR(20) NOT NULL DEFAULT 'Draft',
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX IF NOT EXISTS idx_charities_status ON charities(status);
				CREATE INDEX IF NOT EXISTS idx_charities_category ON charities(category);

				CREATE TABLE IF NOT EXISTS payments (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					reference VARCHAR(100) NOT NULL UNIQUE,
					invoice_id VARCHAR(100),
					method VARCHAR(20) NOT NULL,
					currency VARCHAR(3) NOT NULL DEFAULT 'USD',
					amount DECIMAL(20,2) NOT NULL,
					charity_id UUID REFERENCES charities(id),
					name VARCHAR(255),
					phone VARCHAR(50),
					phone_formatted VARCHAR(50),
					email VARCHAR(255),
					note TEXT,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					provider_reference VARCHAR(100),
					provider_request JSONB,
					provider_response JSONB,
					provider_webhook JSONB,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_payments_invoice_id ON payments(invoice_id);
				CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);
				CREATE INDEX IF NOT EXISTS idx_payments_charity_id ON payments(charity_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS payments;
				DROP TABLE IF EXISTS charities;
				DROP TABLE IF EXISTS users;
			`).Error
		},
	}
}
