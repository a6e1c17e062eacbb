package repository

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/procure-flow/internal/models"
	"go.uber.org/zap"
)

// VendorRepository handles vendor database operations
type VendorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(db *sql.DB, logger *zap.Logger) *VendorRepository {
	return &VendorRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new vendor
func (r *VendorRepository) Create(tx *sql.Tx, vendor *models.Vendor) error {
	query := `
		INSERT INTO vendors (id, name, tax_id, contact)
		VALUES (?, ?, ?, ?)
	`

	var taxID, contact sql.NullString
	if vendor.TaxID != "" {
		taxID = sql.NullString{String: vendor.TaxID, Valid: true}
	}
	if vendor.Contact != "" {
		contact = sql.NullString{String: vendor.Contact, Valid: true}
	}

	_, err := pick(r.db, tx).Exec(query, vendor.ID, vendor.Name, taxID, contact)
	if err != nil {
		r.logger.Error("Failed to create vendor", zap.String("name", vendor.Name), zap.Error(err))
		return fmt.Errorf("failed to create vendor: %w", err)
	}

	return nil
}

// GetByID retrieves a vendor by ID. Returns nil when not found.
func (r *VendorRepository) GetByID(tx *sql.Tx, id string) (*models.Vendor, error) {
	query := `
		SELECT id, name, tax_id, contact, created_at
		FROM vendors
		WHERE id = ?
	`

	var vendor models.Vendor
	var taxID, contact sql.NullString

	err := pick(r.db, tx).QueryRow(query, id).Scan(&vendor.ID, &vendor.Name, &taxID, &contact, &vendor.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get vendor", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}

	if taxID.Valid {
		vendor.TaxID = taxID.String
	}
	if contact.Valid {
		vendor.Contact = contact.String
	}

	return &vendor, nil
}

// List returns vendors with pagination
func (r *VendorRepository) List(limit, offset int) ([]*models.Vendor, error) {
	query := `
		SELECT id, name, tax_id, contact, created_at
		FROM vendors
		ORDER BY name
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list vendors", zap.Error(err))
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*models.Vendor
	for rows.Next() {
		var vendor models.Vendor
		var taxID, contact sql.NullString
		if err := rows.Scan(&vendor.ID, &vendor.Name, &taxID, &contact, &vendor.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		if taxID.Valid {
			vendor.TaxID = taxID.String
		}
		if contact.Valid {
			vendor.Contact = contact.String
		}
		vendors = append(vendors, &vendor)
	}

	return vendors, rows.Err()
}
