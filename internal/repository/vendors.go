package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"invoicescan/internal/common"
	"invoicescan/internal/entity"
)

// VendorStore persists vendors.
type VendorStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewVendorStore(db *sql.DB, logger *slog.Logger) *VendorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &VendorStore{db: db, logger: logger}
}

// GetOrCreateByName returns the vendor with the given name, creating it
// on first sight. Names are matched after trimming.
func (s *VendorStore) GetOrCreateByName(ctx context.Context, name string) (*entity.Vendor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.ErrInvalidInput
	}

	if v, err := s.getByName(ctx, name); err == nil {
		return v, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("DB_READ", "load vendor", err)
	}

	now := time.Now().UTC()
	v := &entity.Vendor{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendors (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO NOTHING`,
		v.ID.String(), v.Name, v.Email, v.Phone, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return nil, common.NewAppError("DB_WRITE", "create vendor", err)
	}

	// a concurrent insert may have won; read back the canonical row
	v2, err := s.getByName(ctx, name)
	if err != nil {
		return nil, common.NewAppError("DB_READ", "reload vendor", err)
	}
	s.logger.Debug("vendor.resolved", "vendor_id", v2.ID, "name", v2.Name)
	return v2, nil
}

// Get loads a vendor by ID.
func (s *VendorStore) Get(ctx context.Context, id uuid.UUID) (*entity.Vendor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM vendors WHERE id = $1`, id.String())
	v, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return v, err
}

func (s *VendorStore) getByName(ctx context.Context, name string) (*entity.Vendor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM vendors WHERE name = $1`, name)
	return scanVendor(row)
}

func scanVendor(row rowScanner) (*entity.Vendor, error) {
	var (
		v     entity.Vendor
		idStr string
	)
	if err := row.Scan(&idStr, &v.Name, &v.Email, &v.Phone, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	v.ID = id
	return &v, nil
}
