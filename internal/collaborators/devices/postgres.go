package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bankops/pkg/model"

	"github.com/jmoiron/sqlx"
)

type PostgresRegistry struct {
	db *sqlx.DB
}

func NewPostgresRegistry(db *sqlx.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

func (r *PostgresRegistry) Get(ctx context.Context, deviceID string) (*model.Device, error) {
	query := `
    SELECT id, localization, status, per_operation_limit
    FROM atm_devices
    WHERE id = $1
    `

	var d model.Device
	if err := r.db.GetContext(ctx, &d, query, deviceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &d, nil
}

func (r *PostgresRegistry) IsDeviceReady(ctx context.Context, deviceID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM atm_devices WHERE id = $1 AND status = $2)`

	var ready bool
	if err := r.db.GetContext(ctx, &ready, query, deviceID, model.DeviceActive); err != nil {
		return false, fmt.Errorf("failed to check device: %w", err)
	}
	return ready, nil
}

func (r *PostgresRegistry) ListReady(ctx context.Context) ([]*model.Device, error) {
	query := `
    SELECT id, localization, status, per_operation_limit
    FROM atm_devices
    WHERE status = $1
    ORDER BY id
    `

	var devices []*model.Device
	if err := r.db.SelectContext(ctx, &devices, query, model.DeviceActive); err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// Upsert registers or updates a device. Used by seeding tools and tests.
func (r *PostgresRegistry) Upsert(ctx context.Context, d model.Device) error {
	query := `
    INSERT INTO atm_devices (id, localization, status, per_operation_limit)
    VALUES (:id, :localization, :status, :per_operation_limit)
    ON CONFLICT (id) DO UPDATE
    SET localization = EXCLUDED.localization, status = EXCLUDED.status,
        per_operation_limit = EXCLUDED.per_operation_limit, updated_at = NOW()
    `
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}
	return nil
}

var _ Registry = (*PostgresRegistry)(nil)
