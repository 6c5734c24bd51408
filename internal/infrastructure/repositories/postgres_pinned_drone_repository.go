package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"drone-deployment-planner/internal/domain"
)

// PostgresPinnedDroneRepository implements PinnedDroneRepository for PostgreSQL.
type PostgresPinnedDroneRepository struct {
	db *sql.DB
}

// NewPostgresPinnedDroneRepository creates a PostgresPinnedDroneRepository.
func NewPostgresPinnedDroneRepository(db *sql.DB) *PostgresPinnedDroneRepository {
	return &PostgresPinnedDroneRepository{
		db: db,
	}
}

func (r *PostgresPinnedDroneRepository) Pin(ctx context.Context, pinned *domain.PinnedDrone) error {
	var configJSON []byte
	if pinned.Config != nil {
		var err error
		configJSON, err = json.Marshal(pinned.Config)
		if err != nil {
			return fmt.Errorf("marshaling pinned config: %w", err)
		}
	}

	// Re-pinning the same drone replaces the stored template.
	query := `
        INSERT INTO pinned_drones (id, drone_id, drone_name, operator_id, config_json, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (operator_id, drone_id)
        DO UPDATE SET config_json = EXCLUDED.config_json, created_at = EXCLUDED.created_at
    `

	_, err := r.db.ExecContext(
		ctx,
		query,
		pinned.ID,
		pinned.DroneID,
		pinned.DroneName,
		pinned.OperatorID,
		configJSON,
		pinned.CreatedAt,
	)

	return err
}

func (r *PostgresPinnedDroneRepository) Unpin(ctx context.Context, operatorID, droneID uuid.UUID) error {
	query := `DELETE FROM pinned_drones WHERE operator_id = $1 AND drone_id = $2`

	_, err := r.db.ExecContext(ctx, query, operatorID, droneID)
	return err
}

func (r *PostgresPinnedDroneRepository) FindByOperator(ctx context.Context, operatorID uuid.UUID) ([]*domain.PinnedDrone, error) {
	query := `
        SELECT id, drone_id, drone_name, operator_id, config_json, created_at
        FROM pinned_drones
        WHERE operator_id = $1
        ORDER BY created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pinnedDrones []*domain.PinnedDrone
	for rows.Next() {
		var pinned domain.PinnedDrone
		var configJSON []byte
		if err := rows.Scan(
			&pinned.ID,
			&pinned.DroneID,
			&pinned.DroneName,
			&pinned.OperatorID,
			&configJSON,
			&pinned.CreatedAt,
		); err != nil {
			return nil, err
		}

		if len(configJSON) > 0 {
			var config domain.PinnedConfig
			if err := json.Unmarshal(configJSON, &config); err != nil {
				return nil, fmt.Errorf("unmarshaling pinned config: %w", err)
			}
			pinned.Config = &config
		}
		pinnedDrones = append(pinnedDrones, &pinned)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pinnedDrones, nil
}

func (r *PostgresPinnedDroneRepository) AddRecentlyUsed(ctx context.Context, operatorID, droneID uuid.UUID, droneName string) error {
	query := `
        INSERT INTO recently_used_drones (id, drone_id, drone_name, operator_id, used_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (operator_id, drone_id)
        DO UPDATE SET used_at = EXCLUDED.used_at
    `

	_, err := r.db.ExecContext(ctx, query, uuid.New(), droneID, droneName, operatorID, time.Now().UTC())
	return err
}

func (r *PostgresPinnedDroneRepository) FindRecentlyUsed(ctx context.Context, operatorID uuid.UUID, limit int) ([]*domain.RecentlyUsedDrone, error) {
	query := `
        SELECT id, drone_id, drone_name, used_at
        FROM recently_used_drones
        WHERE operator_id = $1
        ORDER BY used_at DESC
        LIMIT $2
    `

	rows, err := r.db.QueryContext(ctx, query, operatorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recent []*domain.RecentlyUsedDrone
	for rows.Next() {
		var entry domain.RecentlyUsedDrone
		if err := rows.Scan(
			&entry.ID,
			&entry.DroneID,
			&entry.DroneName,
			&entry.UsedAt,
		); err != nil {
			return nil, err
		}
		recent = append(recent, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recent, nil
}
