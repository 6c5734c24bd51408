package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"drone-deployment-planner/internal/domain"
)

var ErrDroneNotFound = errors.New("drone not found")

// PostgresDroneRepository implements DroneRepository for PostgreSQL.
type PostgresDroneRepository struct {
	db *sql.DB
}

// NewPostgresDroneRepository creates a PostgresDroneRepository.
func NewPostgresDroneRepository(db *sql.DB) *PostgresDroneRepository {
	return &PostgresDroneRepository{
		db: db,
	}
}

func (r *PostgresDroneRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Drone, error) {
	query := `
        SELECT id, name, type, status, battery_level, created_at
        FROM drones
        WHERE id = $1
    `

	var drone domain.Drone
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&drone.ID,
		&drone.Name,
		&drone.Type,
		&drone.Status,
		&drone.BatteryLevel,
		&drone.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrDroneNotFound
	}

	if err != nil {
		return nil, err
	}

	return &drone, nil
}

func (r *PostgresDroneRepository) FindAll(ctx context.Context) ([]*domain.Drone, error) {
	query := `
        SELECT id, name, type, status, battery_level, created_at
        FROM drones
        ORDER BY name
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDrones(rows)
}

func (r *PostgresDroneRepository) SearchByName(ctx context.Context, q string) ([]*domain.Drone, error) {
	query := `
        SELECT id, name, type, status, battery_level, created_at
        FROM drones
        WHERE name ILIKE '%' || $1 || '%'
        ORDER BY name
    `

	rows, err := r.db.QueryContext(ctx, query, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDrones(rows)
}

func scanDrones(rows *sql.Rows) ([]*domain.Drone, error) {
	var drones []*domain.Drone
	for rows.Next() {
		var drone domain.Drone
		if err := rows.Scan(
			&drone.ID,
			&drone.Name,
			&drone.Type,
			&drone.Status,
			&drone.BatteryLevel,
			&drone.CreatedAt,
		); err != nil {
			return nil, err
		}
		drones = append(drones, &drone)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return drones, nil
}
