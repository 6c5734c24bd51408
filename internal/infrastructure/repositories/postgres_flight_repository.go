package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/pkg/geo"
)

var ErrFlightNotFound = errors.New("flight record not found")

// PostgresFlightRepository implements the append-only FlightRepository for
// PostgreSQL. Records are never updated or deleted.
type PostgresFlightRepository struct {
	db *sql.DB
}

// NewPostgresFlightRepository creates a PostgresFlightRepository.
func NewPostgresFlightRepository(db *sql.DB) *PostgresFlightRepository {
	return &PostgresFlightRepository{
		db: db,
	}
}

func (r *PostgresFlightRepository) Save(ctx context.Context, record *domain.FlightRecord) error {
	areaJSON, err := json.Marshal(record.OperationalArea)
	if err != nil {
		return fmt.Errorf("marshaling operational area: %w", err)
	}

	query := `
        INSERT INTO flight_history (
            id, operator_id, drone_id, drone_name, drone_type,
            controller_altitude, controller_lat, controller_lng,
            drone_altitude, drone_lat, drone_lng,
            operational_area, status, control_center_approved,
            overlay_object_key, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    `

	_, err = r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.OperatorID,
		record.DroneID,
		record.DroneName,
		record.DroneType,
		record.ControllerAltitude,
		record.ControllerLat,
		record.ControllerLng,
		record.DroneAltitude,
		record.DroneLat,
		record.DroneLng,
		areaJSON,
		record.Status,
		record.ControlCenterApproved,
		record.OverlayObjectKey,
		record.CreatedAt,
	)

	return err
}

func (r *PostgresFlightRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.FlightRecord, error) {
	query := selectFlightColumns + ` WHERE id = $1`

	record, err := scanFlight(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrFlightNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *PostgresFlightRepository) FindByOperator(ctx context.Context, operatorID uuid.UUID) ([]*domain.FlightRecord, error) {
	query := selectFlightColumns + ` WHERE operator_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.FlightRecord
	for rows.Next() {
		record, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

const selectFlightColumns = `
        SELECT id, operator_id, drone_id, drone_name, drone_type,
               controller_altitude, controller_lat, controller_lng,
               drone_altitude, drone_lat, drone_lng,
               operational_area, status, control_center_approved,
               overlay_object_key, created_at
        FROM flight_history
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFlight(row rowScanner) (*domain.FlightRecord, error) {
	var record domain.FlightRecord
	var areaJSON []byte
	var approved sql.NullBool

	err := row.Scan(
		&record.ID,
		&record.OperatorID,
		&record.DroneID,
		&record.DroneName,
		&record.DroneType,
		&record.ControllerAltitude,
		&record.ControllerLat,
		&record.ControllerLng,
		&record.DroneAltitude,
		&record.DroneLat,
		&record.DroneLng,
		&areaJSON,
		&record.Status,
		&approved,
		&record.OverlayObjectKey,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if approved.Valid {
		record.ControlCenterApproved = &approved.Bool
	}

	if len(areaJSON) > 0 {
		var area geo.Polygon
		if err := json.Unmarshal(areaJSON, &area); err != nil {
			return nil, fmt.Errorf("unmarshaling operational area: %w", err)
		}
		record.OperationalArea = area
	}

	return &record, nil
}
