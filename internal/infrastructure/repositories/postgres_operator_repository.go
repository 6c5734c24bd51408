package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"drone-deployment-planner/internal/domain"
)

var ErrOperatorNotFound = errors.New("operator not found")

// PostgresOperatorRepository implements OperatorRepository for PostgreSQL.
type PostgresOperatorRepository struct {
	db *sql.DB
}

// NewPostgresOperatorRepository creates a PostgresOperatorRepository.
func NewPostgresOperatorRepository(db *sql.DB) *PostgresOperatorRepository {
	return &PostgresOperatorRepository{
		db: db,
	}
}

func (r *PostgresOperatorRepository) Save(ctx context.Context, operator *domain.Operator) error {
	query := `
        INSERT INTO operators (id, serial_number, name, created_at)
        VALUES ($1, $2, $3, $4)
    `

	_, err := r.db.ExecContext(
		ctx,
		query,
		operator.ID,
		operator.SerialNumber,
		operator.Name,
		operator.CreatedAt,
	)

	return err
}

func (r *PostgresOperatorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	query := `
        SELECT id, serial_number, name, created_at
        FROM operators
        WHERE id = $1
    `

	var operator domain.Operator
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&operator.ID,
		&operator.SerialNumber,
		&operator.Name,
		&operator.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrOperatorNotFound
	}

	if err != nil {
		return nil, err
	}

	return &operator, nil
}

func (r *PostgresOperatorRepository) FindBySerialNumber(ctx context.Context, serialNumber string) (*domain.Operator, error) {
	query := `
        SELECT id, serial_number, name, created_at
        FROM operators
        WHERE serial_number = $1
    `

	var operator domain.Operator
	err := r.db.QueryRowContext(ctx, query, serialNumber).Scan(
		&operator.ID,
		&operator.SerialNumber,
		&operator.Name,
		&operator.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrOperatorNotFound
	}

	if err != nil {
		return nil, err
	}

	return &operator, nil
}
