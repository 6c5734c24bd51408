package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/internal/ports"
)

var ErrInvalidToken = errors.New("invalid session token")

// AuthService exchanges an operator serial number for an opaque session token.
// This is identity plumbing, not authentication security: the token scopes
// subsequent calls to one operator and nothing more.
type AuthService struct {
	operatorRepo ports.OperatorRepository
	log          zerolog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(operatorRepo ports.OperatorRepository, logger zerolog.Logger) *AuthService {
	return &AuthService{
		operatorRepo: operatorRepo,
		log:          logger.With().Str("component", "auth_service").Logger(),
	}
}

// Login looks up the operator by serial number, registering a new one on
// first login, and returns the operator with a session token.
func (s *AuthService) Login(ctx context.Context, serialNumber string) (*domain.Operator, string, error) {
	serialNumber = strings.TrimSpace(serialNumber)
	if serialNumber == "" {
		return nil, "", errors.New("serial number is required")
	}

	operator, err := s.operatorRepo.FindBySerialNumber(ctx, serialNumber)
	if err != nil {
		operator = &domain.Operator{
			ID:           uuid.New(),
			SerialNumber: serialNumber,
			Name:         fmt.Sprintf("Operator %s", serialNumber),
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.operatorRepo.Save(ctx, operator); err != nil {
			return nil, "", fmt.Errorf("registering operator: %w", err)
		}
		s.log.Info().Str("serial_number", serialNumber).Msg("new operator registered")
	}

	// The token is the operator ID. Good enough for session scoping; a real
	// deployment would issue signed tokens here.
	return operator, operator.ID.String(), nil
}

// Verify resolves a session token back to its operator.
func (s *AuthService) Verify(ctx context.Context, token string) (*domain.Operator, error) {
	id, err := uuid.Parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	operator, err := s.operatorRepo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return operator, nil
}
