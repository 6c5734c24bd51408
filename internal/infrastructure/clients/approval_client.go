package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"drone-deployment-planner/internal/domain"
)

// ApprovalClient calls the control center over HTTP JSON.
type ApprovalClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*domain.ApprovalDecision]
	log        zerolog.Logger
}

// NewApprovalClient creates an ApprovalClient for the given base URL.
func NewApprovalClient(baseURL string, logger zerolog.Logger) *ApprovalClient {
	log := logger.With().Str("component", "approval_client").Logger()
	return &ApprovalClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		breaker:    newBreaker[*domain.ApprovalDecision]("approval-service", log),
		log:        log,
	}
}

type approvalRequest struct {
	DroneID   string `json:"drone_id"`
	DroneName string `json:"drone_name"`
}

type approvalResponse struct {
	Approved    bool   `json:"approved"`
	Message     string `json:"message"`
	RespondedAt string `json:"respondedAt"`
}

// RequestApproval asks the control center for a launch decision. A transport
// or server failure is an error; an explicit denial is a successful decision
// with Approved set to false.
func (c *ApprovalClient) RequestApproval(ctx context.Context, droneID uuid.UUID, droneName string) (*domain.ApprovalDecision, error) {
	return c.breaker.Execute(func() (*domain.ApprovalDecision, error) {
		body, err := json.Marshal(approvalRequest{DroneID: droneID.String(), DroneName: droneName})
		if err != nil {
			return nil, fmt.Errorf("encoding approval request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/approvals", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("control center unreachable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("control center error: %s", resp.Status)
		}

		var decoded approvalResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("decoding approval response: %w", err)
		}

		respondedAt, err := time.Parse(time.RFC3339, decoded.RespondedAt)
		if err != nil {
			respondedAt = time.Now().UTC()
		}

		return &domain.ApprovalDecision{
			Approved:    decoded.Approved,
			Message:     decoded.Message,
			RespondedAt: respondedAt,
		}, nil
	})
}
