// Package clients holds HTTP clients for the remote collaborators of the
// deployment workflow: the communication-zone calculation service and the
// control-center approval service. Both are wrapped in circuit breakers so a
// dead collaborator fails fast instead of tying up sessions.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/rs/zerolog"

	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/internal/ports"
)

func newBreaker[T any](name string, logger zerolog.Logger) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

// CalculationClient calls the remote calculation service over HTTP JSON.
type CalculationClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*domain.CalculationResult]
	log        zerolog.Logger
}

// NewCalculationClient creates a CalculationClient for the given base URL.
func NewCalculationClient(baseURL string, logger zerolog.Logger) *CalculationClient {
	log := logger.With().Str("component", "calculation_client").Logger()
	return &CalculationClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		breaker:    newBreaker[*domain.CalculationResult]("calculation-service", log),
		log:        log,
	}
}

type calculationResponse struct {
	Success      bool   `json:"success"`
	ImageData    string `json:"imageData"`
	CalculatedAt string `json:"calculatedAt"`
	Message      string `json:"message"`
}

// Calculate posts the deployment configuration and returns the computed
// overlay. The context carries the caller's deadline; there is no retry here,
// the workflow surfaces failures to the operator instead.
func (c *CalculationClient) Calculate(ctx context.Context, req ports.CalculationRequest) (*domain.CalculationResult, error) {
	return c.breaker.Execute(func() (*domain.CalculationResult, error) {
		body, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("encoding calculation request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/calculate", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("calculation service unreachable: %w", err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return nil, fmt.Errorf("reading calculation response: %w", err)
		}

		var decoded calculationResponse
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, fmt.Errorf("decoding calculation response: %w", err)
		}

		if resp.StatusCode != http.StatusOK || !decoded.Success {
			msg := decoded.Message
			if msg == "" {
				msg = resp.Status
			}
			return nil, fmt.Errorf("calculation rejected: %s", msg)
		}

		calculatedAt, err := time.Parse(time.RFC3339, decoded.CalculatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing calculation timestamp: %w", err)
		}

		return &domain.CalculationResult{
			ImageData:    decoded.ImageData,
			CalculatedAt: calculatedAt,
		}, nil
	})
}

