package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fixhub/models"

	"go.uber.org/zap"
)

// Gateway abstracts the mobile-money payment gateway.
type Gateway interface {
	Initiate(ctx context.Context, req models.PaymentRequest) (*models.InitiateResponse, error)
	Status(ctx context.Context, transactionID string) (*models.StatusResponse, error)
}

// gatewayError is the gateway's structured error body on non-2xx responses.
type gatewayError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Client talks to the payment gateway over its REST API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Initiate submits a charge request to the gateway.
func (c *Client) Initiate(ctx context.Context, req models.PaymentRequest) (*models.InitiateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments/initiate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build initiate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment initiation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError(resp)
	}

	var out models.InitiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode initiation response: %w", err)
	}
	c.logger.Info("payment initiated",
		zap.String("transactionID", out.TransactionID),
		zap.String("status", out.Status))
	return &out, nil
}

// Status checks the current status of a transaction.
func (c *Client) Status(ctx context.Context, transactionID string) (*models.StatusResponse, error) {
	url := fmt.Sprintf("%s/payments/%s/status", c.baseURL, transactionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError(resp)
	}

	var out models.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &out, nil
}

func (c *Client) decodeError(resp *http.Response) error {
	gerr := &gatewayError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(gerr); err != nil {
		gerr.Message = resp.Status
	}
	c.logger.Warn("gateway returned error",
		zap.Int("status", resp.StatusCode),
		zap.String("code", gerr.Code))
	return gerr
}
