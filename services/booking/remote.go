package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fixhub/models"

	"go.uber.org/zap"
)

// CreateBookingRequest is the payload sent to the marketplace booking
// endpoint. The API assigns the id, pricing, and initial pending status.
type CreateBookingRequest struct {
	ProviderID string          `json:"provider_id"`
	ServiceID  string          `json:"service_id"`
	AddOnIDs   []string        `json:"add_on_ids,omitempty"`
	Date       string          `json:"date"`
	Time       string          `json:"time"`
	Location   models.Location `json:"location"`
	Notes      string          `json:"notes,omitempty"`
}

// API abstracts the upstream marketplace service, the source of truth for
// all cached entities.
type API interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status, reason string) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter string) ([]models.Booking, error)
	SetFavorite(ctx context.Context, providerID string, favorite bool) error
	SubmitReview(ctx context.Context, review models.Review) (*models.Review, error)
}

// APIClient talks to the marketplace REST API.
type APIClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *zap.Logger
}

func NewAPIClient(baseURL, apiKey string, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

func (c *APIClient) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	var out models.Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", req, &out); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	c.logger.Info("booking created", zap.String("bookingID", out.ID))
	return &out, nil
}

func (c *APIClient) UpdateBookingStatus(ctx context.Context, id, status, reason string) (*models.Booking, error) {
	body := map[string]string{"status": status}
	if reason != "" {
		body["cancellation_reason"] = reason
	}
	var out models.Booking
	if err := c.do(ctx, http.MethodPatch, "/bookings/"+id+"/status", body, &out); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	return &out, nil
}

func (c *APIClient) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var out models.Booking
	if err := c.do(ctx, http.MethodGet, "/bookings/"+id, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return &out, nil
}

func (c *APIClient) ListBookings(ctx context.Context, filter string) ([]models.Booking, error) {
	path := "/bookings"
	if filter != "" {
		path += "?status=" + url.QueryEscape(filter)
	}
	var out []models.Booking
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return out, nil
}

func (c *APIClient) SetFavorite(ctx context.Context, providerID string, favorite bool) error {
	method := http.MethodPut
	if !favorite {
		method = http.MethodDelete
	}
	if err := c.do(ctx, method, "/providers/"+providerID+"/favorite", nil, nil); err != nil {
		return fmt.Errorf("failed to update favorite: %w", err)
	}
	return nil
}

func (c *APIClient) SubmitReview(ctx context.Context, review models.Review) (*models.Review, error) {
	var out models.Review
	if err := c.do(ctx, http.MethodPost, "/reviews", review, &out); err != nil {
		return nil, fmt.Errorf("failed to submit review: %w", err)
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
		return fmt.Errorf("marketplace API error %d: %s", resp.StatusCode, apiErr.Message)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
