// Package orderapi is the HTTP adapter for the external order and product API.
// Every response is normalized here into the canonical domain types.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

type Option func(*gobreaker.Settings)

// WithBreakerThreshold sets how many consecutive transport failures open the
// breaker.
func WithBreakerThreshold(n uint32) Option {
	return func(s *gobreaker.Settings) {
		s.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= n
		}
	}
}

func WithBreakerTimeout(d time.Duration) Option {
	return func(s *gobreaker.Settings) {
		s.Timeout = d
	}
}

func NewClient(baseURL string, client *http.Client, opts ...Option) *Client {
	settings := gobreaker.Settings{
		Name:    "order-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	return &Client{
		baseURL: baseURL,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

type checkoutSessionResponse struct {
	PaymentLink string `json:"paymentLink"`
	Error       string `json:"error"`
}

// CreateCheckoutSession submits payload and returns the payment link. An empty
// link with a nil error means the API accepted the order without a link.
func (c *Client) CreateCheckoutSession(ctx context.Context, payload domain.CheckoutPayload) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/orders/create-checkout-session", payload)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newAPIError(resp)
	}

	var body checkoutSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode checkout session response: %w", err)
	}
	if body.Error != "" {
		return "", &APIError{Status: resp.StatusCode, Message: body.Error}
	}
	return body.PaymentLink, nil
}

type confirmPaymentRequest struct {
	ClientReferenceID string `json:"client_reference_id"`
}

type confirmPaymentResponse struct {
	Order *orderWire `json:"order"`
	Error string     `json:"error"`
}

// ConfirmPayment asks the API to confirm the order behind referenceID.
func (c *Client) ConfirmPayment(ctx context.Context, referenceID string) (*domain.Order, error) {
	resp, err := c.do(ctx, http.MethodPost, "/orders/confirm-payment", confirmPaymentRequest{ClientReferenceID: referenceID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp)
	}

	var body confirmPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode confirm payment response: %w", err)
	}
	if body.Error != "" {
		return nil, &APIError{Status: resp.StatusCode, Message: body.Error}
	}
	if body.Order == nil {
		return nil, ErrNoOrder
	}
	return body.Order.toDomain(), nil
}

// GetProduct fetches the live product record. The API answers either
// {"product": {...}} or the bare product object.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	resp, err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read product " + id, Err: err}
	}

	product, err := decodeProduct(data)
	if err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	return product, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.client.Do(req)
	})
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	return resp, nil
}
