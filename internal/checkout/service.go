package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/storefront/internal/cart"
	"github.com/joao-fontenele/storefront/internal/domain"
)

const genericFailure = "payment session could not be created"

var meter = otel.Meter("storefront/checkout")

type OrderCreator interface {
	CreateCheckoutSession(ctx context.Context, payload domain.CheckoutPayload) (string, error)
}

type Service struct {
	orders   OrderCreator
	logger   *slog.Logger
	sessions metric.Int64Counter
}

func NewService(orders OrderCreator, logger *slog.Logger) (*Service, error) {
	sessions, err := meter.Int64Counter("storefront.checkout.sessions",
		metric.WithDescription("Checkout session attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout counter: %w", err)
	}

	return &Service{
		orders:   orders,
		logger:   logger,
		sessions: sessions,
	}, nil
}

// SubmitError carries the message shown to the customer when the order API
// refuses or cannot be reached. Submissions are never retried automatically.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }

func (e *SubmitError) Unwrap() error { return e.Err }

// Submit validates the cart snapshot, sends the payload and returns the
// payment link the browser has to navigate to.
func (s *Service) Submit(ctx context.Context, state cart.State, c Customer) (string, error) {
	payload, err := Build(state, c)
	if err != nil {
		s.record(ctx, "invalid")
		return "", err
	}

	link, err := s.orders.CreateCheckoutSession(ctx, payload)
	if err != nil {
		s.record(ctx, "failed")
		s.logger.Error("failed to create checkout session", "error", err, "lines", len(payload.Products))
		return "", &SubmitError{Message: customerMessage(err), Err: err}
	}
	if link == "" {
		s.record(ctx, "no_link")
		return "", ErrNoPaymentLink
	}

	s.record(ctx, "created")
	s.logger.Info("checkout session created", "lines", len(payload.Products), "country", payload.Country)
	return link, nil
}

func (s *Service) record(ctx context.Context, outcome string) {
	s.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func customerMessage(err error) string {
	var apiErr interface{ APIMessage() string }
	if errors.As(err, &apiErr) && apiErr.APIMessage() != "" {
		return apiErr.APIMessage()
	}
	return genericFailure
}
