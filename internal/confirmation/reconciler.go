// Package confirmation reconciles a payment gateway callback with the order
// API: it fetches the order, enriches every ordered line with live product
// data and clears the customer's cart once the order is completed.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/orderapi"
)

// ReferenceParam is the query parameter the gateway redirects back with.
const ReferenceParam = "client_reference_id"

var meter = otel.Meter("storefront/confirmation")

type OrderConfirmer interface {
	ConfirmPayment(ctx context.Context, referenceID string) (*domain.Order, error)
}

type ProductFetcher interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type CartClearer interface {
	Clear() error
}

type Reconciler struct {
	orders   OrderConfirmer
	products ProductFetcher
	logger   *slog.Logger

	degraded metric.Int64Counter
	cleared  metric.Int64Counter
}

func NewReconciler(orders OrderConfirmer, products ProductFetcher, logger *slog.Logger) (*Reconciler, error) {
	degraded, err := meter.Int64Counter("storefront.confirmation.degraded_lines",
		metric.WithDescription("Order lines shown from the order snapshot because the product lookup failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create degraded lines counter: %w", err)
	}

	cleared, err := meter.Int64Counter("storefront.confirmation.cart_clears",
		metric.WithDescription("Cart clear attempts after a completed order, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cart clears counter: %w", err)
	}

	return &Reconciler{
		orders:   orders,
		products: products,
		logger:   logger,
		degraded: degraded,
		cleared:  cleared,
	}, nil
}

// ReferenceID reads the gateway reference id from the confirmation request.
func ReferenceID(r *http.Request) string {
	return r.URL.Query().Get(ReferenceParam)
}

type Stage int

const (
	StageStart Stage = iota
	StageFetchOrder
	StageEnrichLines
	StageSettled
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageFetchOrder:
		return "fetch_order"
	case StageEnrichLines:
		return "enrich_lines"
	case StageSettled:
		return "settled"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Result struct {
	Order   *domain.Order              `json:"order"`
	Lines   []domain.EnrichedOrderLine `json:"products"`
	Summary Summary                    `json:"summary"`
}

// Flow is one confirmation view. Its cart clear fires at most once for the
// lifetime of the flow, however often the settled result is observed.
type Flow struct {
	r    *Reconciler
	cart CartClearer

	run   sync.Once
	clear sync.Once

	mu       sync.Mutex
	stage    Stage
	result   *Result
	err      error
	clearErr error
}

func (r *Reconciler) NewFlow(cart CartClearer) *Flow {
	return &Flow{r: r, cart: cart}
}

func (f *Flow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

// Run drives the flow to a terminal stage. Only the first call does any work;
// later calls return the same outcome.
func (f *Flow) Run(ctx context.Context, referenceID string) (*Result, error) {
	f.run.Do(func() {
		result, err := f.r.reconcile(ctx, referenceID, f.setStage)

		f.mu.Lock()
		f.result, f.err = result, err
		if err != nil {
			f.stage = StageFailed
		} else {
			f.stage = StageSettled
		}
		f.mu.Unlock()
	})
	return f.Settled()
}

// Settled returns the outcome of Run. Every observation of a settled,
// completed order passes through the one-shot latch.
func (f *Flow) Settled() (*Result, error) {
	f.mu.Lock()
	stage, result, err := f.stage, f.result, f.err
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if stage != StageSettled {
		return nil, nil
	}
	if result.Order.Completed() {
		f.clear.Do(func() {
			err := f.cart.Clear()
			outcome := "cleared"
			if err != nil {
				outcome = "failed"
			}
			f.r.cleared.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))

			f.mu.Lock()
			f.clearErr = err
			f.mu.Unlock()
			if err == nil {
				f.r.logger.Info("cart cleared after completed order", "order_id", result.Order.ID)
			}
		})
	}
	return result, nil
}

// ClearErr reports why the cart of a completed order could not be cleared.
func (f *Flow) ClearErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearErr
}

func (f *Flow) setStage(s Stage) {
	f.mu.Lock()
	f.stage = s
	f.mu.Unlock()
}

func (r *Reconciler) reconcile(ctx context.Context, referenceID string, setStage func(Stage)) (*Result, error) {
	if referenceID == "" {
		return nil, &NoReferenceError{}
	}

	setStage(StageFetchOrder)
	order, err := r.orders.ConfirmPayment(ctx, referenceID)
	if err != nil {
		r.logger.Error("failed to confirm payment", "error", err, "reference_id", referenceID)
		return nil, confirmationFailure(err)
	}

	setStage(StageEnrichLines)
	lines := r.enrich(ctx, order)

	r.logger.Info("order reconciled", "order_id", order.ID, "status", order.Status, "lines", len(lines))
	return &Result{Order: order, Lines: lines, Summary: NewSummary(order)}, nil
}

func confirmationFailure(err error) error {
	if errors.Is(err, orderapi.ErrNoOrder) {
		return &NoOrderDataError{}
	}
	var apiErr *orderapi.APIError
	if errors.As(err, &apiErr) {
		return &ConfirmationError{Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	return &ConfirmationError{Err: err}
}

// enrich looks up every line concurrently. A failed lookup degrades only its
// own line. Output order matches the order's products.
func (r *Reconciler) enrich(ctx context.Context, order *domain.Order) []domain.EnrichedOrderLine {
	lines := make([]domain.EnrichedOrderLine, len(order.Products))

	var g errgroup.Group
	var lookups singleflight.Group
	for i, item := range order.Products {
		g.Go(func() error {
			v, err, _ := lookups.Do(item.ProductID, func() (any, error) {
				if item.ProductID == "" {
					return nil, errors.New("order line has no product id")
				}
				return r.products.GetProduct(ctx, item.ProductID)
			})
			product, _ := v.(*domain.Product)
			if err == nil && product == nil {
				err = errors.New("empty product")
			}
			if err != nil {
				r.logger.Warn("product lookup failed, using order snapshot",
					"error", err, "order_id", order.ID, "product_id", item.ProductID)
				r.degraded.Add(ctx, 1)
				lines[i] = degradedLine(item)
				return nil
			}
			lines[i] = enrichedLine(item, product)
			return nil
		})
	}
	_ = g.Wait()

	return lines
}

// enrichedLine takes description, category and images from the live record.
// Quantity and variant selection always come from the snapshot.
func enrichedLine(item domain.OrderItem, p *domain.Product) domain.EnrichedOrderLine {
	image := p.Image
	if len(image) == 0 {
		image = snapshotImage(item)
	}
	id := p.ID
	if id == "" {
		id = item.ProductID
	}
	name := p.Name
	if name == "" {
		name = item.Name
	}

	return domain.EnrichedOrderLine{
		ID:            id,
		Name:          name,
		Description:   p.Description,
		Category:      p.Category,
		Image:         image,
		Quantity:      item.Quantity,
		SelectedSize:  item.SelectedSize,
		SelectedColor: item.SelectedColor,
	}
}

func degradedLine(item domain.OrderItem) domain.EnrichedOrderLine {
	return domain.EnrichedOrderLine{
		ID:            item.ProductID,
		Name:          item.Name,
		Image:         snapshotImage(item),
		Quantity:      item.Quantity,
		SelectedSize:  item.SelectedSize,
		SelectedColor: item.SelectedColor,
		Degraded:      true,
	}
}

func snapshotImage(item domain.OrderItem) []string {
	if item.Image == "" {
		return []string{}
	}
	return []string{item.Image}
}
