package confirmation

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// Repository is the confirmation ledger. Each order is recorded once.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Record stores order under referenceID unless it is already recorded. It
// reports whether the order's confirmed event has not been published yet.
func (r *Repository) Record(ctx context.Context, referenceID string, order *domain.Order) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New().String()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO storefront.confirmations (id, order_id, reference_id, status, amount, shipping_fee, country, email, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_id) DO NOTHING
	`, id, order.ID, referenceID, order.Status, order.Amount, order.ShippingFee, order.Country, order.Email, time.Now().UTC())
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rowsAffected == 0 {
		var pending bool
		err := tx.QueryRowContext(ctx, `
			SELECT published_at IS NULL
			FROM storefront.confirmations
			WHERE order_id = $1
		`, order.ID).Scan(&pending)
		return pending, err
	}

	for i, item := range order.Products {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO storefront.confirmation_items (id, confirmation_id, position, product_id, name, quantity, image, selected_size, selected_color)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.New().String(), id, i, item.ProductID, item.Name, item.Quantity, item.Image, item.SelectedSize, item.SelectedColor)
		if err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// MarkPublished records that the confirmed event of orderID went out.
func (r *Repository) MarkPublished(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE storefront.confirmations
		SET published_at = $2
		WHERE order_id = $1 AND published_at IS NULL
	`, orderID, time.Now().UTC())
	return err
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*domain.Confirmation, error) {
	c := &domain.Confirmation{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, reference_id, status, amount, shipping_fee, country, email, confirmed_at
		FROM storefront.confirmations
		WHERE order_id = $1
	`, orderID).Scan(&c.ID, &c.OrderID, &c.ReferenceID, &c.Status, &c.Amount, &c.ShippingFee, &c.Country, &c.Email, &c.ConfirmedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, quantity, image, selected_size, selected_color
		FROM storefront.confirmation_items
		WHERE confirmation_id = $1
		ORDER BY position
	`, c.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	c.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.Image, &item.SelectedSize, &item.SelectedColor); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

// ListRecent returns the latest confirmations with their items, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.Confirmation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, reference_id, status, amount, shipping_fee, country, email, confirmed_at
		FROM storefront.confirmations
		ORDER BY confirmed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]*domain.Confirmation)
	var ids []string

	for rows.Next() {
		var c domain.Confirmation
		if err := rows.Scan(&c.ID, &c.OrderID, &c.ReferenceID, &c.Status, &c.Amount, &c.ShippingFee, &c.Country, &c.Email, &c.ConfirmedAt); err != nil {
			return nil, err
		}
		c.Items = []domain.OrderItem{}
		byID[c.ID] = &c
		ids = append(ids, c.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []domain.Confirmation{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT confirmation_id, product_id, name, quantity, image, selected_size, selected_color
		FROM storefront.confirmation_items
		WHERE confirmation_id = ANY($1)
		ORDER BY position
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var confirmationID string
		var item domain.OrderItem
		if err := itemRows.Scan(&confirmationID, &item.ProductID, &item.Name, &item.Quantity, &item.Image, &item.SelectedSize, &item.SelectedColor); err != nil {
			return nil, err
		}
		c := byID[confirmationID]
		c.Items = append(c.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Confirmation, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byID[id])
	}

	return out, nil
}
