// Package repository holds the durable order.Repository implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/logging"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key
const uniqueViolation = "23505"

const orderColumns = `id, user_id, business_id, items, total, delivery_fee, address,
	payment_method, status, status_history, created_at, confirmed_at, updated_at`

// PostgresOrderRepository keeps finalized orders in the orders table.
// Items and status history are stored as JSONB; lib/pq sends []byte as
// bytea, so the documents are passed as strings.
type PostgresOrderRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db, log: logging.New("order_repository")}
}

func (r *PostgresOrderRepository) Insert(ctx context.Context, o *order.Order) error {
	items, history, err := encodeJSONColumns(o)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, o.UserID, o.BusinessID, string(items), o.Total, o.DeliveryFee, o.Address,
		string(o.PaymentMethod), string(o.Status), string(history), o.CreatedAt, o.ConfirmedAt, o.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", order.ErrDuplicateOrderID, o.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// Update rewrites the mutable columns of an existing order
func (r *PostgresOrderRepository) Update(ctx context.Context, o *order.Order) error {
	_, history, err := encodeJSONColumns(o)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, status_history = $3, updated_at = $4 WHERE id = $1`,
		o.ID, string(o.Status), string(history), o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", order.ErrOrderNotFound, o.ID)
	}
	return nil
}

// List returns every order in confirmation order
func (r *PostgresOrderRepository) List(ctx context.Context) ([]*order.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY confirmed_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.log.Warn("skipping unreadable order row", "error", err)
			continue
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*order.Order, error) {
	var (
		o               order.Order
		items, history  []byte
		payment, status string
	)
	err := s.Scan(&o.ID, &o.UserID, &o.BusinessID, &items, &o.Total, &o.DeliveryFee, &o.Address,
		&payment, &status, &history, &o.CreatedAt, &o.ConfirmedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = order.PaymentMethod(payment)
	o.Status = order.Status(status)

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", o.ID, err)
	}
	if err := json.Unmarshal(history, &o.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history of %s: %w", o.ID, err)
	}
	return &o, nil
}

func encodeJSONColumns(o *order.Order) (items, history []byte, err error) {
	items, err = json.Marshal(o.Items)
	if err != nil {
		return nil, nil, fmt.Errorf("encode items: %w", err)
	}
	history, err = json.Marshal(o.StatusHistory)
	if err != nil {
		return nil, nil, fmt.Errorf("encode status history: %w", err)
	}
	return items, history, nil
}
