package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/danieliser/edd-utility-functions/internal/core/domain"
)

var ErrPaymentNotFound = errors.New("payment not found")

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) HasPurchased(ctx context.Context, userID int64, downloadIDs []int64) (bool, error) {
	if len(downloadIDs) == 0 {
		return false, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(downloadIDs)), ",")
	args := make([]any, 0, len(downloadIDs)+2)
	args = append(args, userID, domain.PaymentStatusComplete)
	for _, id := range downloadIDs {
		args = append(args, id)
	}

	var exists bool
	err := m.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT EXISTS(
			SELECT 1
			FROM edd_payments p
			JOIN edd_payment_items i ON i.payment_id = p.id
			WHERE p.customer_id = ? AND p.status = ? AND i.download_id IN (%s))`, placeholders),
		args...,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query purchases: %w", err)
	}

	return exists, nil
}

func (m *MySQLAdapter) FindPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	query := `
		SELECT DISTINCT p.id, p.payment_key, p.email, p.status, p.customer_id, p.created_at, p.updated_at
		FROM edd_payments p
		JOIN edd_payment_items i ON i.payment_id = p.id
		WHERE p.customer_id = ? AND i.download_id = ? AND p.status = ?
		ORDER BY p.id DESC`
	args := []any{filter.UserID, filter.DownloadID, filter.Status}

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.Key, &p.Email, &p.Status, &p.CustomerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	return payments, nil
}

func (m *MySQLAdapter) PaymentLineItems(ctx context.Context, paymentID int64) ([]domain.LineItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT download_id, price_id, quantity
		FROM edd_payment_items
		WHERE payment_id = ?`, paymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var item domain.LineItem
		var priceID sql.NullInt64
		if err := rows.Scan(&item.DownloadID, &priceID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		if priceID.Valid {
			item.PriceID = &priceID.Int64
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}

	return items, nil
}

func (m *MySQLAdapter) PaymentCustomerID(ctx context.Context, paymentID int64) (int64, error) {
	var customerID int64
	err := m.db.QueryRowContext(ctx, `
		SELECT customer_id FROM edd_payments WHERE id = ?`, paymentID,
	).Scan(&customerID)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPaymentNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query payment customer: %w", err)
	}

	return customerID, nil
}
