package port

import (
	"context"

	"github.com/danieliser/edd-utility-functions/internal/core/domain"
)

type DatabaseRepository interface {
	// HasPurchased reports whether the user has a completed purchase of
	// any of the listed downloads.
	HasPurchased(ctx context.Context, userID int64, downloadIDs []int64) (bool, error)

	// FindPayments retrieves payments matching the filter, key and email
	// populated, newest first.
	FindPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error)

	// PaymentLineItems retrieves the download line items of a payment.
	PaymentLineItems(ctx context.Context, paymentID int64) ([]domain.LineItem, error)

	// PaymentCustomerID resolves the customer that owns a payment.
	PaymentCustomerID(ctx context.Context, paymentID int64) (int64, error)
}
