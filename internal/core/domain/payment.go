package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusComplete  PaymentStatus = "complete"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusRevoked   PaymentStatus = "revoked"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusAbandoned PaymentStatus = "abandoned"
)

type Payment struct {
	ID         int64
	Key        string
	Email      string
	Status     PaymentStatus
	CustomerID int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LineItem is one download entry within a payment. PriceID is nil for
// downloads sold at their default price.
type LineItem struct {
	DownloadID int64
	PriceID    *int64
	Quantity   int
}

type PaymentFilter struct {
	UserID     int64
	DownloadID int64
	Status     PaymentStatus
	Limit      int
}
