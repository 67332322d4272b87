package service

import (
	"context"

	"github.com/danieliser/edd-utility-functions/internal/core/domain"
)

// HandlePurchaseComplete reacts to a completed purchase by deleting the
// per-download ownership keys for the buying customer. Deletes target
// the user_purchases group only; licensed_urls entries age out on their
// own TTL and request memos die with their request.
func (s *EntitlementService) HandlePurchaseComplete(ctx context.Context, paymentID, customerID int64) {
	items, err := s.store.PaymentLineItems(ctx, paymentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "line item lookup failed",
			"payment_id", paymentID, "error", err.Error())
		return
	}
	s.clearOwnershipKeys(ctx, items, customerID)
}

// HandlePaymentStatusChange reacts to a payment moving between statuses
// by deleting the same ownership keys. A report with equal old and new
// statuses is ignored.
func (s *EntitlementService) HandlePaymentStatusChange(ctx context.Context, paymentID int64, oldStatus, newStatus domain.PaymentStatus) {
	if oldStatus == newStatus {
		return
	}

	customerID, err := s.store.PaymentCustomerID(ctx, paymentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "customer lookup failed",
			"payment_id", paymentID, "error", err.Error())
		return
	}

	items, err := s.store.PaymentLineItems(ctx, paymentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "line item lookup failed",
			"payment_id", paymentID, "error", err.Error())
		return
	}

	s.clearOwnershipKeys(ctx, items, customerID)
}

// ClearLicensedURL deletes the cached licensed URL for one
// (download, user) pair. This is the key LicensedDownloadURL actually
// writes; the event handlers above deliberately do not touch it.
func (s *EntitlementService) ClearLicensedURL(ctx context.Context, downloadID, userID int64) {
	key := licensedURLKey(downloadID, userID)
	if err := s.cache.Delete(ctx, licensedURLsGroup, key); err != nil {
		s.logger.WarnContext(ctx, "licensed url cache delete failed", "key", key, "error", err.Error())
	}
}

func (s *EntitlementService) clearOwnershipKeys(ctx context.Context, items []domain.LineItem, customerID int64) {
	for _, item := range items {
		key := ownedKey(item.DownloadID, customerID)
		if err := s.cache.Delete(ctx, userPurchasesGroup, key); err != nil {
			s.logger.WarnContext(ctx, "ownership cache delete failed", "key", key, "error", err.Error())
		}
	}
}
