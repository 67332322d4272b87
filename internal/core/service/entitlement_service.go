package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danieliser/edd-utility-functions/internal/core/domain"
	"github.com/danieliser/edd-utility-functions/internal/port"
)

const (
	ownedKeyPrefix       = "edd_user_owns_download_"
	licensedURLKeyPrefix = "edd_licensed_url_"

	userPurchasesGroup = "user_purchases"
	licensedURLsGroup  = "licensed_urls"

	defaultLicensedURLTTL = time.Hour

	// Only the first file and the default price tier are resolvable.
	defaultFileIndex = 0
)

type EntitlementService struct {
	cache  port.CacheRepository
	store  port.DatabaseRepository
	linker port.FileLinker
	urlTTL time.Duration
	logger *slog.Logger
}

func NewEntitlementService(cache port.CacheRepository, store port.DatabaseRepository, linker port.FileLinker, urlTTL time.Duration, logger *slog.Logger) *EntitlementService {
	if urlTTL <= 0 {
		urlTTL = defaultLicensedURLTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EntitlementService{
		cache:  cache,
		store:  store,
		linker: linker,
		urlTTL: urlTTL,
		logger: logger,
	}
}

// UserOwnsDownload reports whether the user has a completed purchase of
// the download. Results are memoized in the scope, so repeat checks
// within one request hit the store at most once. Lookup failures count
// as not owned; callers cannot tell the two apart.
func (s *EntitlementService) UserOwnsDownload(ctx context.Context, scope *Scope, downloadID, userID int64) bool {
	downloadID, userID = scope.resolve(downloadID, userID)
	if userID == 0 {
		return false
	}

	key := memoKey(downloadID, userID)
	if owned, ok := scope.owned[key]; ok {
		return owned
	}

	owned, err := s.store.HasPurchased(ctx, userID, []int64{downloadID})
	if err != nil {
		s.logger.ErrorContext(ctx, "purchase lookup failed",
			"download_id", downloadID, "user_id", userID, "error", err.Error())
		owned = false
	}

	scope.owned[key] = owned
	return owned
}

// LicensedDownloadURL returns the download URL for the user's purchase
// of the download, or "" when there is nothing to hand out. Results,
// including "", are cached under the licensed_urls group for urlTTL; a
// cached empty string is a valid answer and does not trigger
// recomputation.
func (s *EntitlementService) LicensedDownloadURL(ctx context.Context, scope *Scope, downloadID, userID int64) string {
	downloadID, userID = scope.resolve(downloadID, userID)
	if userID == 0 {
		return ""
	}

	key := licensedURLKey(downloadID, userID)

	cached, found, err := s.cache.Get(ctx, licensedURLsGroup, key)
	if err != nil {
		s.logger.WarnContext(ctx, "licensed url cache read failed", "key", key, "error", err.Error())
	}
	if found && err == nil {
		return cached
	}

	url := s.buildLicensedURL(ctx, downloadID, userID)

	if err := s.cache.SetWithTTL(ctx, licensedURLsGroup, key, url, s.urlTTL); err != nil {
		s.logger.WarnContext(ctx, "licensed url cache write failed", "key", key, "error", err.Error())
	}

	return url
}

func (s *EntitlementService) buildLicensedURL(ctx context.Context, downloadID, userID int64) string {
	owned, err := s.store.HasPurchased(ctx, userID, []int64{downloadID})
	if err != nil {
		s.logger.ErrorContext(ctx, "purchase lookup failed",
			"download_id", downloadID, "user_id", userID, "error", err.Error())
		return ""
	}
	if !owned {
		return ""
	}

	payments, err := s.store.FindPayments(ctx, domain.PaymentFilter{
		UserID:     userID,
		DownloadID: downloadID,
		Status:     domain.PaymentStatusComplete,
		Limit:      1,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "payment lookup failed",
			"download_id", downloadID, "user_id", userID, "error", err.Error())
		return ""
	}
	if len(payments) == 0 {
		return ""
	}

	payment := payments[0]
	url, err := s.linker.BuildFileURL(ctx, payment.Key, payment.Email, defaultFileIndex, downloadID, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "file url build failed",
			"download_id", downloadID, "payment_id", payment.ID, "error", err.Error())
		return ""
	}

	return url
}

func licensedURLKey(downloadID, userID int64) string {
	return fmt.Sprintf("%s%d_%d", licensedURLKeyPrefix, downloadID, userID)
}

func ownedKey(downloadID, userID int64) string {
	return fmt.Sprintf("%s%d_%d", ownedKeyPrefix, downloadID, userID)
}
