package tests

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/danieliser/edd-utility-functions/internal/adapter/events"
	"github.com/danieliser/edd-utility-functions/internal/adapter/linker"
	"github.com/danieliser/edd-utility-functions/internal/adapter/storage"
	"github.com/danieliser/edd-utility-functions/internal/core/domain"
	"github.com/danieliser/edd-utility-functions/internal/core/service"
)

type testEnv struct {
	redis *redis.Client
	mysql *sql.DB
	cache *storage.RedisAdapter
	db    *storage.MySQLAdapter
	svc   *service.EntitlementService
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/edd?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	t.Cleanup(func() {
		rdb.Close()
		db.Close()
	})

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS edd_payments (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			payment_key VARCHAR(64) NOT NULL,
			email VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			customer_id BIGINT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edd_payment_items (
			payment_id BIGINT NOT NULL,
			download_id BIGINT NOT NULL,
			price_id BIGINT NULL,
			quantity INT NOT NULL DEFAULT 1
		)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("schema setup failed: %v", err)
		}
	}

	lk, err := linker.NewSignedLinker("integration-secret", "https://store.test/download", time.Hour)
	if err != nil {
		t.Fatalf("linker setup failed: %v", err)
	}

	cache := storage.NewRedisAdapter(rdb)
	mysqlAdapter := storage.NewMySQLAdapter(db)

	return &testEnv{
		redis: rdb,
		mysql: db,
		cache: cache,
		db:    mysqlAdapter,
		svc: service.NewEntitlementService(cache, mysqlAdapter, lk,
			time.Hour, slog.New(slog.NewTextHandler(os.Stderr, nil))),
	}
}

func (env *testEnv) seedPayment(t *testing.T, customerID int64, downloadIDs ...int64) int64 {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	result, err := env.mysql.ExecContext(ctx, `
		INSERT INTO edd_payments (payment_key, email, status, customer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), "integration@test.dev", domain.PaymentStatusComplete, customerID, now, now,
	)
	if err != nil {
		t.Fatalf("seed payment failed: %v", err)
	}
	paymentID, _ := result.LastInsertId()

	for _, downloadID := range downloadIDs {
		if _, err := env.mysql.ExecContext(ctx, `
			INSERT INTO edd_payment_items (payment_id, download_id, price_id, quantity)
			VALUES (?, ?, NULL, 1)`, paymentID, downloadID,
		); err != nil {
			t.Fatalf("seed line item failed: %v", err)
		}
	}

	t.Cleanup(func() {
		env.mysql.ExecContext(ctx, `DELETE FROM edd_payment_items WHERE payment_id = ?`, paymentID)
		env.mysql.ExecContext(ctx, `DELETE FROM edd_payments WHERE id = ?`, paymentID)
	})

	return paymentID
}

func TestIntegration_OwnershipAndLicensedURL(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	customerID := int64(80001)
	downloadID := int64(42)
	env.redis.Del(ctx, fmt.Sprintf("edd:licensed_urls:edd_licensed_url_%d_%d", downloadID, customerID))
	env.mysql.ExecContext(ctx, `DELETE i FROM edd_payment_items i JOIN edd_payments p ON p.id = i.payment_id WHERE p.customer_id = ?`, customerID)
	env.mysql.ExecContext(ctx, `DELETE FROM edd_payments WHERE customer_id = ?`, customerID)

	// Before any purchase: not owned, empty URL, and the empty result
	// is cached.
	scope := service.NewScope(domain.Viewer{UserID: customerID})
	if env.svc.UserOwnsDownload(ctx, scope, downloadID, customerID) {
		t.Fatal("expected no ownership before purchase")
	}
	if url := env.svc.LicensedDownloadURL(ctx, scope, downloadID, customerID); url != "" {
		t.Fatalf("expected empty url before purchase, got %q", url)
	}

	cached, found, err := env.cache.Get(ctx, "licensed_urls", fmt.Sprintf("edd_licensed_url_%d_%d", downloadID, customerID))
	if err != nil || !found {
		t.Fatalf("expected cached empty result, found=%v err=%v", found, err)
	}
	if cached != "" {
		t.Fatalf("expected cached empty string, got %q", cached)
	}

	// Purchase lands. The URL cache still holds "" until it expires or
	// is cleared; that is the contract.
	env.seedPayment(t, customerID, downloadID)

	freshScope := service.NewScope(domain.Viewer{UserID: customerID})
	if !env.svc.UserOwnsDownload(ctx, freshScope, downloadID, customerID) {
		t.Fatal("expected ownership after purchase")
	}
	if url := env.svc.LicensedDownloadURL(ctx, freshScope, downloadID, customerID); url != "" {
		t.Fatalf("expected stale cached empty url, got %q", url)
	}

	// After the corrected clear, the resolver mints a real URL.
	env.svc.ClearLicensedURL(ctx, downloadID, customerID)
	url := env.svc.LicensedDownloadURL(ctx, freshScope, downloadID, customerID)
	if url == "" {
		t.Fatal("expected minted url after cache clear")
	}

	// And it stays cached for repeat requests.
	again := env.svc.LicensedDownloadURL(ctx, service.NewScope(domain.Viewer{UserID: customerID}), downloadID, customerID)
	if again != url {
		t.Errorf("expected cached url %q, got %q", url, again)
	}
}

func TestIntegration_EventDrivenInvalidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	customerID := int64(80002)
	downloadID := int64(42)
	paymentID := env.seedPayment(t, customerID, downloadID)

	// Plant entries in both groups to observe which one the event path
	// actually clears.
	ownedKey := fmt.Sprintf("edd_user_owns_download_%d_%d", downloadID, customerID)
	urlKey := fmt.Sprintf("edd_licensed_url_%d_%d", downloadID, customerID)
	if err := env.cache.SetWithTTL(ctx, "user_purchases", ownedKey, "1", time.Hour); err != nil {
		t.Fatalf("cache seed failed: %v", err)
	}
	if err := env.cache.SetWithTTL(ctx, "licensed_urls", urlKey, "https://store.test/keep", time.Hour); err != nil {
		t.Fatalf("cache seed failed: %v", err)
	}

	consumer := events.NewConsumer(env.redis, env.svc, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.Run(ctx)
	}()

	// Give the subscription a moment to establish before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		subs, err := env.redis.PubSubNumSub(ctx, events.PurchaseCompletedChannel).Result()
		if err == nil && subs[events.PurchaseCompletedChannel] > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	payload, _ := json.Marshal(events.PurchaseCompletedEvent{PaymentID: paymentID, CustomerID: customerID})
	if err := env.redis.Publish(ctx, events.PurchaseCompletedChannel, payload).Err(); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	// The ownership key disappears; the licensed url key must not.
	deadline = time.Now().Add(2 * time.Second)
	for {
		_, found, err := env.cache.Get(ctx, "user_purchases", ownedKey)
		if err != nil {
			t.Fatalf("cache read failed: %v", err)
		}
		if !found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected ownership key deleted after purchase event")
		}
		time.Sleep(50 * time.Millisecond)
	}

	if _, found, _ := env.cache.Get(ctx, "licensed_urls", urlKey); !found {
		t.Error("expected licensed url entry untouched by purchase event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("consumer did not stop after cancel")
	}
}
