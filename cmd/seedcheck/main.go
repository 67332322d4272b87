package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/danieliser/edd-utility-functions/internal/adapter/linker"
	"github.com/danieliser/edd-utility-functions/internal/adapter/storage"
	"github.com/danieliser/edd-utility-functions/internal/core/domain"
	"github.com/danieliser/edd-utility-functions/internal/core/service"
)

const (
	mysqlDSN      = "root:root@tcp(localhost:3306)/edd?parseTime=true"
	redisAddr     = "localhost:6379"
	downloadID    = 42
	customerID    = 7
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}

	// Clear previous run's data
	rdb.Del(ctx, fmt.Sprintf("edd:licensed_urls:edd_licensed_url_%d_%d", downloadID, customerID))
	db.ExecContext(ctx, `DELETE i FROM edd_payment_items i JOIN edd_payments p ON p.id = i.payment_id WHERE p.customer_id = ?`, customerID)
	db.ExecContext(ctx, `DELETE FROM edd_payments WHERE customer_id = ?`, customerID)

	// Seed one completed purchase
	now := time.Now()
	result, err := db.ExecContext(ctx, `
		INSERT INTO edd_payments (payment_key, email, status, customer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), "seedcheck@localhost", domain.PaymentStatusComplete, customerID, now, now,
	)
	if err != nil {
		log.Fatalf("failed to seed payment: %v", err)
	}
	paymentID, _ := result.LastInsertId()
	if _, err := db.ExecContext(ctx, `
		INSERT INTO edd_payment_items (payment_id, download_id, price_id, quantity)
		VALUES (?, ?, NULL, 1)`, paymentID, downloadID,
	); err != nil {
		log.Fatalf("failed to seed line item: %v", err)
	}

	lk, err := linker.NewSignedLinker("seedcheck-secret", "http://localhost:8080/download", time.Hour)
	if err != nil {
		log.Fatalf("failed to init linker: %v", err)
	}

	entitlements := service.NewEntitlementService(
		storage.NewRedisAdapter(rdb),
		storage.NewMySQLAdapter(db),
		lk,
		time.Hour,
		nil,
	)

	// Counters
	var ownedCount atomic.Int32
	var urlCount atomic.Int32
	var mismatch atomic.Int32

	warmup := service.NewScope(domain.Viewer{UserID: customerID})
	firstURL := entitlements.LicensedDownloadURL(ctx, warmup, downloadID, customerID)

	// Concurrent cache-aside reads; every request gets a fresh scope,
	// the way one incoming request would.
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			scope := service.NewScope(domain.Viewer{UserID: customerID})
			if entitlements.UserOwnsDownload(ctx, scope, downloadID, customerID) {
				ownedCount.Add(1)
			}
			url := entitlements.LicensedDownloadURL(ctx, scope, downloadID, customerID)
			if url != "" {
				urlCount.Add(1)
			}
			if url != firstURL {
				mismatch.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== SEEDCHECK RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Owned:            %d\n", ownedCount.Load())
	fmt.Printf("URLs Resolved:    %d\n", urlCount.Load())
	fmt.Printf("URL Mismatches:   %d\n", mismatch.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if ownedCount.Load() == totalRequests && urlCount.Load() == totalRequests && mismatch.Load() == 0 {
		fmt.Println("PASS: every request saw ownership and the same cached URL")
	} else {
		fmt.Println("FAIL: inconsistent results across requests")
	}

	ttl, _ := rdb.TTL(ctx, fmt.Sprintf("edd:licensed_urls:edd_licensed_url_%d_%d", downloadID, customerID)).Result()
	fmt.Printf("Cache TTL remaining: %v\n", ttl)
}
