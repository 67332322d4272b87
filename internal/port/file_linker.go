package port

import "context"

type FileLinker interface {
	// BuildFileURL mints a download URL for one file of a purchased
	// download. priceID is nil for the default price tier.
	BuildFileURL(ctx context.Context, paymentKey, email string, fileIndex int, downloadID int64, priceID *int64) (string, error)
}
