package linker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

// FileClaims is the token payload embedded in a minted download URL.
// The download host verifies it with the shared secret before serving
// the file.
type FileClaims struct {
	PaymentKey string `json:"payment_key"`
	Email      string `json:"email"`
	DownloadID int64  `json:"download_id"`
	FileIndex  int    `json:"file_index"`
	PriceID    *int64 `json:"price_id,omitempty"`
	jwt.RegisteredClaims
}

// SignedLinker mints HS256-signed download URLs. HMAC is used because
// the download host shares the secret with this service.
type SignedLinker struct {
	secret   []byte
	baseURL  *url.URL
	tokenTTL time.Duration
}

func NewSignedLinker(secret, baseURL string, tokenTTL time.Duration) (*SignedLinker, error) {
	if secret == "" {
		return nil, errors.New("link secret is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}

	return &SignedLinker{
		secret:   []byte(secret),
		baseURL:  parsed,
		tokenTTL: tokenTTL,
	}, nil
}

func (l *SignedLinker) BuildFileURL(_ context.Context, paymentKey, email string, fileIndex int, downloadID int64, priceID *int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, FileClaims{
		PaymentKey: paymentKey,
		Email:      email,
		DownloadID: downloadID,
		FileIndex:  fileIndex,
		PriceID:    priceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.tokenTTL)),
		},
	})

	signed, err := token.SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("sign download token: %w", err)
	}

	u := *l.baseURL
	q := u.Query()
	q.Set("edd_file", strconv.FormatInt(downloadID, 10))
	q.Set("token", signed)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Parse validates a token minted by BuildFileURL and returns its claims.
func (l *SignedLinker) Parse(raw string) (FileClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &FileClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return l.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return FileClaims{}, err
	}

	claims, ok := parsed.Claims.(*FileClaims)
	if !ok || !parsed.Valid {
		return FileClaims{}, errors.New("invalid download token")
	}

	return *claims, nil
}
