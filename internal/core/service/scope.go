package service

import (
	"fmt"

	"github.com/danieliser/edd-utility-functions/internal/core/domain"
)

// Scope carries one request's viewer identity and its ownership memo.
// The caller creates a Scope when a request starts and drops it when the
// request ends; nothing outlives it. Scopes are confined to a single
// goroutine and need no locking.
type Scope struct {
	viewer domain.Viewer
	owned  map[string]bool
}

func NewScope(viewer domain.Viewer) *Scope {
	return &Scope{
		viewer: viewer,
		owned:  make(map[string]bool),
	}
}

func (s *Scope) Viewer() domain.Viewer {
	return s.viewer
}

// resolve applies the fallback rules for optional identifiers: a zero
// downloadID means the content being rendered, a zero userID means the
// current viewer.
func (s *Scope) resolve(downloadID, userID int64) (int64, int64) {
	if downloadID == 0 {
		downloadID = s.viewer.ContentID
	}
	if userID == 0 {
		userID = s.viewer.UserID
	}
	return downloadID, userID
}

func memoKey(downloadID, userID int64) string {
	return fmt.Sprintf("%d_%d", downloadID, userID)
}
