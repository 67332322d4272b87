package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/danieliser/edd-utility-functions/internal/core/domain"
	"github.com/danieliser/edd-utility-functions/internal/core/service"
)

// Viewer identity headers set by the host CMS, which terminates auth
// upstream of this service. A missing or zero user header means no
// authenticated session.
const (
	userIDHeader    = "X-EDD-User-ID"
	contentIDHeader = "X-EDD-Download-ID"
)

type HTTPHandler struct {
	entitlements *service.EntitlementService
}

type ownedResponse struct {
	Owned bool `json:"owned"`
}

type urlResponse struct {
	URL string `json:"url"`
}

func NewHTTPHandler(entitlements *service.EntitlementService) *HTTPHandler {
	return &HTTPHandler{entitlements: entitlements}
}

func NewRouter(h *HTTPHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1/downloads/{downloadID}", func(r chi.Router) {
		r.Get("/owned", h.Owned)
		r.Get("/url", h.LicensedURL)
		r.Delete("/users/{userID}/url", h.RevokeLicensedURL)
	})

	return r
}

func (h *HTTPHandler) Owned(w http.ResponseWriter, r *http.Request) {
	downloadID, ok := pathID(w, r, "downloadID")
	if !ok {
		return
	}

	scope := scopeFromRequest(r)
	owned := h.entitlements.UserOwnsDownload(r.Context(), scope, downloadID, 0)

	writeJSON(w, http.StatusOK, ownedResponse{Owned: owned})
}

func (h *HTTPHandler) LicensedURL(w http.ResponseWriter, r *http.Request) {
	downloadID, ok := pathID(w, r, "downloadID")
	if !ok {
		return
	}

	scope := scopeFromRequest(r)
	url := h.entitlements.LicensedDownloadURL(r.Context(), scope, downloadID, 0)

	// "" covers both not-entitled and failure; there is no way to tell
	// them apart here.
	if url == "" {
		writeJSON(w, http.StatusNotFound, urlResponse{URL: ""})
		return
	}

	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

func (h *HTTPHandler) RevokeLicensedURL(w http.ResponseWriter, r *http.Request) {
	downloadID, ok := pathID(w, r, "downloadID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	h.entitlements.ClearLicensedURL(r.Context(), downloadID, userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scopeFromRequest builds the per-request scope; the memo inside it
// lives exactly as long as this request.
func scopeFromRequest(r *http.Request) *service.Scope {
	return service.NewScope(domain.Viewer{
		UserID:    headerID(r, userIDHeader),
		ContentID: headerID(r, contentIDHeader),
	})
}

func headerID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(r.Header.Get(name), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
