package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Handler serves catalog reads straight from the product API. Listing
// queries are normalized before they are forwarded.
type Handler struct {
	products *ServiceProxy
	logger   *slog.Logger
}

func NewHandler(products *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		products: products,
		logger:   logger,
	}
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	lq, err := ParseListingQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.proxyRequest(w, r, "/products", lq.Values())
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}
	h.proxyRequest(w, r, "/products/"+url.PathEscape(id), nil)
}

func (h *Handler) HandleRelated(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.proxyRequest(w, r, "/products/related/"+url.PathEscape(id), nil)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.writeJSON(w, http.StatusOK, []any{})
		return
	}
	h.proxyRequest(w, r, "/products/search", url.Values{"q": {q}})
}

func (h *Handler) HandleBestSelling(w http.ResponseWriter, r *http.Request) {
	limit := DefaultBestSellingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	h.proxyRequest(w, r, "/products/best-selling", url.Values{"limit": {strconv.Itoa(limit)}})
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, path string, query url.Values) {
	resp, err := h.products.ForwardRequest(r.Context(), r, path, query)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
