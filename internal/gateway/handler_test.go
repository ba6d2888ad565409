package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestHandler(t *testing.T, upstream http.HandlerFunc) *http.ServeMux {
	t.Helper()

	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	handler := NewHandler(
		NewServiceProxy(server.URL, server.Client()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", handler.HandleListProducts)
	mux.HandleFunc("GET /products/search", handler.HandleSearch)
	mux.HandleFunc("GET /products/best-selling", handler.HandleBestSelling)
	mux.HandleFunc("GET /products/{id}", handler.HandleGetProduct)
	mux.HandleFunc("GET /products/{id}/related", handler.HandleRelated)
	return mux
}

func serve(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_HandleListProducts(t *testing.T) {
	t.Run("forwards normalized listing", func(t *testing.T) {
		mux := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/products" {
				t.Errorf("expected /products, got %s", r.URL.Path)
			}
			if got := r.URL.RawQuery; got != "category=rings&limit=10&page=1&sort=createdAt%3Adesc" {
				t.Errorf("unexpected query: %s", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"products":[],"totalPages":0,"totalProducts":0}`))
		})

		rec := serve(mux, "/products?category=rings&unknown=1")

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != `{"products":[],"totalPages":0,"totalProducts":0}` {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("rejects invalid query without calling upstream", func(t *testing.T) {
		mux := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("upstream should not be called")
		})

		rec := serve(mux, "/products?page=-1")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["error"] != `invalid page: "-1"` {
			t.Errorf("unexpected error: %s", body["error"])
		}
	})
}

func TestHandler_ProductRoutes(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantPath  string
		wantQuery string
	}{
		{name: "detail", path: "/products/p1", wantPath: "/products/p1"},
		{name: "related", path: "/products/p1/related", wantPath: "/products/related/p1"},
		{name: "search", path: "/products/search?q=ring", wantPath: "/products/search", wantQuery: "q=ring"},
		{name: "best selling default", path: "/products/best-selling", wantPath: "/products/best-selling", wantQuery: "limit=4"},
		{name: "best selling limit", path: "/products/best-selling?limit=8", wantPath: "/products/best-selling", wantQuery: "limit=8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.wantPath {
					t.Errorf("expected %s, got %s", tt.wantPath, r.URL.Path)
				}
				if r.URL.RawQuery != tt.wantQuery {
					t.Errorf("expected query %q, got %q", tt.wantQuery, r.URL.RawQuery)
				}
				w.WriteHeader(http.StatusOK)
			})

			rec := serve(mux, tt.path)
			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_UpstreamStatusPassesThrough(t *testing.T) {
	mux := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Product not found"}`))
	})

	rec := serve(mux, "/products/missing")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if rec.Body.String() != `{"message":"Product not found"}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_EmptySearch(t *testing.T) {
	mux := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	})

	rec := serve(mux, "/products/search?q=%20")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "[]\n" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestHandler_ServiceUnavailable(t *testing.T) {
	handler := NewHandler(
		NewServiceProxy("http://localhost:1", http.DefaultClient),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	req := httptest.NewRequest(http.MethodGet, "/products/p1", nil)
	req.SetPathValue("id", "p1")
	rec := httptest.NewRecorder()

	handler.HandleGetProduct(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "service unavailable" {
		t.Errorf("expected 'service unavailable', got %s", body["error"])
	}
}
