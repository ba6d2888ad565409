package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type fakeProducts map[string]domain.Product

func (f fakeProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	repo, _ := setupTestRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sized := product("p2", "5")
	sized.Sizes = []string{"S"}

	handler := NewHandler(
		NewSessions(repo, logger),
		fakeProducts{"p1": product("p1", "2.5"), "p2": sized},
		func(country string) decimal.Decimal {
			if country == "الإمارات" {
				return decimal.NewFromInt(3)
			}
			return decimal.NewFromInt(2)
		},
		logger,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", handler.HandleGet)
	mux.HandleFunc("POST /cart/lines", handler.HandleAddLine)
	mux.HandleFunc("DELETE /cart/lines", handler.HandleRemoveLine)
	mux.HandleFunc("PATCH /cart/lines/quantity", handler.HandleChangeQuantity)
	mux.HandleFunc("PUT /cart/destination", handler.HandleSetDestination)
	mux.HandleFunc("DELETE /cart", handler.HandleClear)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(WithSessionID(req.Context(), "sess-1"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) View {
	t.Helper()

	var view View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func TestHandler_CartFlow(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/cart/lines", `{"productId":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, mux, http.MethodPut, "/cart/destination", `{"country":"الإمارات"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeView(t, do(t, mux, http.MethodGet, "/cart", ""))
	require.Len(t, view.Lines, 1)
	assert.True(t, view.TotalPrice.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "47.50", view.Subtotal.Value)
	assert.Equal(t, "د.إ", view.Subtotal.Currency)
	assert.Equal(t, "76.00", view.GrandTotal.Value)
	assert.True(t, view.Lines[0].UnitPriceBase.Equal(decimal.RequireFromString("2.5")))

	rec = do(t, mux, http.MethodPatch, "/cart/lines/quantity", `{"productId":"p1","delta":-1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeView(t, rec).Quantity)

	rec = do(t, mux, http.MethodPatch, "/cart/lines/quantity", `{"productId":"p1","delta":-1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeView(t, rec).Lines)
}

func TestHandler_Errors(t *testing.T) {
	t.Run("unknown product", func(t *testing.T) {
		rec := do(t, newTestMux(t), http.MethodPost, "/cart/lines", `{"productId":"nope"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing size selection", func(t *testing.T) {
		rec := do(t, newTestMux(t), http.MethodPost, "/cart/lines", `{"productId":"p2","quantity":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "size must be selected")
	})

	t.Run("bad delta", func(t *testing.T) {
		rec := do(t, newTestMux(t), http.MethodPatch, "/cart/lines/quantity", `{"productId":"p1","delta":5}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := do(t, newTestMux(t), http.MethodDelete, "/cart/lines", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_RemoveAndClear(t *testing.T) {
	mux := newTestMux(t)
	do(t, mux, http.MethodPost, "/cart/lines", `{"productId":"p1","quantity":1}`)
	do(t, mux, http.MethodPost, "/cart/lines", `{"productId":"p2","quantity":1,"selectedSize":"S"}`)

	rec := do(t, mux, http.MethodDelete, "/cart/lines", `{"productId":"p2","selectedSize":"S"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeView(t, rec).Lines, 1)

	rec = do(t, mux, http.MethodDelete, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeView(t, rec).Lines)
}

func TestHandler_ConcurrentRequestsOnOneSession(t *testing.T) {
	t.Run("no add is lost", func(t *testing.T) {
		mux := newTestMux(t)

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				do(t, mux, http.MethodPost, "/cart/lines", `{"productId":"p1","quantity":1}`)
			}()
		}
		wg.Wait()

		view := decodeView(t, do(t, mux, http.MethodGet, "/cart", ""))
		require.Len(t, view.Lines, 1)
		assert.Equal(t, 50, view.Quantity)
		assert.True(t, view.TotalPrice.Equal(decimal.NewFromInt(125)))
	})

	t.Run("different mutations all land", func(t *testing.T) {
		mux := newTestMux(t)

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				do(t, mux, http.MethodPost, "/cart/lines", `{"productId":"p1","quantity":1}`)
			}()
			go func() {
				defer wg.Done()
				do(t, mux, http.MethodPost, "/cart/lines", `{"productId":"p2","quantity":1,"selectedSize":"S"}`)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			do(t, mux, http.MethodPut, "/cart/destination", `{"country":"الإمارات"}`)
		}()
		wg.Wait()

		view := decodeView(t, do(t, mux, http.MethodGet, "/cart", ""))
		require.Len(t, view.Lines, 2)
		assert.Equal(t, 40, view.Quantity)
		assert.Equal(t, "الإمارات", view.Country)
		assert.True(t, view.ShippingFee.Equal(decimal.NewFromInt(3)))
	})

	t.Run("adds racing a clear never restore cleared lines", func(t *testing.T) {
		mux := newTestMux(t)
		rec := do(t, mux, http.MethodPost, "/cart/lines", `{"productId":"p2","quantity":10,"selectedSize":"S"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if i == 10 {
					do(t, mux, http.MethodDelete, "/cart", "")
					return
				}
				do(t, mux, http.MethodPost, "/cart/lines", `{"productId":"p1","quantity":1}`)
			}()
		}
		wg.Wait()

		view := decodeView(t, do(t, mux, http.MethodGet, "/cart", ""))
		for _, l := range view.Lines {
			assert.Equal(t, "p1", l.ProductID, "cleared line came back")
		}
		assert.LessOrEqual(t, view.Quantity, 19)
	})
}

func TestSessionMiddleware(t *testing.T) {
	var seen string
	h := SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionID(r.Context())
	}))

	t.Run("issues a cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookie, cookies[0].Name)
		assert.Equal(t, cookies[0].Value, seen)
	})

	t.Run("reuses a valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "0b8f3a57-3c39-4a3a-9f4e-6a4a9e3f2f10"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Empty(t, rec.Result().Cookies())
		assert.Equal(t, "0b8f3a57-3c39-4a3a-9f4e-6a4a9e3f2f10", seen)
	})

	t.Run("replaces a forged cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "../admin"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.NotEqual(t, "../admin", seen)
		assert.Len(t, rec.Result().Cookies(), 1)
	})
}
