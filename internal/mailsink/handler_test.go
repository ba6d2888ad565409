package mailsink

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(capacity int) (*http.ServeMux, *Handler) {
	h := NewHandler(capacity, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /send", h.HandleSend)
	mux.HandleFunc("GET /outbox", h.HandleOutbox)
	return mux, h
}

func send(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body)))
	return rec
}

func TestHandleSend(t *testing.T) {
	mux, h := newTestMux(2)

	for i := 1; i <= 3; i++ {
		rec := send(mux, fmt.Sprintf(`{"to":"a@example.com","subject":"s%d","body":"b"}`, i))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	outbox := h.Outbox()
	require.Len(t, outbox, 2)
	assert.Equal(t, "s2", outbox[0].Subject)
	assert.Equal(t, "s3", outbox[1].Subject)
	assert.False(t, outbox[1].ReceivedAt.IsZero())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/outbox", nil))
	var listed []Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 2)
}

func TestHandleSend_Invalid(t *testing.T) {
	mux, h := newTestMux(10)

	assert.Equal(t, http.StatusBadRequest, send(mux, `{`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, send(mux, `{"to":"","subject":"s"}`).Code)
	assert.Empty(t, h.Outbox())
}
