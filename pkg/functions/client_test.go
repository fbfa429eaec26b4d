package functions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/promoter-service/internal/resilience"
	"github.com/sells-group/promoter-service/internal/store"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "test-key", WithRateLimit(0))
}

func TestInvoke_HappyPath(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/functions/v1/import-promoters", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1", body["userId"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true,"imported":2,"errors":[],"total":2}`)) //nolint:errcheck
	})

	var out struct {
		Success  bool `json:"success"`
		Imported int  `json:"imported"`
	}
	err := c.Invoke(context.Background(), "import-promoters", map[string]any{"userId": "u1"}, &out)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.Imported)
}

func TestInvoke_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  string
		wantMsg   string
		retryable bool
	}{
		{
			name:      "server error",
			status:    http.StatusBadGateway,
			body:      `{"error":"upstream job crashed"}`,
			wantCode:  "502",
			wantMsg:   "upstream job crashed",
			retryable: true,
		},
		{
			name:      "rate limited",
			status:    http.StatusTooManyRequests,
			body:      `slow down`,
			wantCode:  "429",
			wantMsg:   "functions: import-promoters returned HTTP 429",
			retryable: true,
		},
		{
			name:      "bad input",
			status:    http.StatusBadRequest,
			body:      `{"message":"Invalid input: csvData is empty"}`,
			wantCode:  "400",
			wantMsg:   "Invalid input: csvData is empty",
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck
			})

			err := c.Invoke(context.Background(), "import-promoters", map[string]any{}, nil)
			require.Error(t, err)

			var storeErr *store.Error
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, tt.wantCode, storeErr.Code)
			assert.Equal(t, tt.wantMsg, storeErr.Message)
			assert.Equal(t, tt.retryable, resilience.IsRetryable(err))
		})
	}
}

func TestInvoke_EmptyResponseBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var out map[string]any
	require.NoError(t, c.Invoke(context.Background(), "noop", nil, &out))
	assert.Nil(t, out)
}

func TestInvoke_RequiresName(t *testing.T) {
	c := NewClient("http://localhost", "k")
	assert.Error(t, c.Invoke(context.Background(), "", nil, nil))
}

func TestInvoke_CanceledContext(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Invoke(ctx, "import-promoters", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(0), calls.Load())
}
