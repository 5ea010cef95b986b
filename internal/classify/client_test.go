package classify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestClientLabel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "margins are widening", req.Text)

		json.NewEncoder(w).Encode(map[string]any{
			"label":      "bullish",
			"confidence": 0.87,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRateLimit(rate.Inf, 1))
	label, confidence, err := client.Label(context.Background(), "margins are widening")
	require.NoError(t, err)
	assert.Equal(t, "bullish", label)
	assert.InDelta(t, 0.87, confidence, 1e-9)
}

func TestClientLabelServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRateLimit(rate.Inf, 1))
	_, _, err := client.Label(context.Background(), "anything")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}
