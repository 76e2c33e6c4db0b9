package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func batch(ids ...string) []Request {
	out := make([]Request, len(ids))
	for i, id := range ids {
		out[i] = Request{DriverID: id, OrderID: "o1", DistanceKm: 3, ShippingFee: 30000, VehicleClass: "bike", ServiceClass: "standard"}
	}
	return out
}

func oracle(t *testing.T, handler func(w http.ResponseWriter, got batchRequest)) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var got batchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		handler(w, got)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestHTTPClient_SingleCallReorderedToRequests(t *testing.T) {
	srv, calls := oracle(t, func(w http.ResponseWriter, got batchRequest) {
		require.Len(t, got.Requests, 3)
		_ = json.NewEncoder(w).Encode([]Prediction{
			{DriverID: "c", Probability: 0.3},
			{DriverID: "a", Probability: 0.9},
			{DriverID: "b", Probability: 0.5},
		})
	})
	c := NewHTTPClient(srv.URL, time.Second, zap.NewNop())

	preds, err := c.Score(context.Background(), batch("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, []Prediction{{"a", 0.9}, {"b", 0.5}, {"c", 0.3}}, preds)
}

func TestHTTPClient_FailuresCollapseToUnavailable(t *testing.T) {
	cases := map[string]func(w http.ResponseWriter, got batchRequest){
		"server error": func(w http.ResponseWriter, _ batchRequest) {
			http.Error(w, "model not ready", http.StatusServiceUnavailable)
		},
		"malformed body": func(w http.ResponseWriter, _ batchRequest) {
			_, _ = w.Write([]byte(`{"oops":`))
		},
		"short response": func(w http.ResponseWriter, _ batchRequest) {
			_ = json.NewEncoder(w).Encode([]Prediction{{DriverID: "a", Probability: 0.4}})
		},
		"unknown driver": func(w http.ResponseWriter, _ batchRequest) {
			_ = json.NewEncoder(w).Encode([]Prediction{{"a", 0.4}, {"zzz", 0.4}})
		},
		"duplicate driver": func(w http.ResponseWriter, _ batchRequest) {
			_ = json.NewEncoder(w).Encode([]Prediction{{"a", 0.4}, {"a", 0.5}})
		},
		"probability out of range": func(w http.ResponseWriter, _ batchRequest) {
			_ = json.NewEncoder(w).Encode([]Prediction{{"a", 1.4}, {"b", 0.5}})
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := oracle(t, handler)
			c := NewHTTPClient(srv.URL, time.Second, zap.NewNop())
			_, err := c.Score(context.Background(), batch("a", "b"))
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestHTTPClient_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	defer close(release)

	c := NewHTTPClient(srv.URL, 50*time.Millisecond, zap.NewNop())
	start := time.Now()
	_, err := c.Score(context.Background(), batch("a"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPClient_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second, zap.NewNop())
	_, err := c.Score(context.Background(), batch("a"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_EmptyBatchMakesNoCall(t *testing.T) {
	srv, calls := oracle(t, func(w http.ResponseWriter, _ batchRequest) {})
	c := NewHTTPClient(srv.URL, time.Second, zap.NewNop())
	preds, err := c.Score(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, preds)
	assert.Zero(t, *calls)
}
