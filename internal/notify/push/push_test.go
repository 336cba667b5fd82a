package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen-backend/pkg/logger"
)

func TestSendPostsNotification(t *testing.T) {
	var got message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", logger.Nop())
	err := c.Send(context.Background(), "device-123", "Order Update", "Your order is ready")
	require.NoError(t, err)

	assert.Equal(t, "key=secret-key", auth)
	assert.Equal(t, "device-123", got.To)
	assert.Equal(t, "Order Update", got.Notification.Title)
	assert.Equal(t, "Your order is ready", got.Notification.Body)
}

func TestSendRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", logger.Nop())
	err := c.Send(context.Background(), "tok", "t", "b")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", logger.Nop())
	err := c.Send(context.Background(), "tok", "t", "b")
	assert.Error(t, err)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}
