package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReadiness(t *testing.T) {
	t.Run("ready when every check passes", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("postgres", func(context.Context) error { return nil })

		w := serve(t, h, "/health/ready")
		require.Equal(t, http.StatusOK, w.Code)

		var body ReadinessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, "up", body.Checks["postgres"].Status)
		assert.Empty(t, body.Failed)
	})

	t.Run("not ready when a check fails", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("postgres", func(context.Context) error { return nil })
		h.RegisterCheck("kafka", func(context.Context) error { return errors.New("no brokers") })

		w := serve(t, h, "/health/ready")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body ReadinessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "down", body.Checks["kafka"].Status)
		assert.Equal(t, "no brokers", body.Checks["kafka"].Error)
		assert.Equal(t, []string{"kafka"}, body.Failed)
	})

	t.Run("checks receive a deadline", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("redis", func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		})
		assert.Equal(t, http.StatusOK, serve(t, h, "/health/ready").Code)
	})

	t.Run("checks run concurrently", func(t *testing.T) {
		h := New("test")
		h.checkTimeout = time.Second
		release := make(chan struct{})
		var arrived sync.WaitGroup
		arrived.Add(2)
		for _, name := range []string{"postgres", "redis"} {
			h.RegisterCheck(name, func(ctx context.Context) error {
				arrived.Done()
				select {
				case <-release:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}
		go func() {
			arrived.Wait()
			close(release)
		}()
		assert.Equal(t, http.StatusOK, serve(t, h, "/health/ready").Code)
	})

	t.Run("slow check times out", func(t *testing.T) {
		h := New("test")
		h.checkTimeout = 10 * time.Millisecond
		h.RegisterCheck("kafka", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, "/health/ready").Code)
	})
}

func TestStatus_ReportsIndexLag(t *testing.T) {
	h := New("development")
	h.SetIndexCursor(func() uint64 { return 42 })
	h.SetFeedHead(func(context.Context) (uint64, error) { return 45, nil })

	w := serve(t, h, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "development", body.Environment)
	assert.EqualValues(t, 42, body.IndexCursor)
	assert.EqualValues(t, 45, body.FeedSequence)
	assert.EqualValues(t, 3, body.IndexLag)
}

func TestStatus_FeedHeadErrorIsOmitted(t *testing.T) {
	h := New("test")
	h.SetIndexCursor(func() uint64 { return 7 })
	h.SetFeedHead(func(context.Context) (uint64, error) { return 0, errors.New("store down") })

	w := serve(t, h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var body StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Zero(t, body.FeedSequence)
	assert.Zero(t, body.IndexLag)
}

func TestLiveness(t *testing.T) {
	w := serve(t, New("test"), "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}
