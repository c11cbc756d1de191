package store_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/comm0ns/engage/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueryReturnsRows(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotKey, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"user_id": 101, "username": "haru"}, {"user_id": 202}]`))
	}))
	defer server.Close()

	client := store.NewClient(server.URL, "secret", time.Second, zap.NewNop())
	rows, err := client.Query(context.Background(), "users",
		"select=user_id,username", "order=current_score.desc")
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "haru", rows[0]["username"])
	assert.Equal(t, float64(101), rows[0]["user_id"])

	assert.Equal(t, "/rest/v1/users", gotPath)
	assert.Equal(t, "select=user_id,username&order=current_score.desc", gotQuery)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestQueryEmptyTable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := store.NewClient(server.URL, "secret", time.Second, zap.NewNop())
	rows, err := client.Query(context.Background(), "votes")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueryMissingTable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "relation does not exist", http.StatusNotFound)
	}))
	defer server.Close()

	client := store.NewClient(server.URL, "secret", time.Second, zap.NewNop())
	rows, err := client.Query(context.Background(), "issues")

	require.ErrorIs(t, err, store.ErrTableUnavailable)
	assert.Nil(t, rows)
	assert.Equal(t, int32(1), calls.Load(), "schema errors are not retried")
}

func TestQueryRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"channel_id": 10, "name": "dev"}]`))
	}))
	defer server.Close()

	client := store.NewClient(server.URL, "secret", time.Second, zap.NewNop())
	rows, err := client.Query(context.Background(), "channels")

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestQueryMalformedBody(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"not": "an array"`))
	}))
	defer server.Close()

	client := store.NewClient(server.URL, "secret", time.Second, zap.NewNop())
	_, err := client.Query(context.Background(), "users")

	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrTableUnavailable)
	assert.Equal(t, int32(1), calls.Load(), "decode failures are not retried")
}

func TestUpdateSendsPartialUpdate(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath, gotQuery, gotBody, gotPrefer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotPrefer = r.Header.Get("Prefer")

		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := store.NewClient(server.URL, "secret", time.Second, zap.NewNop())
	err := client.Update(context.Background(), "users",
		`{"weekly_score": 0}`, "weekly_score=gt.0")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/rest/v1/users", gotPath)
	assert.Equal(t, "weekly_score=gt.0", gotQuery)
	assert.Equal(t, `{"weekly_score": 0}`, gotBody)
	assert.Equal(t, "return=minimal", gotPrefer)
}

func TestUpdateMissingTable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "relation does not exist", http.StatusNotFound)
	}))
	defer server.Close()

	client := store.NewClient(server.URL, "secret", time.Second, zap.NewNop())
	err := client.Update(context.Background(), "users", `{"weekly_score": 0}`)

	require.ErrorIs(t, err, store.ErrTableUnavailable)
	assert.Equal(t, int32(1), calls.Load(), "schema errors are not retried")
}

func TestQueryHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "try again", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	client := store.NewClient(server.URL, "secret", time.Second, zap.NewNop())
	start := time.Now()
	_, err := client.Query(ctx, "users")

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "retries stop once the context expires")
}
