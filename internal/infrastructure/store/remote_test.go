package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"recipe-modifier/internal/core/quota"
	"recipe-modifier/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testAPIKey = "test-anon-key-123456"

// fakeRPCServer 模擬託管資料庫的額度 RPC
type fakeRPCServer struct {
	mu      sync.Mutex
	records map[string]remoteRecord
}

func newFakeRPCServer(t *testing.T) *httptest.Server {
	t.Helper()
	f := &fakeRPCServer{records: make(map[string]remoteRecord)}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeRPCServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") != testAPIKey || r.Header.Get("Authorization") != "Bearer "+testAPIKey {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == healthPath {
		w.WriteHeader(http.StatusOK)
		return
	}

	var args struct {
		UserID string `json:"p_user_id"`
		Day    string `json:"p_day"`
		Limit  int    `json:"p_limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case rpcGetUsage:
		rec, ok := f.records[args.UserID]
		if !ok {
			_, _ = w.Write([]byte("null"))
			return
		}
		_ = json.NewEncoder(w).Encode(rec)

	case rpcCheckAndIncrement:
		rec, ok := f.records[args.UserID]
		if !ok || rec.Day != args.Day {
			rec = remoteRecord{UserID: args.UserID, Day: args.Day}
		}
		rec.Limit = args.Limit
		rec.Allowed = rec.Count < args.Limit
		if rec.Allowed {
			rec.Count++
		}
		f.records[args.UserID] = rec
		_ = json.NewEncoder(w).Encode([]remoteRecord{rec})

	default:
		http.NotFound(w, r)
	}
}

func TestRemoteStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func() quota.Store {
		srv := newFakeRPCServer(t)
		return NewRemoteStore(RemoteOptions{BaseURL: srv.URL + "/", APIKey: testAPIKey, Timeout: time.Second})
	}})
}

func TestRemoteStore_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewRemoteStore(RemoteOptions{BaseURL: srv.URL, APIKey: testAPIKey})
	ctx := context.Background()

	_, _, err := store.IncrementIfBelow(ctx, "user-1", "2025-03-14", 5)
	assert.Error(t, err)
	_, _, err = store.Load(ctx, "user-1")
	assert.Error(t, err)
	assert.Error(t, store.Ping(ctx))
}

func TestRemoteStore_WrongKeyRejected(t *testing.T) {
	srv := newFakeRPCServer(t)
	store := NewRemoteStore(RemoteOptions{BaseURL: srv.URL, APIKey: "wrong"})

	_, _, err := store.IncrementIfBelow(context.Background(), "user-1", "2025-03-14", 5)
	assert.Error(t, err)
}

func TestRemoteStore_RetriesOnlyTransientStatuses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"unauthorized", http.StatusUnauthorized, 1},
		{"not found", http.StatusNotFound, 1},
		{"bad request", http.StatusBadRequest, 1},
		{"too many requests", http.StatusTooManyRequests, 4},
		{"request timeout", http.StatusRequestTimeout, 4},
		{"service unavailable", http.StatusServiceUnavailable, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				http.Error(w, `{"message":"rejected"}`, tt.status)
			}))
			defer srv.Close()

			store := NewRemoteStore(RemoteOptions{BaseURL: srv.URL, APIKey: testAPIKey, Timeout: time.Second})
			tracker, err := quota.NewTracker(store, 5, quota.WithRetryPolicy(quota.RetryPolicy{
				MaxRetries:      3,
				InitialInterval: time.Millisecond,
				MaxInterval:     2 * time.Millisecond,
				AttemptTimeout:  time.Second,
			}))
			require.NoError(t, err)

			_, err = tracker.CheckAndIncrement(context.Background(), "user-1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrQuotaStoreUnavailable))
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestRemoteStore_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	store := NewRemoteStore(RemoteOptions{BaseURL: srv.URL, APIKey: testAPIKey, Timeout: 20 * time.Millisecond})
	_, _, err := store.IncrementIfBelow(context.Background(), "user-1", "2025-03-14", 5)
	assert.Error(t, err)
}

func TestDecodeRemoteRecord(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		found bool
		count int
	}{
		{"null", "null", false, 0},
		{"empty", "", false, 0},
		{"empty array", "[ ]", false, 0},
		{"object", `{"day":"2025-03-14","count":2,"limit":5}`, true, 2},
		{"array", `[{"day":"2025-03-14","count":3,"limit":5,"allowed":true}]`, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, found, err := decodeRemoteRecord([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.count, rec.Count)
		})
	}

	_, _, err := decodeRemoteRecord([]byte(`{"count":`))
	assert.Error(t, err)
}
