package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopSleep is a sleepFunc that returns immediately.
func noopSleep(_ context.Context, _ time.Duration) error {
	return nil
}

func newTestService(t *testing.T, cfg Config, exec Executor) *Service {
	t.Helper()

	s := NewService(http.DefaultClient, cfg, exec, slog.Default())
	s.sleepFunc = noopSleep

	return s
}

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "true", r.URL.Query().Get("tenantDetails"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"workspaces":[{"id":"ws1"}]}`)
	}))
	defer srv.Close()

	s := newTestService(t, Config{}, nil)

	var out map[string]any
	err := s.Get(context.Background(), srv.URL+"/workspaces", map[string][]string{"tenantDetails": {"true"}}, &out)
	require.NoError(t, err)
	assert.Contains(t, out, "workspaces")
}

func TestPost_SetsJSONContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, contentTypeJSON, r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "en_US", body["localeName"])

		fmt.Fprint(w, `{"task":{"taskId":"T1"}}`)
	}))
	defer srv.Close()

	s := newTestService(t, Config{}, nil)

	var out struct {
		Task struct {
			TaskID string `json:"taskId"`
		} `json:"task"`
	}
	require.NoError(t, s.Post(context.Background(), srv.URL, map[string]string{"localeName": "en_US"}, &out))
	assert.Equal(t, "T1", out.Task.TaskID)
}

func TestPut_EmptyResponseLeavesTargetUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := newTestService(t, Config{}, nil)

	out := map[string]any{}
	require.NoError(t, s.Put(context.Background(), srv.URL, map[string]string{"status": "online"}, &out))
	assert.Empty(t, out)
}

func TestPutBinaryGzip_CompressesBody(t *testing.T) {
	payload := []byte("code,name\n1,alpha\n2,beta\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, contentTypeGzip, r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, gunzip(t, body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := newTestService(t, Config{}, nil)
	require.NoError(t, s.PutBinaryGzip(context.Background(), srv.URL, payload))
}

func TestDo_RetryPolicy(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		statuses   []int
		wantCalls  int32
		wantErr    error
	}{
		{"success first try", 2, []int{200}, 1, nil},
		{"server error then success", 2, []int{500, 200}, 2, nil},
		{"server error exhausts retries", 2, []int{500, 500}, 2, ErrRemote},
		{"404 fails immediately", 3, []int{404}, 1, ErrInvalidIdentifier},
		{"429 then success", 3, []int{429, 200}, 2, nil},
		{"429 on last attempt", 2, []int{429, 429}, 2, ErrRateLimitExceeded},
		{"zero retry count still tries once", 0, []int{500}, 1, ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := int(calls.Add(1)) - 1
				status := tt.statuses[min(n, len(tt.statuses)-1)]
				w.WriteHeader(status)
				fmt.Fprint(w, `{"status":`+strconv.Itoa(status)+`}`)
			}))
			defer srv.Close()

			s := newTestService(t, Config{RetryCount: tt.retryCount}, nil)

			var out map[string]any
			err := s.Get(context.Background(), srv.URL, nil, &out)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestDo_RemoteErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "bad mapping")
	}))
	defer srv.Close()

	s := newTestService(t, Config{RetryCount: 1}, nil)
	err := s.Get(context.Background(), srv.URL, nil, nil)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusBadRequest, remote.StatusCode)
	assert.Equal(t, "bad mapping", remote.Body)
}

func TestDo_RateLimitBackoffSchedule(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	s := newTestService(t, Config{RetryCount: 3, Backoff: 2 * time.Second, BackoffFactor: 3}, nil)

	var mu sync.Mutex
	var sleeps []time.Duration
	s.sleepFunc = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		sleeps = append(sleeps, d)

		return nil
	}

	require.NoError(t, s.Get(context.Background(), srv.URL, nil, nil))
	assert.Equal(t, []time.Duration{2 * time.Second, 6 * time.Second}, sleeps)
}

func TestDo_RetryAfterHeaderExtendsBackoff(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "10")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	s := newTestService(t, Config{RetryCount: 2, Backoff: time.Second}, nil)

	var got time.Duration
	s.sleepFunc = func(_ context.Context, d time.Duration) error {
		got = d
		return nil
	}

	require.NoError(t, s.Get(context.Background(), srv.URL, nil, nil))
	assert.Equal(t, 10*time.Second, got)
}

func TestDo_TimeoutIsTerminal(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	s := NewService(&http.Client{Timeout: 20 * time.Millisecond}, Config{RetryCount: 3}, nil, nil)
	s.sleepFunc = noopSleep

	err := s.Get(context.Background(), srv.URL, nil, nil)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_TransportErrorExhaustsToGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := newTestService(t, Config{RetryCount: 2}, nil)

	err := s.Get(context.Background(), url, nil, nil)
	require.ErrorIs(t, err, ErrGeneric)
}

func TestDo_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := newTestService(t, Config{RetryCount: 3}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.sleepFunc = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := s.Get(ctx, srv.URL, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewService_CapsPageSize(t *testing.T) {
	s := NewService(nil, Config{PageSize: 20_000}, nil, nil)
	assert.Equal(t, MaxPageSize, s.pageSize)

	s = NewService(nil, Config{PageSize: 100}, nil, nil)
	assert.Equal(t, 100, s.pageSize)
}

func TestWithParams_MergesExistingQuery(t *testing.T) {
	got, err := withParams("https://api.example.com/lineItems?includeAll=true", map[string][]string{"limit": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/lineItems?includeAll=true&limit=10", got)
}
