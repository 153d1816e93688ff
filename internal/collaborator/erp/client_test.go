package erp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
)

func TestNewClient_RejectsInvalidURL(t *testing.T) {
	for _, endpoint := range []string{"", "not a url", "ftp://erp.local/orders", "/relative/path"} {
		_, err := NewClient(endpoint)
		require.Error(t, err, "endpoint %q", endpoint)
	}
}

func TestClient_CreateOrderPostsPayload(t *testing.T) {
	var (
		gotMethod  string
		gotBody    []byte
		gotOrderID string
		gotType    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotOrderID = r.Header.Get(HeaderOrderID)
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api/orders/create")
	require.NoError(t, err)

	payload := []byte(`{"order_id":"X1","status":"ACTIVE"}`)
	require.NoError(t, client.CreateOrder(context.Background(), "X1", payload))

	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "X1", gotOrderID)
	require.Equal(t, "application/json", gotType)
	require.Equal(t, payload, gotBody)
}

func TestClient_ResponseStatusIsNotInspected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("erp exploded"))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, client.CreateOrder(context.Background(), "X1", []byte("{}")))
}

func TestClient_TransportFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client, err := NewClient(endpoint)
	require.NoError(t, err)

	err = client.CreateOrder(context.Background(), "X1", []byte("{}"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "erp create order")
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client, err := NewClient(srv.URL, WithTimeout(30*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	err = client.CreateOrder(context.Background(), "X1", []byte("{}"))
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_CircuitBreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	failing := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		hits.Add(1)
		return nil, errors.New("connection refused")
	})}

	client, err := NewClient("http://erp.local/orders",
		WithHTTPClient(failing),
		WithCircuitBreaker(2, time.Minute),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.Error(t, client.CreateOrder(ctx, "o-1", nil))
	require.Error(t, client.CreateOrder(ctx, "o-2", nil))

	err = client.CreateOrder(ctx, "o-3", nil)
	require.ErrorIs(t, err, domain.ErrCollaboratorUnavailable)
	require.Equal(t, int32(2), hits.Load(), "open breaker must not hit the network")
}

func TestNoop(t *testing.T) {
	require.NoError(t, Noop{}.CreateOrder(context.Background(), "X1", nil))
}

func TestMock(t *testing.T) {
	mock := NewMock()
	require.NoError(t, mock.CreateOrder(context.Background(), "o-1", []byte("a")))

	mock.SetCreateErr(errors.New("erp down"))
	require.Error(t, mock.CreateOrder(context.Background(), "o-2", []byte("b")))

	calls := mock.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, "o-1", calls[0].OrderID)
	require.Equal(t, []byte("b"), calls[1].Payload)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
