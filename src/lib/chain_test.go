package lib

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChainClient(baseURL string) *httpChainClient {
	return &httpChainClient{
		baseURL:      baseURL,
		hc:           &http.Client{Timeout: time.Second},
		pollInterval: time.Millisecond,
		waitLimit:    50 * time.Millisecond,
	}
}

func TestWaitForConfirmationReturnsReceipt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			fmt.Fprint(w, `{"status":"pending"}`)
			return
		}
		fmt.Fprint(w, `{"status":"confirmed","receipt":{"token_id":42000001,"tx_hash":"0xfeed","contract":"0xc0ffee"}}`)
	}))
	defer srv.Close()

	receipt, err := newTestChainClient(srv.URL).WaitForConfirmation(context.Background(), "0xfeed")
	require.NoError(t, err)
	assert.EqualValues(t, 42000001, receipt.TokenID)
	assert.Equal(t, "0xc0ffee", receipt.Contract)
	assert.Equal(t, 3, calls)
}

func TestWaitForConfirmationRevertedTx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"reverted"}`)
	}))
	defer srv.Close()

	_, err := newTestChainClient(srv.URL).WaitForConfirmation(context.Background(), "0xdead")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverted")
}

func TestWaitForConfirmationBoundsBackgroundContext(t *testing.T) {
	// A minter that never settles on a terminal status must not hold a
	// deadline-free caller hostage.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"propagating"}`)
	}))
	defer srv.Close()

	start := time.Now()
	_, err := newTestChainClient(srv.URL).WaitForConfirmation(context.Background(), "0xdead")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSimulateSurfacesRevertReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"revert_reason":"tier supply exhausted"}`)
	}))
	defer srv.Close()

	err := newTestChainClient(srv.URL).Simulate(context.Background(), &MintArgs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier supply exhausted")
}
