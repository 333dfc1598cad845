package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/light-verifier/libs/log"
)

func TestListen(t *testing.T) {
	_, err := Listen("127.0.0.1:0", 0)
	assert.Error(t, err, "address without a protocol")

	_, err = Listen("tcp://256.0.0.1:0", 0)
	assert.Error(t, err)

	l, err := Listen("tcp://127.0.0.1:0", 1)
	require.NoError(t, err)
	require.NoError(t, l.Close())
}

func TestMaxOpenConnections(t *testing.T) {
	defer leaktest.Check(t)()

	const maxConns = 5

	// Start the server.
	var open int32
	var mu sync.Mutex
	var peak int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		open++
		if open > peak {
			peak = open
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		open--
		mu.Unlock()
		fmt.Fprint(w, "some body")
	})
	l, err := Listen("tcp://127.0.0.1:0", maxConns)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, l, mux, log.NewNopLogger(), DefaultConfig()) }()

	// Make N GET calls to the server.
	attempts := maxConns * 2
	var wg sync.WaitGroup
	var failed int32
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := client.Get("http://" + l.Addr().String())
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			_, _ = io.Copy(io.Discard, r.Body)
			r.Body.Close()
		}()
	}
	wg.Wait()
	client.CloseIdleConnections()

	cancel()
	require.NoError(t, <-done)

	assert.Zero(t, failed)
	assert.LessOrEqual(t, peak, int32(maxConns))
}

func TestRecoverAndLogHandler(t *testing.T) {
	testCases := map[string]struct {
		handler   http.HandlerFunc
		requestID string
		code      int
	}{
		"ok": {
			handler: func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, struct{}{}) },
			code:    http.StatusOK,
		},
		"keeps the caller's request id": {
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusAccepted) },
			requestID: "abc",
			code:      http.StatusAccepted,
		},
		"panic": {
			handler: func(w http.ResponseWriter, r *http.Request) { panic("boom") },
			code:    http.StatusInternalServerError,
		},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.requestID != "" {
				req.Header.Set(RequestIDHeader, tc.requestID)
			}
			rec := httptest.NewRecorder()
			RecoverAndLogHandler(tc.handler, log.NewTestingLogger(t)).ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
			id := rec.Header().Get(RequestIDHeader)
			if tc.requestID != "" {
				assert.Equal(t, tc.requestID, id)
			} else {
				assert.Len(t, id, 36)
			}
		})
	}
}

func TestRecoverAndLogHandlerPanicBody(t *testing.T) {
	h := RecoverAndLogHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(fmt.Errorf("handler failed"))
	}), log.NewNopLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var res errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Contains(t, res.Error, "handler failed")
}

func TestServeListenerClosed(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	err = Serve(context.Background(), l, http.NotFoundHandler(), log.NewNopLogger(), DefaultConfig())
	assert.Error(t, err)
}
