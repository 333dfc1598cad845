package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/light-verifier/config"
	"github.com/tendermint/light-verifier/libs/log"
	tmmath "github.com/tendermint/light-verifier/libs/math"
	"github.com/tendermint/light-verifier/light"
)

var fixtureNow = time.Date(1970, 1, 1, 0, 0, 5, 0, time.UTC)

func fixtureOptions() light.Options {
	return light.Options{
		TrustThreshold: tmmath.Fraction{Numerator: 1, Denominator: 3},
		TrustingPeriod: 1209600 * time.Second,
		MaxClockDrift:  5 * time.Second,
	}
}

func readFixture(t *testing.T, name string) json.RawMessage {
	t.Helper()

	bz, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return bz
}

func testEnvironment(t *testing.T) *Environment {
	t.Helper()

	logger := log.NewTestingLogger(t)
	return &Environment{
		Verifier: light.NewVerifier(light.Logger(logger)),
		Logger:   logger,
		Options:  fixtureOptions(),
		Now:      func() time.Time { return fixtureNow },
	}
}

func verifyBody(t *testing.T, req VerifyRequest) io.Reader {
	t.Helper()

	bz, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewReader(bz)
}

func decodeVerdict(t *testing.T, rec *httptest.ResponseRecorder) light.Verdict {
	t.Helper()

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var verdict light.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verdict))
	return verdict
}

func TestVerifyHandler(t *testing.T) {
	var (
		untrusted = readFixture(t, "untrusted_block.json")
		trusted   = readFixture(t, "trusted_block.json")
		opts      = fixtureOptions()
		expiredAt = time.Date(1970, 1, 20, 0, 0, 0, 0, time.UTC)
		lowTrust  = light.Options{
			TrustThreshold: tmmath.Fraction{Numerator: 1, Denominator: 4},
			TrustingPeriod: time.Hour,
		}
	)

	testCases := []struct {
		name string
		req  VerifyRequest
		kind light.Kind
	}{
		{"server defaults", VerifyRequest{Untrusted: untrusted, Trusted: trusted}, light.Success},
		{
			"explicit options and now",
			VerifyRequest{Untrusted: untrusted, Trusted: trusted, Options: &opts, Now: &fixtureNow},
			light.Success,
		},
		{"expired", VerifyRequest{Untrusted: untrusted, Trusted: trusted, Now: &expiredAt}, light.Expired},
		{"swapped", VerifyRequest{Untrusted: trusted, Trusted: untrusted}, light.NonMonotonic},
		{"trust level below a third", VerifyRequest{Untrusted: untrusted, Trusted: trusted, Options: &lowTrust}, light.SchemaError},
		{"missing untrusted", VerifyRequest{Trusted: trusted}, light.SchemaError},
		{"null trusted", VerifyRequest{Untrusted: untrusted, Trusted: json.RawMessage("null")}, light.SchemaError},
	}

	handler := testEnvironment(t).Handler(config.TestConfig())
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify", verifyBody(t, tc.req)))

			verdict := decodeVerdict(t, rec)
			assert.Equal(t, tc.kind, verdict.Kind, verdict.Reason)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestVerifyHandlerBadRequests(t *testing.T) {
	untrusted := readFixture(t, "untrusted_block.json")

	testCases := map[string]struct {
		method string
		body   string
		code   int
	}{
		"not json":             {http.MethodPost, "{", http.StatusBadRequest},
		"wrong type":           {http.MethodPost, `{"untrusted":1}`, http.StatusBadRequest},
		"malformed block":      {http.MethodPost, `{"untrusted":{"signed_header":{"header":{"height":"x"}}}}`, http.StatusBadRequest},
		"malformed options":    {http.MethodPost, fmt.Sprintf(`{"untrusted":%s,"options":{"trust_threshold":"1/3"}}`, untrusted), http.StatusBadRequest},
		"get":                  {http.MethodGet, "", http.StatusMethodNotAllowed},
		"put with a good body": {http.MethodPut, fmt.Sprintf(`{"untrusted":%s}`, untrusted), http.StatusMethodNotAllowed},
	}

	handler := testEnvironment(t).Handler(config.TestConfig())
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, "/verify", strings.NewReader(tc.body)))

			require.Equal(t, tc.code, rec.Code, rec.Body.String())
			var res errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestVerifyHandlerBodyTooLarge(t *testing.T) {
	env := testEnvironment(t)
	handler := maxBytesHandler{h: env.Handler(config.TestConfig()), n: 16}

	body := verifyBody(t, VerifyRequest{Untrusted: readFixture(t, "untrusted_block.json")})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify", body))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestVerifyHandlerAborted(t *testing.T) {
	env := testEnvironment(t)

	body := verifyBody(t, VerifyRequest{
		Untrusted: readFixture(t, "untrusted_block.json"),
		Trusted:   readFixture(t, "trusted_block.json"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	env.Handler(config.TestConfig()).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/verify", body).WithContext(ctx))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	env := testEnvironment(t)

	conf := config.TestConfig()
	rec := httptest.NewRecorder()
	env.Handler(conf).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	env.Handler(conf).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	conf.Instrumentation.Prometheus = true
	rec = httptest.NewRecorder()
	env.Handler(conf).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestHandlerCors(t *testing.T) {
	env := testEnvironment(t)
	conf := config.TestConfig()
	conf.RPC.CORSAllowedOrigins = []string{"https://example.com"}

	req := httptest.NewRequest(http.MethodOptions, "/verify", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.Handler(conf).ServeHTTP(rec, req)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://attacker.example")
	rec = httptest.NewRecorder()
	env.Handler(conf).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewEnvironment(t *testing.T) {
	conf := config.TestConfig()
	env, err := NewEnvironment(conf, light.NewVerifier(), log.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, light.DefaultOptions(), env.Options)
	assert.Equal(t, conf.RPC.RequestTimeout, env.RequestTimeout)

	conf.Verifier.TrustLevel = "1/4"
	_, err = NewEnvironment(conf, light.NewVerifier(), log.NewNopLogger())
	assert.Error(t, err)
}

func TestStartService(t *testing.T) {
	defer leaktest.Check(t)()

	env := testEnvironment(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, done, err := env.StartService(ctx, config.TestConfig())
	require.NoError(t, err)

	client := &http.Client{Transport: &http.Transport{}}
	defer client.CloseIdleConnections()

	body := verifyBody(t, VerifyRequest{
		Untrusted: readFixture(t, "untrusted_block.json"),
		Trusted:   readFixture(t, "trusted_block.json"),
	})
	res, err := client.Post(fmt.Sprintf("http://%s/verify", listener.Addr()), "application/json", body)
	require.NoError(t, err)
	bz, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())

	require.Equal(t, http.StatusOK, res.StatusCode, string(bz))
	assert.NotEmpty(t, res.Header.Get(RequestIDHeader))
	var verdict light.Verdict
	require.NoError(t, json.Unmarshal(bz, &verdict))
	assert.True(t, verdict.OK(), verdict.Reason)

	client.CloseIdleConnections()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartServiceBadAddress(t *testing.T) {
	conf := config.TestConfig()
	conf.RPC.ListenAddress = "127.0.0.1:0"

	_, _, err := testEnvironment(t).StartService(context.Background(), conf)
	assert.Error(t, err)
}
