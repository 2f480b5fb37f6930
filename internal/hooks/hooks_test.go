package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(ts *httptest.Server) *Client {
	c := NewClient(ts.URL)
	c.http = ts.Client()
	c.backoff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return c
}

func TestNewClientURL(t *testing.T) {
	t.Setenv("WARMTH_URL", "")
	assert.Equal(t, defaultServerURL, NewClient("").serverURL)

	t.Setenv("WARMTH_URL", "http://warmth.internal:8080")
	assert.Equal(t, "http://warmth.internal:8080", NewClient("").serverURL)
	assert.Equal(t, "http://explicit", NewClient("http://explicit").serverURL)
}

func TestClientRetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer ts.Close()

	data, err := testClient(ts).Get(context.Background(), "/api/health")
	require.NoError(t, err)
	assert.Contains(t, string(data), "ok")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientGivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := testClient(ts).Get(context.Background(), "/api/modes")
	assert.ErrorIs(t, err, errRetry)
	assert.Equal(t, int32(defaultMaxTries), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid warmth mode"}`))
	}))
	defer ts.Close()

	_, err := testClient(ts).Put(context.Background(), "/api/contacts/c-1/warmth/mode", []byte(`{"mode":"x"}`))
	var se *StatusError
	require.True(t, errors.As(err, &se), "err = %v", err)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Error(), "invalid warmth mode")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHealthy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	c := testClient(ts)
	assert.True(t, c.Healthy(context.Background()))

	ts.Close()
	assert.False(t, c.Healthy(context.Background()))
}

func TestHandleInteraction(t *testing.T) {
	var got struct {
		path   string
		method string
		body   map[string]any
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.method = r.Method
		json.NewDecoder(r.Body).Decode(&got.body)
		json.NewEncoder(w).Encode(map[string]any{"score_after": 72.5})
	}))
	defer ts.Close()

	var out bytes.Buffer
	err := Handle(context.Background(), testClient(ts), "interaction",
		strings.NewReader(`{"contact_id":" c-1 ","kind":"call"}`), &out)
	require.NoError(t, err)

	assert.Equal(t, "POST", got.method)
	assert.Equal(t, "/api/contacts/c-1/interactions", got.path)
	assert.Equal(t, "call", got.body["kind"])
	assert.Contains(t, out.String(), `"score_after": 72.5`)
}

func TestHandleModeAndContact(t *testing.T) {
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()
	c := testClient(ts)

	var out bytes.Buffer
	require.NoError(t, Handle(context.Background(), c, "mode", strings.NewReader(`{"contact_id":"c-1","mode":"fast"}`), &out))
	require.NoError(t, Handle(context.Background(), c, "contact", strings.NewReader(`{"display_name":"Ada","initial_score":80}`), &out))

	assert.Equal(t, []string{
		"PUT /api/contacts/c-1/warmth/mode",
		"POST /api/contacts",
	}, paths)
}

func TestHandleRejectsBadInput(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	var out bytes.Buffer

	tests := []struct {
		event string
		stdin string
	}{
		{"interaction", `not json`},
		{"interaction", `{"kind":"call"}`},
		{"interaction", `{"contact_id":"c-1"}`},
		{"mode", `{"contact_id":"c-1"}`},
		{"gossip", `{"contact_id":"c-1"}`},
	}
	for _, tt := range tests {
		err := Handle(context.Background(), c, tt.event, strings.NewReader(tt.stdin), &out)
		assert.Error(t, err, "%s %s", tt.event, tt.stdin)
	}
	assert.Empty(t, out.String())
}
