package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/lazypower/warmth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

func provisionContact(t *testing.T, srv *Server, body string) string {
	t.Helper()
	w, resp := do(t, srv, "POST", "/api/contacts", body)
	require.Equal(t, http.StatusCreated, w.Code, "body: %v", resp)
	return resp["id"].(string)
}

func TestProvisionContact(t *testing.T) {
	srv, _ := testServer(t)

	w, resp := do(t, srv, "POST", "/api/contacts", `{"display_name":"Ada"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, resp["id"], 36)
	assert.Equal(t, "Ada", resp["display_name"])
	assert.Equal(t, "medium", resp["mode"])
	assert.Equal(t, 100.0, resp["score"])
	assert.Equal(t, "hot", resp["band"])

	w, _ = do(t, srv, "POST", "/api/contacts", `{"id":"c-1","mode":"slow","initial_score":55}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = do(t, srv, "POST", "/api/contacts", `{"id":"c-1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, srv, "POST", "/api/contacts", `{"mode":"glacial"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, srv, "POST", "/api/contacts", `{"initial_score":101}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, srv, "POST", "/api/contacts", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReadWarmth(t *testing.T) {
	srv, clk := testServer(t)
	id := provisionContact(t, srv, `{"id":"c-1","mode":"medium"}`)

	w, resp := do(t, srv, "GET", "/api/contacts/"+id+"/warmth", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100.0, resp["score"])
	assert.Equal(t, "hot", resp["band"])
	assert.Equal(t, "medium", resp["mode"])
	assert.Equal(t, true, resp["cached"])
	assert.Equal(t, t0.Format(time.RFC3339), resp["cached_at"])

	clk.Advance(14 * day)
	w, resp = do(t, srv, "GET", "/api/contacts/"+id+"/warmth", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 30, resp["score"], 2)
	assert.Equal(t, "cool", resp["band"])
	assert.Equal(t, false, resp["cached"])

	w, _ = do(t, srv, "GET", "/api/contacts/nobody/warmth", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSwitchModeEndpoint(t *testing.T) {
	srv, clk := testServer(t)
	id := provisionContact(t, srv, `{"id":"c-1","mode":"medium"}`)
	clk.Advance(7 * day)

	w, resp := do(t, srv, "PUT", "/api/contacts/"+id+"/warmth/mode", `{"mode":"fast"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "medium", resp["mode_before"])
	assert.Equal(t, "fast", resp["mode_after"])
	assert.InDelta(t, resp["score_before"], resp["score_after"], 0.01)
	assert.InDelta(t, 58, resp["score_after"], 4)
	assert.Equal(t, "neutral", resp["band_after"])
	assert.Equal(t, true, resp["changed"])

	// Reading right after the switch shows the same score, not a reset.
	w, read := do(t, srv, "GET", "/api/contacts/"+id+"/warmth", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, resp["score_after"], read["score"], 0.01)
	assert.Equal(t, "fast", read["mode"])

	w, _ = do(t, srv, "PUT", "/api/contacts/"+id+"/warmth/mode", `{"mode":"glacial"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, srv, "PUT", "/api/contacts/nobody/warmth/mode", `{"mode":"slow"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTestModeDisabled(t *testing.T) {
	srv, _ := testServer(t, func(c *config.WarmthConfig) { c.AllowTestMode = false })
	id := provisionContact(t, srv, `{"id":"c-1"}`)

	w, resp := do(t, srv, "PUT", "/api/contacts/"+id+"/warmth/mode", `{"mode":"test"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp["error"], "invalid warmth mode")
}

func TestInteractionEndpoint(t *testing.T) {
	srv, clk := testServer(t)
	id := provisionContact(t, srv, `{"id":"c-1","mode":"fast","initial_score":40}`)
	clk.Advance(time.Hour)

	w, resp := do(t, srv, "POST", "/api/contacts/"+id+"/interactions", `{"kind":"meeting"}`)
	require.Equal(t, http.StatusOK, w.Code)
	before := resp["score_before"].(float64)
	assert.InDelta(t, before+0.5*(100-before), resp["score_after"], 1e-9)
	assert.Equal(t, "fast", resp["mode"])

	w, resp = do(t, srv, "POST", "/api/contacts/"+id+"/interactions", `{"kind":"message","points":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, resp["score_before"].(float64)+5, resp["score_after"], 1e-9)

	w, _ = do(t, srv, "POST", "/api/contacts/"+id+"/interactions", `{"kind":"carrier pigeon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, srv, "POST", "/api/contacts/nobody/interactions", `{"kind":"call"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	srv, clk := testServer(t)
	id := provisionContact(t, srv, `{"id":"c-1","mode":"medium"}`)
	clk.Advance(3 * day)
	do(t, srv, "POST", "/api/contacts/"+id+"/interactions", `{"kind":"call"}`)
	clk.Advance(4 * day)

	w, resp := do(t, srv, "GET", "/api/contacts/"+id+"/warmth/history?window=30d", "")
	require.Equal(t, http.StatusOK, w.Code)
	points := resp["points"].([]any)
	require.Len(t, points, 8)

	first := points[0].(map[string]any)
	assert.Equal(t, "provision", first["source"])
	assert.Equal(t, "hot", first["band"])
	assert.Equal(t, t0.Format(time.RFC3339Nano), first["timestamp"])

	third := points[3].(map[string]any)
	assert.Equal(t, "interaction", third["source"])

	w, resp = do(t, srv, "GET", "/api/contacts/"+id+"/warmth/history?start=2026-03-02T09:00:00Z&end=2026-03-03T09:00:00Z&step=6h", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["points"], 5)

	w, _ = do(t, srv, "GET", "/api/contacts/"+id+"/warmth/history?window=soon", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, srv, "GET", "/api/contacts/"+id+"/warmth/history?window=30d&step=1m", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, srv, "GET", "/api/contacts/nobody/warmth/history", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteContactEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	id := provisionContact(t, srv, `{"id":"c-1"}`)

	w, _ := do(t, srv, "DELETE", "/api/contacts/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = do(t, srv, "GET", "/api/contacts/"+id+"/warmth", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, srv, "DELETE", "/api/contacts/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
