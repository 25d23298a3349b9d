package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "github.com/avlasov/WatchSync/internal/adapters/http"
	"github.com/avlasov/WatchSync/internal/app"
	"github.com/avlasov/WatchSync/internal/config"
	"github.com/avlasov/WatchSync/internal/core"
)

func newTestRouter(t *testing.T) (*gin.Engine, core.RoomRegistry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Mode:            "release",
		Secret:          "test-secret",
		BufferSize:      8,
		ReadLimit:       4096,
		KeepalivePeriod: time.Second,
	}
	rooms := core.NewRegistry(core.Options{})
	ingest := &app.Ingest{Rooms: rooms, Policy: app.DropPolicy{}}
	return router.SetupRouter(context.Background(), cfg, ingest, rooms), rooms
}

func postEvent(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodPost, "/api/event", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitEventAndSnapshot(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postEvent(t, r, `{"room":"r1","type":"presence","payload":{"action":"join","isHost":true,"name":"Alice"},"sender":"u1"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/state?room=r1", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var snap core.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "u1", snap.HostID)
	assert.Equal(t, []string{"Alice"}, snap.Members)
	assert.Nil(t, snap.LastPlayback)
}

func TestSubmitMalformedBody(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postEvent(t, r, `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestSubmitWithoutSenderFallsBackToClientToken(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postEvent(t, r, `{"room":"r1","type":"presence","payload":{"action":"join","name":"Anon"}}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/state?room=r1", nil)
	r.ServeHTTP(w, req)

	var snap core.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.NotEmpty(t, snap.HostID, "cookie identity should have been used as sender")
	assert.Equal(t, []string{"Anon"}, snap.Members)
}

func TestSnapshotOfUnknownRoomIsEmpty(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/state?room=never-seen", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var snap core.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Empty(t, snap.HostID)
	assert.Nil(t, snap.LastPlayback)
	assert.Empty(t, snap.Members)
}

func TestHealthProbe(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestMethodNotAllowedAdvertisesOperations(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/event", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "POST /api/event")
	assert.Contains(t, w.Body.String(), "GET /api/stream")
}

func TestRoomsListing(t *testing.T) {
	r, _ := newTestRouter(t)
	postEvent(t, r, `{"room":"r1","type":"presence","payload":{"action":"join","name":"Alice"},"sender":"u1"}`)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/rooms", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var infos []core.RoomInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "r1", string(infos[0].ID))
	assert.Equal(t, 1, infos[0].Members)
}

func TestStreamSendsSnapshotThenEvents(t *testing.T) {
	r, _ := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream?room=sse-room", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	frame, err := readFrame(reader)
	require.NoError(t, err)
	assert.Contains(t, frame, "event:snapshot")
	assert.Contains(t, frame, `"members":[]`)

	// An event submitted after attach must arrive on the stream.
	body := `{"room":"sse-room","type":"presence","payload":{"action":"join","isHost":true,"name":"Alice"},"sender":"u1"}`
	postResp, err := http.Post(srv.URL+"/api/event", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	postResp.Body.Close()
	require.Equal(t, http.StatusAccepted, postResp.StatusCode)

	frame, err = readFrame(reader)
	require.NoError(t, err)
	assert.Contains(t, frame, `"type":"presence"`)
	assert.Contains(t, frame, `"sender":"u1"`)
}

// readFrame consumes one SSE frame (lines up to a blank separator),
// skipping keepalive comments.
func readFrame(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return sb.String(), err
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if line == "\n" {
			if sb.Len() > 0 {
				return sb.String(), nil
			}
			continue
		}
		sb.WriteString(line)
	}
}

func TestWebsocketSubscription(t *testing.T) {
	r, _ := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?room=ws-room"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"snapshot"`)

	body := `{"room":"ws-room","type":"playback","payload":{"state":"play","time":3},"sender":"u1"}`
	postResp, err := http.Post(srv.URL+"/api/event", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	postResp.Body.Close()

	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"playback"`)
}
