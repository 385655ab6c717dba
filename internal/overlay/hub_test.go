package overlay

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/net/websocket"

	"github.com/rvasily/squadvoice/internal/pipeline"
	"github.com/rvasily/squadvoice/pkg/logger"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestHubBroadcastsToClients(t *testing.T) {
	hub := NewHub(logger.Nop())
	defer hub.Close()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ws := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Show(pipeline.Message{
		Channel: "game",
		Text:    "I'm pushing them",
	})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var raw string
	require.NoError(t, websocket.Message.Receive(ws, &raw))

	var env struct {
		Type string           `json:"type"`
		Data pipeline.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, "translation", env.Type)
	assert.Equal(t, "game", env.Data.Channel)
	assert.Equal(t, "I'm pushing them", env.Data.Text)
}

func TestHubShowWithoutClientsIsNoop(t *testing.T) {
	hub := NewHub(logger.Nop())
	defer hub.Close()

	// Must not block or panic with nobody listening.
	hub.Show(pipeline.Message{Channel: "game", Text: "hello"})
	assert.Equal(t, 0, hub.Clients())
}

func TestHubDropsClientOnClose(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ws := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 },
		2*time.Second, 10*time.Millisecond)

	ws.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 },
		2*time.Second, 10*time.Millisecond)

	hub.Close()
}

func TestHubCloseRefusesNewClients(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, err := websocket.Dial(url, "", srv.URL)
	if err != nil {
		return // handshake refused outright is fine too
	}
	defer ws.Close()

	// The server side hangs up immediately.
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var raw string
	assert.Error(t, websocket.Message.Receive(ws, &raw))
}
