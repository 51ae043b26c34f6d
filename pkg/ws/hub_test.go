package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHubSendWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	require.False(t, hub.Send("user-1", []byte("hi")))
	require.False(t, hub.Send("", []byte("hi")))
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub(nil)
	c := NewClient("user-1", nil)
	hub.Register(c)
	require.Equal(t, 1, hub.Connections("user-1"))

	delivered, err := hub.SendJSON("user-1", map[string]string{"title": "Permohonan Diterima"})
	require.NoError(t, err)
	require.True(t, delivered)

	msg := <-c.send
	require.Contains(t, string(msg), "Permohonan Diterima")

	hub.Unregister(c)
	require.Equal(t, 0, hub.Connections("user-1"))
	require.False(t, hub.Send("user-1", []byte("late")))
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	c := NewClient("user-1", nil)
	hub.Register(c)
	for i := 0; i < sendBuffer; i++ {
		require.True(t, hub.Send("user-1", []byte("x")))
	}
	require.False(t, hub.Send("user-1", []byte("overflow")))
	require.Equal(t, 0, hub.Connections("user-1"))
}

func TestHubDeliversOverWebsocket(t *testing.T) {
	hub := NewHub(nil)
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		client := NewClient("user-9", conn)
		hub.Register(client)
		close(registered)
		go client.WritePump(nil)
		client.ReadPump(hub)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	<-registered

	_, err = hub.SendJSON("user-9", map[string]string{"status": "approved_admin"})
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(payload, &body))
	require.Equal(t, "approved_admin", body["status"])
}
