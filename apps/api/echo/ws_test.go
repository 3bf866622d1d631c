package echoapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/realtime"
	"github.com/trezcool/darasa/core/user"
)

func wsURL(srv *httptest.Server, path, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

func dialWs(t *testing.T, srv *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, path, token), nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(data, &payload))
	return payload
}

func Test_wsApi_notifications(t *testing.T) {
	srv := httptest.NewServer(app)
	defer srv.Close()

	usr := createUser(t, "sikio", "sikio@test.cd", user.RoleStudent, true)

	t.Run("token required", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/notifications", ""), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("receives live notifications", func(t *testing.T) {
		conn := dialWs(t, srv, "/ws/notifications", getToken(t, usr))
		defer conn.Close()

		// wait for the session to join its group
		group := realtime.NotificationGroup(usr.Username)
		require.Eventually(t, func() bool { return registry.Members(group) == 1 }, time.Second, 10*time.Millisecond)

		registry.Publish(group, realtime.Notification{Message: "You have a new follower."})

		payload := readFrame(t, conn)
		assert.Equal(t, "You have a new follower.", payload["message"])
		assert.Equal(t, realtime.NotificationGeneric, payload["notification_type"])
	})

	t.Run("disconnect leaves the group", func(t *testing.T) {
		conn := dialWs(t, srv, "/ws/notifications", getToken(t, usr))

		group := realtime.NotificationGroup(usr.Username)
		require.Eventually(t, func() bool { return registry.Members(group) == 1 }, time.Second, 10*time.Millisecond)

		require.NoError(t, conn.Close())
		require.Eventually(t, func() bool { return registry.Members(group) == 0 }, time.Second, 10*time.Millisecond)
	})
}

func Test_wsApi_chat(t *testing.T) {
	srv := httptest.NewServer(app)
	defer srv.Close()

	alice := createUser(t, "alice", "alice@test.cd", user.RoleStudent, true)
	bobby := createUser(t, "bobby", "bobby@test.cd", user.RoleStudent, true)

	t.Run("bad room name", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/chat/no-dashes!", getToken(t, alice)), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("chat room", func(t *testing.T) {
		aliceConn := dialWs(t, srv, "/ws/chat/cs101", getToken(t, alice))
		defer aliceConn.Close()

		// alice sees her own join announcement
		payload := readFrame(t, aliceConn)
		assert.Equal(t, "alice has joined the chat room.", payload["message"])

		bobbyConn := dialWs(t, srv, "/ws/chat/cs101", getToken(t, bobby))
		defer bobbyConn.Close()

		// both see bobby's join announcement
		assert.Equal(t, "bobby has joined the chat room.", readFrame(t, aliceConn)["message"])
		assert.Equal(t, "bobby has joined the chat room.", readFrame(t, bobbyConn)["message"])

		// malformed payloads are dropped without killing the connection
		require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte(`{"msg":"wrong key"}`)))

		// a proper message reaches everyone, stamped and attributed
		require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte(`{"message":"hello all"}`)))

		want := "alice: hello all ("
		got := readFrame(t, bobbyConn)["message"]
		assert.True(t, strings.HasPrefix(got, want), "got %q", got)
		assert.True(t, strings.HasSuffix(got, ")"), "got %q", got)
		assert.Equal(t, got, readFrame(t, aliceConn)["message"])
	})

	t.Run("rooms are isolated", func(t *testing.T) {
		csConn := dialWs(t, srv, "/ws/chat/cs102", getToken(t, alice))
		defer csConn.Close()
		mathConn := dialWs(t, srv, "/ws/chat/math101", getToken(t, bobby))
		defer mathConn.Close()

		// drain own join announcements
		readFrame(t, csConn)
		readFrame(t, mathConn)

		require.NoError(t, csConn.WriteMessage(websocket.TextMessage, []byte(`{"message":"cs only"}`)))

		// the cs room gets it, the math room does not
		assert.Contains(t, readFrame(t, csConn)["message"], "cs only")

		_ = mathConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		_, _, err := mathConn.ReadMessage()
		assert.Error(t, err)
	})
}
