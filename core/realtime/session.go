package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const chatTimestampLayout = "2006-01-02 15:04:05"

var (
	// ErrUnauthorized rejects a connection that lacks an authenticated identity.
	ErrUnauthorized = errors.New("connection not authenticated")
)

// Conn is the live connection a session reads from and writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// session holds the state shared by both session kinds: one group
// membership on the registry for the lifetime of one connection.
type session struct {
	registry *Registry
	sub      *Subscriber
	conn     Conn
	group    string
	logger   core.Logger

	teardownOnce sync.Once
}

func newSession(registry *Registry, conn Conn, group string, logger core.Logger) *session {
	s := &session{
		registry: registry,
		sub:      NewSubscriber(),
		conn:     conn,
		group:    group,
		logger:   logger,
	}
	s.registry.Join(s.group, s.sub)
	return s
}

// teardown leaves the group, closes the subscriber and the connection.
// Runs exactly once no matter how many disconnect paths race to it.
func (s *session) teardown() {
	s.teardownOnce.Do(func() {
		s.registry.Leave(s.group, s.sub)
		s.sub.Close()
		_ = s.conn.Close()
	})
}

// writeLoop drains the subscriber's delivery channel onto the wire.
// It ends when the channel is closed (teardown or registry shutdown) or
// when a write fails.
func (s *session) writeLoop() {
	defer s.teardown()
	for evt := range s.sub.Events() {
		data, err := MarshalEvent(evt)
		if err != nil {
			s.logger.Error("marshalling event", err)
			continue
		}
		if err = s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// NotificationSession is the per-connection actor behind /ws/notifications.
// Clients only receive; the inbound side is read solely to detect closes.
type NotificationSession struct {
	*session
}

// NewNotificationSession joins the user's notification group. The username
// must come from an authenticated identity; anonymous connections are
// rejected before any group state is touched.
func NewNotificationSession(registry *Registry, conn Conn, username string, logger core.Logger) (*NotificationSession, error) {
	if username == "" {
		return nil, ErrUnauthorized
	}
	return &NotificationSession{
		session: newSession(registry, conn, NotificationGroup(username), logger),
	}, nil
}

// Run serves the connection until it disconnects.
func (s *NotificationSession) Run() {
	go s.writeLoop()
	defer s.teardown()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
		// notification clients have nothing to say; drop inbound frames
	}
}

// ChatSession is the per-connection actor behind /ws/chat/:room.
type ChatSession struct {
	*session

	username string
	now      func() time.Time
}

// NewChatSession joins the room's chat group and announces the new member
// to the whole room (including the member itself).
func NewChatSession(registry *Registry, conn Conn, room, username string, logger core.Logger) (*ChatSession, error) {
	if username == "" {
		return nil, ErrUnauthorized
	}
	s := &ChatSession{
		session:  newSession(registry, conn, ChatGroup(room), logger),
		username: username,
		now:      time.Now,
	}
	s.registry.Publish(s.group, JoinAnnouncement{Username: username})
	return s, nil
}

type inboundChat struct {
	Message *string `json:"message"`
}

// Run serves the connection until it disconnects. Malformed inbound
// payloads are logged and dropped; they never terminate the connection.
func (s *ChatSession) Run() {
	go s.writeLoop()
	defer s.teardown()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if err = s.receive(data); err != nil {
			s.logger.Warn("dropping malformed chat message", err)
		}
	}
}

// receive parses one inbound frame and publishes the formatted message.
func (s *ChatSession) receive(data []byte) error {
	var in inboundChat
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "parsing chat payload")
	}
	if in.Message == nil {
		return errors.New("missing \"message\" field")
	}
	ts := s.now().Format(chatTimestampLayout)
	s.registry.Publish(s.group, ChatMessage{
		Message: fmt.Sprintf("%s: %s (%s)", s.username, *in.Message, ts),
	})
	return nil
}
