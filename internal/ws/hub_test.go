package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connect-service/internal/models"
)

type fakeGuard struct {
	allowed map[int][]int
}

func (g fakeGuard) CanJoin(ctx context.Context, conversationID int, userID int) error {
	for _, id := range g.allowed[conversationID] {
		if id == userID {
			return nil
		}
	}
	return errors.New("not a participant of this conversation")
}

type fakeTokens map[string]int

func (f fakeTokens) Parse(raw string) (int, error) {
	if id, ok := f[raw]; ok {
		return id, nil
	}
	return 0, errors.New("invalid token")
}

type recordingRelay struct {
	mu    sync.Mutex
	calls []int
}

func (r *recordingRelay) Publish(ctx context.Context, conversationID int, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, conversationID)
	return nil
}

func newTestClient(hub *Hub, userID int, guard JoinAuthorizer) *Client {
	c := NewClient(hub, nil, ConnInfo{ConnID: newConnID(), UserID: userID, ConnectedAt: time.Now()}, guard)
	hub.Register(c)
	return c
}

func readEvent(t *testing.T, c *Client) models.ConversationEvent {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		require.True(t, ok, "send queue closed")
		var event models.ConversationEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return models.ConversationEvent{}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("unexpected event %s", payload)
	default:
	}
}

func TestHubJoinLeaveAndUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, 1, nil)

	hub.Join(7, c)
	hub.Join(8, c)
	assert.Equal(t, 1, hub.RoomSize(7))
	assert.Equal(t, 1, hub.RoomSize(8))

	hub.Leave(7, c)
	assert.Equal(t, 0, hub.RoomSize(7))
	_, exists := hub.rooms[7]
	assert.False(t, exists)

	hub.Unregister(c)
	assert.Equal(t, 0, hub.RoomSize(8))
	assert.Empty(t, hub.clients)
	_, ok := <-c.send
	assert.False(t, ok)

	// second unregister is a no-op
	hub.Unregister(c)
}

func TestHubJoinIgnoresUnregisteredClient(t *testing.T) {
	hub := NewHub()
	c := NewClient(hub, nil, ConnInfo{UserID: 1}, nil)

	hub.Join(3, c)
	assert.Equal(t, 0, hub.RoomSize(3))
}

func TestBroadcastNewMessageReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub()
	alice := newTestClient(hub, 1, nil)
	bob := newTestClient(hub, 2, nil)
	carol := newTestClient(hub, 3, nil)
	hub.Join(10, alice)
	hub.Join(10, bob)
	hub.Join(11, carol)

	hub.BroadcastNewMessage(10, models.MessageView{Message: models.Message{ID: 99, ConversationID: 10, Text: "hello"}})

	for _, c := range []*Client{alice, bob} {
		event := readEvent(t, c)
		assert.Equal(t, models.EventNewMessage, event.Type)
		assert.Equal(t, 10, event.ConversationID)
		require.NotNil(t, event.Message)
		assert.Equal(t, 99, event.Message.ID)
		assert.Equal(t, "hello", event.Message.Text)
	}
	assertNoEvent(t, carol)
}

func TestBroadcastDeletionPayload(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, 1, nil)
	hub.Join(4, c)

	hub.BroadcastDeletion(4, 55)

	event := readEvent(t, c)
	assert.Equal(t, models.EventMessageDeleted, event.Type)
	assert.Equal(t, 55, event.MessageID)
	assert.True(t, event.DeletedForEveryone)
	assert.Nil(t, event.Message)
}

func TestPublishPreservesOrderPerRoom(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, 1, nil)
	hub.Join(1, c)

	for i := 1; i <= 20; i++ {
		hub.BroadcastDeletion(1, i)
	}
	for i := 1; i <= 20; i++ {
		assert.Equal(t, i, readEvent(t, c).MessageID)
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	slow := newTestClient(hub, 1, nil)
	fast := newTestClient(hub, 2, nil)
	hub.Join(1, slow)
	hub.Join(1, fast)

	for i := 0; i < sendQueueSize; i++ {
		slow.send <- []byte("{}")
	}
	hub.BroadcastDeletion(1, 1)

	assert.Equal(t, 1, hub.RoomSize(1))
	_, registered := hub.clients[slow]
	assert.False(t, registered)
	assert.Equal(t, 1, readEvent(t, fast).MessageID)
}

func TestPublishUsesRelay(t *testing.T) {
	hub := NewHub()
	relay := &recordingRelay{}
	hub.SetRelay(relay)

	hub.BroadcastDeletion(12, 1)
	assert.Equal(t, []int{12}, relay.calls)
}

func TestJoinCommandIsAuthorized(t *testing.T) {
	hub := NewHub()
	guard := fakeGuard{allowed: map[int][]int{5: {1, 2}}}
	member := newTestClient(hub, 1, guard)
	outsider := newTestClient(hub, 3, guard)

	member.handleCommand([]byte(`{"action":"joinConversation","conversationId":5}`))
	joined := readEvent(t, member)
	assert.Equal(t, models.EventJoined, joined.Type)
	assert.Equal(t, 5, joined.ConversationID)

	outsider.handleCommand([]byte(`{"action":"joinConversation","conversationId":5}`))
	rejected := readEvent(t, outsider)
	assert.Equal(t, models.EventError, rejected.Type)
	assert.NotEmpty(t, rejected.Error)
	assert.Equal(t, 1, hub.RoomSize(5))

	member.handleCommand([]byte(`{"action":"leaveConversation","conversationId":5}`))
	assert.Equal(t, 0, hub.RoomSize(5))
}

func TestMalformedCommandsGetErrors(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, 1, fakeGuard{})

	for _, raw := range []string{`not json`, `{"action":"joinConversation"}`, `{"action":"dance","conversationId":1}`} {
		c.handleCommand([]byte(raw))
		assert.Equal(t, models.EventError, readEvent(t, c).Type, raw)
	}
}

func TestRelayIgnoresOwnMessages(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, 1, nil)
	hub.Join(9, c)
	relay := &RedisRelay{hub: hub, instanceID: "self"}

	event := encodeEvent(models.ConversationEvent{Type: models.EventMessageDeleted, ConversationID: 9, MessageID: 3, DeletedForEveryone: true})
	own, _ := json.Marshal(relayMessage{Origin: "self", ConversationID: 9, Event: event})
	relay.handle(string(own))
	assertNoEvent(t, c)

	other, _ := json.Marshal(relayMessage{Origin: "other", ConversationID: 9, Event: event})
	relay.handle(string(other))
	assert.Equal(t, 3, readEvent(t, c).MessageID)

	relay.handle("garbage")
	assertNoEvent(t, c)
}

func TestHandlerEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	handler := NewHandler(hub, fakeTokens{"good": 1}, fakeGuard{allowed: map[int][]int{42: {1}}}, nil)
	router := gin.New()
	router.GET("/ws", handler.Handle)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=good", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(models.ClientCommand{Action: models.ActionJoinConversation, ConversationID: 42}))
	var joined models.ConversationEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&joined))
	assert.Equal(t, models.EventJoined, joined.Type)

	hub.BroadcastNewMessage(42, models.MessageView{Message: models.Message{ID: 7, ConversationID: 42, Text: "hi"}})
	var received models.ConversationEvent
	require.NoError(t, conn.ReadJSON(&received))
	assert.Equal(t, models.EventNewMessage, received.Type)
	require.NotNil(t, received.Message)
	assert.Equal(t, "hi", received.Message.Text)
}
