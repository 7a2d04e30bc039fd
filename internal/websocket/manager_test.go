package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingHandler struct {
	mu       sync.Mutex
	messages []*Message
	closed   []string
}

func (h *recordingHandler) HandleWebSocketMessage(_ context.Context, client *Client, msg *Message) error {
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()
	reply, err := msg.Reply(TypeAck, AckPayload{Op: msg.Type})
	if err != nil {
		return err
	}
	return client.SendMessage(reply)
}

func (h *recordingHandler) ClientClosed(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, client.ID)
}

func (h *recordingHandler) closedIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.closed...)
}

func startManager(t *testing.T, maxConn int) (*Manager, *recordingHandler, context.CancelFunc) {
	t.Helper()
	m := NewManager(Options{MaxConnPerUser: maxConn})
	h := &recordingHandler{}
	m.SetMessageHandler(h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m, h, cancel
}

func receive(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("no message queued")
		return nil
	}
}

func TestManager_RegisterLimit(t *testing.T) {
	m, h, _ := startManager(t, 2)

	a := NewClient("a", "u1", nil, m)
	b := NewClient("b", "u1", nil, m)
	c := NewClient("c", "u1", nil, m)
	other := NewClient("d", "u2", nil, m)

	require.NoError(t, m.Register(a))
	require.NoError(t, m.Register(b))
	assert.ErrorIs(t, m.Register(c), ErrTooManyConnections)
	require.NoError(t, m.Register(other))
	assert.Equal(t, 2, m.GetUserConnections("u1"))

	m.Unregister(a)
	assert.Equal(t, 1, m.GetUserConnections("u1"))
	assert.Equal(t, []string{"a"}, h.closedIDs())

	_, ok := <-a.Send
	assert.False(t, ok, "unregistered client's send channel is closed")

	// Second unregister is a no-op.
	m.Unregister(a)
	assert.Equal(t, []string{"a"}, h.closedIDs())
}

func TestManager_Dispatch(t *testing.T) {
	m, h, _ := startManager(t, 0)
	c := NewClient("a", "u1", nil, m)
	require.NoError(t, m.Register(c))

	m.dispatch(c, []byte(`{"id":"7","type":"ping"}`))
	reply := receive(t, c)
	assert.Equal(t, TypeAck, reply.Type)
	assert.Equal(t, "7", reply.ID)

	var ack AckPayload
	require.NoError(t, reply.UnmarshalPayload(&ack))
	assert.Equal(t, TypePing, ack.Op)

	m.dispatch(c, []byte(`{not json`))
	reply = receive(t, c)
	assert.Equal(t, TypeError, reply.Type)

	h.mu.Lock()
	assert.Len(t, h.messages, 1)
	h.mu.Unlock()
}

func TestManager_SendToUser(t *testing.T) {
	m, _, _ := startManager(t, 0)
	a := NewClient("a", "u1", nil, m)
	b := NewClient("b", "u1", nil, m)
	other := NewClient("c", "u2", nil, m)
	for _, c := range []*Client{a, b, other} {
		require.NoError(t, m.Register(c))
	}

	msg, err := NewMessage(TypePong, nil)
	require.NoError(t, err)
	require.NoError(t, m.SendToUser("u1", msg))

	assert.Equal(t, TypePong, receive(t, a).Type)
	assert.Equal(t, TypePong, receive(t, b).Type)
	assert.Empty(t, other.Send)
}

func TestManager_RunStopClosesClients(t *testing.T) {
	m, h, cancel := startManager(t, 0)
	c := NewClient("a", "u1", nil, m)
	require.NoError(t, m.Register(c))

	cancel()
	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, h.closedIDs())

	assert.ErrorIs(t, m.Register(NewClient("b", "u1", nil, m)), ErrManagerClosed)
}

func TestClient_EnqueueFullBufferCloses(t *testing.T) {
	m := NewManager(Options{})
	c := NewClient("a", "u1", nil, m)
	for i := 0; i < cap(c.Send); i++ {
		require.True(t, c.Enqueue([]byte("x")))
	}
	assert.False(t, c.Enqueue([]byte("overflow")))
	assert.False(t, c.Enqueue([]byte("after close")))
}

func TestMessage_Reply(t *testing.T) {
	in := &Message{ID: "abc", Type: TypeRemove}
	out, err := in.Reply(TypeError, ErrorPayload{Op: TypeRemove, Code: "not_found", Message: "gone"})
	require.NoError(t, err)
	assert.Equal(t, "abc", out.ID)

	var p ErrorPayload
	require.NoError(t, out.UnmarshalPayload(&p))
	assert.Equal(t, "not_found", p.Code)
	assert.Equal(t, TypeRemove, p.Op)
}
