package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrTooManyConnections = errors.New("too many connections for user")
	ErrManagerClosed      = errors.New("websocket manager stopped")
)

// MessageHandler serves the messages of registered clients. ClientClosed is
// called once per client after it leaves the manager.
type MessageHandler interface {
	HandleWebSocketMessage(ctx context.Context, client *Client, msg *Message) error
	ClientClosed(client *Client)
}

type Options struct {
	MaxConnPerUser int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	Logger         *zap.Logger
}

type registration struct {
	client *Client
	result chan error
}

type Manager struct {
	clients      map[string]*Client
	userIndex    map[string]map[string]bool
	clientsMutex sync.RWMutex

	register   chan registration
	unregister chan registration
	done       chan struct{}
	ctx        context.Context

	maxConnPerUser int
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	messageHandler MessageHandler
	logger         *zap.Logger
}

func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		clients:        make(map[string]*Client),
		userIndex:      make(map[string]map[string]bool),
		register:       make(chan registration),
		unregister:     make(chan registration),
		done:           make(chan struct{}),
		ctx:            context.Background(),
		maxConnPerUser: opts.MaxConnPerUser,
		maxMessageSize: opts.MaxMessageSize,
		writeWait:      opts.WriteWait,
		pongWait:       opts.PongWait,
		pingPeriod:     opts.PingPeriod,
		logger:         logger.With(zap.String("component", "websocket")),
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

// Run serves registrations until ctx is done, then closes every client.
func (m *Manager) Run(ctx context.Context) error {
	m.ctx = ctx
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return nil

		case reg := <-m.register:
			reg.result <- m.registerClient(reg.client)

		case reg := <-m.unregister:
			m.unregisterClient(reg.client)
			reg.result <- nil
		}
	}
}

// Register adds client, failing when the user is at the connection limit.
func (m *Manager) Register(client *Client) error {
	reg := registration{client: client, result: make(chan error, 1)}
	select {
	case m.register <- reg:
		return <-reg.result
	case <-m.done:
		return ErrManagerClosed
	}
}

// Unregister removes client and returns once the handler has released it.
func (m *Manager) Unregister(client *Client) {
	reg := registration{client: client, result: make(chan error, 1)}
	select {
	case m.unregister <- reg:
		<-reg.result
	case <-m.done:
	}
}

func (m *Manager) registerClient(client *Client) error {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.maxConnPerUser > 0 && len(m.userIndex[client.UserID]) >= m.maxConnPerUser {
		m.logger.Warn("max connections reached", zap.String("user_id", client.UserID))
		return ErrTooManyConnections
	}

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}
	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	m.logger.Info("client registered", zap.String("client_id", client.ID), zap.String("user_id", client.UserID))
	return nil
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	_, ok := m.clients[client.ID]
	if ok {
		delete(m.clients, client.ID)
		delete(m.userIndex[client.UserID], client.ID)
		if len(m.userIndex[client.UserID]) == 0 {
			delete(m.userIndex, client.UserID)
		}
	}
	m.clientsMutex.Unlock()

	if !ok {
		return
	}
	m.release(client)
	m.logger.Info("client unregistered", zap.String("client_id", client.ID))
}

// release lets the handler drop client state before the send channel closes.
func (m *Manager) release(client *Client) {
	if m.messageHandler != nil {
		m.messageHandler.ClientClosed(client)
	}
	client.close()
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.clients = make(map[string]*Client)
	m.userIndex = make(map[string]map[string]bool)
	m.clientsMutex.Unlock()

	for _, c := range clients {
		m.release(c)
	}
	m.logger.Info("websocket manager stopped", zap.Int("closed_clients", len(clients)))
}

func (m *Manager) dispatch(client *Client, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.logger.Debug("dropping malformed message", zap.String("client_id", client.ID), zap.Error(err))
		reply, _ := NewMessage(TypeError, ErrorPayload{Code: "bad_message", Message: "message is not valid JSON"})
		client.SendMessage(reply)
		return
	}

	if m.messageHandler == nil {
		return
	}
	if err := m.messageHandler.HandleWebSocketMessage(m.ctx, client, &msg); err != nil {
		m.logger.Warn("message handling failed",
			zap.String("client_id", client.ID),
			zap.String("type", string(msg.Type)),
			zap.Error(err),
		)
	}
}

// SendToUser queues message on every connection of the user.
func (m *Manager) SendToUser(userID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	for clientID := range m.userIndex[userID] {
		m.clients[clientID].Enqueue(data)
	}
	return nil
}

func (m *Manager) GetUserConnections(userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.userIndex[userID])
}
